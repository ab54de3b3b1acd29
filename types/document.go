package types

// DocumentStatus is the ingestion lifecycle state of a policy document.
type DocumentStatus string

const (
	DOCUMENT_STATUS_PENDING   DocumentStatus = "pending"
	DOCUMENT_STATUS_COMPLETED DocumentStatus = "completed"
	DOCUMENT_STATUS_FAILED    DocumentStatus = "failed"
)

// PolicyDocument is a government policy document produced by ingestion.
// Only completed documents are eligible for retrieval.
type PolicyDocument struct {
	ID     string         `json:"id" bson:"_id"`
	Title  string         `json:"title" bson:"title"`
	Source string         `json:"source" bson:"source"` // issuing authority
	URL    string         `json:"url" bson:"url"`
	Status DocumentStatus `json:"status" bson:"status"`
}

// Chunk is a contiguous slice of a document's text, the unit of retrieval.
type Chunk struct {
	ID         string `json:"id" bson:"_id"`
	DocumentID string `json:"document_id" bson:"document_id"`
	Ordinal    int    `json:"ordinal" bson:"ordinal"`
	Section    string `json:"section" bson:"section"`
	Text       string `json:"text" bson:"text"`
}

// Passage is a retrieved chunk annotated with its parent document.
type Passage struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Ordinal    int     `json:"ordinal"`
	Section    string  `json:"section"`
	Text       string  `json:"text"`
	Title      string  `json:"title"`
	Source     string  `json:"source"`
	URL        string  `json:"url"`
	Score      float64 `json:"score"`
}

// Citation is a numbered reference to a passage. ID matches the in-text
// reference number.
type Citation struct {
	ID      int     `json:"id" bson:"id"`
	Title   string  `json:"title" bson:"title"`
	Section string  `json:"section" bson:"section"`
	Source  string  `json:"source" bson:"source"`
	URL     *string `json:"url" bson:"url"`
}
