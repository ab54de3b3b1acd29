package types

// ResponseMode controls the verbosity of the generation instruction.
type ResponseMode string

const (
	RESPONSE_MODE_SUMMARY  ResponseMode = "summary"
	RESPONSE_MODE_DETAILED ResponseMode = "detailed"
)

// ParseResponseMode maps a client value to a mode, defaulting to summary.
func ParseResponseMode(v string) ResponseMode {
	if ResponseMode(v) == RESPONSE_MODE_DETAILED {
		return RESPONSE_MODE_DETAILED
	}
	return RESPONSE_MODE_SUMMARY
}

// Feedback is the user's rating of an answered interaction.
type Feedback string

const (
	FEEDBACK_UNSET    Feedback = "unset"
	FEEDBACK_POSITIVE Feedback = "positive"
	FEEDBACK_NEGATIVE Feedback = "negative"
)

// Interaction is one logged question/answer exchange.
type Interaction struct {
	ID        string     `json:"id" bson:"_id"`
	SessionID string     `json:"session_id" bson:"session_id"`
	UserEmail *string    `json:"user_email,omitempty" bson:"user_email,omitempty"`
	Question  string     `json:"question" bson:"question"`
	Answer    string     `json:"answer" bson:"answer"`
	Citations []Citation `json:"citations" bson:"citations"`
	Feedback  Feedback   `json:"feedback" bson:"feedback"`
	CreatedAt int64      `json:"created_at" bson:"created_at"` // unix millis
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Question     string `json:"question"`
	SessionID    string `json:"sessionId"`
	UserEmail    string `json:"userEmail,omitempty"`
	ResponseType string `json:"responseType,omitempty"`
}

// ChatResult is what the pipeline produced for one request.
type ChatResult struct {
	Answer    string
	Citations []Citation
	SessionID string
	ChatID    string
	Blocked   bool
}
