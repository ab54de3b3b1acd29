package types

type ChatResponse struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	SessionID string     `json:"sessionId"`
	ChatID    string     `json:"chatId,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type FeedbackResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type HistoryMessage struct {
	ID        string     `json:"id"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
	CreatedAt int64      `json:"created_at"`
}

type HistoryResponse struct {
	Messages []HistoryMessage `json:"messages"`
	Error    string           `json:"error,omitempty"`
}

type SearchResponse struct {
	Passages []Passage `json:"passages"`
	Error    string    `json:"error,omitempty"`
}

func NewChatResponse(result ChatResult) ChatResponse {
	citations := result.Citations
	if citations == nil {
		citations = []Citation{}
	}
	return ChatResponse{
		Answer:    result.Answer,
		Citations: citations,
		SessionID: result.SessionID,
		ChatID:    result.ChatID,
	}
}

func NewHistoryMessage(i *Interaction) HistoryMessage {
	citations := i.Citations
	if citations == nil {
		citations = []Citation{}
	}
	return HistoryMessage{
		ID:        i.ID,
		Question:  i.Question,
		Answer:    i.Answer,
		Citations: citations,
		CreatedAt: i.CreatedAt,
	}
}
