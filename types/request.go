package types

type FeedbackRequest struct {
	ChatID   string `json:"chatId"`
	Feedback string `json:"feedback"`
}

type HistoryRequest struct {
	SessionID string `form:"sessionId"`
}

type SearchRequest struct {
	Query string `form:"q"`
	Limit int    `form:"limit"`
}
