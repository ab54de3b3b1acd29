package types

const (
	TypeWebsocketPing  = "ping"
	TypeWebsocketPong  = "pong"
	TypeWebsocketChat  = "chat"
	TypeWebsocketError = "error"
)

type WebsocketRequest struct {
	Type    string       `json:"type"`
	Payload *ChatRequest `json:"payload,omitempty"`
}

type WebSocketResponse struct {
	Type    string        `json:"type"`
	Payload *ChatResponse `json:"payload,omitempty"`
}
