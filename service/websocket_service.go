package service

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tieubaoca/policy-assistant/types"
)

const (
	wsReadLimit   = 64 * 1024
	wsIdleTimeout = 60 * time.Second
)

// WebSocketService serves the chat pipeline over a websocket. Each "chat"
// frame is handled exactly like a POST /chat body.
type WebSocketService struct {
	chat     ChatService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWebSocketService(chat ChatService, logger *zap.Logger) *WebSocketService {
	return &WebSocketService{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HandleChat upgrades the connection and answers frames until the client
// goes away. userEmail, when set, overrides the one in each payload.
func (s *WebSocketService) HandleChat(w http.ResponseWriter, r *http.Request, userEmail string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	})

	ctx := r.Context()
	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			s.writeError(conn, "", "Invalid message format")
			continue
		}

		switch req.Type {
		case types.TypeWebsocketPing:
			s.write(conn, types.WebSocketResponse{Type: types.TypeWebsocketPong})
		case types.TypeWebsocketChat:
			if req.Payload == nil {
				s.writeError(conn, "", VALIDATION_MESSAGE)
				continue
			}
			payload := *req.Payload
			if userEmail != "" {
				payload.UserEmail = userEmail
			}
			result, err := s.chat.Ask(ctx, payload)
			res := types.NewChatResponse(result)
			msgType := types.TypeWebsocketChat
			switch {
			case err != nil:
				msgType = types.TypeWebsocketError
				res.Error = err.Error()
			case result.Blocked:
				msgType = types.TypeWebsocketError
				res.Error = "privacy violation"
			}
			s.write(conn, types.WebSocketResponse{Type: msgType, Payload: &res})
		default:
			s.writeError(conn, "", "Invalid message type")
		}
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, sessionID, message string) {
	s.write(conn, types.WebSocketResponse{
		Type: types.TypeWebsocketError,
		Payload: &types.ChatResponse{
			Answer:    message,
			Citations: []types.Citation{},
			SessionID: sessionID,
			Error:     message,
		},
	})
}

func (s *WebSocketService) write(conn *websocket.Conn, msg types.WebSocketResponse) {
	if err := conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write error", zap.Error(err))
	}
}
