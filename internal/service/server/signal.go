package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"
	"e2e_relay/internal/utils/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func (s *HttpServer) HandleSignal() http.HandlerFunc {
	type response struct {
		Success   bool   `json:"success"`
		MessageID string `json:"messageId"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var msg model.SignalingMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			writeError(w, common.NewValidationError("body", "malformed JSON"))
			return
		}

		id, err := s.relay.Relay(r.Context(), &msg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true, MessageID: id})
	}
}

// HandleConnectWS upgrades the caller to a websocket, registers it as the
// user's live signaling transport, and relays every frame the client writes.
func (s *HttpServer) HandleConnectWS() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // identity is a collaborator concern, not enforced here
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(w, "userId cannot be empty", http.StatusBadRequest)
			return
		}
		if s.hub.Online(userID) {
			http.Error(w, "duplicated userId", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			http.Error(w, "Failed to upgrade", http.StatusInternalServerError)
			return
		}

		if !s.hub.Register(userID, conn) {
			// Lost a race with a concurrent connect for the same user.
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "duplicated userId"),
				time.Now().Add(time.Second))
			conn.Close()
			return
		}
		go s.processSignalFrames(userID, conn)
	}
}

func (s *HttpServer) processSignalFrames(userID string, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debug("signaling socket closed", zap.String("userId", userID), zap.Error(err))
			s.hub.Unregister(userID)
			conn.Close()
			break
		}

		var msg model.SignalingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Error("unmarshal signal failed", zap.String("userId", userID), zap.Error(err))
			continue
		}
		msg.From = userID

		if _, err := s.relay.Relay(context.Background(), &msg); err != nil {
			log.Error("relay signal failed", zap.String("userId", userID), zap.Error(err))
		}
	}
}
