package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/envelope"
	"e2e_relay/internal/model"
	"e2e_relay/internal/utils/log"

	"go.uber.org/zap"
)

const (
	defaultReceiveLimit = 50
	maxReceiveLimit     = 100
)

func (s *HttpServer) HandleSend() http.HandlerFunc {
	type response struct {
		Success       bool      `json:"success"`
		MessageID     string    `json:"messageId"`
		Timestamp     time.Time `json:"timestamp"`
		QueuePosition int       `json:"queuePosition"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var in envelope.BuildInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, common.NewValidationError("body", "malformed JSON"))
			return
		}

		env, err := envelope.Build(in)
		if err != nil {
			writeError(w, err)
			return
		}

		pos, err := s.queue.Push(ctx, env)
		if err != nil {
			writeError(w, err)
			return
		}

		// The envelope is accepted; a failed sent-receipt is logged, not
		// surfaced, so the sender still learns the message ID.
		for _, deviceID := range s.targetDevices(r, env) {
			if err := s.receipts.Record(ctx, env.ID, deviceID, model.ReceiptSent); err != nil {
				log.Error("record sent receipt failed",
					zap.String("messageId", env.ID), zap.String("deviceId", deviceID), zap.Error(err))
			}
		}

		writeJSON(w, http.StatusOK, response{
			Success:       true,
			MessageID:     env.ID,
			Timestamp:     env.Timestamp,
			QueuePosition: pos,
		})
	}
}

func (s *HttpServer) targetDevices(r *http.Request, env *model.MessageEnvelope) []string {
	if env.ToDeviceID != "" {
		return []string{env.ToDeviceID}
	}
	devices, err := s.queue.Devices(r.Context(), env.ToUserID)
	if err != nil {
		log.Error("list devices failed", zap.String("userId", env.ToUserID), zap.Error(err))
		return nil
	}
	return devices
}

func (s *HttpServer) HandleReceive() http.HandlerFunc {
	type response struct {
		Success  bool                     `json:"success"`
		Messages []*model.MessageEnvelope `json:"messages"`
		Count    int                      `json:"count"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := r.URL.Query().Get("userId")
		deviceID := r.URL.Query().Get("deviceId")
		if userID == "" {
			writeError(w, common.NewValidationError("userId", "required"))
			return
		}
		if deviceID == "" {
			writeError(w, common.NewValidationError("deviceId", "required"))
			return
		}

		limit := defaultReceiveLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, common.NewValidationError("limit", "must be a positive integer"))
				return
			}
			limit = min(n, maxReceiveLimit)
		}

		messages, err := s.queue.Pop(ctx, userID, deviceID, limit)
		if err != nil {
			writeError(w, err)
			return
		}

		for _, env := range messages {
			if err := s.receipts.Record(ctx, env.ID, deviceID, model.ReceiptDelivered); err != nil {
				log.Error("record delivered receipt failed",
					zap.String("messageId", env.ID), zap.String("deviceId", deviceID), zap.Error(err))
			}
		}

		if messages == nil {
			messages = []*model.MessageEnvelope{}
		}
		writeJSON(w, http.StatusOK, response{
			Success:  true,
			Messages: messages,
			Count:    len(messages),
		})
	}
}

func (s *HttpServer) HandleStats() http.HandlerFunc {
	type storageHealth struct {
		Connected bool  `json:"connected"`
		LatencyMs int64 `json:"latencyMs"`
	}
	type response struct {
		Success bool          `json:"success"`
		Stats   any           `json:"stats"`
		Storage storageHealth `json:"storage"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := r.URL.Query().Get("userId")
		if userID == "" {
			writeError(w, common.NewValidationError("userId", "required"))
			return
		}

		stats, err := s.queue.Stats(ctx, userID)
		if err != nil {
			writeError(w, err)
			return
		}

		health := storageHealth{}
		if latency, err := s.health.Ping(ctx); err == nil {
			health.Connected = true
			health.LatencyMs = latency.Milliseconds()
		}

		writeJSON(w, http.StatusOK, response{
			Success: true,
			Stats:   stats,
			Storage: health,
		})
	}
}

func (s *HttpServer) HandleRecordReceipt() http.HandlerFunc {
	type request struct {
		MessageID string             `json:"messageId"`
		DeviceID  string             `json:"deviceId"`
		Event     model.ReceiptEvent `json:"event"`
	}
	type response struct {
		Success bool `json:"success"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, common.NewValidationError("body", "malformed JSON"))
			return
		}
		switch {
		case req.MessageID == "":
			writeError(w, common.NewValidationError("messageId", "required"))
			return
		case req.DeviceID == "":
			writeError(w, common.NewValidationError("deviceId", "required"))
			return
		case !model.ValidReceiptEvent(req.Event):
			writeError(w, common.NewValidationError("event", "must be sent, delivered or read"))
			return
		}

		if err := s.receipts.Record(r.Context(), req.MessageID, req.DeviceID, req.Event); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, response{Success: true})
	}
}

func (s *HttpServer) HandleListReceipts() http.HandlerFunc {
	type response struct {
		Success  bool            `json:"success"`
		Receipts []model.Receipt `json:"receipts"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		messageID := r.URL.Query().Get("messageId")
		if messageID == "" {
			writeError(w, common.NewValidationError("messageId", "required"))
			return
		}

		receipts, err := s.receipts.Get(r.Context(), messageID)
		if err != nil {
			writeError(w, err)
			return
		}
		if receipts == nil {
			receipts = []model.Receipt{}
		}
		writeJSON(w, http.StatusOK, response{Success: true, Receipts: receipts})
	}
}
