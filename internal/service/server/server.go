package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/config"
	"e2e_relay/internal/model"
	"e2e_relay/internal/queue"
	"e2e_relay/internal/receipt"
	"e2e_relay/internal/sealedurl"
	"e2e_relay/internal/signaling"
	"e2e_relay/internal/utils/log"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type (
	// FileStore is the encrypted-blob storage consumed by the upload and
	// download handlers.
	FileStore interface {
		Save(ctx context.Context, meta *model.FileMetadata, blob io.Reader) error
		Get(ctx context.Context, fileID string) (*model.FileMetadata, error)
		Download(ctx context.Context, fileID string, w io.Writer) (int64, error)
	}

	// HealthChecker reports round-trip latency to the queue's backing store.
	HealthChecker interface {
		Ping(ctx context.Context) (time.Duration, error)
	}

	HttpServer struct {
		cfg      *config.Config
		queue    *queue.Queue
		receipts receipt.Store
		issuer   *sealedurl.Issuer
		relay    *signaling.Relay
		files    FileStore
		hub      *Hub
		health   HealthChecker
	}
)

func NewHttpServer(
	cfg *config.Config,
	q *queue.Queue,
	receipts receipt.Store,
	issuer *sealedurl.Issuer,
	files FileStore,
	hub *Hub,
	health HealthChecker,
) *HttpServer {
	return &HttpServer{
		cfg:      cfg,
		queue:    q,
		receipts: receipts,
		issuer:   issuer,
		relay:    signaling.NewRelay(hub),
		files:    files,
		hub:      hub,
		health:   health,
	}
}

func (s *HttpServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/messages/send", s.HandleSend()).Methods(http.MethodPost)
	r.HandleFunc("/messages/receive", s.HandleReceive()).Methods(http.MethodGet)
	r.HandleFunc("/messages/stats", s.HandleStats()).Methods(http.MethodGet)
	r.HandleFunc("/messages/receipts", s.HandleRecordReceipt()).Methods(http.MethodPost)
	r.HandleFunc("/messages/receipts", s.HandleListReceipts()).Methods(http.MethodGet)
	r.HandleFunc("/files/upload", s.HandleUpload()).Methods(http.MethodPost)
	r.HandleFunc("/files/download", s.HandleDownload()).Methods(http.MethodGet)
	r.HandleFunc("/webrtc/signal", s.HandleSignal()).Methods(http.MethodPost)
	r.HandleFunc("/webrtc/connect", s.HandleConnectWS()).Methods(http.MethodGet)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("write response failed", zap.Error(err))
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeError maps the core's error taxonomy onto HTTP statuses. Storage
// failures stay generic for the client and detailed in the log; ciphertext and
// keys never appear in either.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case common.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrQueueFull):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrNoRegisteredDevices):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrTokenNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrTokenExpired):
		writeJSON(w, http.StatusGone, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrTokenAlreadyUsed):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrFileNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case common.IsStorage(err):
		log.Error("storage failure", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "temporary storage failure, try again"})
	default:
		log.Error("unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

type (
	// hubConn serializes writes to one websocket, which does not allow
	// concurrent writers.
	hubConn struct {
		mu   sync.Mutex
		conn *websocket.Conn
	}

	// Hub tracks which users currently hold a live websocket, and is the
	// relay's Presence collaborator. The map lock covers only lookups and
	// registration; the network write happens under the per-connection lock,
	// so one stalled client cannot block deliveries to everyone else.
	Hub struct {
		mu    sync.RWMutex
		conns map[string]*hubConn
	}
)

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*hubConn),
	}
}

func (h *Hub) Register(userID string, conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[userID]; ok {
		return false
	}
	h.conns[userID] = &hubConn{conn: conn}
	return true
}

func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, userID)
}

// Online reports whether userID currently holds a live websocket.
func (h *Hub) Online(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[userID]
	return ok
}

func (h *Hub) Deliver(ctx context.Context, userID string, payload []byte) bool {
	h.mu.RLock()
	c, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	c.mu.Lock()
	err := c.conn.WriteMessage(websocket.TextMessage, payload)
	c.mu.Unlock()
	if err != nil {
		log.Debug("signal write failed", zap.String("userId", userID), zap.Error(err))
		return false
	}
	return true
}
