// Package signaling relays WebRTC call-setup and key-rotation messages between
// two live parties. The relay is transport, not a call-control authority: it
// validates only the message type, keeps no durable state, and drops messages
// addressed to parties that are not currently reachable.
package signaling

import (
	"context"
	"encoding/json"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"
	"e2e_relay/internal/utils/log"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	// Presence is the liveness/transport collaborator. Deliver returns false
	// when the addressed user has no reachable transport.
	Presence interface {
		Deliver(ctx context.Context, userID string, payload []byte) bool
	}

	Relay struct {
		presence Presence
	}
)

func NewRelay(presence Presence) *Relay {
	return &Relay{presence: presence}
}

// Relay validates msg and forwards it to the addressed party. The payload in
// msg.Data is opaque and forwarded verbatim. Returns the assigned message ID;
// an unreachable recipient is not an error, the message is simply dropped.
func (r *Relay) Relay(ctx context.Context, msg *model.SignalingMessage) (string, error) {
	if !model.ValidSignalType(msg.Type) {
		return "", common.NewValidationError("type", "unknown signaling type")
	}
	if msg.From == "" {
		return "", common.NewValidationError("from", "required")
	}
	if msg.To == "" {
		return "", common.NewValidationError("to", "required")
	}

	out := *msg
	out.ID = uuid.NewString()

	payload, err := json.Marshal(&out)
	if err != nil {
		return "", err
	}

	if !r.presence.Deliver(ctx, out.To, payload) {
		log.Debug("dropping signal for unreachable party",
			zap.String("to", out.To), zap.String("type", string(out.Type)))
	}
	return out.ID, nil
}
