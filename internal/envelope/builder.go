// Package envelope constructs immutable message envelopes from raw encrypted
// fields. Building has no side effects; the queue owns everything after.
package envelope

import (
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"

	"github.com/google/uuid"
)

type (
	// BuildInput carries every envelope field the client controls. ID and
	// Timestamp are always server-assigned.
	BuildInput struct {
		FromUserID      string            `json:"fromUserId"`
		FromDeviceID    string            `json:"fromDeviceId"`
		ToUserID        string            `json:"toUserId"`
		ToDeviceID      string            `json:"toDeviceId"`
		Ciphertext      string            `json:"ciphertext"`
		IV              string            `json:"iv"`
		Counter         uint32            `json:"counter"`
		PreviousCounter uint32            `json:"previousCounter"`
		PublicKey       string            `json:"publicKey"`
		Type            model.MessageType `json:"type"`
		Priority        model.Priority    `json:"priority"`
	}
)

// Build validates in and returns a new envelope with a unique unpredictable ID
// and a server-clock timestamp. Type defaults to "regular" and priority to
// "normal" when omitted.
func Build(in BuildInput) (*model.MessageEnvelope, error) {
	switch {
	case in.FromUserID == "":
		return nil, common.NewValidationError("fromUserId", "required")
	case in.FromDeviceID == "":
		return nil, common.NewValidationError("fromDeviceId", "required")
	case in.ToUserID == "":
		return nil, common.NewValidationError("toUserId", "required")
	case in.Ciphertext == "":
		return nil, common.NewValidationError("ciphertext", "required")
	case in.IV == "":
		return nil, common.NewValidationError("iv", "required")
	}

	msgType := in.Type
	if msgType == "" {
		msgType = model.MessageTypeRegular
	}
	if !model.ValidMessageType(msgType) {
		return nil, common.NewValidationError("type", "unknown message type")
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}
	if !model.ValidPriority(priority) {
		return nil, common.NewValidationError("priority", "unknown priority")
	}

	return &model.MessageEnvelope{
		ID:              uuid.NewString(),
		FromUserID:      in.FromUserID,
		FromDeviceID:    in.FromDeviceID,
		ToUserID:        in.ToUserID,
		ToDeviceID:      in.ToDeviceID,
		Ciphertext:      in.Ciphertext,
		IV:              in.IV,
		Counter:         in.Counter,
		PreviousCounter: in.PreviousCounter,
		PublicKey:       in.PublicKey,
		Type:            msgType,
		Priority:        priority,
		Timestamp:       time.Now().UTC(),
	}, nil
}
