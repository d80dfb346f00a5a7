package model

import "time"

type (
	MessageType string
	Priority    string
)

const (
	MessageTypeRegular     MessageType = "regular"
	MessageTypeKeyRotation MessageType = "key-rotation"
	MessageTypeSystem      MessageType = "system"

	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// ValidMessageType reports whether t is one of the known envelope types.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeRegular, MessageTypeKeyRotation, MessageTypeSystem:
		return true
	}
	return false
}

// ValidPriority reports whether p is a known delivery priority.
func ValidPriority(p Priority) bool {
	return p == PriorityNormal || p == PriorityHigh
}

type (
	// MessageEnvelope is one encrypted message in transit. The server never
	// inspects Ciphertext or IV; Counter/PreviousCounter/PublicKey are ratchet
	// bookkeeping stored and forwarded for the receiving client.
	MessageEnvelope struct {
		ID              string      `json:"id"`
		FromUserID      string      `json:"fromUserId"`
		FromDeviceID    string      `json:"fromDeviceId"`
		ToUserID        string      `json:"toUserId"`
		ToDeviceID      string      `json:"toDeviceId,omitempty"` // empty = fan out to all devices
		Ciphertext      string      `json:"ciphertext"`
		IV              string      `json:"iv"`
		Counter         uint32      `json:"counter"`
		PreviousCounter uint32      `json:"previousCounter"`
		PublicKey       string      `json:"publicKey,omitempty"` // set on ratchet key rotation
		Type            MessageType `json:"type"`
		Priority        Priority    `json:"priority"`
		Timestamp       time.Time   `json:"timestamp"`
	}
)
