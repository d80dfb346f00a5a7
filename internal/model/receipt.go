package model

import "time"

type ReceiptEvent string

const (
	ReceiptSent      ReceiptEvent = "sent"
	ReceiptDelivered ReceiptEvent = "delivered"
	ReceiptRead      ReceiptEvent = "read"
)

// Rank orders lifecycle events: sent < delivered < read. Unknown events rank 0.
func (e ReceiptEvent) Rank() int {
	switch e {
	case ReceiptSent:
		return 1
	case ReceiptDelivered:
		return 2
	case ReceiptRead:
		return 3
	}
	return 0
}

func ValidReceiptEvent(e ReceiptEvent) bool {
	return e.Rank() > 0
}

type (
	// Receipt is the fact "device DeviceID observed Event for envelope
	// EnvelopeID at Timestamp". The same fact is never stored twice.
	Receipt struct {
		EnvelopeID string       `json:"envelopeId" bson:"envelopeId"`
		DeviceID   string       `json:"deviceId" bson:"deviceId"`
		Event      ReceiptEvent `json:"event" bson:"event"`
		Timestamp  time.Time    `json:"timestamp" bson:"timestamp"`
	}
)
