// Package receipt keeps the per-device delivery lifecycle ledger. Receipts are
// forward-only facts: each (envelope, device, event) is recorded at most once
// and the derived device state is the highest-ranked event, so a late
// "delivered" never regresses an earlier "read".
package receipt

import (
	"context"

	"e2e_relay/internal/model"
)

type (
	// Store records and lists lifecycle receipts. Record is idempotent:
	// repeating a call changes nothing and is not an error.
	Store interface {
		Record(ctx context.Context, envelopeID, deviceID string, event model.ReceiptEvent) error
		Get(ctx context.Context, envelopeID string) ([]model.Receipt, error)
	}
)

// DeviceState derives the lifecycle state of one device from its recorded
// receipts: the highest-ranked event, or "" when none are recorded.
func DeviceState(receipts []model.Receipt, deviceID string) model.ReceiptEvent {
	var state model.ReceiptEvent
	for _, r := range receipts {
		if r.DeviceID == deviceID && r.Event.Rank() > state.Rank() {
			state = r.Event
		}
	}
	return state
}
