package signaling

import (
	"context"
	"encoding/json"
	"testing"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresence struct {
	online    map[string]bool
	delivered map[string][][]byte
}

func newFakePresence(online ...string) *fakePresence {
	p := &fakePresence{
		online:    make(map[string]bool),
		delivered: make(map[string][][]byte),
	}
	for _, u := range online {
		p.online[u] = true
	}
	return p
}

func (p *fakePresence) Deliver(ctx context.Context, userID string, payload []byte) bool {
	if !p.online[userID] {
		return false
	}
	p.delivered[userID] = append(p.delivered[userID], payload)
	return true
}

func TestRelay_DeliversToOnlineParty(t *testing.T) {
	presence := newFakePresence("u2")
	relay := NewRelay(presence)

	id, err := relay.Relay(context.Background(), &model.SignalingMessage{
		Type: model.SignalOffer,
		From: "u1",
		To:   "u2",
		Data: json.RawMessage(`{"sdp":"v=0"}`),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, presence.delivered["u2"], 1)
	var got model.SignalingMessage
	require.NoError(t, json.Unmarshal(presence.delivered["u2"][0], &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, model.SignalOffer, got.Type)
	assert.JSONEq(t, `{"sdp":"v=0"}`, string(got.Data))
}

func TestRelay_RejectsUnknownType(t *testing.T) {
	presence := newFakePresence("u2")
	relay := NewRelay(presence)

	_, err := relay.Relay(context.Background(), &model.SignalingMessage{
		Type: "bogus",
		From: "u1",
		To:   "u2",
	})
	require.Error(t, err)
	assert.True(t, common.IsValidation(err))
	assert.Empty(t, presence.delivered, "rejected message must never be forwarded")
}

func TestRelay_RejectsMissingParties(t *testing.T) {
	relay := NewRelay(newFakePresence())

	_, err := relay.Relay(context.Background(), &model.SignalingMessage{Type: model.SignalAnswer, To: "u2"})
	assert.True(t, common.IsValidation(err))

	_, err = relay.Relay(context.Background(), &model.SignalingMessage{Type: model.SignalAnswer, From: "u1"})
	assert.True(t, common.IsValidation(err))
}

func TestRelay_DropsForOfflineParty(t *testing.T) {
	relay := NewRelay(newFakePresence())

	id, err := relay.Relay(context.Background(), &model.SignalingMessage{
		Type: model.SignalCallEnd,
		From: "u1",
		To:   "u2",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
