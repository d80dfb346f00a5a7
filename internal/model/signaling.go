package model

import "encoding/json"

type SignalType string

const (
	SignalOffer        SignalType = "offer"
	SignalAnswer       SignalType = "answer"
	SignalICECandidate SignalType = "ice-candidate"
	SignalCallStart    SignalType = "call-start"
	SignalCallEnd      SignalType = "call-end"
	SignalSFrameKey    SignalType = "sframe-key"
)

func ValidSignalType(t SignalType) bool {
	switch t {
	case SignalOffer, SignalAnswer, SignalICECandidate,
		SignalCallStart, SignalCallEnd, SignalSFrameKey:
		return true
	}
	return false
}

type (
	// SignalingMessage is an ephemeral call-setup message. Data is forwarded
	// verbatim; the relay validates only Type.
	SignalingMessage struct {
		ID   string          `json:"id,omitempty"`
		Type SignalType      `json:"type"`
		From string          `json:"from"`
		To   string          `json:"to"`
		Data json.RawMessage `json:"data,omitempty"`
	}
)
