package model

import "time"

type (
	// SealedURLToken grants a bounded number of time-limited downloads of one
	// encrypted file blob. UsesRemaining is only ever decremented atomically
	// by the issuing store.
	SealedURLToken struct {
		FileID        string    `json:"fileId"`
		Token         string    `json:"token"`
		MaxUses       int       `json:"maxUses"`
		UsesRemaining int       `json:"usesRemaining"`
		ExpiresAt     time.Time `json:"expiresAt"`
	}
)
