package envelope

import (
	"testing"
	"time"

	"e2e_relay/internal/common"
	"e2e_relay/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() BuildInput {
	return BuildInput{
		FromUserID:   "user-alice",
		FromDeviceID: "device-alice-1",
		ToUserID:     "user-bob",
		ToDeviceID:   "device-bob-1",
		Ciphertext:   "AQID",
		IV:           "BBEB",
		Counter:      7,
	}
}

func TestBuild_AssignsIDAndTimestamp(t *testing.T) {
	before := time.Now().UTC()
	env, err := Build(validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.False(t, env.Timestamp.Before(before))
	assert.Equal(t, model.MessageTypeRegular, env.Type)
	assert.Equal(t, model.PriorityNormal, env.Priority)
	assert.Equal(t, "AQID", env.Ciphertext)
	assert.Equal(t, uint32(7), env.Counter)
}

func TestBuild_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		env, err := Build(validInput())
		require.NoError(t, err)
		require.False(t, seen[env.ID], "duplicate envelope id %s", env.ID)
		seen[env.ID] = true
	}
}

func TestBuild_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*BuildInput)
	}{
		{"fromUserId", func(in *BuildInput) { in.FromUserID = "" }},
		{"fromDeviceId", func(in *BuildInput) { in.FromDeviceID = "" }},
		{"toUserId", func(in *BuildInput) { in.ToUserID = "" }},
		{"ciphertext", func(in *BuildInput) { in.Ciphertext = "" }},
		{"iv", func(in *BuildInput) { in.IV = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := Build(in)
			require.Error(t, err)
			assert.True(t, common.IsValidation(err))
		})
	}
}

func TestBuild_UnknownEnums(t *testing.T) {
	in := validInput()
	in.Type = "bogus"
	_, err := Build(in)
	assert.True(t, common.IsValidation(err))

	in = validInput()
	in.Priority = "urgent"
	_, err = Build(in)
	assert.True(t, common.IsValidation(err))
}

func TestBuild_ToDeviceOptional(t *testing.T) {
	in := validInput()
	in.ToDeviceID = ""
	env, err := Build(in)
	require.NoError(t, err)
	assert.Empty(t, env.ToDeviceID)
}
