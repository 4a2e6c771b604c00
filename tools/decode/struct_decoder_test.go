package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authPayload struct {
	Token  string `json:"token"`
	RoomID int64  `json:"room_id"`
}

func TestDecodeMapJSONTags(t *testing.T) {
	// JSON numbers arrive as float64; the hook restores the declared int kind
	got, err := DecodeMap[authPayload](map[string]any{
		"token":   "abc",
		"room_id": float64(7),
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
	assert.Equal(t, int64(7), got.RoomID)
}

func TestDecodeMapNil(t *testing.T) {
	_, err := DecodeMap[authPayload](nil)
	assert.Error(t, err)
}

func TestDecodeMapUnknownFieldsIgnored(t *testing.T) {
	got, err := DecodeMap[authPayload](map[string]any{
		"token": "abc",
		"extra": true,
	})
	require.NoError(t, err)
	assert.Equal(t, "abc", got.Token)
}
