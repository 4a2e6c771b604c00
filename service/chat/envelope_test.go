package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeWireShape(t *testing.T) {
	sent := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	env := NewMessageEnvelope(MessagePayload{
		SystemMessageType: SystemMessageIsInRoom,
		RoomID:            7,
		SenderID:          "alice",
		SendTime:          sent,
	})

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Marshal(), &wire))

	// exactly one payload field is non-null, the sibling keys stay present
	assert.JSONEq(t, `"Message"`, string(wire["data_type"]))
	assert.NotEqual(t, "null", string(wire["message"]))
	assert.JSONEq(t, `null`, string(wire["notification"]))
	assert.JSONEq(t, `null`, string(wire["changed_room_info"]))

	var m MessagePayload
	require.NoError(t, json.Unmarshal(wire["message"], &m))
	assert.Equal(t, SystemMessageIsInRoom, m.SystemMessageType)
	assert.Equal(t, int64(7), m.RoomID)
	assert.Equal(t, "alice", m.SenderID)
	assert.True(t, m.SendTime.Equal(sent))
}

func TestEnvelopeChangedRoomInfo(t *testing.T) {
	env := NewChangedRoomEnvelope(ChangedRoomPayload{RoomID: 3, Name: "general"})

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(env.Marshal(), &wire))
	assert.JSONEq(t, `"ChangedRoomInfo"`, string(wire["data_type"]))
	assert.JSONEq(t, `null`, string(wire["message"]))
	assert.JSONEq(t, `null`, string(wire["notification"]))
	assert.JSONEq(t, `{"room_id":3,"name":"general"}`, string(wire["changed_room_info"]))
}

func TestEnvelopeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		e := Envelope{DataType: DataTypeMessage, Notification: &NotificationPayload{}}
		e.mustValid()
	})
	assert.Panics(t, func() {
		e := Envelope{
			DataType:     DataTypeNotification,
			Message:      &MessagePayload{},
			Notification: &NotificationPayload{},
		}
		e.mustValid()
	})
	assert.Panics(t, func() {
		e := Envelope{DataType: "Bogus", Message: &MessagePayload{}}
		e.mustValid()
	})
	assert.Panics(t, func() {
		e := Envelope{DataType: DataTypeChangedRoomInfo}
		e.Marshal()
	})
}

func TestEnvelopeConstructorsValid(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMessageEnvelope(MessagePayload{SystemMessageType: SystemMessageIsCreateGroupRoom})
		NewNotificationEnvelope(NotificationPayload{NotificationType: NotificationIsOutRoom})
		NewChangedRoomEnvelope(ChangedRoomPayload{RoomID: 1})
	})
}
