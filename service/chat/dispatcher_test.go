package chat

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"BKConnect/tools/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOracle serves a fixed membership table.
type fakeOracle struct {
	members map[int64][]string
}

func (o *fakeOracle) GetMemberUserIDs(_ context.Context, roomID int64) ([]string, error) {
	m, ok := o.members[roomID]
	if !ok {
		return nil, errs.ErrRoomNotFound.WrapMsg("room_id", roomID)
	}
	return m, nil
}

func (o *fakeOracle) IsMember(_ context.Context, roomID int64, userID string) (bool, error) {
	for _, uid := range o.members[roomID] {
		if uid == userID {
			return true, nil
		}
	}
	return false, nil
}

func newTestDispatcher(members map[int64][]string) (*Dispatcher, *Registry) {
	reg := NewRegistry()
	return NewDispatcher(reg, &fakeOracle{members: members}), reg
}

func TestSendDirectDelivered(t *testing.T) {
	disp, reg := newTestDispatcher(nil)
	ch := &fakeChannel{}
	reg.Register("u1", ch)

	env := NewNotificationEnvelope(NotificationPayload{
		NotificationType: NotificationIsInRoom,
		SendTime:         time.Now(),
		ReceiverID:       "u1",
	})
	assert.True(t, disp.SendDirect(context.Background(), env, "u1"))
	require.Equal(t, 1, ch.pushCount())
}

func TestSendDirectOffline(t *testing.T) {
	disp, _ := newTestDispatcher(nil)
	env := NewNotificationEnvelope(NotificationPayload{
		NotificationType: NotificationIsOutRoom,
		SendTime:         time.Now(),
		ReceiverID:       "ghost",
	})
	// offline is a normal outcome, not an error
	assert.False(t, disp.SendDirect(context.Background(), env, "ghost"))
}

func TestBroadcastRoomNotFound(t *testing.T) {
	disp, _ := newTestDispatcher(map[int64][]string{})
	env := NewMessageEnvelope(MessagePayload{
		SystemMessageType: SystemMessageIsInRoom,
		RoomID:            42,
		SenderID:          "u1",
		SendTime:          time.Now(),
	})
	_, err := disp.SendRoomBroadcast(context.Background(), env, 42, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrRoomNotFound))
}

func TestBroadcastExcludesActor(t *testing.T) {
	disp, reg := newTestDispatcher(map[int64][]string{
		7: {"alice", "bob", "carol"},
	})
	chans := map[string]*fakeChannel{}
	for _, uid := range []string{"alice", "bob", "carol"} {
		chans[uid] = &fakeChannel{}
		reg.Register(uid, chans[uid])
	}

	env := NewNotificationEnvelope(NotificationPayload{
		NotificationType: NotificationIsInRoom,
		SendTime:         time.Now(),
		ReceiverID:       "carol",
	})
	res, err := disp.SendRoomBroadcast(context.Background(), env, 7, "alice")
	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{Attempted: 2, Delivered: 2}, res)
	assert.Equal(t, 0, chans["alice"].pushCount())
	assert.Equal(t, 1, chans["bob"].pushCount())
	assert.Equal(t, 1, chans["carol"].pushCount())
}

func TestBroadcastNoExclusion(t *testing.T) {
	disp, reg := newTestDispatcher(map[int64][]string{
		7: {"alice", "bob"},
	})
	a, b := &fakeChannel{}, &fakeChannel{}
	reg.Register("alice", a)
	reg.Register("bob", b)

	env := NewMessageEnvelope(MessagePayload{
		SystemMessageType: SystemMessageIsCreateGroupRoom,
		RoomID:            7,
		SenderID:          "alice",
		SendTime:          time.Now(),
	})
	res, err := disp.SendRoomBroadcast(context.Background(), env, 7, "")
	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{Attempted: 2, Delivered: 2}, res)
	assert.Equal(t, 1, a.pushCount())
	assert.Equal(t, 1, b.pushCount())
}

func TestBroadcastPartialFailure(t *testing.T) {
	disp, reg := newTestDispatcher(map[int64][]string{
		7: {"alice", "bob", "carol"},
	})
	a := &fakeChannel{}
	b := &fakeChannel{failed: true}
	c := &fakeChannel{}
	reg.Register("alice", a)
	reg.Register("bob", b)
	reg.Register("carol", c)

	env := NewNotificationEnvelope(NotificationPayload{
		NotificationType: NotificationIsOutRoom,
		SendTime:         time.Now(),
		ReceiverID:       "dave",
	})
	res, err := disp.SendRoomBroadcast(context.Background(), env, 7, "")
	require.NoError(t, err)
	// the broken member is evicted; the rest still receive
	assert.Equal(t, BroadcastResult{Attempted: 3, Delivered: 2}, res)
	assert.Equal(t, 1, a.pushCount())
	assert.Equal(t, 1, c.pushCount())
	assert.False(t, reg.IsOnline("bob"))
	assert.True(t, b.isClosed())
}

func TestBroadcastAllOffline(t *testing.T) {
	disp, _ := newTestDispatcher(map[int64][]string{
		7: {"alice", "bob", "carol"},
	})
	env := NewNotificationEnvelope(NotificationPayload{
		NotificationType: NotificationIsInRoom,
		SendTime:         time.Now(),
		ReceiverID:       "bob",
	})
	res, err := disp.SendRoomBroadcast(context.Background(), env, 7, "")
	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{Attempted: 3, Delivered: 0}, res)
}

func TestBroadcastEmptyRoom(t *testing.T) {
	disp, _ := newTestDispatcher(map[int64][]string{7: {}})
	env := NewNotificationEnvelope(NotificationPayload{
		NotificationType: NotificationIsInRoom,
		SendTime:         time.Now(),
		ReceiverID:       "bob",
	})
	res, err := disp.SendRoomBroadcast(context.Background(), env, 7, "")
	require.NoError(t, err)
	assert.Equal(t, BroadcastResult{}, res)
}

func TestBroadcastWireShape(t *testing.T) {
	disp, reg := newTestDispatcher(map[int64][]string{
		7: {"bob"},
	})
	ch := &fakeChannel{}
	reg.Register("bob", ch)

	sent := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	env := NewNotificationEnvelope(NotificationPayload{
		NotificationType: NotificationIsInRoom,
		SendTime:         sent,
		ReceiverID:       "carol", // the affected user, same for every recipient
	})
	_, err := disp.SendRoomBroadcast(context.Background(), env, 7, "")
	require.NoError(t, err)
	require.Equal(t, 1, ch.pushCount())

	var wire map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(ch.pushed[0], &wire))
	assert.JSONEq(t, `"Notification"`, string(wire["data_type"]))
	assert.JSONEq(t, `null`, string(wire["message"]))
	assert.JSONEq(t, `null`, string(wire["changed_room_info"]))

	var n NotificationPayload
	require.NoError(t, json.Unmarshal(wire["notification"], &n))
	assert.Equal(t, NotificationIsInRoom, n.NotificationType)
	assert.Equal(t, "carol", n.ReceiverID)
	assert.True(t, n.SendTime.Equal(sent))
}
