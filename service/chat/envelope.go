package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// DataType tags which payload field of an Envelope is populated.
type DataType string

const (
	DataTypeMessage         DataType = "Message"
	DataTypeNotification    DataType = "Notification"
	DataTypeChangedRoomInfo DataType = "ChangedRoomInfo"
)

// system message kinds, written into MessagePayload.SystemMessageType
const (
	SystemMessageIsInRoom          = "IsInRoom"
	SystemMessageIsOutRoom         = "IsOutRoom"
	SystemMessageIsCreateGroupRoom = "IsCreateGroupRoom"
)

// notification kinds, written into NotificationPayload.NotificationType
const (
	NotificationIsInRoom  = "IsInRoom"
	NotificationIsOutRoom = "IsOutRoom"
)

type MessagePayload struct {
	SystemMessageType string    `json:"system_message_type"`
	RoomID            int64     `json:"room_id"`
	SenderID          string    `json:"sender_id"`
	Content           string    `json:"content,omitempty"`
	SendTime          time.Time `json:"send_time"`
}

type NotificationPayload struct {
	NotificationType string    `json:"notification_type"`
	SendTime         time.Time `json:"send_time"`
	ReceiverID       string    `json:"receiver_id"`
}

type ChangedRoomPayload struct {
	RoomID int64  `json:"room_id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Envelope is the unit pushed to a connected client. Exactly one payload
// field is populated, matching DataType; a mismatch is a programming error
// and fails loudly at construction, never at send time.
type Envelope struct {
	DataType        DataType             `json:"data_type"`
	Message         *MessagePayload      `json:"message"`
	Notification    *NotificationPayload `json:"notification"`
	ChangedRoomInfo *ChangedRoomPayload  `json:"changed_room_info"`
}

func NewMessageEnvelope(m MessagePayload) Envelope {
	e := Envelope{DataType: DataTypeMessage, Message: &m}
	e.mustValid()
	return e
}

func NewNotificationEnvelope(n NotificationPayload) Envelope {
	e := Envelope{DataType: DataTypeNotification, Notification: &n}
	e.mustValid()
	return e
}

func NewChangedRoomEnvelope(r ChangedRoomPayload) Envelope {
	e := Envelope{DataType: DataTypeChangedRoomInfo, ChangedRoomInfo: &r}
	e.mustValid()
	return e
}

func (e Envelope) mustValid() {
	var want int
	switch e.DataType {
	case DataTypeMessage:
		want = 0
	case DataTypeNotification:
		want = 1
	case DataTypeChangedRoomInfo:
		want = 2
	default:
		panic(fmt.Sprintf("envelope: unknown data_type %q", e.DataType))
	}
	set := [3]bool{e.Message != nil, e.Notification != nil, e.ChangedRoomInfo != nil}
	for i, s := range set {
		if s != (i == want) {
			panic(fmt.Sprintf("envelope: payload fields do not match data_type %q", e.DataType))
		}
	}
}

// Marshal renders the wire form. The envelope is immutable once built, so
// the result can be shared across all recipients of a broadcast.
func (e Envelope) Marshal() []byte {
	e.mustValid()
	b, err := json.Marshal(e)
	if err != nil {
		panic(fmt.Sprintf("envelope: marshal: %v", err))
	}
	return b
}
