package model

import "time"

// room types
const (
	RoomTypePrivate = "PrivateRoom"
	RoomTypeGroup   = "GroupRoom"
	RoomTypePublic  = "PublicRoom"
)

// Room is the persisted room record.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	RoomType  string    `json:"room_type"`
	CreatedAt time.Time `json:"created_at"`
}

// UserOfRoom links a user to a room (unique per room_id + user_id).
type UserOfRoom struct {
	RoomID   int64     `json:"room_id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// RoomDetail is the room-information reply. For a private room the name and
// avatar are the peer's, and exactly one of IsOnline / LastOnline is set.
type RoomDetail struct {
	RoomID      int64      `json:"room_id"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar,omitempty"`
	RoomType    string     `json:"room_type"`
	TotalMember int        `json:"total_member,omitempty"`
	IsOnline    bool       `json:"is_online,omitempty"`
	LastOnline  *time.Time `json:"last_online,omitempty"`
}

// RoomSidebar is one entry of a user's room list.
type RoomSidebar struct {
	RoomID   int64  `json:"room_id"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	RoomType string `json:"room_type"`
}

// ChangedMember is the add/remove member request body.
type ChangedMember struct {
	RoomID int64  `json:"room_id" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

// AddGroupRoom is the create-group-room request body.
type AddGroupRoom struct {
	Name      string   `json:"name" binding:"required"`
	Avatar    string   `json:"avatar"`
	MemberIDs []string `json:"member_ids"`
}
