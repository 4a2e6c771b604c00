package room

import (
	"strconv"
	"time"

	"BKConnect/logger"
	mid "BKConnect/middleware"
	midsec "BKConnect/middleware/security"
	notifmodel "BKConnect/module/notification/model"
	notifservice "BKConnect/module/notification/service"
	"BKConnect/module/room/model"
	"BKConnect/module/room/service"
	"BKConnect/service/chat"
	"BKConnect/service/storage"
	"BKConnect/tools/errs"

	"github.com/gin-gonic/gin"
)

// Handler wires the room endpoints to the repositories and the dispatch
// service. Every mutating endpoint persists first and pushes second; a
// recipient being offline never fails the request.
type Handler struct {
	rooms    *service.RoomService
	notifs   *notifservice.NotificationService
	disp     *chat.Dispatcher
	presence *storage.PresenceManager // may be nil when redis is unavailable
}

func NewHandler(rooms *service.RoomService, notifs *notifservice.NotificationService,
	disp *chat.Dispatcher, presence *storage.PresenceManager) *Handler {
	return &Handler{rooms: rooms, notifs: notifs, disp: disp, presence: presence}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/getRoomsOfUser", h.GetRoomsOfUser)
	rg.GET("/getInformationOfRoom", h.GetInformationOfRoom)
	rg.GET("/getListOfUserIdInRoom", h.GetListOfUserIDInRoom)
	rg.POST("/addUserToRoom", h.AddUserToRoom)
	rg.POST("/removeUserFromRoom", h.RemoveUserFromRoom)
	rg.POST("/createGroupRoom", h.CreateGroupRoom)
}

// AddUserToRoom persists the membership, then notifies: a direct system
// message to the added user and a room notification broadcast excluding the
// actor.
func (h *Handler) AddUserToRoom(c *gin.Context) {
	actor, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	var req model.ChangedMember
	if err := c.ShouldBindJSON(&req); err != nil {
		mid.Fail(c, errs.ErrBadParam.WithDetail(err.Error()))
		return
	}
	if err := h.requireMember(c, req.RoomID, actor); err != nil {
		mid.Fail(c, err)
		return
	}
	if err := h.rooms.AddUserToRoom(c.Request.Context(), req.RoomID, req.UserID); err != nil {
		mid.Fail(c, err)
		return
	}

	h.notifyMemberChange(c, req, actor,
		chat.SystemMessageIsInRoom, chat.NotificationIsInRoom)
	mid.Success(c, req.UserID)
}

// RemoveUserFromRoom mirrors AddUserToRoom with the IsOutRoom kinds.
func (h *Handler) RemoveUserFromRoom(c *gin.Context) {
	actor, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	var req model.ChangedMember
	if err := c.ShouldBindJSON(&req); err != nil {
		mid.Fail(c, errs.ErrBadParam.WithDetail(err.Error()))
		return
	}
	if err := h.requireMember(c, req.RoomID, actor); err != nil {
		mid.Fail(c, err)
		return
	}
	if err := h.rooms.RemoveUserFromRoom(c.Request.Context(), req.RoomID, req.UserID); err != nil {
		mid.Fail(c, err)
		return
	}

	h.notifyMemberChange(c, req, actor,
		chat.SystemMessageIsOutRoom, chat.NotificationIsOutRoom)
	mid.Success(c, req.UserID)
}

// notifyMemberChange implements the membership-change policy: durable
// notification first, then direct push to the affected user, then the room
// broadcast excluding the actor. receiver_id in the broadcast names the
// affected user for every recipient.
func (h *Handler) notifyMemberChange(c *gin.Context, req model.ChangedMember, actor, sysType, notifType string) {
	ctx := c.Request.Context()
	now := time.Now()

	n := &notifmodel.Notification{
		ReceiverID: req.UserID,
		Type:       notifType,
		Content:    strconv.FormatInt(req.RoomID, 10),
		SendTime:   now,
	}
	if err := h.notifs.Add(ctx, n); err != nil {
		logger.Infof("[Rooms] persist notification failed room=%d user=%s err=%v", req.RoomID, req.UserID, err)
	}

	msgEnv := chat.NewMessageEnvelope(chat.MessagePayload{
		SystemMessageType: sysType,
		RoomID:            req.RoomID,
		SenderID:          actor,
		SendTime:          now,
	})
	h.disp.SendDirect(ctx, msgEnv, req.UserID)

	notifEnv := chat.NewNotificationEnvelope(chat.NotificationPayload{
		NotificationType: notifType,
		SendTime:         now,
		ReceiverID:       req.UserID,
	})
	if _, err := h.disp.SendRoomBroadcast(ctx, notifEnv, req.RoomID, actor); err != nil {
		logger.Infof("[Rooms] broadcast failed room=%d err=%v", req.RoomID, err)
	}
}

// CreateGroupRoom creates the room and broadcasts the system message to all
// members, creator included.
func (h *Handler) CreateGroupRoom(c *gin.Context) {
	actor, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	var req model.AddGroupRoom
	if err := c.ShouldBindJSON(&req); err != nil {
		mid.Fail(c, errs.ErrBadParam.WithDetail(err.Error()))
		return
	}

	roomID, err := h.rooms.CreateGroupRoom(c.Request.Context(), req, actor)
	if err != nil {
		mid.Fail(c, err)
		return
	}

	env := chat.NewMessageEnvelope(chat.MessagePayload{
		SystemMessageType: chat.SystemMessageIsCreateGroupRoom,
		RoomID:            roomID,
		SenderID:          actor,
		Content:           req.Name,
		SendTime:          time.Now(),
	})
	if _, err := h.disp.SendRoomBroadcast(c.Request.Context(), env, roomID, ""); err != nil {
		logger.Infof("[Rooms] create broadcast failed room=%d err=%v", roomID, err)
	}
	mid.Success(c, roomID)
}

// GetInformationOfRoom returns the detail view; for a private room the
// peer's live presence decides between is_online and last_online.
func (h *Handler) GetInformationOfRoom(c *gin.Context) {
	userID, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	roomID, err := strconv.ParseInt(c.Query("room_id"), 10, 64)
	if err != nil {
		mid.Fail(c, errs.ErrBadParam.WithDetail("room_id"))
		return
	}

	detail, peerID, err := h.rooms.GetInformationOfRoom(c.Request.Context(), roomID, userID)
	if err != nil {
		mid.Fail(c, err)
		return
	}
	if peerID != "" {
		if h.disp.Registry().IsOnline(peerID) {
			detail.IsOnline = true
		} else if h.presence != nil {
			if t, seen, err := h.presence.LastOnline(c.Request.Context(), peerID); err == nil && seen {
				detail.LastOnline = &t
			}
		}
	}
	mid.Success(c, detail)
}

func (h *Handler) GetRoomsOfUser(c *gin.Context) {
	userID, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	rooms, err := h.rooms.GetRoomsOfUser(c.Request.Context(), userID)
	if err != nil {
		mid.Fail(c, err)
		return
	}
	mid.Success(c, rooms)
}

func (h *Handler) GetListOfUserIDInRoom(c *gin.Context) {
	userID, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	roomID, err := strconv.ParseInt(c.Query("room_id"), 10, 64)
	if err != nil {
		mid.Fail(c, errs.ErrBadParam.WithDetail("room_id"))
		return
	}
	if err := h.requireMember(c, roomID, userID); err != nil {
		mid.Fail(c, err)
		return
	}
	members, err := h.rooms.GetMemberUserIDs(c.Request.Context(), roomID)
	if err != nil {
		mid.Fail(c, err)
		return
	}
	mid.Success(c, members)
}

func (h *Handler) requireMember(c *gin.Context, roomID int64, userID string) error {
	ok, err := h.rooms.IsMember(c.Request.Context(), roomID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNotInRoom.WrapMsg("room_id", roomID, "user_id", userID)
	}
	return nil
}
