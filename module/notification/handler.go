package notification

import (
	mid "BKConnect/middleware"
	midsec "BKConnect/middleware/security"
	"BKConnect/module/notification/service"
	"BKConnect/tools/errs"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	notifs *service.NotificationService
}

func NewHandler(notifs *service.NotificationService) *Handler {
	return &Handler{notifs: notifs}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/getNotifications", h.GetNotifications)
	rg.POST("/markAllRead", h.MarkAllRead)
}

func (h *Handler) GetNotifications(c *gin.Context) {
	userID, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	list, err := h.notifs.ListByUser(c.Request.Context(), userID)
	if err != nil {
		mid.Fail(c, err)
		return
	}
	mid.Success(c, list)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	userID, ok := midsec.UserID(c)
	if !ok {
		mid.Fail(c, errs.ErrTokenInvalid)
		return
	}
	if err := h.notifs.MarkAllRead(c.Request.Context(), userID); err != nil {
		mid.Fail(c, err)
		return
	}
	mid.Success(c, nil)
}
