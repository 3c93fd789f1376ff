package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/printease/printease/internal/core/domain"
	"github.com/printease/printease/internal/core/ports"
)

// NotificationHandler serves /api/notifications.
type NotificationHandler struct {
	notifications ports.NotificationService
}

func NewNotificationHandler(notifications ports.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List returns notifications for a recipient, newest first. The recipient
// defaults to the caller.
//
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        recipient  query     string  false  "Recipient account id"
// @Param        unread     query     bool    false  "Only unread notifications"
// @Success      200        {array}   domain.Notification
// @Failure      400        {object}  messageResponse
// @Failure      403        {object}  messageResponse
// @Router       /api/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	unread := false
	if raw := c.QueryParam("unread"); raw != "" {
		unread, err = strconv.ParseBool(raw)
		if err != nil {
			return domain.Invalid("unread must be true or false")
		}
	}

	items, err := h.notifications.List(c.Request().Context(), caller, c.QueryParam("recipient"), unread)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*domain.Notification{}
	}
	return c.JSON(http.StatusOK, items)
}

// MarkRead flags one of the caller's notifications as read.
//
// @Summary      Mark a notification read
// @Tags         notifications
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification id"
// @Success      204
// @Failure      404  {object}  messageResponse
// @Router       /api/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	caller, err := callerIdentity(c)
	if err != nil {
		return err
	}

	if err := h.notifications.MarkRead(c.Request().Context(), caller, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
