package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/kmsconnect/kms-connect/internal/core/notification"
)

func (h *Handler) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	unread, _ := strconv.ParseBool(r.URL.Query().Get("unread"))

	res, err := h.notifications.List(r.Context(), act, notification.ListInput{
		PageSize:   pageSize,
		PageToken:  r.URL.Query().Get("page_token"),
		UnreadOnly: unread,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := notificationListResponse{
		Notifications: make([]notificationResponse, 0, len(res.Notifications)),
		NextPageToken: res.NextPageToken,
	}
	for _, n := range res.Notifications {
		out.Notifications = append(out.Notifications, toNotificationResponse(n))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("id: %w", notification.ErrInvalidID))
		return
	}

	n, err := h.notifications.MarkRead(r.Context(), act, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationResponse(n))
}
