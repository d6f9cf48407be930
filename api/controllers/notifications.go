package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aurelion-labs/identra-backend/api/middleware"
	"github.com/aurelion-labs/identra-backend/api/responses"
	"github.com/aurelion-labs/identra-backend/internal/notifications"
	"github.com/aurelion-labs/identra-backend/pkg/db/models"
	pkgerrors "github.com/aurelion-labs/identra-backend/pkg/errors"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
)

type notificationResponse struct {
	ID               string  `json:"id"`
	OrganizationID   string  `json:"organization_id"`
	Kind             string  `json:"kind"`
	SubscriptionName string  `json:"subscription_name"`
	DaysRemaining    *int    `json:"days_remaining,omitempty"`
	PaymentURL       string  `json:"payment_url"`
	ReadAt           *string `json:"read_at,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
}

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(svc *notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		unreadOnly := false
		if unread := strings.TrimSpace(r.URL.Query().Get("unreadOnly")); unread != "" {
			value, err := strconv.ParseBool(unread)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unreadOnly value"))
				return
			}
			unreadOnly = value
		}

		items, err := svc.ListForUser(ctx, userID, unreadOnly)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toNotificationList(items))
	}
}

// MarkNotificationRead flags one of the caller's notifications as read.
func MarkNotificationRead(svc *notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(ctx)
		if userID == uuid.Nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "notificationID"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id"))
			return
		}

		if err := svc.MarkRead(ctx, id, userID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}

func toNotificationList(items []models.Notification) notificationListResponse {
	out := notificationListResponse{Notifications: make([]notificationResponse, 0, len(items))}
	for i := range items {
		out.Notifications = append(out.Notifications, toNotificationResponse(&items[i]))
	}
	return out
}

func toNotificationResponse(n *models.Notification) notificationResponse {
	resp := notificationResponse{
		ID:               n.ID.String(),
		OrganizationID:   n.OrganizationID.String(),
		Kind:             n.Kind,
		SubscriptionName: n.SubscriptionName,
		PaymentURL:       n.PaymentURL,
		CreatedAt:        n.CreatedAt.UTC().Format(time.RFC3339),
	}
	if n.DaysRemaining != nil {
		d := *n.DaysRemaining
		resp.DaysRemaining = &d
	}
	if n.ReadAt != nil {
		s := n.ReadAt.UTC().Format(time.RFC3339)
		resp.ReadAt = &s
	}
	return resp
}
