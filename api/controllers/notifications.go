package controllers

import (
	"net/http"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/pagination"
)

// ListNotifications returns the caller's notifications newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := notifications.ListParams{UserID: userID, Cursor: validators.Query(r, "cursor")}
		if params.Limit, err = validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if params.UnreadOnly, err = validators.ParseQueryBool(r, "unreadOnly"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if raw := validators.Query(r, "type"); raw != "" {
			if params.Type, err = enums.ParseNotificationType(raw); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type"))
				return
			}
		}

		resp, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		notificationID, err := validators.URLParamUUID(r, "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.MarkRead(r.Context(), userID, notificationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"read": true})
	}
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		updated, err := svc.MarkAllRead(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"updated": updated})
	}
}
