package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func userIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func storeIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.StoreIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "store context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid store id")
	}
	return id, nil
}
