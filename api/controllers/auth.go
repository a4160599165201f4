package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	"github.com/angelmondragon/bazaar-backend/api/validators"
	"github.com/angelmondragon/bazaar-backend/internal/otp"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bazaar-backend/pkg/auth"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

type otpSendRequest struct {
	Phone       string `json:"phone" validate:"required,min=7,max=15"`
	CountryCode string `json:"country_code"`
}

type otpVerifyRequest struct {
	Phone       string  `json:"phone" validate:"required,min=7,max=15"`
	CountryCode string  `json:"country_code"`
	Code        string  `json:"code" validate:"required,len=6,numeric"`
	Name        string  `json:"name" validate:"omitempty,max=120"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

type signInResponse struct {
	AccessToken string            `json:"access_token"`
	ExpiresAt   time.Time         `json:"expires_at"`
	User        *users.UserDTO    `json:"user"`
	Stores      []stores.StoreDTO `json:"stores"`
}

type ownedStoreLister interface {
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]stores.StoreDTO, error)
}

// SendOTP issues a sign-in code for the supplied phone number.
func SendOTP(svc otp.Sender, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "otp service unavailable"))
			return
		}

		var body otpSendRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SendOTP(r.Context(), body.Phone, body.CountryCode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]bool{"sent": true})
	}
}

// VerifyOTP exchanges a valid code for an access token, registering the
// customer on first sign-in.
func VerifyOTP(cfg config.JWTConfig, otpSvc otp.Service, userSvc users.Service, storeSvc ownedStoreLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if otpSvc == nil || userSvc == nil || storeSvc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth services unavailable"))
			return
		}

		var body otpVerifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := otpSvc.Verify(r.Context(), body.Phone, body.CountryCode, body.Code); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		phone, countryCode, err := otp.NormalizePhone(body.Phone, body.CountryCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := userSvc.SignIn(r.Context(), users.CreateUserInput{
			Name:        body.Name,
			Phone:       phone,
			CountryCode: countryCode,
			Email:       body.Email,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		owned, err := storeSvc.ListMine(r.Context(), user.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := pkgAuth.AccessTokenPayload{
			UserID: user.ID,
			Role:   pkgAuth.RoleFor(user.IsMerchant, user.IsDriver, user.IsStaff),
		}
		if len(owned) > 0 {
			storeID := owned[0].ID
			payload.StoreID = &storeID
		}

		now := time.Now().UTC()
		token, err := pkgAuth.MintAccessToken(cfg, now, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token"))
			return
		}

		if owned == nil {
			owned = []stores.StoreDTO{}
		}
		responses.WriteSuccess(w, signInResponse{
			AccessToken: token,
			ExpiresAt:   now.Add(time.Duration(cfg.ExpirationMinutes) * time.Minute),
			User:        user,
			Stores:      owned,
		})
	}
}
