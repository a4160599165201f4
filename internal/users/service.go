package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// MerchantCodePrefix starts every merchant code, e.g. MSB07.
const MerchantCodePrefix = "MSB"

const merchantCodeAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages user roles and merchant codes.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	SetRoles(ctx context.Context, userID uuid.UUID, input RolesInput) (*UserDTO, error)
	AssignMerchantCode(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	// SignIn returns the user behind a verified phone number, registering a
	// customer on first sign-in.
	SignIn(ctx context.Context, input CreateUserInput) (*UserDTO, error)
}

type service struct {
	repo *Repository
	tx   txRunner
	logg *logger.Logger
}

func NewService(repo *Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, logg: logg}, nil
}

// FormatMerchantCode renders the n-th merchant code.
func FormatMerchantCode(n int) string {
	return fmt.Sprintf("%s%02d", MerchantCodePrefix, n)
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, mapUserError(err)
	}
	return FromModel(user), nil
}

// SetRoles applies role toggles. Becoming a merchant issues a code if the
// user has none; losing the merchant role clears it.
func (s *service) SetRoles(ctx context.Context, userID uuid.UUID, input RolesInput) (*UserDTO, error) {
	var updated *models.User
	err := s.withCodeRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return mapUserError(err)
		}
		isMerchant, isDriver := user.IsMerchant, user.IsDriver
		if input.IsMerchant != nil {
			isMerchant = *input.IsMerchant
		}
		if input.IsDriver != nil {
			isDriver = *input.IsDriver
		}
		if isMerchant && isDriver {
			return pkgerrors.New(pkgerrors.CodeValidation, "user cannot be both merchant and driver").
				WithDetails(map[string]any{"is_merchant": true, "is_driver": true})
		}

		fields := map[string]any{"is_merchant": isMerchant, "is_driver": isDriver}
		switch {
		case isMerchant && user.MerchantCode == nil:
			code, err := s.nextCode(ctx, repo)
			if err != nil {
				return err
			}
			fields["merchant_code"] = code
			user.MerchantCode = &code
		case !isMerchant && user.MerchantCode != nil:
			fields["merchant_code"] = nil
			user.MerchantCode = nil
		}
		if err := repo.Update(ctx, userID, fields); err != nil {
			return err
		}
		user.IsMerchant, user.IsDriver = isMerchant, isDriver
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "user roles updated")
	return FromModel(updated), nil
}

// AssignMerchantCode issues a code to a merchant that has none. It never
// replaces an existing code.
func (s *service) AssignMerchantCode(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	var updated *models.User
	err := s.withCodeRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		user, err := repo.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return mapUserError(err)
		}
		if !user.IsMerchant {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only merchants carry a merchant code")
		}
		if user.MerchantCode != nil {
			updated = user
			return nil
		}
		code, err := s.nextCode(ctx, repo)
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, userID, map[string]any{"merchant_code": code}); err != nil {
			return err
		}
		user.MerchantCode = &code
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromModel(updated), nil
}

func (s *service) SignIn(ctx context.Context, input CreateUserInput) (*UserDTO, error) {
	if strings.TrimSpace(input.Phone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "phone is required")
	}
	user, err := s.repo.FindByPhone(ctx, strings.TrimSpace(input.Phone))
	if err == nil {
		return FromModel(user), nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}

	if strings.TrimSpace(input.Name) == "" {
		input.Name = input.Phone
	}
	user, err = s.repo.Create(ctx, input)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			// a concurrent sign-in registered the phone first
			if existing, findErr := s.repo.FindByPhone(ctx, strings.TrimSpace(input.Phone)); findErr == nil {
				return FromModel(existing), nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register user")
	}
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "customer registered")
	return FromModel(user), nil
}

func (s *service) nextCode(ctx context.Context, repo *Repository) (string, error) {
	highest, err := repo.HighestMerchantCode(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read merchant codes")
	}
	return FormatMerchantCode(highest + 1), nil
}

// withCodeRetry reruns fn in a fresh transaction when two merchants race for
// the same code.
func (s *service) withCodeRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < merchantCodeAttempts; attempt++ {
		err = s.tx.WithTx(ctx, fn)
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
		s.logg.Warn(ctx, "merchant code collision; retrying")
	}
	if err == nil {
		return nil
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "merchant code collision")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update user")
}

func mapUserError(err error) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	return err
}
