package paymentmethods

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/types"
)

// Service manages merchant payout destinations.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input SaveInput) (*models.PaymentSetting, error)
	Update(ctx context.Context, userID, id uuid.UUID, input SaveInput) (*models.PaymentSetting, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]models.PaymentSetting, error)
	Review(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) (*models.PaymentSetting, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentSetting, error)
}

// SaveInput carries a payout destination. Details must hold exactly the
// structure matching Type.
type SaveInput struct {
	Type    enums.PaymentSettingType `json:"type" validate:"required"`
	Details types.PaymentDetails     `json:"details"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the dependencies required by the payment settings service.
type ServiceParams struct {
	Repository        Repository
	TransactionRunner txRunner
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a payment settings service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payment settings repository required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: params.Repository, tx: params.TransactionRunner}, nil
}

// ValidateDetails applies the per-type rules and normalizes the details.
func ValidateDetails(settingType enums.PaymentSettingType, details types.PaymentDetails) (types.PaymentDetails, error) {
	if !settingType.IsValid() {
		return details, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported payment setting type %q", settingType))
	}
	switch settingType {
	case enums.PaymentSettingTypeBankAccount:
		if details.BankAccount == nil || details.UPI != nil {
			return details, pkgerrors.New(pkgerrors.CodeValidation, "bank_account settings require only bank account details")
		}
		if err := details.BankAccount.Validate(); err != nil {
			return details, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bank account")
		}
		bank := *details.BankAccount
		bank.AccountHolder = strings.TrimSpace(bank.AccountHolder)
		bank.AccountNumber = strings.TrimSpace(bank.AccountNumber)
		bank.IFSC = strings.ToUpper(strings.TrimSpace(bank.IFSC))
		bank.BankName = strings.TrimSpace(bank.BankName)
		return types.PaymentDetails{BankAccount: &bank}, nil
	default:
		if details.UPI == nil || details.BankAccount != nil {
			return details, pkgerrors.New(pkgerrors.CodeValidation, "upi settings require only upi details")
		}
		if err := details.UPI.Validate(); err != nil {
			return details, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid upi id")
		}
		return types.PaymentDetails{UPI: &types.UPIDetails{VPA: strings.ToLower(strings.TrimSpace(details.UPI.VPA))}}, nil
	}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input SaveInput) (*models.PaymentSetting, error) {
	details, err := ValidateDetails(input.Type, input.Details)
	if err != nil {
		return nil, err
	}
	setting := &models.PaymentSetting{
		UserID:      userID,
		Type:        input.Type,
		Details:     details,
		Fingerprint: details.Fingerprint(),
		Status:      enums.ReviewStatusPending,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		exists, err := repo.FingerprintExists(ctx, userID, setting.Fingerprint, uuid.Nil)
		if err != nil {
			return err
		}
		if exists {
			return duplicateErr()
		}
		return repo.Create(ctx, setting)
	})
	if err != nil {
		return nil, mapSaveError(err, "create payment setting")
	}
	return setting, nil
}

// Update replaces the details of a pending or rejected setting and sends it
// back to review. Approved settings are locked.
func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input SaveInput) (*models.PaymentSetting, error) {
	details, err := ValidateDetails(input.Type, input.Details)
	if err != nil {
		return nil, err
	}
	var updated *models.PaymentSetting
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		setting, err := s.lockOwned(ctx, repo, userID, id)
		if err != nil {
			return err
		}
		if setting.Status == enums.ReviewStatusApproved {
			return lockedErr()
		}
		fingerprint := details.Fingerprint()
		exists, err := repo.FingerprintExists(ctx, userID, fingerprint, id)
		if err != nil {
			return err
		}
		if exists {
			return duplicateErr()
		}
		setting.Type = input.Type
		setting.Details = details
		setting.Fingerprint = fingerprint
		setting.Status = enums.ReviewStatusPending
		if err := repo.Save(ctx, setting); err != nil {
			return err
		}
		updated = setting
		return nil
	})
	if err != nil {
		return nil, mapSaveError(err, "update payment setting")
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		setting, err := s.lockOwned(ctx, repo, userID, id)
		if err != nil {
			return err
		}
		if setting.Status == enums.ReviewStatusApproved {
			return lockedErr()
		}
		return repo.Delete(ctx, id)
	})
	if err != nil {
		return mapSaveError(err, "delete payment setting")
	}
	return nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.PaymentSetting, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list payment settings")
	}
	return rows, nil
}

// Review records the admin decision on a setting.
func (s *service) Review(ctx context.Context, id uuid.UUID, status enums.ReviewStatus) (*models.PaymentSetting, error) {
	if status != enums.ReviewStatusApproved && status != enums.ReviewStatusRejected {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review status must be approved or rejected")
	}
	var reviewed *models.PaymentSetting
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		setting, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if setting.Status == enums.ReviewStatusApproved {
			return lockedErr()
		}
		if err := repo.Update(ctx, id, map[string]any{"status": status}); err != nil {
			return err
		}
		setting.Status = status
		reviewed = setting
		return nil
	})
	if err != nil {
		return nil, mapSaveError(err, "review payment setting")
	}
	return reviewed, nil
}

func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentSetting, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) lockOwned(ctx context.Context, repo Repository, userID, id uuid.UUID) (*models.PaymentSetting, error) {
	setting, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if setting.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment setting not found")
	}
	return setting, nil
}

func duplicateErr() error {
	return pkgerrors.Rule(pkgerrors.ReasonDuplicatePaymentMethod, "this payout destination is already registered")
}

func lockedErr() error {
	return pkgerrors.Rule(pkgerrors.ReasonResourceLocked, "approved payment settings cannot be changed")
}

func mapSaveError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment setting not found")
	}
	if db.IsUniqueViolation(err, "") {
		return duplicateErr()
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
