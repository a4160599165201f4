package product

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
)

// Service exposes merchant product management.
type Service interface {
	CreateProduct(ctx context.Context, merchantID, storeID uuid.UUID, input SaveProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, merchantID, productID uuid.UUID, input SaveProductInput) (*ProductDTO, error)
	ListStoreProducts(ctx context.Context, storeID uuid.UUID) ([]ProductDTO, error)
}

type storeLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
}

type service struct {
	repo   *Repository
	stores storeLoader
}

// NewService constructs a product service instance.
func NewService(repo *Repository, stores storeLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if stores == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &service{repo: repo, stores: stores}, nil
}

func (s *service) CreateProduct(ctx context.Context, merchantID, storeID uuid.UUID, input SaveProductInput) (*ProductDTO, error) {
	if err := s.ensureOwner(ctx, merchantID, storeID); err != nil {
		return nil, err
	}
	product := &models.Product{StoreID: storeID, IsActive: true}
	input.apply(product)
	if err := PrepareProductForSave(product); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "insert product")
	}
	return NewProductDTO(product), nil
}

func (s *service) UpdateProduct(ctx context.Context, merchantID, productID uuid.UUID, input SaveProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if err := s.ensureOwner(ctx, merchantID, product.StoreID); err != nil {
		return nil, err
	}
	input.apply(product)
	if err := PrepareProductForSave(product); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return NewProductDTO(product), nil
}

func (s *service) ListStoreProducts(ctx context.Context, storeID uuid.UUID) ([]ProductDTO, error) {
	rows, err := s.repo.ListByStore(ctx, storeID, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) ensureOwner(ctx context.Context, merchantID, storeID uuid.UUID) error {
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	if store.OwnerID != merchantID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "store does not belong to merchant")
	}
	return nil
}
