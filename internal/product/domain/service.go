package domain

import (
	"context"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

// Service manages the provider products prices hang off. A product is
// created from a plan id, which also derives its integration id.
type Service interface {
	DoesProductExist(ctx context.Context, id string) (bool, error)
	CreateProduct(ctx context.Context, planID, name, description, imageURL string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id, name, description, imageURL string) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}
