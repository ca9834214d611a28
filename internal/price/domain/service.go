package domain

import (
	"context"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

// Service manages the price lifecycle. Prices are never edited: an update
// archives the old price and creates its replacement.
type Service interface {
	CreatePrice(ctx context.Context, spec domain.PriceSpec) (*domain.Price, error)
	UpdatePrice(ctx context.Context, id string, spec domain.PriceSpec) (*domain.Price, error)
	GetPriceByID(ctx context.Context, id string) (*domain.Price, error)
	FindPriceByLookupKey(ctx context.Context, key string) (*domain.Price, error)
	IsLookupKeyUsed(ctx context.Context, key string) (bool, error)
	QuotePrice(ctx context.Context, id string, quantity int64) (int64, error)
}
