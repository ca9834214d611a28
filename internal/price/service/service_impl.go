package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/monetization/internal/observability/metrics"
	pricedomain "github.com/smallbiznis/monetization/internal/price/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Prices   provider.PriceGateway
	Products provider.ProductGateway
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	prices   provider.PriceGateway
	products provider.ProductGateway
	metrics  *metrics.Metrics
}

func New(p Params) pricedomain.Service {
	return &Service{
		log:      p.Log.Named("price.service"),
		prices:   p.Prices,
		products: p.Products,
		metrics:  p.Metrics,
	}
}

func (s *Service) CreatePrice(ctx context.Context, spec domain.PriceSpec) (*domain.Price, error) {
	spec, err := s.prepare(ctx, spec)
	if err != nil {
		return nil, err
	}

	price, err := s.prices.CreatePrice(ctx, spec)
	if err != nil {
		return nil, wrapCreateError(err)
	}

	s.metrics.RecordPriceCreated(ctx, string(price.RevenueModel), price.Currency)
	s.log.Info("price created",
		zap.String("price_id", price.IntegrationID),
		zap.String("product_id", price.ProductIntegrationID),
		zap.String("revenue_model", string(price.RevenueModel)),
	)
	return price, nil
}

// UpdatePrice replaces the price with id by a new price built from spec. The
// old price keeps its id, lookup key and fields but is archived. When the
// replacement cannot be created the old price is reactivated.
func (s *Service) UpdatePrice(ctx context.Context, id string, spec domain.PriceSpec) (*domain.Price, error) {
	old, err := s.GetPriceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	spec, err = s.prepare(ctx, spec)
	if err != nil {
		return nil, err
	}

	archived := false
	if old.Active() {
		if _, err := s.prices.SetPriceState(ctx, old.IntegrationID, domain.PriceStateArchived); err != nil {
			return nil, err
		}
		archived = true
		s.metrics.RecordPriceArchived(ctx, string(old.RevenueModel))
	}

	replacement, err := s.prices.CreatePrice(ctx, spec)
	if err != nil {
		if archived {
			if _, restoreErr := s.prices.SetPriceState(ctx, old.IntegrationID, domain.PriceStateActive); restoreErr != nil {
				s.log.Error("failed to reactivate price after update failure",
					zap.String("price_id", old.IntegrationID),
					zap.Error(restoreErr),
				)
			}
		}
		return nil, wrapCreateError(err)
	}

	s.metrics.RecordPriceCreated(ctx, string(replacement.RevenueModel), replacement.Currency)
	s.log.Info("price replaced",
		zap.String("old_price_id", old.IntegrationID),
		zap.String("price_id", replacement.IntegrationID),
	)
	return replacement, nil
}

func (s *Service) GetPriceByID(ctx context.Context, id string) (*domain.Price, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	price, err := s.prices.GetPrice(ctx, id)
	if err != nil {
		return nil, err
	}
	if price == nil {
		return nil, domain.ErrPriceNotFound
	}
	return price, nil
}

func (s *Service) FindPriceByLookupKey(ctx context.Context, key string) (*domain.Price, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	price, err := s.prices.FindActivePriceByLookupKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if price == nil || !price.Active() {
		return nil, nil
	}
	return price, nil
}

func (s *Service) IsLookupKeyUsed(ctx context.Context, key string) (bool, error) {
	price, err := s.FindPriceByLookupKey(ctx, key)
	if err != nil {
		return false, err
	}
	return price != nil, nil
}

// QuotePrice returns what quantity units cost under the price, in the
// smallest currency unit.
func (s *Service) QuotePrice(ctx context.Context, id string, quantity int64) (int64, error) {
	if quantity < 0 {
		return 0, domain.ErrInvalidQuantity
	}
	price, err := s.GetPriceByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if price.RevenueModel.Tiered() {
		return price.Tiers.Cost(price.RevenueModel, quantity)
	}
	if price.Amount == nil {
		return 0, nil
	}
	if !price.Metered() {
		return *price.Amount, nil
	}
	return decimal.NewFromInt(*price.Amount).Mul(decimal.NewFromInt(quantity)).IntPart(), nil
}

// prepare normalizes spec and rejects it before any provider write.
func (s *Service) prepare(ctx context.Context, spec domain.PriceSpec) (domain.PriceSpec, error) {
	spec.ProductIntegrationID = strings.TrimSpace(spec.ProductIntegrationID)
	spec.Currency = domain.NormalizeCurrency(spec.Currency)
	if spec.LookupKey != nil {
		key := strings.TrimSpace(*spec.LookupKey)
		if key == "" {
			spec.LookupKey = nil
		} else {
			spec.LookupKey = &key
		}
	}
	if !spec.Recurring && spec.Cycle == "" {
		spec.Cycle = domain.CycleNone
	}
	if spec.Tiers != nil {
		spec.Tiers = append(domain.TierSchedule(nil), spec.Tiers...)
	}
	if spec.LinkedPriceIDs != nil {
		spec.LinkedPriceIDs = append([]string(nil), spec.LinkedPriceIDs...)
	}

	if err := validateSpec(spec); err != nil {
		return spec, err
	}

	product, err := s.products.GetProduct(ctx, spec.ProductIntegrationID)
	if err != nil {
		return spec, err
	}
	if product == nil {
		return spec, invalid(domain.ErrProductNotFound)
	}
	return spec, nil
}

func validateSpec(spec domain.PriceSpec) error {
	if spec.ProductIntegrationID == "" {
		return invalid(domain.ErrProductNotFound)
	}
	if !domain.CurrencyIsSet(spec.Currency) {
		return invalid(domain.ErrInvalidCurrency)
	}
	if spec.Amount != nil && *spec.Amount < 0 {
		return invalid(domain.ErrInvalidAmount)
	}
	if spec.Recurring {
		if spec.IntervalCount < 1 {
			return fmt.Errorf("%w: interval count must be at least 1", domain.ErrInvalidPriceSpec)
		}
		if spec.Cycle == domain.CycleNone || spec.Cycle == "" {
			return fmt.Errorf("%w: recurring price needs a billing cycle", domain.ErrInvalidPriceSpec)
		}
	}
	if err := spec.Tiers.Validate(); err != nil {
		return invalid(err)
	}

	switch {
	case spec.RevenueModel.Tiered():
		if len(spec.Tiers) == 0 {
			return fmt.Errorf("%w: %s price needs tiers", domain.ErrInvalidPriceSpec, spec.RevenueModel)
		}
	case len(spec.Tiers) > 0:
		return fmt.Errorf("%w: %s price cannot carry tiers", domain.ErrInvalidPriceSpec, spec.RevenueModel)
	case spec.RevenueModel == domain.RevenueModelFree:
		if spec.Amount != nil && *spec.Amount != 0 {
			return invalid(domain.ErrInvalidAmount)
		}
	case spec.Amount == nil:
		return fmt.Errorf("%w: %s price needs an amount", domain.ErrInvalidPriceSpec, spec.RevenueModel)
	}
	return nil
}

func invalid(cause error) error {
	if errors.Is(cause, domain.ErrInvalidPriceSpec) {
		return cause
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidPriceSpec, cause)
}

// wrapCreateError reports usage failures from the provider as invalid specs.
func wrapCreateError(err error) error {
	if domain.IsUsageError(err) || errors.Is(err, domain.ErrProductNotFound) {
		return invalid(err)
	}
	return err
}
