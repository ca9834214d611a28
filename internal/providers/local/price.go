package local

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	pkgdb "github.com/smallbiznis/monetization/pkg/db"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
)

func (p *Provider) CreatePrice(ctx context.Context, spec domain.PriceSpec) (*domain.Price, error) {
	productID := strings.TrimSpace(spec.ProductIntegrationID)
	currency := domain.NormalizeCurrency(spec.Currency)
	if productID == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPriceSpec, domain.ErrProductNotFound)
	}
	if !domain.CurrencyIsSet(currency) {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPriceSpec, domain.ErrInvalidCurrency)
	}
	if err := spec.Tiers.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPriceSpec, err)
	}

	tiers, err := encodeTiers(spec.Tiers)
	if err != nil {
		return nil, p.fail("create_price", err)
	}
	linked, err := encodeStrings(spec.LinkedPriceIDs)
	if err != nil {
		return nil, p.fail("create_price", err)
	}

	var lookupKey *string
	if spec.LookupKey != nil && strings.TrimSpace(*spec.LookupKey) != "" {
		key := strings.TrimSpace(*spec.LookupKey)
		lookupKey = &key
	}
	intervalCount := spec.IntervalCount
	if intervalCount < 1 {
		intervalCount = 1
	}

	id := p.genID.Generate()
	now := p.clock.Now()
	row := &model.Price{
		ID:             "price_" + id.String(),
		Seq:            id.Int64(),
		ProductID:      productID,
		RevenueModel:   string(spec.RevenueModel),
		Cycle:          string(spec.Cycle),
		IntervalCount:  intervalCount,
		Currency:       currency,
		Recurring:      spec.Recurring,
		IncludeTax:     spec.IncludeTax,
		LookupKey:      lookupKey,
		Amount:         spec.Amount,
		Tiers:          tiers,
		MeteringID:     spec.MeteringIntegrationID,
		LinkedPriceIDs: linked,
		State:          string(domain.PriceStateActive),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := p.repo.FindProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("%w: %w", domain.ErrInvalidPriceSpec, domain.ErrProductNotFound)
		}
		if lookupKey != nil {
			if err := p.ensureLookupKeyFree(ctx, tx, *lookupKey, ""); err != nil {
				return err
			}
		}
		if err := p.repo.InsertPrice(ctx, tx, row); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) && lookupKey != nil {
				return domain.ErrLookupKeyInUse
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, p.fail("create_price", err)
	}

	price, err := toPrice(row)
	if err != nil {
		return nil, p.fail("create_price", err)
	}
	return price, nil
}

func (p *Provider) GetPrice(ctx context.Context, id string) (*domain.Price, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row, err := p.repo.FindPrice(ctx, p.db, id)
	if err != nil {
		return nil, p.fail("get_price", err)
	}
	if row == nil {
		return nil, nil
	}
	price, err := toPrice(row)
	if err != nil {
		return nil, p.fail("get_price", err)
	}
	return price, nil
}

// SetPriceState moves a price between ACTIVE and ARCHIVED. Reactivating a
// price fails when another active price took its lookup key meanwhile.
func (p *Provider) SetPriceState(ctx context.Context, id string, state domain.PriceState) (*domain.Price, error) {
	if state != domain.PriceStateActive && state != domain.PriceStateArchived {
		return nil, domain.ErrInvalidPriceSpec
	}

	var row *model.Price
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = p.repo.FindPrice(ctx, tx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrPriceNotFound
		}
		if row.State == string(state) {
			return nil
		}
		if state == domain.PriceStateActive && row.LookupKey != nil {
			if err := p.ensureLookupKeyFree(ctx, tx, *row.LookupKey, row.ID); err != nil {
				return err
			}
		}
		now := p.clock.Now()
		if err := p.repo.UpdatePriceState(ctx, tx, row.ID, string(state), now); err != nil {
			return err
		}
		row.State = string(state)
		row.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, p.fail("set_price_state", err)
	}

	price, err := toPrice(row)
	if err != nil {
		return nil, p.fail("set_price_state", err)
	}
	return price, nil
}

func (p *Provider) FindActivePriceByLookupKey(ctx context.Context, key string) (*domain.Price, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	row, err := p.repo.FindActivePriceByLookupKey(ctx, p.db, key)
	if err != nil {
		return nil, p.fail("find_price_by_lookup_key", err)
	}
	if row == nil {
		return nil, nil
	}
	price, err := toPrice(row)
	if err != nil {
		return nil, p.fail("find_price_by_lookup_key", err)
	}
	return price, nil
}

func (p *Provider) ensureLookupKeyFree(ctx context.Context, tx *gorm.DB, key, exceptID string) error {
	holder, err := p.repo.FindActivePriceByLookupKey(ctx, tx, key)
	if err != nil {
		return err
	}
	if holder != nil && holder.ID != exceptID {
		return domain.ErrLookupKeyInUse
	}
	return nil
}

func (p *Provider) loadPrices(ctx context.Context, tx *gorm.DB, ids []string) (map[string]*domain.Price, error) {
	rows, err := p.repo.FindPrices(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]*domain.Price, len(rows))
	for i := range rows {
		price, err := toPrice(&rows[i])
		if err != nil {
			return nil, err
		}
		prices[price.IntegrationID] = price
	}
	return prices, nil
}
