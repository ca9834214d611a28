package local

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

// ProductID derives the product id for a plan. Creating the same plan twice
// yields the same product.
func ProductID(planID string) string {
	return "prod_" + slug.Make(planID)
}

func (p *Provider) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row, err := p.repo.FindProduct(ctx, p.db, id)
	if err != nil {
		return nil, p.fail("get_product", err)
	}
	if row == nil {
		return nil, nil
	}
	return toProduct(row), nil
}

func (p *Provider) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	planID := strings.TrimSpace(product.PlanID)
	if planID == "" || slug.Make(planID) == "" {
		return nil, domain.ErrInvalidID
	}

	id := ProductID(planID)
	existing, err := p.repo.FindProduct(ctx, p.db, id)
	if err != nil {
		return nil, p.fail("create_product", err)
	}
	if existing != nil {
		return toProduct(existing), nil
	}

	now := p.clock.Now()
	row := &model.Product{
		ID:          id,
		PlanID:      planID,
		Name:        strings.TrimSpace(product.Name),
		Description: strings.TrimSpace(product.Description),
		ImageURL:    strings.TrimSpace(product.ImageURL),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.repo.InsertProduct(ctx, p.db, row); err != nil {
		return nil, p.fail("create_product", err)
	}
	return toProduct(row), nil
}

func (p *Provider) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	row, err := p.repo.FindProduct(ctx, p.db, strings.TrimSpace(product.IntegrationID))
	if err != nil {
		return nil, p.fail("update_product", err)
	}
	if row == nil {
		return nil, domain.ErrProductNotFound
	}

	row.Name = strings.TrimSpace(product.Name)
	row.Description = strings.TrimSpace(product.Description)
	row.ImageURL = strings.TrimSpace(product.ImageURL)
	row.Active = product.Active
	row.UpdatedAt = p.clock.Now()
	if err := p.repo.UpdateProduct(ctx, p.db, row); err != nil {
		return nil, p.fail("update_product", err)
	}
	return toProduct(row), nil
}
