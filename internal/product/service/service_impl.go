package service

import (
	"context"
	"fmt"
	"strings"

	productdomain "github.com/smallbiznis/monetization/internal/product/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Products provider.ProductGateway
}

type Service struct {
	log      *zap.Logger
	products provider.ProductGateway
}

func New(p Params) productdomain.Service {
	return &Service{
		log:      p.Log.Named("product.service"),
		products: p.Products,
	}
}

func (s *Service) DoesProductExist(ctx context.Context, id string) (bool, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return false, err
	}
	return product != nil, nil
}

// CreateProduct returns the existing product when the plan was already
// created.
func (s *Service) CreateProduct(ctx context.Context, planID, name, description, imageURL string) (*domain.Product, error) {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return nil, fmt.Errorf("%w: plan id is required", domain.ErrInvalidID)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = planID
	}

	product, err := s.products.CreateProduct(ctx, domain.Product{
		PlanID:      planID,
		Name:        name,
		Description: strings.TrimSpace(description),
		ImageURL:    strings.TrimSpace(imageURL),
		Active:      true,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("product ready", zap.String("product_id", product.IntegrationID), zap.String("plan_id", planID))
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id, name, description, imageURL string) (*domain.Product, error) {
	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domain.ErrProductNotFound
	}

	updated := *current
	if name = strings.TrimSpace(name); name != "" {
		updated.Name = name
	}
	updated.Description = strings.TrimSpace(description)
	updated.ImageURL = strings.TrimSpace(imageURL)
	return s.products.UpdateProduct(ctx, updated)
}

func (s *Service) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return s.products.GetProduct(ctx, id)
}
