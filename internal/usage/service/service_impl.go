package service

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/monetization/internal/cache"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/observability/metrics"
	usagedomain "github.com/smallbiznis/monetization/internal/usage/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Prices never change their lookup key or metering, so resolved prices can
// be held for a while.
const priceCacheTTL = 5 * time.Minute

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	Subscriptions provider.SubscriptionGateway
	Prices        provider.PriceGateway
	Usage         provider.UsageGateway
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	log           *zap.Logger
	subscriptions provider.SubscriptionGateway
	prices        provider.PriceGateway
	usage         provider.UsageGateway
	metrics       *metrics.Metrics
	priceCache    cache.Cache[string, domain.Price]
}

func New(p Params) usagedomain.Service {
	return &Service{
		log:           p.Log.Named("usage.service"),
		subscriptions: p.Subscriptions,
		prices:        p.Prices,
		usage:         p.Usage,
		metrics:       p.Metrics,
		priceCache:    cache.NewTTLCacheWithClock[string, domain.Price](p.Clock.Now),
	}
}

// ReportMeteredUsage records usage for the subscription's metered price.
// Reports for inactive subscriptions or outside the current period are
// dropped and yield nil. Retrying a report records it once.
func (s *Service) ReportMeteredUsage(ctx context.Context, req usagedomain.UsageRequest) (*domain.UsageReport, error) {
	action := domain.UsageActionIncrement
	if req.SetInsteadOfIncrement {
		action = domain.UsageActionSet
	}
	if req.Quantity < 0 {
		s.metrics.RecordUsageReport(ctx, string(action), "rejected")
		return nil, domain.ErrInvalidQuantity
	}
	// the event id is derived from the timestamp, so it must come from the caller
	if req.Timestamp <= 0 {
		s.metrics.RecordUsageReport(ctx, string(action), "rejected")
		return nil, domain.ErrInvalidTimestamp
	}

	sub, err := s.subscription(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if !sub.Active() {
		s.metrics.RecordUsageReport(ctx, string(action), "inactive")
		return nil, nil
	}

	timestamp := req.Timestamp
	if !sub.InCurrentPeriod(timestamp) {
		s.metrics.RecordUsageReport(ctx, string(action), "out_of_period")
		s.log.Debug("usage outside current period dropped",
			zap.String("subscription_id", sub.IntegrationID),
			zap.Int64("timestamp", timestamp),
		)
		return nil, nil
	}

	item, err := s.resolveItem(ctx, sub, req.LookupKey)
	if err != nil {
		s.metrics.RecordUsageReport(ctx, string(action), "rejected")
		return nil, err
	}

	report := domain.UsageReport{
		SubscriptionID:     sub.IntegrationID,
		PriceIntegrationID: item.PriceIntegrationID,
		Quantity:           req.Quantity,
		Timestamp:          timestamp,
		Action:             action,
	}
	report.UsageEventID = domain.UsageEventID(report.SubscriptionID, report.PriceIntegrationID, report.Timestamp, report.Quantity, report.Action)

	recorded, err := s.usage.RecordUsage(ctx, report)
	if err != nil {
		return nil, err
	}
	if recorded == nil {
		s.metrics.RecordUsageReport(ctx, string(action), "dropped")
		return nil, nil
	}
	s.metrics.RecordUsageReport(ctx, string(action), "recorded")
	return recorded, nil
}

// GetMeteredUsageTotal returns the accumulated usage of the current period.
func (s *Service) GetMeteredUsageTotal(ctx context.Context, subscriptionID string, lookupKey *string) (*domain.UsageTotal, error) {
	sub, err := s.subscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	item, err := s.resolveItem(ctx, sub, lookupKey)
	if err != nil {
		return nil, err
	}
	return s.usage.GetUsageTotal(ctx, sub.IntegrationID, item.PriceIntegrationID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
}

func (s *Service) subscription(ctx context.Context, id string) (*domain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	sub, err := s.subscriptions.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

// resolveItem picks the metered item usage is attributed to. Without a
// lookup key the subscription must carry exactly one metered item.
func (s *Service) resolveItem(ctx context.Context, sub *domain.Subscription, lookupKey *string) (domain.SubscriptionItem, error) {
	items := sub.MeteredItems()

	key := ""
	if lookupKey != nil {
		key = strings.TrimSpace(*lookupKey)
	}
	if key == "" {
		switch len(items) {
		case 0:
			return domain.SubscriptionItem{}, domain.ErrNoMeteredPrice
		case 1:
			return items[0], nil
		default:
			return domain.SubscriptionItem{}, domain.ErrAmbiguousUsage
		}
	}

	for _, item := range items {
		price, err := s.price(ctx, item.PriceIntegrationID)
		if err != nil {
			return domain.SubscriptionItem{}, err
		}
		if price != nil && price.LookupKeyValue() == key {
			return item, nil
		}
	}
	return domain.SubscriptionItem{}, domain.ErrNoMeteredPrice
}

func (s *Service) price(ctx context.Context, id string) (*domain.Price, error) {
	if cached, ok := s.priceCache.Get(id); ok {
		return &cached, nil
	}
	price, err := s.prices.GetPrice(ctx, id)
	if err != nil || price == nil {
		return price, err
	}
	s.priceCache.Set(id, *price, priceCacheTTL)
	return price, nil
}
