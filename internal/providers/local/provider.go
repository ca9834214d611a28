// Package local is the reference billing provider. It keeps every provider
// record in the platform database and simulates the hosted checkout and the
// invoicing cycle a remote provider would run.
package local

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/providers/local/repository"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const Name = "local"

const defaultAccountID = "acct_local"

type Factory struct {
	db    *gorm.DB
	repo  repository.Repository
	clock clock.Clock
	genID *snowflake.Node
	log   *zap.Logger
}

func NewFactory(db *gorm.DB, repo repository.Repository, clk clock.Clock, genID *snowflake.Node, log *zap.Logger) *Factory {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{db: db, repo: repo, clock: clk, genID: genID, log: log}
}

func (f *Factory) Provider() string {
	return Name
}

func (f *Factory) NewProvider(cfg provider.Config) (provider.Provider, error) {
	if f.db == nil || f.repo == nil || f.genID == nil {
		return nil, provider.ErrInvalidConfig
	}

	base, ok := cfg.String("portal_base_url")
	if !ok {
		return nil, provider.ErrInvalidConfig
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, provider.ErrInvalidConfig
	}

	accountID, _ := cfg.String("account_id")
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		accountID = defaultAccountID
	}

	return &Provider{
		db:        f.db,
		repo:      f.repo,
		clock:     f.clock,
		genID:     f.genID,
		log:       f.log.Named("local.provider"),
		baseURL:   base,
		accountID: accountID,
	}, nil
}

type Provider struct {
	db        *gorm.DB
	repo      repository.Repository
	clock     clock.Clock
	genID     *snowflake.Node
	log       *zap.Logger
	baseURL   string
	accountID string
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) newID(prefix string) string {
	return prefix + p.genID.Generate().String()
}

func (p *Provider) link(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, part := range parts {
		escaped = append(escaped, url.PathEscape(part))
	}
	return p.baseURL + "/" + strings.Join(escaped, "/")
}

// fail wraps storage failures as provider errors. Domain errors pass through.
func (p *Provider) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsUsageError(err) || isNotFound(err) {
		return err
	}
	if errors.Is(err, domain.ErrProviderFailure) {
		return err
	}
	kind := domain.ProviderErrorInternal
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = domain.ProviderErrorNetwork
	}
	p.log.Warn("local provider operation failed", zap.String("op", op), zap.String("kind", string(kind)), zap.Error(err))
	return domain.NewProviderError(Name, op, kind, err)
}

func isNotFound(err error) bool {
	for _, target := range []error{
		domain.ErrCustomerNotFound,
		domain.ErrProductNotFound,
		domain.ErrPriceNotFound,
		domain.ErrSubscriptionNotFound,
		domain.ErrCheckoutNotFound,
		domain.ErrInvoiceNotFound,
		domain.ErrAccountNotConnected,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var _ provider.Provider = (*Provider)(nil)
