package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/config"
	creditdomain "github.com/smallbiznis/monetization/internal/credit/domain"
	"github.com/smallbiznis/monetization/internal/observability/metrics"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Clock     clock.Clock
	Checkouts provider.CheckoutGateway
	Credits   provider.CreditGateway
	Invoices  provider.InvoiceGateway
	Billing   *config.BillingConfigHolder
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	checkouts provider.CheckoutGateway
	credits   provider.CreditGateway
	invoices  provider.InvoiceGateway
	billing   *config.BillingConfigHolder
	metrics   *metrics.Metrics
}

func New(p Params) creditdomain.Service {
	return &Service{
		log:       p.Log.Named("credit.service"),
		clock:     p.Clock,
		checkouts: p.Checkouts,
		credits:   p.Credits,
		invoices:  p.Invoices,
		billing:   p.Billing,
		metrics:   p.Metrics,
	}
}

// GrantCreditToCustomer appends a grant to the ledger. With a checkout
// session id at most one grant is ever recorded for that session.
func (s *Service) GrantCreditToCustomer(ctx context.Context, customerID string, amount int64, currency string, checkoutSessionID *string) (string, error) {
	if amount <= 0 {
		return "", domain.ErrInvalidAmount
	}
	if !domain.CurrencyIsSet(currency) {
		return "", domain.ErrInvalidCurrency
	}
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", domain.ErrInvalidID
	}

	grant, err := s.credits.CreateCreditGrant(ctx, domain.CreditGrantInput{
		CustomerIntegrationID: customerID,
		Amount:                amount,
		Currency:              domain.NormalizeCurrency(currency),
		CheckoutSessionID:     checkoutSessionID,
	})
	if err != nil {
		return "", err
	}

	s.metrics.RecordCreditGranted(ctx, grant.Currency, grant.Amount)
	s.log.Info("credit granted",
		zap.String("grant_id", grant.IntegrationID),
		zap.String("customer_id", customerID),
		zap.Int64("amount", grant.Amount),
		zap.String("currency", grant.Currency),
	)
	return grant.IntegrationID, nil
}

// ListCreditGrants pages through grants newest first. before returns grants
// newer than the cursor, after returns older ones.
func (s *Service) ListCreditGrants(ctx context.Context, customerID string, limit int, before, after *string) ([]domain.CreditGrant, error) {
	if before != nil && after != nil {
		return nil, domain.ErrConflictingCursors
	}
	cfg := s.billing.Get()
	if limit <= 0 {
		limit = cfg.CreditPageSize
	}
	if limit > cfg.CreditPageSizeLimit {
		limit = cfg.CreditPageSizeLimit
	}
	return s.credits.ListCreditGrants(ctx, domain.GrantListQuery{
		CustomerIntegrationID: strings.TrimSpace(customerID),
		Limit:                 limit,
		Before:                before,
		After:                 after,
	})
}

// RetrieveCreditBalances returns nil when the customer never received credit.
func (s *Service) RetrieveCreditBalances(ctx context.Context, customerID string) ([]domain.Balance, error) {
	balances, err := s.credits.CreditBalances(ctx, strings.TrimSpace(customerID))
	if err != nil || balances == nil {
		return nil, err
	}
	for i, b := range balances {
		if b.AvailableCredit < 0 || b.AvailableCredit > b.TotalCredit {
			balances[i] = domain.NewBalance(b.CustomerIntegrationID, b.Currency, b.AvailableCredit, b.TotalCredit, b.Balance-b.AvailableCredit)
		}
	}
	return balances, nil
}

// ApplyCreditToInvoice burns down available credit against what is still
// owed on the invoice, oldest grant first. A grant restricted to prices only
// pays the invoice lines of those prices. It returns the amount applied.
func (s *Service) ApplyCreditToInvoice(ctx context.Context, invoiceID string) (int64, error) {
	invoice, err := s.invoices.GetInvoice(ctx, strings.TrimSpace(invoiceID))
	if err != nil {
		return 0, err
	}
	if invoice == nil {
		return 0, domain.ErrInvoiceNotFound
	}
	if invoice.AmountRemaining <= 0 {
		return 0, nil
	}

	grants, err := s.credits.ListAvailableCreditGrants(ctx, invoice.CustomerID, invoice.Currency)
	if err != nil {
		return 0, err
	}

	applications := allocate(invoice, grants)
	if len(applications) == 0 {
		return 0, nil
	}
	var applied int64
	for _, app := range applications {
		applied += app.Amount
	}
	if err := s.credits.ConsumeCredit(ctx, invoice.ID, applications); err != nil {
		return 0, err
	}

	s.metrics.RecordCreditApplied(ctx, invoice.Currency, applied)
	s.log.Info("credit applied to invoice",
		zap.String("invoice_id", invoice.ID),
		zap.Int64("amount", applied),
		zap.Int("grants", len(applications)),
	)
	return applied, nil
}

// allocate spreads grants over the invoice lines in order. Without lines
// only unrestricted grants can pay.
func allocate(invoice *domain.Invoice, grants []domain.CreditGrant) []domain.CreditApplication {
	owed := invoice.AmountRemaining
	lineOwed := make([]int64, len(invoice.Lines))
	for i, line := range invoice.Lines {
		lineOwed[i] = line.Amount
	}

	var applications []domain.CreditApplication
	for _, grant := range grants {
		if owed <= 0 {
			break
		}
		if grant.Remaining <= 0 || !domain.SameCurrency(grant.Currency, invoice.Currency) {
			continue
		}

		budget := min(grant.Remaining, owed)
		take := int64(0)
		if len(invoice.Lines) == 0 {
			if len(grant.Prices) == 0 {
				take = budget
			}
		} else {
			for i, line := range invoice.Lines {
				if take == budget {
					break
				}
				if lineOwed[i] <= 0 || !grant.AppliesTo(line.PriceIntegrationID) {
					continue
				}
				portion := min(lineOwed[i], budget-take)
				lineOwed[i] -= portion
				take += portion
			}
		}
		if take == 0 {
			continue
		}
		owed -= take
		applications = append(applications, domain.CreditApplication{GrantIntegrationID: grant.IntegrationID, Amount: take})
	}
	return applications
}

func (s *Service) CheckoutCreditPack(ctx context.Context, req creditdomain.CreditPackRequest) (*domain.CheckoutSession, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.CurrencyIsSet(req.Currency) {
		return nil, domain.ErrInvalidCurrency
	}
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		return nil, domain.ErrInvalidID
	}

	session, err := s.checkouts.CreateCreditPackCheckout(ctx, domain.CreditPackCheckoutInput{
		CustomerIntegrationID: customerID,
		Amount:                req.Amount,
		Currency:              domain.NormalizeCurrency(req.Currency),
		ReturnURLBase:         strings.TrimSpace(req.ReturnURLBase),
		ExpiresAt:             s.clock.Now().Add(s.billing.Get().CheckoutSessionTTL),
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordCheckout(ctx, string(domain.CheckoutModeCreditPack), "created")
	return session, nil
}

// FulfillCreditPackCheckout grants the credit a completed credit-pack
// checkout paid for. Repeated calls return the same grant.
func (s *Service) FulfillCreditPackCheckout(ctx context.Context, checkoutSessionID string) (string, error) {
	session, err := s.checkouts.GetCheckoutSession(ctx, strings.TrimSpace(checkoutSessionID))
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", domain.ErrCheckoutNotFound
	}
	if session.Mode != domain.CheckoutModeCreditPack {
		return "", domain.ErrWrongCheckoutMode
	}
	if !session.Completed() {
		return "", domain.ErrCheckoutNotCompleted
	}
	if session.Amount == nil {
		return "", domain.ErrInvalidAmount
	}
	return s.GrantCreditToCustomer(ctx, session.CustomerIntegrationID, *session.Amount, session.Currency, &session.ID)
}
