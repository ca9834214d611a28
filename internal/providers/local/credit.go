package local

import (
	"context"
	"sort"
	"strings"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/internal/providers/local/repository"
	pkgdb "github.com/smallbiznis/monetization/pkg/db"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
)

const defaultGrantPageSize = 10

// CreateCreditGrant appends a grant. A grant tied to a checkout session is
// written once; later calls return it.
func (p *Provider) CreateCreditGrant(ctx context.Context, input domain.CreditGrantInput) (*domain.CreditGrant, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := domain.NormalizeCurrency(input.Currency)
	if !domain.CurrencyIsSet(currency) {
		return nil, domain.ErrInvalidCurrency
	}
	var sessionID *string
	if input.CheckoutSessionID != nil && strings.TrimSpace(*input.CheckoutSessionID) != "" {
		trimmed := strings.TrimSpace(*input.CheckoutSessionID)
		sessionID = &trimmed
	}

	customer, err := p.repo.FindCustomer(ctx, p.db, strings.TrimSpace(input.CustomerIntegrationID))
	if err != nil {
		return nil, p.fail("create_credit_grant", err)
	}
	if customer == nil {
		return nil, domain.ErrCustomerNotFound
	}

	if sessionID != nil {
		existing, err := p.repo.FindCreditGrantByCheckoutSession(ctx, p.db, *sessionID)
		if err != nil {
			return nil, p.fail("create_credit_grant", err)
		}
		if existing != nil {
			return p.grant("create_credit_grant", existing)
		}
	}

	prices, err := encodeStrings(uniqueSorted(input.Prices))
	if err != nil {
		return nil, p.fail("create_credit_grant", err)
	}
	id := p.genID.Generate()
	row := &model.CreditGrant{
		ID:                "cg_" + id.String(),
		Seq:               id.Int64(),
		CustomerID:        customer.ID,
		Amount:            input.Amount,
		Remaining:         input.Amount,
		Currency:          currency,
		Status:            string(domain.CreditGrantAvailable),
		Prices:            prices,
		CheckoutSessionID: sessionID,
		CreatedAt:         p.clock.Now(),
	}
	if err := p.repo.InsertCreditGrant(ctx, p.db, row); err != nil {
		if sessionID != nil && pkgdb.IsDuplicateKeyErr(err) {
			existing, findErr := p.repo.FindCreditGrantByCheckoutSession(ctx, p.db, *sessionID)
			if findErr == nil && existing != nil {
				return p.grant("create_credit_grant", existing)
			}
		}
		return nil, p.fail("create_credit_grant", err)
	}
	return p.grant("create_credit_grant", row)
}

func (p *Provider) ListCreditGrants(ctx context.Context, query domain.GrantListQuery) ([]domain.CreditGrant, error) {
	if query.Before != nil && query.After != nil {
		return nil, domain.ErrConflictingCursors
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultGrantPageSize
	}

	q := repository.GrantQuery{CustomerID: strings.TrimSpace(query.CustomerIntegrationID), Limit: limit}
	for _, cursor := range []struct {
		id  *string
		seq **int64
	}{{query.Before, &q.BeforeSeq}, {query.After, &q.AfterSeq}} {
		if cursor.id == nil {
			continue
		}
		anchor, err := p.repo.FindCreditGrant(ctx, p.db, strings.TrimSpace(*cursor.id))
		if err != nil {
			return nil, p.fail("list_credit_grants", err)
		}
		if anchor == nil || anchor.CustomerID != q.CustomerID {
			return nil, domain.ErrInvalidID
		}
		seq := anchor.Seq
		*cursor.seq = &seq
	}

	rows, err := p.repo.ListCreditGrants(ctx, p.db, q)
	if err != nil {
		return nil, p.fail("list_credit_grants", err)
	}
	return p.grants("list_credit_grants", rows)
}

func (p *Provider) ListAvailableCreditGrants(ctx context.Context, customerID, currency string) ([]domain.CreditGrant, error) {
	rows, err := p.repo.ListAvailableCreditGrants(ctx, p.db, strings.TrimSpace(customerID), domain.NormalizeCurrency(currency))
	if err != nil {
		return nil, p.fail("list_available_credit_grants", err)
	}
	return p.grants("list_available_credit_grants", rows)
}

// CreditBalances returns one balance per currency, or nil when the customer
// never received credit.
func (p *Provider) CreditBalances(ctx context.Context, customerID string) ([]domain.Balance, error) {
	customerID = strings.TrimSpace(customerID)
	count, err := p.repo.CountCreditGrants(ctx, p.db, customerID)
	if err != nil {
		return nil, p.fail("credit_balances", err)
	}
	if count == 0 {
		return nil, nil
	}

	sums, err := p.repo.SumCreditByCurrency(ctx, p.db, customerID)
	if err != nil {
		return nil, p.fail("credit_balances", err)
	}
	adjustments, err := p.repo.SumBalanceAdjustments(ctx, p.db, customerID)
	if err != nil {
		return nil, p.fail("credit_balances", err)
	}

	byCurrency := make(map[string]domain.Balance, len(sums))
	for _, sum := range sums {
		byCurrency[sum.Currency] = domain.NewBalance(customerID, sum.Currency, sum.Available, sum.Total, adjustments[sum.Currency])
	}
	for currency, amount := range adjustments {
		if _, ok := byCurrency[currency]; !ok {
			byCurrency[currency] = domain.NewBalance(customerID, currency, 0, 0, amount)
		}
	}

	balances := make([]domain.Balance, 0, len(byCurrency))
	for _, balance := range byCurrency {
		balances = append(balances, balance)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Currency < balances[j].Currency })
	return balances, nil
}

// ConsumeCredit debits the grants and pays the invoice by the same amount in
// one transaction.
func (p *Provider) ConsumeCredit(ctx context.Context, invoiceID string, applications []domain.CreditApplication) error {
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := p.repo.FindInvoice(ctx, tx, strings.TrimSpace(invoiceID))
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}

		var applied int64
		for _, app := range applications {
			if app.Amount <= 0 {
				return domain.ErrInvalidAmount
			}
			applied += app.Amount
		}
		if applied > invoice.AmountRemaining {
			return domain.ErrInvalidAmount
		}

		now := p.clock.Now()
		for _, app := range applications {
			grant, err := p.repo.FindCreditGrant(ctx, tx, app.GrantIntegrationID)
			if err != nil {
				return err
			}
			if grant == nil || grant.CustomerID != invoice.CustomerID {
				return domain.ErrInvalidID
			}
			if !domain.SameCurrency(grant.Currency, invoice.Currency) {
				return domain.ErrInvalidCurrency
			}
			ok, err := p.repo.DebitCreditGrant(ctx, tx, grant.ID, app.Amount)
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrInvalidAmount
			}
			if err := p.repo.InsertCreditConsumption(ctx, tx, &model.CreditConsumption{
				ID:        p.newID("cc_"),
				GrantID:   grant.ID,
				InvoiceID: invoice.ID,
				Amount:    app.Amount,
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		invoice.AmountPaid += applied
		invoice.AmountRemaining -= applied
		if invoice.AmountRemaining == 0 {
			invoice.Status = invoiceStatusPaid
		}
		invoice.UpdatedAt = now
		return p.repo.UpdateInvoice(ctx, tx, invoice)
	})
	return p.fail("consume_credit", err)
}

func (p *Provider) grant(op string, row *model.CreditGrant) (*domain.CreditGrant, error) {
	grant, err := toCreditGrant(row)
	if err != nil {
		return nil, p.fail(op, err)
	}
	return grant, nil
}

func (p *Provider) grants(op string, rows []model.CreditGrant) ([]domain.CreditGrant, error) {
	out := make([]domain.CreditGrant, 0, len(rows))
	for i := range rows {
		grant, err := toCreditGrant(&rows[i])
		if err != nil {
			return nil, p.fail(op, err)
		}
		out = append(out, *grant)
	}
	return out, nil
}
