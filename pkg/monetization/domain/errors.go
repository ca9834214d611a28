package domain

import (
	"errors"
	"fmt"
)

// Usage errors. They are returned synchronously and must not be retried.
var (
	ErrInvalidPriceSpec     = errors.New("invalid_price_spec")
	ErrInvalidTierSchedule  = errors.New("invalid_tier_schedule")
	ErrLookupKeyInUse       = errors.New("lookup_key_in_use")
	ErrPriceArchived        = errors.New("price_archived")
	ErrAmbiguousUsage       = errors.New("ambiguous_usage_attribution")
	ErrNoMeteredPrice       = errors.New("no_metered_price")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidTimestamp     = errors.New("invalid_timestamp")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrConflictingCursors   = errors.New("conflicting_cursors")
	ErrInvalidCancelTime    = errors.New("invalid_cancel_time")
	ErrCheckoutNotCompleted = errors.New("checkout_not_completed")
	ErrWrongCheckoutMode    = errors.New("wrong_checkout_mode")
	ErrInvalidID            = errors.New("invalid_id")
)

// Not-found errors for entities an operation requires.
var (
	ErrCustomerNotFound     = errors.New("customer_not_found")
	ErrProductNotFound      = errors.New("product_not_found")
	ErrPriceNotFound        = errors.New("price_not_found")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrCheckoutNotFound     = errors.New("checkout_session_not_found")
	ErrInvoiceNotFound      = errors.New("invoice_not_found")
	ErrAccountNotConnected  = errors.New("account_not_connected")
)

// ErrProviderFailure matches every *ProviderError through errors.Is.
var ErrProviderFailure = errors.New("provider_failure")

var usageErrors = []error{
	ErrInvalidPriceSpec,
	ErrInvalidTierSchedule,
	ErrLookupKeyInUse,
	ErrPriceArchived,
	ErrAmbiguousUsage,
	ErrNoMeteredPrice,
	ErrInvalidQuantity,
	ErrInvalidTimestamp,
	ErrInvalidAmount,
	ErrInvalidCurrency,
	ErrConflictingCursors,
	ErrInvalidCancelTime,
	ErrCheckoutNotCompleted,
	ErrWrongCheckoutMode,
	ErrInvalidID,
}

// IsUsageError reports whether err is a caller mistake rather than a provider failure.
func IsUsageError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range usageErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type ProviderErrorKind string

const (
	ProviderErrorNetwork   ProviderErrorKind = "network"
	ProviderErrorAuth      ProviderErrorKind = "auth"
	ProviderErrorRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrorInternal  ProviderErrorKind = "internal"
)

// ProviderError wraps a failure raised by the remote provider.
type ProviderError struct {
	Provider string
	Op       string
	Kind     ProviderErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %s: %v", e.Provider, e.Op, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderFailure }

// NewProviderError builds a ProviderError. A nil err yields nil.
func NewProviderError(provider, op string, kind ProviderErrorKind, err error) error {
	if err == nil {
		return nil
	}
	if kind == "" {
		kind = ProviderErrorInternal
	}
	return &ProviderError{Provider: provider, Op: op, Kind: kind, Err: err}
}

// ProviderErrorKindOf returns the kind of the first ProviderError in the chain.
func ProviderErrorKindOf(err error) (ProviderErrorKind, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return "", false
}
