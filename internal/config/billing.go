package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds runtime-tunable monetization settings read from billing.yml.
type BillingConfig struct {
	CurrencyExponents   map[string]int32 `mapstructure:"currencyExponents"`
	CheckoutSessionTTL  time.Duration    `mapstructure:"checkoutSessionTTL"`
	CreditPageSize      int              `mapstructure:"creditPageSize"`
	CreditPageSizeLimit int              `mapstructure:"creditPageSizeLimit"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		CurrencyExponents:   map[string]int32{},
		CheckoutSessionTTL:  24 * time.Hour,
		CreditPageSize:      10,
		CreditPageSizeLimit: 100,
	}
}

type BillingConfigHolder struct {
	current  atomic.Value // holds BillingConfig
	onChange []func(BillingConfig)
}

// NewStaticBillingConfigHolder wraps a fixed config without watching any file.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/monetization")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MONETIZATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.currencyExponents", defaults.CurrencyExponents)
	v.SetDefault("billing.checkoutSessionTTL", defaults.CheckoutSessionTTL)
	v.SetDefault("billing.creditPageSize", defaults.CreditPageSize)
	v.SetDefault("billing.creditPageSizeLimit", defaults.CreditPageSizeLimit)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg, err := decodeBillingConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeBillingConfig(v)
		if err != nil {
			log.Printf("[billing-config] invalid config ignored: %v", err)
			return
		}
		holder.store(updated)
		log.Printf("[billing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

// OnChange registers fn to run with the initial config and after every reload.
func (h *BillingConfigHolder) OnChange(fn func(BillingConfig)) {
	h.onChange = append(h.onChange, fn)
	fn(h.Get())
}

func (h *BillingConfigHolder) store(cfg BillingConfig) {
	h.current.Store(cfg)
	for _, fn := range h.onChange {
		fn(cfg)
	}
}

func decodeBillingConfig(v *viper.Viper) (BillingConfig, error) {
	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return BillingConfig{}, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return BillingConfig{}, err
	}
	return cfg, nil
}

func validateBillingConfig(cfg BillingConfig) error {
	if cfg.CheckoutSessionTTL <= 0 {
		return errors.New("billing.checkoutSessionTTL must be positive")
	}
	if cfg.CreditPageSize <= 0 {
		return errors.New("billing.creditPageSize must be positive")
	}
	if cfg.CreditPageSizeLimit < cfg.CreditPageSize {
		return errors.New("billing.creditPageSizeLimit cannot be below billing.creditPageSize")
	}
	for code, exp := range cfg.CurrencyExponents {
		if exp < 0 || exp > 6 {
			return fmt.Errorf("billing.currencyExponents.%s out of range: %d", code, exp)
		}
	}
	return nil
}
