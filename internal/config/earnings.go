package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	GroupLessonsByTitle = "title"
	GroupLessonsByID    = "id"
)

// EarningsConfig carries the payout policy knobs that product may tune
// without a deploy.
type EarningsConfig struct {
	SequencerCreatorSharePercent int64              `mapstructure:"sequencer_creator_share_percent"`
	LessonGroupingKey            string             `mapstructure:"lesson_grouping_key"`
	CurrencyPrefix               string             `mapstructure:"currency_prefix"`
	MinWithdrawal                int64              `mapstructure:"min_withdrawal"`
	WithdrawalMethods            []WithdrawalMethod `mapstructure:"withdrawal_methods"`
}

type WithdrawalMethod struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Kind       string `mapstructure:"kind"`
	Fee        int64  `mapstructure:"fee"`
	Processing string `mapstructure:"processing"`
}

const (
	WithdrawalKindBank    = "bank"
	WithdrawalKindEWallet = "ewallet"
)

func DefaultEarningsConfig() EarningsConfig {
	return EarningsConfig{
		SequencerCreatorSharePercent: 70,
		LessonGroupingKey:            GroupLessonsByTitle,
		CurrencyPrefix:               "Rp",
		MinWithdrawal:                50_000,
		WithdrawalMethods: []WithdrawalMethod{
			{ID: "bank", Name: "Bank Transfer", Kind: WithdrawalKindBank, Fee: 2_500, Processing: "1-2 business days"},
			{ID: "gopay", Name: "GoPay", Kind: WithdrawalKindEWallet, Fee: 1_500, Processing: "Instant"},
			{ID: "ovo", Name: "OVO", Kind: WithdrawalKindEWallet, Fee: 1_500, Processing: "Instant"},
			{ID: "dana", Name: "DANA", Kind: WithdrawalKindEWallet, Fee: 1_500, Processing: "Instant"},
		},
	}
}

// Method looks up a withdrawal method by id.
func (c EarningsConfig) Method(id string) (WithdrawalMethod, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, m := range c.WithdrawalMethods {
		if m.ID == id {
			return m, true
		}
	}
	return WithdrawalMethod{}, false
}

type EarningsConfigHolder struct {
	current atomic.Value // holds EarningsConfig
}

// NewStaticEarningsConfigHolder pins a config without file watching.
func NewStaticEarningsConfigHolder(cfg EarningsConfig) *EarningsConfigHolder {
	holder := &EarningsConfigHolder{}
	holder.current.Store(normalizeEarningsConfig(cfg))
	return holder
}

func NewEarningsConfigHolder() (*EarningsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("earnings")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/royalty/config")
	v.AddConfigPath("/etc/royalty")
	v.AddConfigPath(".")

	return loadEarningsConfig(v)
}

// NewEarningsConfigHolderFromFile loads and watches an explicit file.
func NewEarningsConfigHolderFromFile(path string) (*EarningsConfigHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return loadEarningsConfig(v)
}

func loadEarningsConfig(v *viper.Viper) (*EarningsConfigHolder, error) {
	v.SetEnvPrefix("ROYALTY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultEarningsConfig()
	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		found = false
	}
	if found {
		var loaded EarningsConfig
		if err := v.UnmarshalKey("earnings", &loaded); err != nil {
			return nil, err
		}
		cfg = normalizeEarningsConfig(loaded)
	}
	if err := validateEarningsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EarningsConfigHolder{}
	holder.current.Store(cfg)

	if !found {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if err := holder.reload(v); err != nil {
			log.Printf("[earnings-config] reload ignored: %v", err)
			return
		}
		log.Printf("[earnings-config] reloaded from %s", e.Name)
	})
	v.WatchConfig()

	return holder, nil
}

// reload swaps in the config v currently holds. Invalid configs leave the
// previous one in place.
func (h *EarningsConfigHolder) reload(v *viper.Viper) error {
	var updated EarningsConfig
	if err := v.UnmarshalKey("earnings", &updated); err != nil {
		return err
	}
	updated = normalizeEarningsConfig(updated)
	if err := validateEarningsConfig(updated); err != nil {
		return err
	}
	h.current.Store(updated)
	return nil
}

func (h *EarningsConfigHolder) Get() EarningsConfig {
	if h == nil {
		return DefaultEarningsConfig()
	}
	cfg, ok := h.current.Load().(EarningsConfig)
	if !ok {
		return DefaultEarningsConfig()
	}
	return cfg
}

// normalizeEarningsConfig fills unset fields with defaults. A zero share is
// treated as unset; a creator share of 0% is not a supported policy.
func normalizeEarningsConfig(cfg EarningsConfig) EarningsConfig {
	defaults := DefaultEarningsConfig()
	if cfg.SequencerCreatorSharePercent == 0 {
		cfg.SequencerCreatorSharePercent = defaults.SequencerCreatorSharePercent
	}
	cfg.LessonGroupingKey = strings.ToLower(strings.TrimSpace(cfg.LessonGroupingKey))
	if cfg.LessonGroupingKey == "" {
		cfg.LessonGroupingKey = defaults.LessonGroupingKey
	}
	if strings.TrimSpace(cfg.CurrencyPrefix) == "" {
		cfg.CurrencyPrefix = defaults.CurrencyPrefix
	}
	if cfg.MinWithdrawal == 0 {
		cfg.MinWithdrawal = defaults.MinWithdrawal
	}
	if len(cfg.WithdrawalMethods) == 0 {
		cfg.WithdrawalMethods = defaults.WithdrawalMethods
	}
	for i := range cfg.WithdrawalMethods {
		cfg.WithdrawalMethods[i].ID = strings.ToLower(strings.TrimSpace(cfg.WithdrawalMethods[i].ID))
		cfg.WithdrawalMethods[i].Kind = strings.ToLower(strings.TrimSpace(cfg.WithdrawalMethods[i].Kind))
	}
	return cfg
}

func validateEarningsConfig(cfg EarningsConfig) error {
	if cfg.SequencerCreatorSharePercent < 0 || cfg.SequencerCreatorSharePercent > 100 {
		return fmt.Errorf("earnings.sequencer_creator_share_percent out of range: %d", cfg.SequencerCreatorSharePercent)
	}
	switch cfg.LessonGroupingKey {
	case GroupLessonsByTitle, GroupLessonsByID:
	default:
		return fmt.Errorf("earnings.lesson_grouping_key must be %q or %q", GroupLessonsByTitle, GroupLessonsByID)
	}
	if cfg.MinWithdrawal < 0 {
		return errors.New("earnings.min_withdrawal cannot be negative")
	}
	for _, m := range cfg.WithdrawalMethods {
		if m.ID == "" {
			return errors.New("earnings.withdrawal_methods[].id cannot be empty")
		}
		if m.Fee < 0 {
			return fmt.Errorf("earnings.withdrawal_methods[%s].fee cannot be negative", m.ID)
		}
		if m.Kind != WithdrawalKindBank && m.Kind != WithdrawalKindEWallet {
			return fmt.Errorf("earnings.withdrawal_methods[%s].kind must be bank or ewallet", m.ID)
		}
	}
	return nil
}
