package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarningsConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "earnings.yml")
	body := `earnings:
  sequencer_creator_share_percent: 65
  lesson_grouping_key: ID
  min_withdrawal: 100000
  withdrawal_methods:
    - id: bank
      name: Bank Transfer
      kind: bank
      fee: 3000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	holder, err := NewEarningsConfigHolderFromFile(path)
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, int64(65), cfg.SequencerCreatorSharePercent)
	assert.Equal(t, GroupLessonsByID, cfg.LessonGroupingKey)
	assert.Equal(t, int64(100000), cfg.MinWithdrawal)
	assert.Equal(t, "Rp", cfg.CurrencyPrefix)
	require.Len(t, cfg.WithdrawalMethods, 1)

	method, ok := cfg.Method("BANK")
	require.True(t, ok)
	assert.Equal(t, int64(3000), method.Fee)
	_, ok = cfg.Method("gopay")
	assert.False(t, ok)
}

func TestEarningsConfigRejectsInvalidGroupingKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "earnings.yml")
	require.NoError(t, os.WriteFile(path, []byte("earnings:\n  lesson_grouping_key: slug\n"), 0o600))

	_, err := NewEarningsConfigHolderFromFile(path)
	require.Error(t, err)
}

func TestEarningsConfigHolderDefaults(t *testing.T) {
	var holder *EarningsConfigHolder
	cfg := holder.Get()
	assert.Equal(t, int64(70), cfg.SequencerCreatorSharePercent)
	assert.Len(t, cfg.WithdrawalMethods, 4)

	static := NewStaticEarningsConfigHolder(EarningsConfig{SequencerCreatorSharePercent: 80})
	assert.Equal(t, int64(80), static.Get().SequencerCreatorSharePercent)
	assert.Equal(t, int64(50_000), static.Get().MinWithdrawal)
}

// writeEarningsFile replaces path in one rename so the watcher never reads a
// half-written file.
func writeEarningsFile(t *testing.T, path, body string) {
	t.Helper()
	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(body), 0o600))
	require.NoError(t, os.Rename(tmp, path))
}

func shareConfig(share int) string {
	return "earnings:\n  sequencer_creator_share_percent: " + strconv.Itoa(share) + "\n"
}

func TestEarningsConfigHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "earnings.yml")
	writeEarningsFile(t, path, shareConfig(65))

	holder, err := NewEarningsConfigHolderFromFile(path)
	require.NoError(t, err)
	require.Equal(t, int64(65), holder.Get().SequencerCreatorSharePercent)

	writeEarningsFile(t, path, shareConfig(80))
	require.Eventually(t, func() bool {
		return holder.Get().SequencerCreatorSharePercent == 80
	}, 5*time.Second, 20*time.Millisecond)

	writeEarningsFile(t, path, shareConfig(150))
	assert.Never(t, func() bool {
		return holder.Get().SequencerCreatorSharePercent != 80
	}, 500*time.Millisecond, 20*time.Millisecond)

	writeEarningsFile(t, path, shareConfig(75))
	require.Eventually(t, func() bool {
		return holder.Get().SequencerCreatorSharePercent == 75
	}, 5*time.Second, 20*time.Millisecond)
}

func TestEarningsConfigReloadKeepsPreviousOnInvalid(t *testing.T) {
	holder := NewStaticEarningsConfigHolder(EarningsConfig{SequencerCreatorSharePercent: 80, CurrencyPrefix: "US$"})

	path := filepath.Join(t.TempDir(), "earnings.yml")
	writeEarningsFile(t, path, "earnings:\n  sequencer_creator_share_percent: 150\n  currency_prefix: IDR\n")
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	require.Error(t, holder.reload(v))
	assert.Equal(t, int64(80), holder.Get().SequencerCreatorSharePercent)
	assert.Equal(t, "US$", holder.Get().CurrencyPrefix)

	writeEarningsFile(t, path, "earnings:\n  sequencer_creator_share_percent: 60\n  currency_prefix: IDR\n")
	require.NoError(t, v.ReadInConfig())
	require.NoError(t, holder.reload(v))
	assert.Equal(t, int64(60), holder.Get().SequencerCreatorSharePercent)
	assert.Equal(t, "IDR", holder.Get().CurrencyPrefix)
}
