package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, 14, p.LoanPeriodDays)
	assert.Equal(t, 14, p.RenewalDays)
	assert.True(t, p.FinePerDay.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 7, p.ReservationExpiryDays)
	assert.Equal(t, 5, p.LegacyReservationExpiryDays)
	assert.False(t, p.ReshelveOnCheckin)
	assert.NoError(t, p.Validate())
}

func TestLoadPolicyFileOverridesOnlyPresentKeys(t *testing.T) {
	path := writePolicy(t, `
loan_period_days = 21
fine_per_day = "0.25"
reshelve_on_checkin = true
`)

	p, err := LoadPolicyFile(path)
	require.NoError(t, err)

	assert.Equal(t, 21, p.LoanPeriodDays)
	assert.True(t, p.FinePerDay.Equal(decimal.RequireFromString("0.25")))
	assert.True(t, p.ReshelveOnCheckin)
	assert.Equal(t, 14, p.RenewalDays)
	assert.Equal(t, 7, p.ReservationExpiryDays)
}

func TestLoadPolicyFileAcceptsFloatRate(t *testing.T) {
	p, err := LoadPolicyFile(writePolicy(t, "fine_per_day = 1.5\n"))
	require.NoError(t, err)
	assert.True(t, p.FinePerDay.Equal(decimal.RequireFromString("1.5")))
}

func TestLoadPolicyFileRejectsUnknownKeys(t *testing.T) {
	_, err := LoadPolicyFile(writePolicy(t, "loan_days = 3\n"))
	assert.Error(t, err)
}

func TestLoadPolicyEnvOverridesFile(t *testing.T) {
	t.Setenv("POLICY_FILE", writePolicy(t, "loan_period_days = 21\n"))
	t.Setenv("LOAN_PERIOD_DAYS", "10")
	t.Setenv("FINE_PER_DAY", "1.00")

	p, err := LoadPolicy()
	require.NoError(t, err)

	assert.Equal(t, 10, p.LoanPeriodDays)
	assert.True(t, p.FinePerDay.Equal(decimal.NewFromInt(1)))
}

func TestPolicyValidate(t *testing.T) {
	p := DefaultPolicy()
	p.LoanPeriodDays = 0
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.FinePerDay = decimal.NewFromInt(-1)
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.FinePerDay = decimal.RequireFromString("0.125")
	assert.Error(t, p.Validate())
}
