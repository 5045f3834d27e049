package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// ========================================
// CIRCULATION POLICY
// ========================================

// Policy holds the circulation rules. Defaults are compiled in, POLICY_FILE
// (TOML) overrides them and individual env vars override the file.
//
// Two reservation expiry windows exist: new reservations use
// ReservationExpiryDays, the legacy backfill job uses
// LegacyReservationExpiryDays for rows created without an expiry date.
type Policy struct {
	LoanPeriodDays              int
	RenewalDays                 int
	FinePerDay                  decimal.Decimal
	ReservationExpiryDays       int
	LegacyReservationExpiryDays int
	ReshelveOnCheckin           bool
}

func DefaultPolicy() Policy {
	return Policy{
		LoanPeriodDays:              14,
		RenewalDays:                 14,
		FinePerDay:                  decimal.RequireFromString("0.50"),
		ReservationExpiryDays:       7,
		LegacyReservationExpiryDays: 5,
		ReshelveOnCheckin:           false,
	}
}

func (p Policy) LoanPeriod() time.Duration {
	return time.Duration(p.LoanPeriodDays) * 24 * time.Hour
}

func (p Policy) RenewalPeriod() time.Duration {
	return time.Duration(p.RenewalDays) * 24 * time.Hour
}

func (p Policy) ReservationExpiry() time.Duration {
	return time.Duration(p.ReservationExpiryDays) * 24 * time.Hour
}

func (p Policy) LegacyReservationExpiry() time.Duration {
	return time.Duration(p.LegacyReservationExpiryDays) * 24 * time.Hour
}

func (p Policy) Validate() error {
	if p.LoanPeriodDays < 1 {
		return fmt.Errorf("loan_period_days must be >= 1, got %d", p.LoanPeriodDays)
	}
	if p.RenewalDays < 1 {
		return fmt.Errorf("renewal_days must be >= 1, got %d", p.RenewalDays)
	}
	if p.FinePerDay.IsNegative() {
		return fmt.Errorf("fine_per_day must not be negative, got %s", p.FinePerDay)
	}
	if !p.FinePerDay.Equal(p.FinePerDay.Round(2)) {
		return fmt.Errorf("fine_per_day must have at most 2 decimal places, got %s", p.FinePerDay)
	}
	if p.ReservationExpiryDays < 1 || p.LegacyReservationExpiryDays < 1 {
		return fmt.Errorf("reservation expiry windows must be >= 1 day")
	}
	return nil
}

// policyFile mirrors Policy with optional fields so absent keys keep
// their default.
type policyFile struct {
	LoanPeriodDays              *int  `toml:"loan_period_days"`
	RenewalDays                 *int  `toml:"renewal_days"`
	FinePerDay                  any   `toml:"fine_per_day"` // "0.50" or 0.5
	ReservationExpiryDays       *int  `toml:"reservation_expiry_days"`
	LegacyReservationExpiryDays *int  `toml:"legacy_reservation_expiry_days"`
	ReshelveOnCheckin           *bool `toml:"reshelve_on_checkin"`
}

// LoadPolicyFile decodes a TOML file over the defaults.
func LoadPolicyFile(path string) (Policy, error) {
	var file policyFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to decode policy file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Policy{}, fmt.Errorf("unknown keys in policy file %s: %v", path, undecoded)
	}

	policy := DefaultPolicy()
	if file.LoanPeriodDays != nil {
		policy.LoanPeriodDays = *file.LoanPeriodDays
	}
	if file.RenewalDays != nil {
		policy.RenewalDays = *file.RenewalDays
	}
	if file.ReservationExpiryDays != nil {
		policy.ReservationExpiryDays = *file.ReservationExpiryDays
	}
	if file.LegacyReservationExpiryDays != nil {
		policy.LegacyReservationExpiryDays = *file.LegacyReservationExpiryDays
	}
	if file.ReshelveOnCheckin != nil {
		policy.ReshelveOnCheckin = *file.ReshelveOnCheckin
	}

	switch v := file.FinePerDay.(type) {
	case nil:
	case string:
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid fine_per_day %q: %w", v, err)
		}
		policy.FinePerDay = rate
	case float64:
		policy.FinePerDay = decimal.NewFromFloat(v)
	case int64:
		policy.FinePerDay = decimal.NewFromInt(v)
	default:
		return Policy{}, fmt.Errorf("invalid fine_per_day type %T", v)
	}

	return policy, nil
}

// LoadPolicy applies POLICY_FILE then env overrides.
func LoadPolicy() (Policy, error) {
	policy := DefaultPolicy()
	if path := os.Getenv("POLICY_FILE"); path != "" {
		var err error
		if policy, err = LoadPolicyFile(path); err != nil {
			return Policy{}, err
		}
	}

	policy.LoanPeriodDays = getEnvInt("LOAN_PERIOD_DAYS", policy.LoanPeriodDays)
	policy.RenewalDays = getEnvInt("RENEWAL_DAYS", policy.RenewalDays)
	policy.ReservationExpiryDays = getEnvInt("RESERVATION_EXPIRY_DAYS", policy.ReservationExpiryDays)
	policy.LegacyReservationExpiryDays = getEnvInt("LEGACY_RESERVATION_EXPIRY_DAYS", policy.LegacyReservationExpiryDays)
	policy.ReshelveOnCheckin = getEnvBool("RESHELVE_ON_CHECKIN", policy.ReshelveOnCheckin)
	if v := os.Getenv("FINE_PER_DAY"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return Policy{}, fmt.Errorf("invalid FINE_PER_DAY %q: %w", v, err)
		}
		policy.FinePerDay = rate
	}

	return policy, policy.Validate()
}
