package module

import (
	"time"

	"aquawatch/internal/core/event"
	"aquawatch/internal/platform/config"
)

// Options holds configuration options for the aggregation service
type Options struct {
	Workers         int
	DelayPerMachine time.Duration
	MaxRetries      int
	RetryBase       time.Duration
	Lookback        time.Duration
	MachineTimeout  time.Duration
	ReadTimeout     time.Duration
	DBTimeout       time.Duration
	EnableLeases    bool
	LeaseTTL        time.Duration

	// Detection tuning
	DrainMinLiters float64
	DrainMinPct    float64
	ProdMinLiters  float64
	MaxRateLPM     float64
	Staleness      time.Duration

	// Classification tuning
	GapThreshold    time.Duration
	NominalInterval time.Duration
}

// FromConfig reads the aggregation options from config with CORE_AGG_ prefix
func FromConfig(cfg config.Conf) Options {
	ag := cfg.Prefix("CORE_AGG_")
	def := event.DefaultParams()
	return Options{
		Workers:         ag.MayInt("WORKERS", 4),
		DelayPerMachine: ag.MayDuration("DELAY", 0),
		MaxRetries:      ag.MayInt("RETRIES", 3),
		RetryBase:       ag.MayDuration("RETRY_BASE", 500*time.Millisecond),
		Lookback:        ag.MayDuration("LOOKBACK", 24*time.Hour),
		MachineTimeout:  ag.MayDuration("MACHINE_TIMEOUT", 5*time.Minute),
		ReadTimeout:     ag.MayDuration("READ_TIMEOUT", 2*time.Minute),
		DBTimeout:       ag.MayDuration("DB_TIMEOUT", 0),
		EnableLeases:    ag.MayBool("LEASES", true),
		LeaseTTL:        ag.MayDuration("LEASE_TTL", 15*time.Minute),

		DrainMinLiters: ag.MayFloat64("DRAIN_MIN_LITERS", def.DrainMinLiters),
		DrainMinPct:    ag.MayFloat64("DRAIN_MIN_PCT", def.DrainMinPct),
		ProdMinLiters:  ag.MayFloat64("PROD_MIN_LITERS", def.ProdMinLiters),
		MaxRateLPM:     ag.MayFloat64("MAX_RATE_LPM", def.MaxRateLPM),
		Staleness:      ag.MayDuration("STALENESS", def.Staleness),

		GapThreshold:    ag.MayDuration("GAP_THRESHOLD", 30*time.Second),
		NominalInterval: ag.MayDuration("NOMINAL_INTERVAL", 10*time.Second),
	}
}
