package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig
	Engine EngineConfig
}

type AppConfig struct {
	LogLevel  string
	OutputDir string
	Workers   int
}

// EngineConfig holds the allocation tunables. Defaults mirror the
// calibrated production values; all can be overridden via environment.
type EngineConfig struct {
	// Baseline daily sales rates for SKUs with no history.
	FreshBaselineRate float64
	DryBaselineRate   float64
	// Fraction of a category lookalike's rate granted to a new SKU.
	LookalikeDiscount float64
	// Forecast multiplier for growing-trend SKUs. Declining gets no penalty.
	GrowthTrendBoost float64
	// Days subtracted from shelf life before coverage is computed.
	ExpirySafetyDays float64
	// Demand-scaled rate below which non-staple SKUs are dropped on small tiers.
	NegligibleDemand float64
	// Unused-budget fraction that triggers the redistribution pass.
	RedistributeThreshold float64
	// Additive coverage buffers for risky supply.
	ReliabilityBufferPct    float64
	ReliabilityThreshold    float64
	VolatilityBufferPct     float64
	VolatilityThreshold     float64
	// Departments whose staples get priority access to depth budget.
	FastFiveDepartments []string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("APP_LOG_LEVEL", "info")
		viper.SetDefault("APP_OUTPUT_DIR", "./data/output")
		viper.SetDefault("APP_WORKERS", 4)
		viper.SetDefault("ENGINE_FRESH_BASELINE_RATE", 0.3)
		viper.SetDefault("ENGINE_DRY_BASELINE_RATE", 0.5)
		viper.SetDefault("ENGINE_LOOKALIKE_DISCOUNT", 0.5)
		viper.SetDefault("ENGINE_GROWTH_TREND_BOOST", 1.20)
		viper.SetDefault("ENGINE_EXPIRY_SAFETY_DAYS", 2.0)
		viper.SetDefault("ENGINE_NEGLIGIBLE_DEMAND", 0.05)
		viper.SetDefault("ENGINE_REDISTRIBUTE_THRESHOLD", 0.10)
		viper.SetDefault("ENGINE_RELIABILITY_BUFFER_PCT", 0.25)
		viper.SetDefault("ENGINE_RELIABILITY_THRESHOLD", 70.0)
		viper.SetDefault("ENGINE_VOLATILITY_BUFFER_PCT", 0.15)
		viper.SetDefault("ENGINE_VOLATILITY_THRESHOLD", 0.8)
		viper.SetDefault("ENGINE_FAST_FIVE_DEPARTMENTS",
			[]string{"FRESH MILK", "BREAD", "COOKING OIL", "FLOUR", "SUGAR"})

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			App: AppConfig{
				LogLevel:  viper.GetString("APP_LOG_LEVEL"),
				OutputDir: viper.GetString("APP_OUTPUT_DIR"),
				Workers:   viper.GetInt("APP_WORKERS"),
			},
			Engine: DefaultEngine(),
		}
		instance.Engine.FreshBaselineRate = viper.GetFloat64("ENGINE_FRESH_BASELINE_RATE")
		instance.Engine.DryBaselineRate = viper.GetFloat64("ENGINE_DRY_BASELINE_RATE")
		instance.Engine.LookalikeDiscount = viper.GetFloat64("ENGINE_LOOKALIKE_DISCOUNT")
		instance.Engine.GrowthTrendBoost = viper.GetFloat64("ENGINE_GROWTH_TREND_BOOST")
		instance.Engine.ExpirySafetyDays = viper.GetFloat64("ENGINE_EXPIRY_SAFETY_DAYS")
		instance.Engine.NegligibleDemand = viper.GetFloat64("ENGINE_NEGLIGIBLE_DEMAND")
		instance.Engine.RedistributeThreshold = viper.GetFloat64("ENGINE_REDISTRIBUTE_THRESHOLD")
		instance.Engine.ReliabilityBufferPct = viper.GetFloat64("ENGINE_RELIABILITY_BUFFER_PCT")
		instance.Engine.ReliabilityThreshold = viper.GetFloat64("ENGINE_RELIABILITY_THRESHOLD")
		instance.Engine.VolatilityBufferPct = viper.GetFloat64("ENGINE_VOLATILITY_BUFFER_PCT")
		instance.Engine.VolatilityThreshold = viper.GetFloat64("ENGINE_VOLATILITY_THRESHOLD")
		instance.Engine.FastFiveDepartments = viper.GetStringSlice("ENGINE_FAST_FIVE_DEPARTMENTS")
	})

	return instance
}

// DefaultEngine returns the engine tunables with their calibrated defaults,
// without touching the environment. Used by tests and library consumers.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		FreshBaselineRate:     0.3,
		DryBaselineRate:       0.5,
		LookalikeDiscount:     0.5,
		GrowthTrendBoost:      1.20,
		ExpirySafetyDays:      2.0,
		NegligibleDemand:      0.05,
		RedistributeThreshold: 0.10,
		ReliabilityBufferPct:  0.25,
		ReliabilityThreshold:  70.0,
		VolatilityBufferPct:   0.15,
		VolatilityThreshold:   0.8,
		FastFiveDepartments:   []string{"FRESH MILK", "BREAD", "COOKING OIL", "FLOUR", "SUGAR"},
	}
}
