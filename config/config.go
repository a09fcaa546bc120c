package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config for the whole application
type Config struct {
	App        AppConfig
	Provider   ProviderConfig
	Analysis   AnalysisConfig
	Simulation SimulationConfig
	Advisor    AdvisorConfig
	API        APIConfig
	Kafka      KafkaConfig
	Metrics    MetricsConfig
	Report     ReportConfig
}

// General application configuration
type AppConfig struct {
	Name        string
	Environment string
	LogLevel    string
}

// Configuration for the position/quote provider
type ProviderConfig struct {
	FixturePath string
}

// Configuration for Greeks and pricing
type AnalysisConfig struct {
	RiskFreeRate      float64
	DefaultVolatility float64
	DividendYield     float64
	HedgeThreshold    float64
	SpotShocks        []float64
	IVShocks          []float64
}

// Configuration for the Monte Carlo simulation
type SimulationConfig struct {
	NumPaths   int
	NumDays    int
	Seed       int64
	SeedSet    bool
	Antithetic bool
}

// Thresholds for the advisory rules
type AdvisorConfig struct {
	DeltaNeutralThreshold float64
	GammaWarningThreshold float64
	ThetaWarningDaily     float64
	ConcentrationWarning  float64
	VaRWarningThreshold   float64
}

// Configuration for the API server
type APIConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Configuration for the Kafka run-summary publisher
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Configuration for Prometheus metrics
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// Configuration for report output
type ReportConfig struct {
	OutputDir string
	HTML      bool
}

// Load reads configuration from ./config/config.yaml plus PORTFOLIO_*
// environment variables. A missing config file is not an error; defaults
// apply.
func Load() (*Config, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("PORTFOLIO")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.Simulation.SeedSet = viper.IsSet("simulation.seed")

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "portfolio-analyzer")
	viper.SetDefault("app.environment", "development")
	viper.SetDefault("app.loglevel", "info")

	viper.SetDefault("provider.fixturepath", "testdata/portfolio.json")

	viper.SetDefault("analysis.riskfreerate", 0.05)
	viper.SetDefault("analysis.defaultvolatility", 0.25)
	viper.SetDefault("analysis.dividendyield", 0.0)
	viper.SetDefault("analysis.hedgethreshold", 0.5)
	viper.SetDefault("analysis.spotshocks", []float64{-10, -5, -2, 0, 2, 5, 10})
	viper.SetDefault("analysis.ivshocks", []float64{-20, -10, 0, 10, 20})

	viper.SetDefault("simulation.numpaths", 10000)
	viper.SetDefault("simulation.numdays", 30)
	viper.SetDefault("simulation.antithetic", true)

	viper.SetDefault("advisor.deltaneutralthreshold", 0.1)
	viper.SetDefault("advisor.gammawarningthreshold", 0.05)
	viper.SetDefault("advisor.thetawarningdaily", -100.0)
	viper.SetDefault("advisor.concentrationwarning", 0.30)
	viper.SetDefault("advisor.varwarningthreshold", 0.10)

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("api.readtimeout", 10*time.Second)
	viper.SetDefault("api.writetimeout", 30*time.Second)
	viper.SetDefault("api.shutdowntimeout", 15*time.Second)

	viper.SetDefault("kafka.brokers", []string{})
	viper.SetDefault("kafka.topic", "portfolio-analysis-results")

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)

	viper.SetDefault("report.outputdir", "output")
	viper.SetDefault("report.html", true)
}
