package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	l1_service "ttindex/internal/service/l1"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Env holds secrets and deployment settings read from the
// environment, optionally seeded from a .env file.
type Env struct {
	TTApiKey    string
	DatabaseURL string
	Environment string
	Port        int
	DataPath    string
}

func LoadEnv() (*Env, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "3009"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	return &Env{
		TTApiKey:    os.Getenv("TT_API_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Environment: getEnv("TTI_ENV", "dev"),
		Port:        port,
		DataPath:    getEnv("TTI_DATA_PATH", "historical_data.csv"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// BacktestConfig is the parameter file of a backtest run.
type BacktestConfig struct {
	NumProjects          int                     `yaml:"nProjects" json:"nProjects"`
	InitialInvestment    float64                 `yaml:"initialInvestment" json:"initialInvestment"`
	MinCircMarketCap     float64                 `yaml:"minCircMarketCap" json:"minCircMarketCap"`
	MinWeight            float64                 `yaml:"minWeight" json:"minWeight"`
	MaxWeight            float64                 `yaml:"maxWeight" json:"maxWeight"`
	MaxChange            float64                 `yaml:"maxChange" json:"maxChange"`
	StartDate            string                  `yaml:"startDate" json:"startDate"`
	EndDate              string                  `yaml:"endDate,omitempty" json:"endDate,omitempty"`
	RebalancingFrequency string                  `yaml:"rebalancingFrequency" json:"rebalancingFrequency"`
	ProjectsToInclude    []string                `yaml:"projectsToInclude" json:"projectsToInclude"`
	SignalExpression     string                  `yaml:"signalExpression" json:"signalExpression"`
	Solver               l1_service.SolverOptions `yaml:"solver" json:"solver"`
}

// DefaultBacktestConfig starts on Jan 1st 2021 with the USD price of
// DPI on that day.
func DefaultBacktestConfig() BacktestConfig {
	projects := make([]string, len(DefaultProjects))
	copy(projects, DefaultProjects)
	return BacktestConfig{
		NumProjects:          13,
		InitialInvestment:    115.24,
		MinCircMarketCap:     1e8,
		MinWeight:            0.001,
		MaxWeight:            0.20,
		MaxChange:            0.05,
		StartDate:            "2021-01-01",
		RebalancingFrequency: "monthly",
		ProjectsToInclude:    projects,
		SignalExpression:     l1_service.DefaultSignalExpression,
		Solver:               l1_service.DefaultSolverOptions(),
	}
}

// LoadBacktestConfig reads a YAML parameter file. Keys missing from
// the file keep their default values.
func LoadBacktestConfig(path string) (*BacktestConfig, error) {
	cfg := DefaultBacktestConfig()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c BacktestConfig) Dates() (time.Time, *time.Time, error) {
	start, err := time.Parse(time.DateOnly, c.StartDate)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid startDate %q: %w", c.StartDate, err)
	}
	if c.EndDate == "" {
		return start, nil, nil
	}
	end, err := time.Parse(time.DateOnly, c.EndDate)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("invalid endDate %q: %w", c.EndDate, err)
	}
	return start, &end, nil
}

var DefaultProjects = []string{
	"0x",
	"1inch",
	"88mph",
	"Aave",
	"Abracadabra.money",
	"Alchemix Finance",
	"Alpha Finance",
	"Axie Infinity",
	"Balancer",
	"Bancor",
	"Barnbridge",
	"Basket DAO",
	"Centrifuge",
	"Clipper",
	"Compound",
	"Cryptex",
	"Curve",
	"dForce",
	"dHedge",
	"DODO",
	"dYdX",
	"Enzyme Finance",
	"Erasure Protocol",
	"Ethereum Name Service",
	"Fei Protocol",
	"Harvest Finance",
	"Idle Finance",
	"Index Cooperative",
	"Instadapp",
	"Integral Protocol",
	"Keep Network",
	"Kyber",
	"Lido Finance",
	"Liquity",
	"Livepeer",
	"Loopring",
	"MakerDAO",
	"mStable",
	"Nexus Mutual",
	"Notional Finance",
	"Perpetual Protocol",
	"PieDAO",
	"PoolTogether",
	"PowerPool",
	"Rarible",
	"Rari Capital",
	"Reflexer",
	"Ren",
	"Ribbon Finance",
	"Stake DAO",
	"SushiSwap",
	"Synthetix",
	"The Graph",
	"Thorchain",
	"Tokenlon",
	"UMA",
	"Uniswap",
	"Unit Protocol",
	"Vesper Finance",
	"yearn.finance",
	"Yield Guild Games",
}
