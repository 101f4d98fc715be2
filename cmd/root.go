package cmd

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/jobsense/jobsense/internal/accuracy"
	"github.com/jobsense/jobsense/internal/catalog"
	"github.com/jobsense/jobsense/internal/deadlines"
	"github.com/jobsense/jobsense/internal/logger"
	"github.com/jobsense/jobsense/internal/preferences"
	"github.com/jobsense/jobsense/internal/queries"
	"github.com/jobsense/jobsense/internal/signals"
	"github.com/jobsense/jobsense/internal/strategy"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "jobsense"

	defaultDataDir = "data"
	catalogFile    = "jobs.json"

	accuracyFile    = "accuracy_history.json"
	preferencesFile = "learned_preferences.json"
	queriesFile     = "query_performance.json"
	strategyFile    = "strategy_state.json"
)

type Config struct {
	DataDir  string `mapstructure:"data-dir"`
	Catalog  string `mapstructure:"catalog"`
	Region   string `mapstructure:"region"`
	WarnDays int    `mapstructure:"warn-days"`
}

func (c *Config) dataDir() string {
	if c != nil && c.DataDir != "" {
		return c.DataDir
	}
	return defaultDataDir
}

func (c *Config) catalogPath() string {
	if c != nil && c.Catalog != "" {
		return c.Catalog
	}
	return filepath.Join(c.dataDir(), catalogFile)
}

func (c *Config) region() string {
	if c == nil {
		return ""
	}
	return c.Region
}

func (c *Config) warnDays() int {
	if c == nil {
		return 0
	}
	return c.WarnDays
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobsense learns your job preferences from review feedback and steers the search",
		Long: `jobsense closes the loop of a personal job search: it reads the review
feedback recorded in the job catalog, learns what you actually like,
tracks how accurate past filtering was, scores the search queries that
found the jobs and autonomously adjusts the search strategy.`,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("data-dir", "JOBSENSE_DATA_DIR"); err != nil {
		log.Fatalf("binding JOBSENSE_DATA_DIR environment variable: %v", err)
	}
	if err := viper.BindEnv("catalog", "JOBSENSE_CATALOG"); err != nil {
		log.Fatalf("binding JOBSENSE_CATALOG environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobsense.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", `directory holding the learning state documents (default "data")`)
	rootCmd.PersistentFlags().String("catalog", "", `path to the job catalog JSON (default "<data-dir>/jobs.json")`)

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional; every setting has a default. A file
	// that exists but does not parse is still fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// core wires every learning component against the configured data
// directory.
type core struct {
	log       *zap.Logger
	config    *Config
	catalog   *catalog.Catalog
	extractor *signals.Extractor
	accuracy  *accuracy.Ledger
	prefs     *preferences.Learner
	queries   *queries.Ledger
	strategy  *strategy.Controller
	deadlines *deadlines.Monitor
}

func newCore(log *zap.Logger) (*core, error) {
	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}

	cat, err := catalog.Load(config.catalogPath())
	if err != nil {
		return nil, err
	}
	log.Debug("job catalog loaded",
		zap.String("path", config.catalogPath()),
		zap.Int("jobs", cat.Len()),
	)

	dataDir := config.dataDir()
	extractor := signals.NewExtractor(signals.Options{})

	accuracyPath := filepath.Join(dataDir, accuracyFile)
	preferencesPath := filepath.Join(dataDir, preferencesFile)
	queriesPath := filepath.Join(dataDir, queriesFile)
	strategyPath := filepath.Join(dataDir, strategyFile)

	return &core{
		log:       log,
		config:    config,
		catalog:   cat,
		extractor: extractor,
		accuracy: accuracy.NewLedger(accuracyPath, extractor,
			logger.WithComponent(log, "accuracy", accuracyPath), accuracy.Options{}),
		prefs: preferences.NewLearner(preferencesPath, extractor,
			logger.WithComponent(log, "preferences", preferencesPath), preferences.Options{}),
		queries: queries.NewLedger(queriesPath,
			logger.WithComponent(log, "queries", queriesPath), queries.Options{Region: config.region()}),
		strategy: strategy.NewController(strategyPath,
			logger.WithComponent(log, "strategy", strategyPath), strategy.Options{}),
		deadlines: deadlines.NewMonitor(cat, logger.WithComponent(log, "deadlines", "")),
	}, nil
}

// mustCore builds the component set for a subcommand, exiting on any
// setup failure.
func mustCore() *core {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	c, err := newCore(logger)
	if err != nil {
		logger.Fatal("initializing jobsense", zap.Error(err))
	}

	return c
}
