package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "manuscript-review"
)

type Config struct {
	Rulebook    *RulebookConfig  `mapstructure:"rulebook"`
	Retrieval   *RetrievalConfig `mapstructure:"retrieval"`
	Fetcher     *FetcherConfig   `mapstructure:"fetcher"`
	HistoryFile string           `mapstructure:"history-file"`
	AI          *AIConfig        `mapstructure:"ai"`
	Server      *ServerConfig    `mapstructure:"server"`
}

type RulebookConfig struct {
	Path           string   `mapstructure:"path"`
	SplitMarker    string   `mapstructure:"split-marker"`
	IgnoredHeaders []string `mapstructure:"ignored-headers"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top-k"`
}

type FetcherConfig struct {
	UserAgent string        `mapstructure:"user-agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile      string        `mapstructure:"api-key-file"`
	Model           string        `mapstructure:"model"`
	MaxRetries      int           `mapstructure:"max-retries"`
	RetryDelay      time.Duration `mapstructure:"retry-delay"`
	Temperature     *float32      `mapstructure:"temperature"`
	MaxOutputTokens int32         `mapstructure:"max-output-tokens"`
	MaxLogLength    int           `mapstructure:"max-log-length"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "manuscript-review checks job postings against a compliance rulebook with an LLM",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("rulebook.path", "MANUSCRIPT_REVIEW_RULEBOOK"); err != nil {
		log.Fatalf("binding MANUSCRIPT_REVIEW_RULEBOOK environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is manuscript-review.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("rulebook", "", "path to the rulebook markdown file")
	rootCmd.PersistentFlags().String("history-file", "", "path to the review history file")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("rulebook.path", rootCmd.PersistentFlags().Lookup("rulebook"))
	viper.BindPFlag("history-file", rootCmd.PersistentFlags().Lookup("history-file"))
}

func setDefaults() {
	viper.SetDefault("rulebook.path", "rulebook.md")
	viper.SetDefault("rulebook.split-marker", "[SPLIT]")
	viper.SetDefault("rulebook.ignored-headers", []string{"###"})
	viper.SetDefault("retrieval.top-k", 3)
	viper.SetDefault("fetcher.timeout", "15s")
	viper.SetDefault("history-file", "review-history.json")
	viper.SetDefault("ai.enabled", true)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.timeout", "2m")
	viper.SetDefault("ai.gemini.model", "gemini-2.5-pro")
	viper.SetDefault("ai.gemini.max-retries", 3)
	viper.SetDefault("ai.gemini.retry-delay", "1s")
	viper.SetDefault("ai.gemini.temperature", 0.2)
	viper.SetDefault("ai.gemini.max-output-tokens", 2048)
	viper.SetDefault("ai.gemini.max-log-length", 200)
	viper.SetDefault("server.address", "127.0.0.1:8080")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// The config file is optional unless set explicitly; defaults cover everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
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
