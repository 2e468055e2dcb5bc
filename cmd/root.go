package cmd

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/outreach/internal/scraper"
)

const (
	app = "outreach"
)

type Config struct {
	Profile     string          `mapstructure:"profile" yaml:"profile"`
	Startups    string          `mapstructure:"startups" yaml:"startups"`
	Output      string          `mapstructure:"output" yaml:"output"`
	HistoryFile string          `mapstructure:"history-file" yaml:"history-file"`
	Matching    *MatchingConfig `mapstructure:"matching" yaml:"matching"`
	Email       *EmailConfig    `mapstructure:"email" yaml:"email"`
	AI          *AIConfig       `mapstructure:"ai" yaml:"ai"`
	SMTP        *SMTPConfig     `mapstructure:"smtp" yaml:"smtp"`
	Scrape      *ScrapeConfig   `mapstructure:"scrape" yaml:"scrape"`
}

type MatchingConfig struct {
	Threshold      float64        `mapstructure:"threshold" yaml:"threshold"`
	MaxProjects    int            `mapstructure:"max-projects" yaml:"max-projects"`
	TopProjects    int            `mapstructure:"top-projects" yaml:"top-projects"`
	Workers        int            `mapstructure:"workers" yaml:"workers"`
	Embeddings     bool           `mapstructure:"embeddings" yaml:"embeddings"`
	DisableFilters []string       `mapstructure:"disable-filters" yaml:"disable-filters,omitempty"`
	Weights        *WeightsConfig `mapstructure:"weights" yaml:"weights,omitempty"`
}

// WeightsConfig overrides the sub-score weights. All zero keeps the defaults.
type WeightsConfig struct {
	TechStack        float64 `mapstructure:"tech-stack" yaml:"tech-stack"`
	Domain           float64 `mapstructure:"domain" yaml:"domain"`
	ProjectRelevance float64 `mapstructure:"project-relevance" yaml:"project-relevance"`
}

type EmailConfig struct {
	Tone             string        `mapstructure:"tone" yaml:"tone"`
	Length           string        `mapstructure:"length" yaml:"length"`
	CallToAction     string        `mapstructure:"call-to-action" yaml:"call-to-action"`
	AutoSend         bool          `mapstructure:"auto-send" yaml:"auto-send"`
	AutoSendMinScore float64       `mapstructure:"auto-send-min-score" yaml:"auto-send-min-score"`
	Timeout          time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Provider string        `mapstructure:"provider" yaml:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini" yaml:"gemini"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key" yaml:"-"`
	APIKeyFile     string `mapstructure:"api-key-file" yaml:"api-key-file,omitempty"`
	Model          string `mapstructure:"model" yaml:"model"`
	EmbeddingModel string `mapstructure:"embedding-model" yaml:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries" yaml:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length" yaml:"max-log-length"`
}

type SMTPConfig struct {
	Host         string        `mapstructure:"host" yaml:"host"`
	Port         int           `mapstructure:"port" yaml:"port"`
	Username     string        `mapstructure:"username" yaml:"username"`
	Password     string        `mapstructure:"password" yaml:"-"`
	PasswordFile string        `mapstructure:"password-file" yaml:"password-file,omitempty"`
	TLS          string        `mapstructure:"tls" yaml:"tls"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	FromName     string        `mapstructure:"from-name" yaml:"from-name"`
	FromEmail    string        `mapstructure:"from-email" yaml:"from-email"`
	ReplyTo      string        `mapstructure:"reply-to" yaml:"reply-to"`
	// Simulate forces the simulated transport even when a host is set.
	Simulate    bool    `mapstructure:"simulate" yaml:"simulate"`
	SuccessRate float64 `mapstructure:"success-rate" yaml:"success-rate"`
	Seed        uint64  `mapstructure:"seed" yaml:"seed"`
}

type ScrapeConfig struct {
	Delay            time.Duration    `mapstructure:"delay" yaml:"delay"`
	Timeout          time.Duration    `mapstructure:"timeout" yaml:"timeout"`
	KeepWithoutEmail bool             `mapstructure:"keep-without-email" yaml:"keep-without-email"`
	ContactPaths     []string         `mapstructure:"contact-paths" yaml:"contact-paths,omitempty"`
	Output           string           `mapstructure:"output" yaml:"output"`
	Sources          []scraper.Source `mapstructure:"sources" yaml:"sources"`
}

var envBindings = map[string]string{
	"ai.gemini.api-key":      "GEMINI_API_KEY",
	"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	"smtp.host":              "SMTP_HOST",
	"smtp.port":              "SMTP_PORT",
	"smtp.username":          "SMTP_USERNAME",
	"smtp.password":          "SMTP_PASSWORD",
	"smtp.password-file":     "SMTP_PASSWORD_FILE",
	"smtp.from-name":         "FROM_NAME",
	"smtp.from-email":        "FROM_EMAIL",
	"smtp.reply-to":          "REPLY_TO",
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "outreach matches your profile against startups and writes them personal emails",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is outreach.yaml in current directory or the user config dir)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	dataDir := filepath.Join(xdg.DataHome, app)

	viper.SetDefault("profile", "profile.json")
	viper.SetDefault("startups", "startups.csv")
	viper.SetDefault("output", filepath.Join(dataDir, "reports"))
	viper.SetDefault("history-file", filepath.Join(dataDir, "contacted.json"))

	viper.SetDefault("matching.threshold", 0.5)
	viper.SetDefault("matching.max-projects", 3)
	viper.SetDefault("matching.top-projects", 3)
	viper.SetDefault("matching.workers", 4)

	viper.SetDefault("email.tone", "confident")
	viper.SetDefault("email.length", "concise")
	viper.SetDefault("email.auto-send-min-score", 0.8)
	viper.SetDefault("email.timeout", 30*time.Second)

	viper.SetDefault("ai.provider", "gemini")

	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.tls", "mandatory")
	viper.SetDefault("smtp.timeout", 30*time.Second)
	viper.SetDefault("smtp.success-rate", 0.92)

	viper.SetDefault("scrape.delay", time.Second)
	viper.SetDefault("scrape.timeout", 20*time.Second)
	viper.SetDefault("scrape.output", "scraped_startups.csv")
}

func initConfig() {
	// .env is optional, real environment variables win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, app))
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Commands work from defaults and env alone, an explicit file must exist.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
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
