package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spigell/outreach/internal/loader"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/scraper"
)

const envExample = `# Secrets for outreach. Copy to .env and fill in.
GEMINI_API_KEY=
# GEMINI_API_KEY_FILE=/run/secrets/gemini
SMTP_HOST=smtp.example.com
SMTP_PORT=587
SMTP_USERNAME=
SMTP_PASSWORD=
# SMTP_PASSWORD_FILE=/run/secrets/smtp
FROM_NAME=
FROM_EMAIL=
REPLY_TO=
`

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write a sample config, profile, startups file and .env.example",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		initWorkspace(dir, cmd.Flag("force").Value.String() == "true")
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolP("force", "f", false, "overwrite existing files")
}

func initWorkspace(dir string, force bool) {
	logger, err := logger.New(false, false)
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	cfg, err := yaml.Marshal(sampleConfig())
	if err != nil {
		logger.Fatal("encoding sample config", zap.Error(err))
	}

	profile, err := json.MarshalIndent(sampleProfile(), "", "  ")
	if err != nil {
		logger.Fatal("encoding sample profile", zap.Error(err))
	}

	var startups bytes.Buffer
	if err := loader.WriteStartups(&startups, sampleStartups()); err != nil {
		logger.Fatal("encoding sample startups", zap.Error(err))
	}

	files := []struct {
		name string
		data []byte
		mode fs.FileMode
	}{
		{name: app + ".yaml", data: cfg, mode: 0o644},
		{name: "profile.json", data: append(profile, '\n'), mode: 0o644},
		{name: "startups.csv", data: startups.Bytes(), mode: 0o644},
		{name: ".env.example", data: []byte(envExample), mode: 0o600},
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Fatal("creating directory", zap.String("dir", dir), zap.Error(err))
	}

	for _, f := range files {
		path := filepath.Join(dir, f.name)
		err := writeNew(path, f.data, f.mode, force)
		switch {
		case errors.Is(err, fs.ErrExist):
			logger.Warn("file exists, skipping", zap.String("filename", path), zap.String("hint", "use --force to overwrite"))
		case err != nil:
			logger.Fatal("writing file", zap.String("filename", path), zap.Error(err))
		default:
			logger.Info("file written", zap.String("filename", path))
		}
	}
}

func writeNew(path string, data []byte, mode fs.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, mode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func sampleConfig() Config {
	return Config{
		Profile:     "profile.json",
		Startups:    "startups.csv",
		Output:      "reports",
		HistoryFile: "contacted.json",
		Matching: &MatchingConfig{
			Threshold:   0.5,
			MaxProjects: 3,
			TopProjects: 3,
			Workers:     4,
			Weights: &WeightsConfig{
				TechStack:        0.4,
				Domain:           0.3,
				ProjectRelevance: 0.3,
			},
		},
		Email: &EmailConfig{
			Tone:             "confident",
			Length:           "concise",
			CallToAction:     "Exploring a collaboration",
			AutoSendMinScore: 0.8,
			Timeout:          30 * time.Second,
		},
		AI: &AIConfig{
			Provider: "gemini",
			Gemini: &GeminiConfig{
				Model:          "gemini-2.5-flash",
				EmbeddingModel: "text-embedding-004",
				MaxRetries:     3,
				MaxLogLength:   400,
			},
		},
		SMTP: &SMTPConfig{
			Port:        587,
			TLS:         "mandatory",
			Timeout:     30 * time.Second,
			Simulate:    true,
			SuccessRate: 0.92,
		},
		Scrape: &ScrapeConfig{
			Delay:   time.Second,
			Timeout: 20 * time.Second,
			Output:  "scraped_startups.csv",
			Sources: []scraper.Source{
				{
					Name:   "example listing",
					URL:    "https://startups.example.com/companies",
					Render: scraper.RenderHTTP,
					Limit:  50,
					Selectors: scraper.Selectors{
						Item:      ".company",
						Name:      ".company-name",
						Mission:   ".company-tagline",
						Website:   "a.company-website",
						Location:  ".company-location",
						TechStack: ".company-tags",
					},
				},
			},
		},
	}
}

func sampleProfile() outreach.Profile {
	return outreach.Profile{
		Name:       "Jane Doe",
		Title:      "Backend engineer",
		Email:      "jane@example.com",
		Experience: "Eight years building payment and data platforms.",
		Skills:     []string{"Go", "PostgreSQL", "Kafka", "Kubernetes"},
		Projects: []outreach.Project{
			{
				Name:        "Ledger",
				Description: "Double entry ledger for a payments marketplace",
				TechStack:   []string{"Go", "PostgreSQL"},
				Outcomes:    []string{"Reconciled 2M transactions a day"},
				Role:        "Tech lead",
			},
		},
		GitHub: "https://github.com/janedoe",
	}
}

func sampleStartups() []outreach.Startup {
	size := 12
	return []outreach.Startup{
		{
			CompanyName:  "Acme Pay",
			Mission:      "Payments infrastructure for marketplaces",
			TechStack:    []string{"Go", "PostgreSQL", "Kafka"},
			ContactName:  "Ada Lovelace",
			ContactEmail: "ada@acme.example",
			Website:      "https://acme.example",
			FundingStage: outreach.FundingSeed,
			TeamSize:     &size,
		},
	}
}
