package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/ai"
	"github.com/spigell/outreach/internal/ai/gemini"
	"github.com/spigell/outreach/internal/campaign"
	"github.com/spigell/outreach/internal/dispatch"
	"github.com/spigell/outreach/internal/emailgen"
	"github.com/spigell/outreach/internal/loader"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/report"
	"github.com/spigell/outreach/internal/scoring"
	"github.com/spigell/outreach/internal/secrets"
)

// capabilities are the optional AI backends of a run.
type capabilities struct {
	text     ai.TextGenerator
	embedder ai.Embedder
}

func (c *Config) matching() MatchingConfig {
	if c.Matching == nil {
		return MatchingConfig{}
	}
	return *c.Matching
}

func (c *Config) email() EmailConfig {
	if c.Email == nil {
		return EmailConfig{}
	}
	return *c.Email
}

func (c *Config) smtp() SMTPConfig {
	if c.SMTP == nil {
		return SMTPConfig{}
	}
	return *c.SMTP
}

func loadInputs(config *Config) (*outreach.Profile, []outreach.Startup, error) {
	profile, err := loader.LoadProfile(config.Profile)
	if err != nil {
		return nil, nil, err
	}
	startups, err := loader.LoadStartups(config.Startups)
	if err != nil {
		return nil, nil, err
	}
	return profile, startups, nil
}

// newCapabilities connects the configured AI provider. Any problem is
// returned with the empty capabilities so callers can log it and continue on
// the local fallbacks.
func newCapabilities(ctx context.Context, config *Config, log *zap.Logger) (capabilities, error) {
	cfg := config.AI
	if cfg == nil || !cfg.Enabled {
		return capabilities{}, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return capabilities{}, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	g := cfg.Gemini
	if g == nil {
		g = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  g.APIKeyFile,
		Value: g.APIKey,
	})
	if err != nil {
		return capabilities{}, fmt.Errorf("%w: %w (set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file)", outreach.ErrCapabilityUnavailable, err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return capabilities{}, err
	}

	generator, err := gemini.NewGenerator(client, gemini.Options{
		Model:        g.Model,
		MaxRetries:   g.MaxRetries,
		MaxLogLength: g.MaxLogLength,
		JSON:         true,
	}, log.With(zap.Int("ai_retry_attempts", g.MaxRetries)))
	if err != nil {
		return capabilities{}, err
	}

	caps := capabilities{text: generator}
	if config.matching().Embeddings {
		embedder, err := gemini.NewEmbedder(client, g.EmbeddingModel, log)
		if err != nil {
			return caps, err
		}
		caps.embedder = embedder
	}
	return caps, nil
}

func newScorer(config *Config, embedder ai.Embedder, log *zap.Logger) *scoring.Engine {
	m := config.matching()
	cfg := scoring.Config{
		TopProjects: m.TopProjects,
		Workers:     m.Workers,
	}
	if m.Weights != nil {
		cfg.Weights = scoring.Weights{
			TechStack:        m.Weights.TechStack,
			Domain:           m.Weights.Domain,
			ProjectRelevance: m.Weights.ProjectRelevance,
		}
	}
	return scoring.New(cfg, embedder, logger.ForComponent(log, "scoring"))
}

func emailConfig(config *Config) (emailgen.Config, error) {
	e := config.email()

	tone, err := emailgen.ParseTone(e.Tone)
	if err != nil {
		return emailgen.Config{}, err
	}
	length, err := emailgen.ParseLength(e.Length)
	if err != nil {
		return emailgen.Config{}, err
	}

	maxLog := 0
	if config.AI != nil && config.AI.Gemini != nil {
		maxLog = config.AI.Gemini.MaxLogLength
	}

	return emailgen.Config{
		Tone:             tone,
		Length:           length,
		CallToAction:     e.CallToAction,
		Timeout:          e.Timeout,
		AutoSend:         e.AutoSend,
		AutoSendMinScore: e.AutoSendMinScore,
		MaxLogLength:     maxLog,
	}, nil
}

func newEmailGenerator(config *Config, text ai.TextGenerator, log *zap.Logger) (*emailgen.Generator, error) {
	cfg, err := emailConfig(config)
	if err != nil {
		return nil, err
	}
	return emailgen.New(cfg, text, logger.ForComponent(log, "emails")), nil
}

// newTransport returns the SMTP transport when a host is configured and the
// simulated one otherwise.
func newTransport(config *Config, log *zap.Logger) (dispatch.Transport, error) {
	s := config.smtp()
	switch {
	case s.Simulate:
		log.Info("delivery is simulated", zap.String("reason", "smtp.simulate is set"))
		return dispatch.NewSimulatedTransport(s.Seed, s.SuccessRate), nil
	case strings.TrimSpace(s.Host) == "":
		log.Warn("no smtp host configured, delivery is simulated")
		return dispatch.NewSimulatedTransport(s.Seed, s.SuccessRate), nil
	}

	password, err := secrets.LoadOptional(secrets.Source{
		Name:  "smtp password",
		File:  s.PasswordFile,
		Value: s.Password,
	})
	if err != nil {
		return nil, err
	}

	cfg := smtpTransportConfig(s, password)
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	for _, warning := range warnings {
		log.Warn(warning)
	}
	return dispatch.NewSMTPTransport(cfg, log)
}

func smtpTransportConfig(s SMTPConfig, password string) dispatch.SMTPConfig {
	return dispatch.SMTPConfig{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: password,
		TLS:      s.TLS,
		Timeout:  s.Timeout,
	}
}

func newDispatcher(config *Config, confirmer dispatch.Confirmer, force bool, log *zap.Logger) (*dispatch.Dispatcher, error) {
	log = logger.ForComponent(log, "dispatch")
	transport, err := newTransport(config, log)
	if err != nil {
		return nil, err
	}

	s := config.smtp()
	return dispatch.New(dispatch.Config{
		FromName:  s.FromName,
		From:      s.FromEmail,
		ReplyTo:   s.ReplyTo,
		Timeout:   s.Timeout,
		ForceSend: force,
	}, transport, confirmer, log), nil
}

func campaignOptions(config *Config) campaign.Options {
	m := config.matching()
	return campaign.Options{
		Threshold:       m.Threshold,
		MaxProjects:     m.MaxProjects,
		HistoryFile:     config.HistoryFile,
		DisabledFilters: m.DisableFilters,
	}
}

// writeReports stores the JSON report with its Markdown and CSV companions and
// returns the JSON path.
func writeReports(config *Config, rep *outreach.CampaignReport) (string, error) {
	dir := config.Output
	if dir == "" {
		dir = "."
	}

	jsonPath := filepath.Join(dir, report.FileName(rep.RunID, "json"))
	err := errors.Join(
		report.ToFile(jsonPath, rep),
		report.MarkdownToFile(filepath.Join(dir, report.FileName(rep.RunID, "md")), rep),
		report.CSVToFile(filepath.Join(dir, report.FileName(rep.RunID, "csv")), rep.Matches),
	)
	if err != nil {
		return "", fmt.Errorf("writing reports: %w", err)
	}
	return jsonPath, nil
}
