package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/filtering"
	"github.com/spigell/outreach/internal/loader"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/secrets"
)

var validateCmd = &cobra.Command{
	Use:    "validate",
	Short:  "Check the profile, the startups file and the delivery settings",
	PreRun: bindCampaignFlags,
	Run: func(_ *cobra.Command, _ []string) {
		validate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addCampaignFlags(validateCmd)
}

func validate() {
	ctx := context.Background()

	logger, config := setup()
	failed := false

	profile, err := loader.LoadProfile(config.Profile)
	if err != nil {
		failed = true
		logIssues(logger, "profile is invalid", err)
	} else {
		logger.Info("profile is valid",
			zap.String("name", profile.Name),
			zap.Int("projects", len(profile.Projects)),
			zap.Int("skills", len(profile.Skills)),
		)
		if err := profile.ValidateForDispatch(); err != nil {
			logIssues(logger, "profile cannot be used to send emails", err)
		}
	}

	startups, err := loader.LoadStartups(config.Startups)
	if err != nil {
		failed = true
		logIssues(logger, "startups file is invalid", err)
	} else {
		withContact := 0
		for _, s := range startups {
			if s.HasContact() {
				withContact++
			}
		}
		logger.Info("startups file is valid",
			zap.Int("startups", len(startups)),
			zap.Int("with_contact", withContact),
		)
	}

	if _, err := emailConfig(config); err != nil {
		failed = true
		logger.Error("email settings are invalid", zap.Error(err))
	}

	if !validateSMTP(config, logger) {
		failed = true
	}

	caps, err := newCapabilities(ctx, config, logger)
	switch {
	case err != nil:
		logger.Warn("ai provider unavailable", zap.Error(err))
	case caps.text == nil:
		logger.Info("ai provider disabled, template emails and keyword scoring are used")
	default:
		logger.Info("ai provider ready",
			zap.String("model", caps.text.Model()),
			zap.Bool("embeddings", caps.embedder != nil),
		)
	}

	steps := filtering.Default()
	if config.HistoryFile == "" {
		filtering.DisableByName(steps, "contacted_history", "no history file configured")
	}
	for _, name := range config.matching().DisableFilters {
		filtering.DisableByName(steps, name, "disabled by configuration")
	}
	for _, status := range filtering.Describe(steps) {
		logger.Info("filter",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
		)
	}

	if failed {
		logger.Fatal("validation failed")
	}
	logger.Info("configuration is valid")
}

func validateSMTP(config *Config, logger *zap.Logger) bool {
	s := config.smtp()
	if s.Simulate || s.Host == "" {
		logger.Info("smtp is not configured, delivery will be simulated")
		return true
	}

	password, err := secrets.LoadOptional(secrets.Source{
		Name:  "smtp password",
		File:  s.PasswordFile,
		Value: s.Password,
	})
	if err != nil {
		logger.Error("smtp password is unavailable", zap.Error(err))
		return false
	}

	warnings, err := smtpTransportConfig(s, password).Validate()
	for _, warning := range warnings {
		logger.Warn(warning)
	}
	if err != nil {
		logIssues(logger, "smtp settings are invalid", err)
		return false
	}

	logger.Info("smtp settings are valid",
		zap.String("host", s.Host),
		zap.Int("port", s.Port),
		zap.String("tls", s.TLS),
	)
	return true
}

// logIssues prints every issue of a validation error on its own line.
func logIssues(logger *zap.Logger, msg string, err error) {
	var verr *outreach.ValidationError
	if !errors.As(err, &verr) {
		logger.Error(msg, zap.Error(err))
		return
	}
	for _, issue := range verr.Issues {
		logger.Error(msg, zap.String("issue", issue.String()))
	}
}
