package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/campaign"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/report"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score startups against the profile, write emails and store the report without sending",
	PreRun: bindCampaignFlags,
	Run: func(_ *cobra.Command, _ []string) {
		match()
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	addCampaignFlags(matchCmd)
}

// addCampaignFlags registers the flags shared by commands that run the
// pipeline. They are bound to viper in PreRun since several commands define
// the same keys.
func addCampaignFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("profile", "p", "", "profile file (json or markdown)")
	cmd.Flags().StringP("startups", "s", "", "startups csv file")
	cmd.Flags().StringP("output", "o", "", "directory for campaign reports")
	cmd.Flags().Float64P("threshold", "t", 0, "minimum overall score of a match")
	cmd.Flags().Int("max-projects", 0, "relevant projects kept per match")
	cmd.Flags().Bool("ai", false, "use the configured AI provider")
}

func bindCampaignFlags(cmd *cobra.Command, _ []string) {
	viper.BindPFlag("profile", cmd.Flags().Lookup("profile"))
	viper.BindPFlag("startups", cmd.Flags().Lookup("startups"))
	viper.BindPFlag("output", cmd.Flags().Lookup("output"))
	viper.BindPFlag("matching.threshold", cmd.Flags().Lookup("threshold"))
	viper.BindPFlag("matching.max-projects", cmd.Flags().Lookup("max-projects"))
	viper.BindPFlag("ai.enabled", cmd.Flags().Lookup("ai"))
}

func match() {
	ctx := context.Background()

	logger, config := setup()

	rep, err := runCampaign(ctx, config, nil, logger)
	if err != nil {
		logger.Fatal("running campaign", zap.Error(err))
	}

	printMatches(rep, logger)

	path, err := writeReports(config, rep)
	if err != nil {
		logger.Fatal("storing reports", zap.Error(err))
	}
	logger.Info("campaign report written", zap.String("filename", path))
}

// setup builds the logger and reads the configuration. It exits on failure.
func setup() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the outreach", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

// runCampaign wires the pipeline from config and runs it. A nil sender only
// scores, selects and writes emails.
func runCampaign(ctx context.Context, config *Config, sender campaign.Sender, log *zap.Logger) (*outreach.CampaignReport, error) {
	profile, startups, err := loadInputs(config)
	if err != nil {
		return nil, err
	}
	log.Info("loaded inputs",
		zap.String("profile", profile.Name),
		zap.Int("startups", len(startups)),
	)

	caps, err := newCapabilities(ctx, config, log)
	if err != nil {
		if errors.Is(err, outreach.ErrCapabilityUnavailable) {
			log.Warn("ai disabled for this run", zap.Error(err))
		} else {
			log.Warn("ai provider unavailable, using local scoring and template emails", zap.Error(err))
		}
	}

	writer, err := newEmailGenerator(config, caps.text, log)
	if err != nil {
		return nil, err
	}

	runner := campaign.New(campaignOptions(config),
		newScorer(config, caps.embedder, log),
		writer,
		sender,
		logger.ForComponent(log, "campaign"),
	)

	return runner.Run(ctx, profile, startups)
}

func printMatches(rep *outreach.CampaignReport, log *zap.Logger) {
	if len(rep.Matches) == 0 {
		log.Info("exiting", zap.String("reason", "no startups passed the match threshold"))
		return
	}

	for i, m := range rep.Matches {
		if i == report.TopMatches {
			break
		}
		log.Info(fmt.Sprintf("#%d %s", i+1, m.Startup.CompanyName),
			zap.Float64("overall", round(m.Scores.Overall)),
			zap.Float64("tech_stack", round(m.Scores.TechStack)),
			zap.Float64("domain", round(m.Scores.Domain)),
			zap.Float64("project_relevance", round(m.Scores.ProjectRelevance)),
			zap.Strings("relevant_projects", m.RelevantProjects),
			zap.Bool("auto_send", m.AutoSend),
		)
	}

	log.Info("matches found",
		zap.Int("count", rep.TotalMatches),
		zap.Float64("average_score", round(rep.AverageScore)),
	)
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// redacted returns a copy of config safe to print.
func redacted(config *Config) Config {
	out := *config
	if config.AI != nil && config.AI.Gemini != nil && config.AI.Gemini.APIKey != "" {
		ai := *config.AI
		gemini := *config.AI.Gemini
		gemini.APIKey = "***"
		ai.Gemini = &gemini
		out.AI = &ai
	}
	if config.SMTP != nil && config.SMTP.Password != "" {
		smtp := *config.SMTP
		smtp.Password = "***"
		out.SMTP = &smtp
	}
	return out
}
