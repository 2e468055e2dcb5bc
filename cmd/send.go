package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/campaign"
	"github.com/spigell/outreach/internal/dispatch"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/report"
)

const (
	PromptYes      = "Yes"
	PromptNo       = "No"
	PromptSendRest = "Send this and all remaining"
	PromptStop     = "Skip all remaining"
)

var errStopped = errors.New("sending stopped by user")

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Run the campaign and deliver the generated emails",
	Long: `Run the campaign and deliver the generated emails.

With --emails the campaign is not run again: the emails of a report written by
"match" are sent as they are in the file, including any manual edits.`,
	PreRun: func(cmd *cobra.Command, args []string) {
		bindCampaignFlags(cmd, args)
		viper.BindPFlag("smtp.simulate", cmd.Flags().Lookup("simulate"))
	},
	Run: func(cmd *cobra.Command, _ []string) {
		send(cmd)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	addCampaignFlags(sendCmd)

	sendCmd.Flags().BoolP("yes", "y", false, "send every selected email without confirmation")
	sendCmd.Flags().Bool("simulate", false, "simulate delivery even when smtp is configured")
	sendCmd.Flags().Bool("preview", false, "print the emails that would be sent and exit")
	sendCmd.Flags().StringP("emails", "e", "", "send the emails of a stored campaign report instead of running the campaign")
}

func send(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, config := setup()

	force := cmd.Flag("yes").Value.String() == "true"
	preview := cmd.Flag("preview").Value.String() == "true"
	emails := cmd.Flag("emails").Value.String()

	dispatcher, err := newDispatcher(config, &promptConfirmer{}, force, logger)
	if err != nil {
		logger.Fatal("preparing dispatch", zap.Error(err))
	}

	var rep *outreach.CampaignReport
	switch {
	case emails != "" && preview:
		rep, err = report.FromFile(emails)
	case emails != "":
		logger.Info("sending stored emails", zap.String("filename", emails))
		rep, err = deliverStored(ctx, config, dispatcher, emails, logger)
	case preview:
		rep, err = runCampaign(ctx, config, nil, logger)
	default:
		rep, err = runCampaign(ctx, config, dispatcher, logger)
	}

	// emails already went out when only the history failed, keep the report
	historyErr := err
	if err != nil && (rep == nil || !errors.Is(err, campaign.ErrHistoryNotSaved)) {
		logger.Fatal("running campaign", zap.Error(err))
	}

	if preview {
		for i := range rep.Matches {
			fmt.Print(dispatcher.Envelope(&rep.Profile, &rep.Matches[i]).Preview())
			fmt.Println()
		}
		logger.Info("exiting", zap.String("reason", "preview only"), zap.Int("emails", len(rep.Matches)))
		return
	}

	printMatches(rep, logger)

	path, err := writeReports(config, rep)
	if err != nil {
		logger.Fatal("storing reports", zap.Error(err))
	}

	logger.Info("campaign finished",
		zap.String("filename", path),
		zap.Int("sent", rep.Dispatch.Sent),
		zap.Int("failed", rep.Dispatch.Failed),
		zap.Int("skipped", rep.Dispatch.Skipped),
		zap.Bool("simulated", rep.Dispatch.Simulated),
	)

	if historyErr != nil {
		logger.Fatal("contact history is not updated, fix it before the next run to avoid writing to the same companies twice",
			zap.String("history_file", config.HistoryFile),
			zap.Error(historyErr),
		)
	}
}

// deliverStored sends the emails of a report written by an earlier run as
// they are in the file.
func deliverStored(ctx context.Context, config *Config, sender campaign.Sender, path string, log *zap.Logger) (*outreach.CampaignReport, error) {
	stored, err := report.FromFile(path)
	if err != nil {
		return nil, err
	}
	log.Info("loaded stored emails",
		zap.String("run_id", stored.RunID),
		zap.Int("matches", len(stored.Matches)),
	)

	runner := campaign.New(campaignOptions(config), nil, nil, sender, logger.ForComponent(log, "campaign"))
	return runner.Deliver(ctx, stored)
}

// promptConfirmer asks on the terminal before each message that is not
// marked for automatic sending.
type promptConfirmer struct {
	all     bool
	stopped bool
}

func (p *promptConfirmer) Confirm(ctx context.Context, match *outreach.MatchResult, preview string) (bool, error) {
	if p.all {
		return true, nil
	}
	if p.stopped {
		return false, errStopped
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	fmt.Printf("\n%s\n", preview)

	prompt := promptui.Select{
		Label: fmt.Sprintf("Send to %s (score %.2f)?", match.Startup.CompanyName, match.Scores.Overall),
		Items: []string{PromptYes, PromptNo, PromptSendRest, PromptStop},
	}

	_, action, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			p.stopped = true
		}
		return false, err
	}

	switch action {
	case PromptYes:
		return true, nil
	case PromptNo:
		return false, nil
	case PromptSendRest:
		p.all = true
		return true, nil
	case PromptStop:
		p.stopped = true
		return false, errStopped
	default:
		return false, fmt.Errorf("invalid action: %s", action)
	}
}

var _ dispatch.Confirmer = (*promptConfirmer)(nil)
