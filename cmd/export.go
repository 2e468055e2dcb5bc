package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the matches of a stored campaign report for review",
	Long: `Export the matches of a stored campaign report for review.

The format follows the output extension: .md writes the Markdown summary,
anything else a CSV table with one row per match.`,
	Run: func(cmd *cobra.Command, _ []string) {
		export(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("emails", "e", "", "campaign report json file")
	exportCmd.Flags().StringP("output", "o", "matches.csv", "exported file")
}

func export(cmd *cobra.Command) {
	logger, _ := setup()

	src := cmd.Flag("emails").Value.String()
	dst := cmd.Flag("output").Value.String()

	count, err := exportReport(src, dst)
	if err != nil {
		logger.Fatal("exporting report", zap.Error(err))
	}
	logger.Info("report exported", zap.String("filename", dst), zap.Int("matches", count))
}

// exportReport converts the report at src to CSV or Markdown at dst and
// returns the number of exported matches.
func exportReport(src, dst string) (int, error) {
	if strings.TrimSpace(src) == "" {
		return 0, errors.New("a campaign report is required (--emails)")
	}

	rep, err := report.FromFile(src)
	if err != nil {
		return 0, err
	}

	switch strings.ToLower(filepath.Ext(dst)) {
	case ".md", ".markdown":
		err = report.MarkdownToFile(dst, rep)
	default:
		err = report.CSVToFile(dst, rep.Matches)
	}
	if err != nil {
		return 0, err
	}
	return len(rep.Matches), nil
}
