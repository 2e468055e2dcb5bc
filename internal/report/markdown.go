package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/spigell/outreach/internal/outreach"
)

// TopMatches is how many matches the summary tables list.
const TopMatches = 10

// WriteMarkdown renders a human readable summary of the report.
func WriteMarkdown(w io.Writer, report *outreach.CampaignReport) error {
	md := markdown.NewMarkdown(w)

	writeHeader(md, report)
	writeScores(md, report)
	writeTopMatches(md, report)
	writeDispatch(md, report)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Run %s*", report.RunID)

	return md.Build()
}

// MarkdownToFile writes the summary to path.
func MarkdownToFile(path string, report *outreach.CampaignReport) error {
	return writeFile(path, func(w io.Writer) error { return WriteMarkdown(w, report) })
}

func writeHeader(md *markdown.Markdown, report *outreach.CampaignReport) {
	md.H1("Outreach Campaign Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + report.RunID + "`"},
			{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Profile", orDash(report.Profile.Name)},
			{"Matches", strconv.Itoa(report.TotalMatches)},
			{"Average score", formatScore(report.AverageScore)},
		},
	})
	md.PlainText("")
}

func writeScores(md *markdown.Markdown, report *outreach.CampaignReport) {
	md.H2("Score Distribution")
	md.PlainText("")

	dist := Distribute(report.Matches)
	md.Table(markdown.TableSet{
		Header: []string{"Band", "Count"},
		Rows: [][]string{
			{"High (>= 0.8)", strconv.Itoa(dist.High)},
			{"Medium (0.6 - 0.8)", strconv.Itoa(dist.Medium)},
			{"Low (< 0.6)", strconv.Itoa(dist.Low)},
		},
	})
	md.PlainText("")

	if report.TotalMatches == 0 {
		md.Note("No startups passed the match threshold.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Match Quality"),
		piechart.WithShowData(true),
	)
	if dist.High > 0 {
		chart.LabelAndIntValue("High", uint64(dist.High))
	}
	if dist.Medium > 0 {
		chart.LabelAndIntValue("Medium", uint64(dist.Medium))
	}
	if dist.Low > 0 {
		chart.LabelAndIntValue("Low", uint64(dist.Low))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeTopMatches(md *markdown.Markdown, report *outreach.CampaignReport) {
	if len(report.Matches) == 0 {
		return
	}

	md.H2("Top Matches")
	md.PlainText("")

	top := report.Matches
	if len(top) > TopMatches {
		top = top[:TopMatches]
	}

	rows := make([][]string, 0, len(top))
	for idx, match := range top {
		rows = append(rows, []string{
			strconv.Itoa(idx + 1),
			match.Startup.CompanyName,
			formatScore(match.Scores.Overall),
			formatScore(match.Scores.TechStack),
			formatScore(match.Scores.Domain),
			formatScore(match.Scores.ProjectRelevance),
			orDash(strings.Join(match.RelevantProjects, ", ")),
			deliveryText(match.Delivery),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Company", "Score", "Tech", "Domain", "Project fit", "Relevant projects", "Delivery"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, match := range top {
		if len(match.Reasoning) == 0 {
			continue
		}
		md.Details(match.Startup.CompanyName, "- "+strings.Join(match.Reasoning, "\n- "))
	}
	md.PlainText("")
}

func writeDispatch(md *markdown.Markdown, report *outreach.CampaignReport) {
	summary := report.Dispatch
	if summary.Sent+summary.Failed+summary.Skipped == 0 {
		return
	}

	md.H2("Dispatch")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Sent", strconv.Itoa(summary.Sent)},
			{"Failed", strconv.Itoa(summary.Failed)},
			{"Skipped", strconv.Itoa(summary.Skipped)},
		},
	})
	md.PlainText("")

	if len(summary.FailuresByReason) > 0 {
		reasons := make([]string, 0, len(summary.FailuresByReason))
		for reason, count := range summary.FailuresByReason {
			reasons = append(reasons, fmt.Sprintf("%s: %d", reason, count))
		}
		sort.Strings(reasons)
		md.BulletList(reasons...)
		md.PlainText("")
	}

	switch {
	case summary.FailuresByReason[outreach.ReasonAuthError] > 0:
		md.Cautionf("Mail server rejected the credentials. %d message(s) were not delivered.",
			summary.FailuresByReason[outreach.ReasonAuthError])
	case summary.Failed > 0:
		md.Warningf("%d message(s) failed to deliver.", summary.Failed)
	case summary.Simulated:
		md.Important("Delivery was simulated, no email left this machine.")
	default:
		md.Tip("Every attempted message was delivered.")
	}
	md.PlainText("")
}

func deliveryText(d *outreach.Delivery) string {
	if d == nil {
		return "-"
	}
	text := string(d.Status)
	if d.Reason != outreach.ReasonNone {
		text += ": " + string(d.Reason)
	}
	if d.Simulated {
		text += " (simulated)"
	}
	return text
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
