package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spigell/outreach/internal/outreach"
)

var csvHeader = []string{
	"rank",
	"company_name",
	"contact_name",
	"contact_email",
	"overall_score",
	"tech_stack_score",
	"domain_score",
	"project_relevance_score",
	"domain_method",
	"relevant_projects",
	"subject",
	"email_source",
	"auto_send",
	"delivery_status",
	"delivery_reason",
}

// WriteCSV exports one row per match, in report order.
func WriteCSV(w io.Writer, matches []outreach.MatchResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for idx, match := range matches {
		var subject, source, status, reason string
		if match.Email != nil {
			subject = match.Email.Subject
			source = string(match.Email.Source)
		}
		if match.Delivery != nil {
			status = string(match.Delivery.Status)
			reason = string(match.Delivery.Reason)
		}

		row := []string{
			strconv.Itoa(idx + 1),
			match.Startup.CompanyName,
			match.Startup.ContactName,
			match.Startup.ContactEmail,
			strconv.FormatFloat(match.Scores.Overall, 'f', 4, 64),
			strconv.FormatFloat(match.Scores.TechStack, 'f', 4, 64),
			strconv.FormatFloat(match.Scores.Domain, 'f', 4, 64),
			strconv.FormatFloat(match.Scores.ProjectRelevance, 'f', 4, 64),
			string(match.DomainMethod),
			strings.Join(match.RelevantProjects, "; "),
			subject,
			source,
			strconv.FormatBool(match.AutoSend),
			status,
			reason,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", idx+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVToFile exports matches to path.
func CSVToFile(path string, matches []outreach.MatchResult) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, matches) })
}
