package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/textnorm"
)

const (
	ColumnCompanyName  = "company_name"
	ColumnMission      = "mission"
	ColumnTechStack    = "tech_stack"
	ColumnContactName  = "contact_name"
	ColumnContactEmail = "contact_email"
	ColumnWebsite      = "website"
	ColumnLocation     = "location"
	ColumnFundingStage = "funding_stage"
	ColumnTeamSize     = "team_size"
	ColumnProduct      = "product"
	ColumnIndustry     = "industry"
	ColumnDescription  = "description"
)

// RequiredColumns must be present in every startup file.
var RequiredColumns = []string{
	ColumnCompanyName,
	ColumnMission,
	ColumnTechStack,
	ColumnContactName,
	ColumnContactEmail,
}

// OptionalColumns may be present in a startup file.
var OptionalColumns = []string{
	ColumnWebsite,
	ColumnLocation,
	ColumnFundingStage,
	ColumnTeamSize,
	ColumnProduct,
	ColumnIndustry,
	ColumnDescription,
}

// LoadStartups reads a startup CSV file.
func LoadStartups(path string) ([]outreach.Startup, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening startups %q: %w", path, err)
	}
	defer file.Close()

	return ParseStartups(file)
}

// ParseStartups reads startup records. Unknown columns, missing required
// columns and malformed rows are collected into a single ValidationError.
func ParseStartups(r io.Reader) ([]outreach.Startup, error) {
	verr := &outreach.ValidationError{Source: "startups"}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		verr.Add("header", "", "file is empty")
		return nil, verr
	}
	if err != nil {
		return nil, fmt.Errorf("reading startups header: %w", err)
	}

	columns, ok := mapColumns(header, verr)
	if !ok {
		return nil, verr
	}

	var startups []outreach.Startup
	row := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			verr.Add(fmt.Sprintf("row %d", row), "", err.Error())
			continue
		}
		if blank(record) {
			continue
		}
		if len(record) != len(header) {
			verr.Add(fmt.Sprintf("row %d", row), "", fmt.Sprintf("expected %d fields, got %d", len(header), len(record)))
			continue
		}

		startup, ok := parseStartupRow(record, columns, row, verr)
		if ok {
			startups = append(startups, startup)
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return startups, nil
}

func mapColumns(header []string, verr *outreach.ValidationError) (map[string]int, bool) {
	known := make(map[string]struct{}, len(RequiredColumns)+len(OptionalColumns))
	for _, c := range RequiredColumns {
		known[c] = struct{}{}
	}
	for _, c := range OptionalColumns {
		known[c] = struct{}{}
	}

	columns := make(map[string]int, len(header))
	for idx, raw := range header {
		name := normalizeColumn(raw)
		if _, ok := known[name]; !ok {
			verr.Add("header", raw, "is not a recognised column")
			continue
		}
		if _, dup := columns[name]; dup {
			verr.Add("header", raw, "is declared more than once")
			continue
		}
		columns[name] = idx
	}

	for _, required := range RequiredColumns {
		if _, ok := columns[required]; !ok {
			verr.Add("header", required, "required column is missing")
		}
	}

	return columns, len(verr.Issues) == 0
}

func normalizeColumn(raw string) string {
	name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

func parseStartupRow(record []string, columns map[string]int, row int, verr *outreach.ValidationError) (outreach.Startup, bool) {
	get := func(name string) string {
		idx, ok := columns[name]
		if !ok {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	startup := outreach.Startup{
		CompanyName:  get(ColumnCompanyName),
		Mission:      get(ColumnMission),
		TechStack:    textnorm.SplitList(get(ColumnTechStack)),
		ContactName:  get(ColumnContactName),
		ContactEmail: get(ColumnContactEmail),
		Website:      get(ColumnWebsite),
		Location:     get(ColumnLocation),
		FundingStage: outreach.ParseFundingStage(get(ColumnFundingStage)),
		Product:      get(ColumnProduct),
		Industry:     get(ColumnIndustry),
		Description:  get(ColumnDescription),
	}

	label := fmt.Sprintf("row %d", row)
	if startup.CompanyName != "" {
		label = fmt.Sprintf("row %d (%s)", row, startup.CompanyName)
	}

	before := len(verr.Issues)
	if raw := get(ColumnTeamSize); raw != "" {
		size, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			verr.Add(label, ColumnTeamSize, fmt.Sprintf("must be a whole number, got %q", raw))
		} else {
			startup.TeamSize = &size
		}
	}

	checkRecord(verr, label, startup)
	return startup, len(verr.Issues) == before
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// WriteStartups writes startups in the format ParseStartups reads.
func WriteStartups(w io.Writer, startups []outreach.Startup) error {
	writer := csv.NewWriter(w)
	header := append(append([]string{}, RequiredColumns...), OptionalColumns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing startups header: %w", err)
	}

	for _, s := range startups {
		teamSize := ""
		if s.TeamSize != nil {
			teamSize = strconv.Itoa(*s.TeamSize)
		}
		record := []string{
			s.CompanyName,
			s.Mission,
			strings.Join(s.TechStack, ", "),
			s.ContactName,
			s.ContactEmail,
			s.Website,
			s.Location,
			string(s.FundingStage),
			teamSize,
			s.Product,
			s.Industry,
			s.Description,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("writing startup %q: %w", s.CompanyName, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
