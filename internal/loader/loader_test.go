package loader

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/outreach/internal/outreach"
)

const profileJSON = `{
  "name": "Jane Doe",
  "title": "Staff Engineer",
  "email": "jane@example.com",
  "experience": "Ten years building payment platforms and developer tooling.",
  "skills": "Go, Kubernetes; PostgreSQL",
  "github": "https://github.com/jane",
  "projects": [
    {
      "name": "Ledger",
      "description": "Double entry ledger for a fintech startup",
      "tech_stack": ["Go", "PostgreSQL"],
      "outcomes": ["Processed $2B per year"],
      "role": "Tech lead",
      "duration": "2 years"
    }
  ]
}`

func TestParseProfileJSON(t *testing.T) {
	profile, err := ParseProfileJSON([]byte(profileJSON))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Equal(t, []string{"Go", "Kubernetes", "PostgreSQL"}, profile.Skills)
	require.Len(t, profile.Projects, 1)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, profile.Projects[0].TechStack)
	assert.Equal(t, "Tech lead", profile.Projects[0].Role)
}

func TestParseProfileJSONReportsEveryIssue(t *testing.T) {
	doc := `{
  "title": "Engineer",
  "email": "not-an-address",
  "nickname": "jd",
  "projects": [{"description": "no name"}]
}`

	_, err := ParseProfileJSON([]byte(doc))

	var verr *outreach.ValidationError
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	// missing name, unknown nickname, project without name
	assert.GreaterOrEqual(t, len(verr.Issues), 3)
	assert.Contains(t, err.Error(), "nickname")
}

func TestParseProfileJSONSemanticChecks(t *testing.T) {
	doc := `{"name": "Jane", "email": "nope", "projects": [{"name": "A"}, {"name": "a"}]}`

	_, err := ParseProfileJSON([]byte(doc))

	var verr *outreach.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Issues, 2)
	fields := []string{verr.Issues[0].Field, verr.Issues[1].Field}
	assert.ElementsMatch(t, []string{"projects", "email"}, fields)
}

func TestParseProfileJSONInvalidDocument(t *testing.T) {
	_, err := ParseProfileJSON([]byte("{not json"))

	var verr *outreach.ValidationError
	require.ErrorAs(t, err, &verr)
}

const profileMarkdown = `# Jane Doe
Staff Engineer

## Contact
- Email: jane@example.com
- LinkedIn: https://linkedin.com/in/jane

## Experience
Ten years building payment platforms.
Mentored teams of engineers.

## Skills
- Go, Kubernetes
- PostgreSQL

## Projects
### Ledger
Double entry ledger service.
- Tech: Go, PostgreSQL
- Outcome: Processed $2B per year
- Role: Tech lead
- Duration: 2 years

### CLI toolkit
- Tech: Go
`

func TestParseProfileMarkdown(t *testing.T) {
	profile, err := ParseProfileMarkdown([]byte(profileMarkdown))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Equal(t, "Staff Engineer", profile.Title)
	assert.Equal(t, "jane@example.com", profile.Email)
	assert.Equal(t, "https://linkedin.com/in/jane", profile.LinkedIn)
	assert.Equal(t, "Ten years building payment platforms. Mentored teams of engineers.", profile.Experience)
	assert.Equal(t, []string{"Go", "Kubernetes", "PostgreSQL"}, profile.Skills)

	require.Len(t, profile.Projects, 2)
	ledger := profile.Projects[0]
	assert.Equal(t, "Ledger", ledger.Name)
	assert.Equal(t, "Double entry ledger service.", ledger.Description)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, ledger.TechStack)
	assert.Equal(t, []string{"Processed $2B per year"}, ledger.Outcomes)
	assert.Equal(t, "2 years", ledger.Duration)
	assert.Equal(t, "CLI toolkit", profile.Projects[1].Name)
}

func TestParseProfileMarkdownUnknownSection(t *testing.T) {
	doc := "# Jane\n## Hobbies\n- chess\n## Contact\n- Phone: 123\n"

	_, err := ParseProfileMarkdown([]byte(doc))

	var verr *outreach.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 2)
}

func TestLoadProfileByExtension(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(profileJSON), 0o644))
	mdPath := filepath.Join(dir, "profile.md")
	require.NoError(t, os.WriteFile(mdPath, []byte(profileMarkdown), 0o644))

	fromJSON, err := LoadProfile(jsonPath)
	require.NoError(t, err)
	fromMD, err := LoadProfile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON.Name, fromMD.Name)

	_, err = LoadProfile(filepath.Join(dir, "profile.txt"))
	require.Error(t, err)
}

const startupsCSV = `company_name,mission,tech_stack,contact_name,contact_email,website,funding_stage,team_size
Acme,Payments infrastructure for marketplaces,"Go, PostgreSQL|Kafka",Ada,ada@acme.io,https://acme.io,series a,12
Globex,Developer tools,Rust;TypeScript,,hello@globex.dev,,YC,
`

func TestParseStartups(t *testing.T) {
	startups, err := ParseStartups(strings.NewReader(startupsCSV))
	require.NoError(t, err)
	require.Len(t, startups, 2)

	acme := startups[0]
	assert.Equal(t, "Acme", acme.CompanyName)
	assert.Equal(t, []string{"Go", "PostgreSQL", "Kafka"}, acme.TechStack)
	assert.Equal(t, outreach.FundingSeriesA, acme.FundingStage)
	require.NotNil(t, acme.TeamSize)
	assert.Equal(t, 12, *acme.TeamSize)

	globex := startups[1]
	assert.Nil(t, globex.TeamSize)
	assert.Equal(t, outreach.FundingYCombinator, globex.FundingStage)
	assert.Equal(t, "Team", globex.Greeting())
}

func TestParseStartupsHeaderProblems(t *testing.T) {
	doc := "company_name,mission,contact_email,favourite_color\nAcme,x,a@b.io,red\n"

	_, err := ParseStartups(strings.NewReader(doc))

	var verr *outreach.ValidationError
	require.ErrorAs(t, err, &verr)
	// favourite_color unknown, tech_stack and contact_name missing
	assert.Len(t, verr.Issues, 3)
}

func TestParseStartupsCollectsRowIssues(t *testing.T) {
	doc := `company_name,mission,tech_stack,contact_name,contact_email,team_size,website
,Mission,Go,Ada,ada@acme.io,3,
Beta,Mission,Go,Bob,bob-at-beta,many,notaurl
Gamma,Mission,Go,Cy,cy@gamma.io,5,https://gamma.io
`

	_, err := ParseStartups(strings.NewReader(doc))

	var verr *outreach.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 4)
	assert.Contains(t, err.Error(), "row 3 (Beta)")
	assert.NotContains(t, err.Error(), "Gamma")
}

func TestWriteStartupsRoundTrip(t *testing.T) {
	startups, err := ParseStartups(strings.NewReader(startupsCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteStartups(&buf, startups))

	again, err := ParseStartups(&buf)
	require.NoError(t, err)
	assert.Equal(t, startups, again)
}
