package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/spigell/outreach/internal/loader"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/report"
)

func TestSampleFilesAreLoadable(t *testing.T) {
	data, err := json.Marshal(sampleProfile())
	require.NoError(t, err)

	profile, err := loader.ParseProfileJSON(data)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.Name)
	require.NoError(t, profile.ValidateForDispatch())

	var buf bytes.Buffer
	require.NoError(t, loader.WriteStartups(&buf, sampleStartups()))

	startups, err := loader.ParseStartups(&buf)
	require.NoError(t, err)
	require.Len(t, startups, 1)
	assert.Equal(t, "Acme Pay", startups[0].CompanyName)
	require.NotNil(t, startups[0].TeamSize)
	assert.Equal(t, 12, *startups[0].TeamSize)
}

func TestSampleConfigOmitsSecrets(t *testing.T) {
	cfg := sampleConfig()
	cfg.AI.Gemini.APIKey = "inline-key"
	cfg.SMTP.Password = "inline-password"

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	text := string(out)
	assert.NotContains(t, text, "inline-key")
	assert.NotContains(t, text, "inline-password")
	assert.Contains(t, text, "threshold: 0.5")
	assert.Contains(t, text, "timeout: 30s")
	assert.Contains(t, text, "item: .company")
}

func TestRedacted(t *testing.T) {
	cfg := sampleConfig()
	cfg.AI.Gemini.APIKey = "inline-key"
	cfg.SMTP.Password = "inline-password"

	safe := redacted(&cfg)
	assert.Equal(t, "***", safe.AI.Gemini.APIKey)
	assert.Equal(t, "***", safe.SMTP.Password)

	// the original is untouched
	assert.Equal(t, "inline-key", cfg.AI.Gemini.APIKey)
	assert.Equal(t, "inline-password", cfg.SMTP.Password)

	empty := redacted(&Config{})
	assert.Nil(t, empty.AI)
	assert.Nil(t, empty.SMTP)
}

func TestWriteNewKeepsExistingFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")

	require.NoError(t, writeNew(path, []byte("first"), 0o644, false))

	err := writeNew(path, []byte("second"), 0o644, false)
	require.ErrorIs(t, err, fs.ErrExist)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	require.NoError(t, writeNew(path, []byte("third"), 0o644, true))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "third", string(data))
}

func TestNewTransport(t *testing.T) {
	simulated, err := newTransport(&Config{SMTP: &SMTPConfig{SuccessRate: 0.5}}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, simulated.Simulated())

	forced, err := newTransport(&Config{SMTP: &SMTPConfig{Host: "smtp.example.com", Simulate: true}}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, forced.Simulated())

	smtpTransport, err := newTransport(&Config{SMTP: &SMTPConfig{Host: "smtp.example.com", Port: 587, TLS: "mandatory"}}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, smtpTransport.Simulated())
	require.NoError(t, smtpTransport.Close())

	_, err = newTransport(&Config{SMTP: &SMTPConfig{Host: "smtp.example.com", Username: "jane"}}, zap.NewNop())
	require.ErrorContains(t, err, "password")
}

func TestNewTransportWarnsOnlyWithoutHost(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)

	_, err := newTransport(&Config{SMTP: &SMTPConfig{Host: "smtp.example.com", Simulate: true}}, zap.New(core))
	require.NoError(t, err)
	assert.Zero(t, observed.Len())

	_, err = newTransport(&Config{SMTP: &SMTPConfig{}}, zap.New(core))
	require.NoError(t, err)
	require.Equal(t, 1, observed.Len())
	assert.Equal(t, "no smtp host configured, delivery is simulated", observed.All()[0].Message)
}

func TestEmailConfigRejectsUnknownTone(t *testing.T) {
	_, err := emailConfig(&Config{Email: &EmailConfig{Tone: "sarcastic"}})
	require.Error(t, err)

	cfg, err := emailConfig(&Config{Email: &EmailConfig{Tone: "casual", Length: "brief", AutoSend: true}})
	require.NoError(t, err)
	assert.True(t, cfg.AutoSend)
}

func storedReport(t *testing.T) string {
	t.Helper()

	rep := report.New(uuid.MustParse("6f1c2b4e-0000-4000-8000-000000000000"),
		&outreach.Profile{Name: "Jane Doe", Email: "jane@example.com"},
		[]outreach.MatchResult{
			{
				Startup:  outreach.Startup{CompanyName: "Acme", ContactName: "Ada", ContactEmail: "ada@acme.io"},
				Scores:   outreach.Scores{Overall: 0.9},
				Email:    &outreach.Email{Subject: "Reviewed subject", Body: "Hi Ada,\n\nEdited by hand."},
				AutoSend: true,
			},
			{
				Startup:  outreach.Startup{CompanyName: "Globex", ContactEmail: "hello@globex.dev"},
				Scores:   outreach.Scores{Overall: 0.7},
				Email:    &outreach.Email{Subject: "Hello", Body: "Hi there"},
				AutoSend: true,
			},
		},
		time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	)

	path := filepath.Join(t.TempDir(), report.FileName(rep.RunID, "json"))
	require.NoError(t, report.ToFile(path, rep))
	return path
}

func TestDeliverStored(t *testing.T) {
	config := &Config{SMTP: &SMTPConfig{SuccessRate: 1}}
	dispatcher, err := newDispatcher(config, nil, false, zap.NewNop())
	require.NoError(t, err)

	rep, err := deliverStored(context.Background(), config, dispatcher, storedReport(t), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Dispatch.Sent)
	assert.True(t, rep.Dispatch.Simulated)
	assert.Equal(t, "Jane Doe", rep.Profile.Name)
	assert.Equal(t, "Reviewed subject", rep.Matches[0].Email.Subject)

	_, err = deliverStored(context.Background(), config, dispatcher, filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
	require.Error(t, err)
}

func TestExportReport(t *testing.T) {
	src := storedReport(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "matches.csv")
	count, err := exportReport(src, csvPath)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "rank,company_name"))
	assert.Contains(t, lines[1], "Acme")

	mdPath := filepath.Join(dir, "summary.md")
	_, err = exportReport(src, mdPath)
	require.NoError(t, err)
	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Acme")

	_, err = exportReport("", csvPath)
	require.ErrorContains(t, err, "--emails")
}
