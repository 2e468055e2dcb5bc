// Package emailgen writes outreach emails for scored matches, through a text
// generation backend when one is configured and from a fixed template
// otherwise.
package emailgen

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/ai"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

var errMalformed = errors.New("malformed generation response")

// Generator produces emails. The zero value is not usable, use New.
type Generator struct {
	cfg    Config
	text   ai.TextGenerator
	logger *zap.Logger
}

// New creates a Generator. text may be nil, in which case every email comes
// from the template.
func New(cfg Config, text ai.TextGenerator, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{cfg: cfg.withDefaults(), text: text, logger: logger}
}

// Generate returns the email for match. It never fails: any problem with the
// text generation backend falls back to the template.
func (g *Generator) Generate(ctx context.Context, profile *outreach.Profile, match *outreach.MatchResult) outreach.Email {
	if g.text == nil {
		return g.finish(Template(g.cfg, profile, match), match)
	}

	email, err := g.generateAI(ctx, profile, match)
	if err != nil {
		g.logger.Warn("falling back to template email",
			logger.Company(match.Startup.CompanyName),
			zap.Error(err),
		)
		return g.finish(Template(g.cfg, profile, match), match)
	}
	return g.finish(email, match)
}

// Apply generates an email for every match and sets its auto-send flag.
func (g *Generator) Apply(ctx context.Context, profile *outreach.Profile, matches []outreach.MatchResult) {
	for i := range matches {
		email := g.Generate(ctx, profile, &matches[i])
		matches[i].Email = &email
		matches[i].AutoSend = g.cfg.AutoSend && matches[i].Scores.Overall >= g.cfg.AutoSendMinScore
	}
}

func (g *Generator) finish(email outreach.Email, match *outreach.MatchResult) outreach.Email {
	name := match.Startup.Greeting()
	email.Subject = replacePlaceholders(email.Subject, name)
	email.Body = replacePlaceholders(email.Body, name)
	return email
}

func replacePlaceholders(s, name string) string {
	return strings.NewReplacer("[Name]", name, "[name]", name, "{{name}}", name).Replace(s)
}

func (g *Generator) generateAI(ctx context.Context, profile *outreach.Profile, match *outreach.MatchResult) (outreach.Email, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	message, err := buildMessage(profile, match)
	if err != nil {
		return outreach.Email{}, err
	}

	g.logger.Debug("requesting generated email",
		logger.Company(match.Startup.CompanyName),
		zap.String("model", g.text.Model()),
		zap.Int("message_length", utf8.RuneCountInString(message)),
	)

	raw, err := g.text.GenerateContent(ctx, buildSystemPrompt(g.cfg), message)
	if err != nil {
		return outreach.Email{}, fmt.Errorf("%w: %w", outreach.ErrCapabilityUnavailable, err)
	}

	g.logger.Debug("generated email response",
		logger.Company(match.Startup.CompanyName),
		zap.String("response_preview", utils.TruncateForLog(raw, g.cfg.MaxLogLength)),
	)

	email, err := parseResponse(raw)
	if err != nil {
		return outreach.Email{}, err
	}
	return email, nil
}

func buildSystemPrompt(cfg Config) string {
	return strings.NewReplacer(
		"{{TONE}}", string(cfg.Tone),
		"{{TONE_GUIDE}}", toneGuide(cfg.Tone),
		"{{LENGTH}}", string(cfg.Length),
		"{{LENGTH_GUIDE}}", lengthGuide(cfg.Length),
	).Replace(promptTemplate)
}

type promptProject struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	TechStack   []string `json:"tech_stack,omitempty"`
	Outcomes    []string `json:"outcomes,omitempty"`
	Role        string   `json:"role,omitempty"`
}

type promptContext struct {
	Sender struct {
		Name       string   `json:"name"`
		Title      string   `json:"title,omitempty"`
		Email      string   `json:"email,omitempty"`
		LinkedIn   string   `json:"linkedin,omitempty"`
		GitHub     string   `json:"github,omitempty"`
		Experience string   `json:"experience,omitempty"`
		Skills     []string `json:"skills,omitempty"`
	} `json:"sender"`
	Startup          outreach.Startup `json:"startup"`
	RelevantProjects []promptProject  `json:"relevant_projects"`
	Reasoning        []string         `json:"match_reasoning"`
	Score            float64          `json:"match_score"`
}

func buildMessage(profile *outreach.Profile, match *outreach.MatchResult) (string, error) {
	if profile == nil {
		profile = &outreach.Profile{}
	}

	var pc promptContext
	pc.Sender.Name = profile.Name
	pc.Sender.Title = profile.Title
	pc.Sender.Email = profile.Email
	pc.Sender.LinkedIn = profile.LinkedIn
	pc.Sender.GitHub = profile.GitHub
	pc.Sender.Experience = profile.Experience
	pc.Sender.Skills = profile.Skills
	pc.Startup = match.Startup
	pc.Reasoning = match.Reasoning
	pc.Score = match.Scores.Overall

	pc.RelevantProjects = make([]promptProject, 0, len(match.RelevantProjects))
	for _, name := range match.RelevantProjects {
		project := profile.FindProject(name)
		if project == nil {
			continue
		}
		pc.RelevantProjects = append(pc.RelevantProjects, promptProject{
			Name:        project.Name,
			Description: project.Description,
			TechStack:   project.TechStack,
			Outcomes:    project.Outcomes,
			Role:        project.Role,
		})
	}

	data, err := json.MarshalIndent(pc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal prompt context: %w", err)
	}
	return "Context:\n" + string(data) + "\n\nJSON Response:", nil
}

func parseResponse(raw string) (outreach.Email, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return outreach.Email{}, fmt.Errorf("%w: %w", errMalformed, err)
	}

	subject := coerceString(data["subject"])
	body := coerceString(data["body"])
	if subject == "" || body == "" {
		return outreach.Email{}, fmt.Errorf("%w: subject and body are required", errMalformed)
	}

	return outreach.Email{Subject: subject, Body: body, Source: outreach.EmailFromAI}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	raw = strings.TrimSpace(raw)

	// tolerate prose around the object
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		raw = raw[start : end+1]
	}
	return raw
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n\n")
	default:
		return strings.TrimSpace(fmt.Sprint(val))
	}
}
