// Package scoring rates how well a profile fits a startup.
//
// Three sub-scores are computed per pair, each in [0,1]:
//
//   - tech stack: Jaccard index of the normalized technology sets, where the
//     profile side is its skills plus every project stack;
//   - domain: cosine of binary token vectors built from the profile
//     experience and skills and the startup mission, product, industry and
//     description, or the cosine of their embeddings when an embedder is set;
//   - project relevance: the best per-project token cosine against the
//     startup stack, mission and product.
//
// The overall score is their weighted sum clamped to [0,1].
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/outreach/internal/ai"
	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/textnorm"
)

const (
	DefaultTopProjects      = 3
	DefaultWorkers          = 4
	DefaultEmbeddingTimeout = 20 * time.Second
)

// Weights scale the sub-scores in the overall score.
type Weights struct {
	TechStack        float64
	Domain           float64
	ProjectRelevance float64
}

// DefaultWeights favour tech stack overlap slightly.
var DefaultWeights = Weights{TechStack: 0.4, Domain: 0.3, ProjectRelevance: 0.3}

// Config controls the engine.
type Config struct {
	Weights          Weights
	TopProjects      int
	Workers          int
	EmbeddingTimeout time.Duration
}

// Engine scores profile and startup pairs. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	cfg      Config
	embedder ai.Embedder
	logger   *zap.Logger
}

// New creates an Engine. embedder may be nil, in which case domain alignment
// always uses keyword overlap.
func New(cfg Config, embedder ai.Embedder, logger *zap.Logger) *Engine {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights
	}
	if cfg.TopProjects <= 0 {
		cfg.TopProjects = DefaultTopProjects
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.EmbeddingTimeout <= 0 {
		cfg.EmbeddingTimeout = DefaultEmbeddingTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, embedder: embedder, logger: logger}
}

// Score produces the MatchResult for one pair. It never fails: missing data
// scores 0 and is explained in the reasoning.
func (e *Engine) Score(ctx context.Context, profile *outreach.Profile, startup outreach.Startup) outreach.MatchResult {
	if profile == nil {
		profile = &outreach.Profile{}
	}

	var r rationale

	tech, matched := e.techScore(profile, startup, &r)
	domain, method := e.domainScore(ctx, profile, startup, &r)
	project, relevant := e.projectScore(profile, startup, &r)
	r.context(startup)

	w := e.cfg.Weights
	overall := outreach.Clamp01(w.TechStack*tech + w.Domain*domain + w.ProjectRelevance*project)

	e.logger.Debug("scored startup",
		logger.Company(startup.CompanyName),
		zap.Float64("tech", tech),
		zap.Float64("domain", domain),
		zap.Float64("project", project),
		zap.Float64("overall", overall),
		zap.Strings("matched_tech", matched),
		zap.String("domain_method", string(method)),
	)

	return outreach.MatchResult{
		ProfileName: profile.Name,
		Startup:     startup,
		Scores: outreach.Scores{
			TechStack:        tech,
			Domain:           domain,
			ProjectRelevance: project,
			Overall:          overall,
		},
		RelevantProjects: relevant,
		Reasoning:        r.lines,
		DomainMethod:     method,
	}
}

// ScoreAll scores every startup concurrently. The result has the same order
// as startups. The only error is cancellation of ctx.
func (e *Engine) ScoreAll(ctx context.Context, profile *outreach.Profile, startups []outreach.Startup) ([]outreach.MatchResult, error) {
	results := make([]outreach.MatchResult, len(startups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for idx := range startups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = e.Score(gctx, profile, startups[idx])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring startups: %w", err)
	}
	return results, nil
}

func (e *Engine) techScore(profile *outreach.Profile, startup outreach.Startup, r *rationale) (float64, []string) {
	mine := textnorm.TechSet(profile.AllTech())
	theirs := textnorm.TechSet(startup.TechStack)

	switch {
	case len(mine) == 0 && len(theirs) == 0:
		r.add("Tech stack alignment scored 0: no technologies listed on either side")
		return 0, nil
	case len(mine) == 0:
		r.add("Tech stack alignment scored 0: profile lists no technologies")
		return 0, nil
	case len(theirs) == 0:
		r.add("Tech stack alignment scored 0: no tech stack listed for the startup")
		return 0, nil
	}

	matched := textnorm.Intersection(mine, theirs)
	score := outreach.Clamp01(textnorm.Jaccard(mine, theirs))
	if len(matched) == 0 {
		r.add("Tech stack alignment: no matching technologies")
		return score, matched
	}
	r.addf("Tech stack alignment: %d matching technologies (%s)", len(matched), strings.Join(matched, ", "))
	return score, matched
}

func profileDomainText(profile *outreach.Profile) []string {
	return []string{profile.Experience, strings.Join(profile.Skills, " ")}
}

func startupDomainText(startup outreach.Startup) []string {
	return []string{startup.Mission, startup.Product, startup.Industry, startup.Description}
}

func (e *Engine) domainScore(ctx context.Context, profile *outreach.Profile, startup outreach.Startup, r *rationale) (float64, outreach.DomainMethod) {
	mineText := strings.TrimSpace(strings.Join(profileDomainText(profile), " "))
	theirText := strings.TrimSpace(strings.Join(startupDomainText(startup), " "))

	if mineText == "" || theirText == "" {
		r.add("Domain alignment scored 0: missing experience or mission text")
		return 0, outreach.DomainKeywords
	}

	if e.embedder != nil {
		score, err := e.embeddingSimilarity(ctx, mineText, theirText)
		if err == nil {
			r.domain(score)
			return score, outreach.DomainEmbedding
		}
		e.logger.Warn("embedding similarity unavailable, falling back to keywords",
			logger.Company(startup.CompanyName),
			zap.Error(err),
		)
		r.add("Domain alignment computed from keywords: embedding backend unavailable")
	}

	score := outreach.Clamp01(textnorm.Cosine(
		textnorm.Tokens(profileDomainText(profile)...),
		textnorm.Tokens(startupDomainText(startup)...),
	))
	r.domain(score)
	return score, outreach.DomainKeywords
}

func (e *Engine) embeddingSimilarity(ctx context.Context, a, b string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.EmbeddingTimeout)
	defer cancel()

	vectors, err := e.embedder.Embed(ctx, a, b)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", outreach.ErrCapabilityUnavailable, err)
	}
	if len(vectors) != 2 {
		return 0, fmt.Errorf("%w: expected 2 embeddings, got %d", outreach.ErrCapabilityUnavailable, len(vectors))
	}

	similarity := textnorm.VectorCosine(vectors[0], vectors[1])
	if math.IsNaN(similarity) {
		return 0, errors.New("embedding similarity is not a number")
	}
	return outreach.Clamp01(similarity), nil
}

type rankedProject struct {
	name  string
	score float64
	order int
}

func (e *Engine) projectScore(profile *outreach.Profile, startup outreach.Startup, r *rationale) (float64, []string) {
	if len(profile.Projects) == 0 {
		r.add("Project relevance scored 0: profile lists no projects")
		return 0, []string{}
	}

	theirs := textnorm.Tokens(append([]string{startup.Mission, startup.Product, startup.Description}, startup.TechStack...)...)
	if len(theirs) == 0 {
		r.add("Project relevance scored 0: startup has no stack or mission to compare against")
		return 0, []string{}
	}

	ranked := make([]rankedProject, 0, len(profile.Projects))
	for idx, project := range profile.Projects {
		mine := textnorm.Tokens(append([]string{project.Name, project.Description}, project.TechStack...)...)
		ranked = append(ranked, rankedProject{
			name:  project.Name,
			score: outreach.Clamp01(textnorm.Cosine(mine, theirs)),
			order: idx,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	relevant := make([]string, 0, e.cfg.TopProjects)
	for _, p := range ranked {
		if len(relevant) == e.cfg.TopProjects || p.score <= 0 {
			break
		}
		relevant = append(relevant, p.name)
	}

	best := ranked[0].score
	r.projects(relevant)
	return best, relevant
}
