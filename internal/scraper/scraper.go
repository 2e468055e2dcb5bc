// Package scraper collects startups from listing pages and looks up a
// contact address on each company website.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/logger"
	"github.com/spigell/outreach/internal/outreach"
	"github.com/spigell/outreach/internal/textnorm"
)

const (
	RenderHTTP    = "http"
	RenderBrowser = "browser"
)

// Selectors locate startup fields inside one listing item. Website is read
// from the href attribute, everything else from the element text.
type Selectors struct {
	Item         string `mapstructure:"item" yaml:"item,omitempty"`
	Name         string `mapstructure:"name" yaml:"name,omitempty"`
	Mission      string `mapstructure:"mission" yaml:"mission,omitempty"`
	Website      string `mapstructure:"website" yaml:"website,omitempty"`
	Location     string `mapstructure:"location" yaml:"location,omitempty"`
	TechStack    string `mapstructure:"tech-stack" yaml:"tech-stack,omitempty"`
	FundingStage string `mapstructure:"funding-stage" yaml:"funding-stage,omitempty"`
	TeamSize     string `mapstructure:"team-size" yaml:"team-size,omitempty"`
	Industry     string `mapstructure:"industry" yaml:"industry,omitempty"`
}

// Source is a configured listing page.
type Source struct {
	Name      string    `mapstructure:"name" yaml:"name,omitempty"`
	URL       string    `mapstructure:"url" yaml:"url,omitempty"`
	Render    string    `mapstructure:"render" yaml:"render,omitempty"`
	Limit     int       `mapstructure:"limit" yaml:"limit,omitempty"`
	Selectors Selectors `mapstructure:"selectors" yaml:"selectors,omitempty"`
}

// Validate checks the fields needed to scrape the source.
func (s Source) Validate() error {
	verr := &outreach.ValidationError{Source: "scrape source"}
	record := s.Name
	if record == "" {
		record = s.URL
	}
	if u, err := url.Parse(s.URL); err != nil || u.Host == "" {
		verr.Add(record, "url", "must be an absolute URL")
	}
	if s.Selectors.Item == "" {
		verr.Add(record, "selectors.item", "is required")
	}
	if s.Selectors.Name == "" {
		verr.Add(record, "selectors.name", "is required")
	}
	switch s.Render {
	case "", RenderHTTP, RenderBrowser:
	default:
		verr.Add(record, "render", fmt.Sprintf("must be %q or %q", RenderHTTP, RenderBrowser))
	}
	return verr.OrNil()
}

// Config controls a scrape run.
type Config struct {
	// Delay separates consecutive requests to the same site.
	Delay time.Duration
	// KeepWithoutEmail keeps startups for which no address was found.
	KeepWithoutEmail bool
	ContactPaths     []string
}

// Scraper runs sources in order.
type Scraper struct {
	cfg     Config
	http    Fetcher
	browser Fetcher
	finder  *EmailFinder
	logger  *zap.Logger
}

// New creates a Scraper. browser may be nil when no source renders in a
// browser.
func New(cfg Config, httpFetcher, browser Fetcher, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		cfg:     cfg,
		http:    httpFetcher,
		browser: browser,
		finder:  NewEmailFinder(httpFetcher, cfg.ContactPaths, cfg.Delay, logger),
		logger:  logger,
	}
}

// Run scrapes every source and fills in contact emails. A failing source is
// logged and skipped. Startups are deduplicated by company name.
func (s *Scraper) Run(ctx context.Context, sources []Source) ([]outreach.Startup, error) {
	seen := make(map[string]struct{})
	out := make([]outreach.Startup, 0)

	for _, source := range sources {
		log := s.logger.With(zap.String("source", source.Name))

		startups, err := s.Scrape(ctx, source)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Warn("scraping source failed", zap.Error(err))
			continue
		}
		log.Info("scraped source", zap.Int("count", len(startups)))

		for _, startup := range startups {
			key := textnorm.Fold(startup.CompanyName)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			if !startup.HasContact() && startup.Website != "" {
				email, err := s.finder.Find(ctx, startup.Website)
				if err != nil {
					return out, err
				}
				startup.ContactEmail = email
			}

			if !startup.HasContact() && !s.cfg.KeepWithoutEmail {
				log.Info("skipping startup without contact email", logger.Company(startup.CompanyName))
				continue
			}
			out = append(out, startup)
		}
	}

	return out, nil
}

// Scrape reads one listing page.
func (s *Scraper) Scrape(ctx context.Context, source Source) ([]outreach.Startup, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	fetcher := s.http
	if source.Render == RenderBrowser {
		if s.browser == nil {
			return nil, errors.New("browser rendering is not available")
		}
		fetcher = s.browser
	}

	doc, err := fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(source.URL)
	return ParseListing(doc, base, source), nil
}

// ParseListing extracts startups from an already loaded listing page.
// Items without a name are ignored.
func ParseListing(doc *goquery.Document, base *url.URL, source Source) []outreach.Startup {
	sel := source.Selectors
	out := make([]outreach.Startup, 0)

	doc.Find(sel.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if source.Limit > 0 && len(out) >= source.Limit {
			return false
		}

		name := text(item, sel.Name)
		if name == "" {
			return true
		}

		startup := outreach.Startup{
			CompanyName:  name,
			Mission:      text(item, sel.Mission),
			Location:     text(item, sel.Location),
			Industry:     text(item, sel.Industry),
			FundingStage: outreach.ParseFundingStage(text(item, sel.FundingStage)),
			Website:      link(item, sel.Website, base),
		}
		if raw := text(item, sel.TechStack); raw != "" {
			startup.TechStack = textnorm.SplitList(raw)
		}
		if raw := digits(text(item, sel.TeamSize)); raw != "" {
			if size, err := strconv.Atoi(raw); err == nil {
				startup.TeamSize = &size
			}
		}

		out = append(out, startup)
		return true
	})

	return out
}

func text(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(item.Find(selector).First().Text()), " ")
}

func link(item *goquery.Selection, selector string, base *url.URL) string {
	if selector == "" {
		return ""
	}
	href, ok := item.Find(selector).First().Attr("href")
	if !ok {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// digits keeps the leading number of strings such as "120 employees".
func digits(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
