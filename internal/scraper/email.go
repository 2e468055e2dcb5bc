package scraper

import (
	"context"
	"net/mail"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/spigell/outreach/internal/utils"
)

var emailExpr = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)

// DefaultContactPaths are the pages checked below a company website, after
// the website itself.
var DefaultContactPaths = []string{"/contact", "/about", "/team"}

var unwantedEmailParts = []string{
	"noreply", "no-reply", "donotreply", "unsubscribe", "privacy", "legal",
	"marketing", "abuse", "postmaster", "webmaster", "example.com", "test.com",
	"sentry", "wixpress",
}

// preferred local parts, best first
var localPriority = []string{"founder", "founders", "ceo", "hello", "contact", "team", "hi", "info", "careers", "jobs"}

// EmailFinder looks for a contact address on a company website.
type EmailFinder struct {
	fetcher Fetcher
	paths   []string
	delay   time.Duration
	logger  *zap.Logger
}

// NewEmailFinder creates a finder. Empty paths use DefaultContactPaths.
func NewEmailFinder(fetcher Fetcher, paths []string, delay time.Duration, logger *zap.Logger) *EmailFinder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(paths) == 0 {
		paths = DefaultContactPaths
	}
	return &EmailFinder{fetcher: fetcher, paths: paths, delay: delay, logger: logger}
}

// Find returns the best address published on website, or "" when none is
// found. Pages that fail to load are skipped.
func (f *EmailFinder) Find(ctx context.Context, website string) (string, error) {
	base, err := url.Parse(strings.TrimSpace(website))
	if err != nil || base.Host == "" {
		return "", nil
	}

	pages := append([]string{""}, f.paths...)
	found := make(map[string]struct{})

	for idx, page := range pages {
		if idx > 0 {
			if err := utils.WaitFor(ctx, f.delay); err != nil {
				return "", err
			}
		}

		pageURL := base.String()
		if page != "" {
			pageURL = base.JoinPath(page).String()
		}

		doc, err := f.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			f.logger.Debug("contact page unavailable", zap.String("url", pageURL), zap.Error(err))
			continue
		}

		for _, email := range ExtractEmails(doc) {
			found[email] = struct{}{}
		}
	}

	candidates := make([]string, 0, len(found))
	for email := range found {
		candidates = append(candidates, email)
	}
	ranked := RankEmails(candidates, base.Hostname())
	if len(ranked) == 0 {
		return "", nil
	}
	return ranked[0], nil
}

// ExtractEmails returns the acceptable addresses linked or mentioned in doc,
// lower cased and deduplicated in document order.
func ExtractEmails(doc *goquery.Document) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	add := func(raw string) {
		email := strings.ToLower(strings.TrimSpace(raw))
		if !Acceptable(email) {
			return
		}
		if _, ok := seen[email]; ok {
			return
		}
		seen[email] = struct{}{}
		out = append(out, email)
	}

	doc.Find(`a[href^="mailto:"], a[href^="MAILTO:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := href[len("mailto:"):]
		if idx := strings.IndexByte(addr, '?'); idx >= 0 {
			addr = addr[:idx]
		}
		if decoded, err := url.PathUnescape(addr); err == nil {
			addr = decoded
		}
		add(addr)
	})

	for _, match := range emailExpr.FindAllString(doc.Text(), -1) {
		add(match)
	}
	return out
}

// Acceptable reports whether email is a plausible human contact address.
func Acceptable(email string) bool {
	if len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || len(local) > 64 || !strings.Contains(domain, ".") {
		return false
	}
	for _, part := range unwantedEmailParts {
		if strings.Contains(email, part) {
			return false
		}
	}
	// image names such as logo@2x.png look like addresses
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp"} {
		if strings.HasSuffix(email, ext) {
			return false
		}
	}
	return true
}

// RankEmails orders addresses best first: the company domain before others,
// then by preferred local part, then alphabetically.
func RankEmails(emails []string, host string) []string {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	ranked := append([]string(nil), emails...)

	rank := func(email string) (int, int) {
		local, domain, _ := strings.Cut(email, "@")
		domainRank := 1
		if host != "" && (domain == host || strings.HasSuffix(domain, "."+host)) {
			domainRank = 0
		}
		localRank := len(localPriority)
		for idx, preferred := range localPriority {
			if local == preferred {
				localRank = idx
				break
			}
		}
		return domainRank, localRank
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		di, li := rank(ranked[i])
		dj, lj := rank(ranked[j])
		if di != dj {
			return di < dj
		}
		if li != lj {
			return li < lj
		}
		return ranked[i] < ranked[j]
	})
	return ranked
}
