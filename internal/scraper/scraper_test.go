package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/outreach/internal/outreach"
)

const listingHTML = `<html><body>
<div class="company">
  <h2 class="name"> Acme   Pay </h2>
  <p class="mission">Payments for marketplaces</p>
  <a class="site" href="%[1]s/acme">site</a>
  <span class="stack">Go, Kafka; PostgreSQL</span>
  <span class="stage">Series A</span>
  <span class="size">45 employees</span>
</div>
<div class="company">
  <h2 class="name">Quiet Co</h2>
  <a class="site" href="/quiet">site</a>
</div>
<div class="company">
  <h2 class="name">acme pay</h2>
</div>
<div class="company"><p class="mission">nameless</p></div>
</body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/companies", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, listingHTML, server.URL)
	})
	mux.HandleFunc("/acme", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a href="mailto:noreply@acme.io">x</a></body></html>`)
	})
	mux.HandleFunc("/acme/contact", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>Write to <a href="mailto:Hello@Acme.io?subject=hi">us</a> or jobs@acme.io</body></html>`)
	})
	mux.HandleFunc("/quiet", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>No contact here</body></html>`)
	})
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func listingSource(base string) Source {
	return Source{
		Name: "test",
		URL:  base + "/companies",
		Selectors: Selectors{
			Item:         ".company",
			Name:         ".name",
			Mission:      ".mission",
			Website:      "a.site",
			TechStack:    ".stack",
			FundingStage: ".stage",
			TeamSize:     ".size",
		},
	}
}

func TestScrapeListing(t *testing.T) {
	server := newSite(t)
	s := New(Config{}, NewHTTPFetcher(0), nil, nil)

	startups, err := s.Scrape(context.Background(), listingSource(server.URL))
	require.NoError(t, err)
	require.Len(t, startups, 3)

	acme := startups[0]
	assert.Equal(t, "Acme Pay", acme.CompanyName)
	assert.Equal(t, "Payments for marketplaces", acme.Mission)
	assert.Equal(t, server.URL+"/acme", acme.Website)
	assert.Equal(t, []string{"Go", "Kafka", "PostgreSQL"}, acme.TechStack)
	assert.Equal(t, outreach.FundingSeriesA, acme.FundingStage)
	require.NotNil(t, acme.TeamSize)
	assert.Equal(t, 45, *acme.TeamSize)

	assert.Equal(t, server.URL+"/quiet", startups[1].Website)
	assert.Nil(t, startups[1].TeamSize)
}

func TestScrapeLimit(t *testing.T) {
	server := newSite(t)
	source := listingSource(server.URL)
	source.Limit = 1

	startups, err := New(Config{}, NewHTTPFetcher(0), nil, nil).Scrape(context.Background(), source)
	require.NoError(t, err)
	assert.Len(t, startups, 1)
}

func TestRunFindsEmailsAndSkipsMissing(t *testing.T) {
	server := newSite(t)
	core, observed := observer.New(zapcore.InfoLevel)
	s := New(Config{ContactPaths: []string{"contact"}}, NewHTTPFetcher(0), nil, zap.New(core))

	startups, err := s.Run(context.Background(), []Source{listingSource(server.URL)})
	require.NoError(t, err)

	require.Len(t, startups, 1)
	assert.Equal(t, "hello@acme.io", startups[0].ContactEmail)
	assert.Equal(t, 1, observed.FilterMessage("skipping startup without contact email").Len())
}

func TestRunKeepWithoutEmail(t *testing.T) {
	server := newSite(t)
	s := New(Config{KeepWithoutEmail: true, ContactPaths: []string{"contact"}}, NewHTTPFetcher(0), nil, nil)

	startups, err := s.Run(context.Background(), []Source{listingSource(server.URL)})
	require.NoError(t, err)

	require.Len(t, startups, 2)
	assert.Equal(t, "Quiet Co", startups[1].CompanyName)
	assert.Empty(t, startups[1].ContactEmail)
}

func TestRunSkipsFailingSource(t *testing.T) {
	server := newSite(t)
	broken := listingSource(server.URL)
	broken.URL = server.URL + "/missing"

	s := New(Config{KeepWithoutEmail: true}, NewHTTPFetcher(0), nil, nil)
	startups, err := s.Run(context.Background(), []Source{broken})
	require.NoError(t, err)
	assert.Empty(t, startups)
}

func TestBrowserSourceWithoutBrowser(t *testing.T) {
	source := listingSource("https://example.org")
	source.Render = RenderBrowser

	_, err := New(Config{}, NewHTTPFetcher(0), nil, nil).Scrape(context.Background(), source)
	require.Error(t, err)
}

func TestSourceValidate(t *testing.T) {
	err := Source{Name: "bad", URL: "/relative", Render: "carrier-pigeon"}.Validate()
	var verr *outreach.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, 4)

	require.NoError(t, listingSource("https://example.org").Validate())
}

func TestExtractEmails(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>
		<a href="mailto:founders@startup.dev">mail</a>
		<p>press: PRESS@startup.dev, privacy@startup.dev, logo@2x.png</p>
		<p>no-reply@startup.dev founders@startup.dev</p>
	</body></html>`))
	require.NoError(t, err)

	assert.Equal(t, []string{"founders@startup.dev", "press@startup.dev"}, ExtractEmails(doc))
}

func TestAcceptable(t *testing.T) {
	assert.True(t, Acceptable("ada@acme.io"))
	assert.False(t, Acceptable("noreply@acme.io"))
	assert.False(t, Acceptable("someone@example.com"))
	assert.False(t, Acceptable("icon@2x.png"))
	assert.False(t, Acceptable("not-an-address"))
}

func TestRankEmails(t *testing.T) {
	ranked := RankEmails([]string{
		"info@gmail.com",
		"zed@acme.io",
		"info@acme.io",
		"founder@acme.io",
		"hello@acme.io",
	}, "www.acme.io")

	assert.Equal(t, []string{
		"founder@acme.io",
		"hello@acme.io",
		"info@acme.io",
		"zed@acme.io",
		"info@gmail.com",
	}, ranked)
}

func TestFindIgnoresInvalidWebsite(t *testing.T) {
	finder := NewEmailFinder(NewHTTPFetcher(0), nil, 0, nil)
	email, err := finder.Find(context.Background(), "::not a url")
	require.NoError(t, err)
	assert.Empty(t, email)
}

func TestParseListingResolvesRelativeLinks(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<ul><li><b>Zeta</b><a href="javascript:void(0)">x</a></li><li><b>Eta</b><a href="/eta">x</a></li></ul>`))
	require.NoError(t, err)

	base, _ := url.Parse("https://list.example.org/companies")
	startups := ParseListing(doc, base, Source{Selectors: Selectors{Item: "li", Name: "b", Website: "a"}})

	require.Len(t, startups, 2)
	assert.Empty(t, startups[0].Website)
	assert.Equal(t, "https://list.example.org/eta", startups[1].Website)
}
