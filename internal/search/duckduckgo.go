package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kjstillabower/agent-dashboard/internal/circuitbreaker"
	"github.com/kjstillabower/agent-dashboard/internal/observability"
)

const defaultEndpoint = "https://lite.duckduckgo.com/lite/"

// maxResults caps how many result rows are folded into the returned text.
const maxResults = 5

var (
	// Result links on the lite page: <a ... class='result-link' href='URL'>TITLE</a>,
	// with a variant for href-before-class ordering.
	linkPattern  = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>([^<]+)</a>`)
	linkPattern2 = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>([^<]+)</a>`)

	snippetPattern = regexp.MustCompile(`<td[^>]*class=['"]result-snippet['"][^>]*>([^<]+(?:<[^>]+>[^<]*</[^>]+>)*[^<]*)</td>`)

	tagPattern = regexp.MustCompile(`<[^>]+>`)
)

// DuckDuckGo scrapes DuckDuckGo's HTML lite interface. The lite page is
// more stable for scraping than the main site. A shared token bucket
// keeps the client at 1 query per second.
type DuckDuckGo struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *circuitbreaker.CircuitBreaker
}

// NewDuckDuckGo creates a DuckDuckGo searcher. endpoint falls back to the
// lite interface when empty; timeout falls back to 15s when zero.
func NewDuckDuckGo(endpoint string, timeout time.Duration) *DuckDuckGo {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &DuckDuckGo{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// SetCircuitBreaker attaches a circuit breaker guarding the HTTP call.
func (d *DuckDuckGo) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	d.breaker = cb
}

// Search POSTs the query to the lite endpoint and flattens the result rows
// into "TITLE. SNIPPET" lines. Returns ErrNoResults when the page parsed
// to nothing usable.
func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var text string
	call := func() error {
		var err error
		text, err = d.fetch(ctx, query)
		return err
	}

	start := time.Now()
	var err error
	if d.breaker != nil {
		err = d.breaker.Call(ctx, call)
	} else {
		err = call()
	}
	duration := time.Since(start).Seconds()

	if err != nil {
		observability.SearchCallsTotal.WithLabelValues("error").Inc()
		observability.SearchDuration.WithLabelValues("error").Observe(duration)
		return "", err
	}
	observability.SearchCallsTotal.WithLabelValues("success").Inc()
	observability.SearchDuration.WithLabelValues("success").Observe(duration)
	return text, nil
}

func (d *DuckDuckGo) fetch(ctx context.Context, query string) (string, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: http %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read search response: %w", err)
	}

	text := FlattenResults(string(body))
	if text == "" {
		return "", ErrNoResults
	}
	return text, nil
}

// FlattenResults extracts result titles and snippets from the lite HTML
// and joins them into free text, one result per line.
func FlattenResults(html string) string {
	matches := linkPattern.FindAllStringSubmatch(html, -1)
	if len(matches) == 0 {
		matches = linkPattern2.FindAllStringSubmatch(html, -1)
	}
	snippets := snippetPattern.FindAllStringSubmatch(html, -1)

	var lines []string
	for i, m := range matches {
		if len(m) < 3 {
			continue
		}
		title := cleanHTML(m[2])
		if title == "" {
			continue
		}
		line := title
		if i < len(snippets) && len(snippets[i]) > 1 {
			if snippet := cleanHTML(snippets[i][1]); snippet != "" {
				line += ". " + snippet
			}
		}
		lines = append(lines, line)
		if len(lines) >= maxResults {
			break
		}
	}
	return strings.Join(lines, "\n")
}

// cleanHTML strips tags and decodes the entities DuckDuckGo emits.
func cleanHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#x27;", "'",
		"&#39;", "'",
		"&nbsp;", " ",
	)
	return strings.TrimSpace(replacer.Replace(s))
}
