package scrape

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/pkg/failure"
)

/*
HTTPAdapter collects metrics from a platform's public profile pages.

Fetch semantics:
- Only 2xx HTML responses are parsed
- Status codes map onto the canonical error taxonomy
- Retry-After headers are surfaced as platform-suggested delays

The adapter never decides retry or continuation; it only classifies.
*/
type HTTPAdapter struct {
	cfg    HTTPAdapterConfig
	client *http.Client
}

// NewHTTPAdapter builds an adapter around the given client. The client is
// expected to come from the per-class connection pool so transport-level
// pacing and 5xx retries apply.
func NewHTTPAdapter(cfg HTTPAdapterConfig, client *http.Client) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPAdapter{
		cfg:    cfg,
		client: client,
	}
}

func (a *HTTPAdapter) Platform() string {
	return a.cfg.Platform
}

func (a *HTTPAdapter) Scrape(ctx context.Context, target metrics.Target) (*metrics.RawFields, failure.ClassifiedError) {
	profileURL := fmt.Sprintf(a.cfg.ProfileURLTemplate, target.Handle())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, profileURL, nil)
	if err != nil {
		return nil, &ScrapeError{
			Message: err.Error(),
			Cause:   ErrCauseNetworkFailure,
			ErrKind: failure.KindNetwork,
		}
	}
	if a.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", a.cfg.UserAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ClassifyStatus(resp.StatusCode, parseRetryAfter(resp))
	}

	root, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &ScrapeError{
			Message: err.Error(),
			Cause:   ErrCauseContentStructure,
			ErrKind: failure.KindGeneric,
		}
	}
	doc := goquery.NewDocumentFromNode(root)

	fields := metrics.NewRawFields()
	fields.SetText("source_url", profileURL)

	var extracted int
	for _, sel := range a.cfg.Selectors {
		node := doc.Find(sel.Selector).First()
		if node.Length() == 0 {
			continue
		}
		raw := node.Text()
		if sel.Attr != "" {
			raw, _ = node.Attr(sel.Attr)
		}
		value, ok := ParseCount(raw)
		if !ok {
			continue
		}
		fields.SetNumber(sel.Field, value)
		extracted++
	}

	if extracted == 0 {
		return nil, &ScrapeError{
			Message: fmt.Sprintf("no metric selectors matched on %s", profileURL),
			Cause:   ErrCauseContentStructure,
			ErrKind: failure.KindGeneric,
		}
	}

	deriveEngagementTotal(fields)
	return fields, nil
}

// deriveEngagementTotal fills engagement_total when all three components
// are present and the page did not expose an explicit total.
func deriveEngagementTotal(fields *metrics.RawFields) {
	if _, ok := fields.Number(metrics.FieldEngagementTotal); ok {
		return
	}
	likes, okL := fields.Number(metrics.FieldLikes)
	comments, okC := fields.Number(metrics.FieldComments)
	shares, okS := fields.Number(metrics.FieldShares)
	if okL && okC && okS {
		fields.SetNumber(metrics.FieldEngagementTotal, likes+comments+shares)
	}
}

func classifyTransportError(err error) *ScrapeError {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return &ScrapeError{
			Message: err.Error(),
			Cause:   ErrCauseTimeout,
			ErrKind: failure.KindNetwork,
		}
	}
	return &ScrapeError{
		Message: err.Error(),
		Cause:   ErrCauseNetworkFailure,
		ErrKind: failure.KindNetwork,
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
