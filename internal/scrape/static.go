package scrape

import (
	"context"
	"sync"

	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/pkg/failure"
)

// StaticAdapter serves canned results. Used for dry runs and tests; it
// implements the same contract as the HTTP adapters so the engine cannot
// tell them apart.
type StaticAdapter struct {
	mu           sync.Mutex
	platform     string
	results      map[string]*metrics.RawFields
	defaultReply *metrics.RawFields
	errs         map[string][]failure.ClassifiedError
	calls        map[string]int
}

func NewStaticAdapter(platform string) *StaticAdapter {
	return &StaticAdapter{
		platform: platform,
		results:  make(map[string]*metrics.RawFields),
		errs:     make(map[string][]failure.ClassifiedError),
		calls:    make(map[string]int),
	}
}

func (a *StaticAdapter) Platform() string {
	return a.platform
}

// SetResult sets the fields returned for a handle once scripted errors
// (if any) are exhausted.
func (a *StaticAdapter) SetResult(handle string, fields *metrics.RawFields) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results[handle] = fields
}

// SetDefault sets the fields returned for any handle without its own
// scripted result or errors.
func (a *StaticAdapter) SetDefault(fields *metrics.RawFields) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaultReply = fields
}

// QueueError scripts an error for the handle's next call. Multiple queued
// errors are returned in order, then calls fall through to the result.
func (a *StaticAdapter) QueueError(handle string, err failure.ClassifiedError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs[handle] = append(a.errs[handle], err)
}

func (a *StaticAdapter) Calls(handle string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls[handle]
}

func (a *StaticAdapter) Scrape(ctx context.Context, target metrics.Target) (*metrics.RawFields, failure.ClassifiedError) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls[target.Handle()]++

	if queued := a.errs[target.Handle()]; len(queued) > 0 {
		err := queued[0]
		a.errs[target.Handle()] = queued[1:]
		return nil, err
	}

	if fields, ok := a.results[target.Handle()]; ok {
		return fields.Clone(), nil
	}
	if a.defaultReply != nil {
		return a.defaultReply.Clone(), nil
	}

	return nil, &ScrapeError{
		Message: "no canned result for " + target.Handle(),
		Cause:   ErrCauseAccountNotFound,
		ErrKind: failure.KindNotFound,
	}
}
