package history

import (
	"sync"

	"github.com/metricspider/metricspider/internal/metrics"
)

// DefaultSeriesCap bounds how many past snapshots one target keeps.
const DefaultSeriesCap = 60

// Series is a bounded, time-ordered sequence of past snapshots for one
// target. Append-only; the oldest entry is evicted at capacity. It serves
// as the statistical baseline for the correlator and anomaly detector.
type Series struct {
	cap     int
	entries []*metrics.RawFields
}

func NewSeries(capacity int) *Series {
	if capacity < 1 {
		capacity = DefaultSeriesCap
	}
	return &Series{cap: capacity}
}

func (s *Series) Append(fields *metrics.RawFields) {
	if fields == nil {
		return
	}
	s.entries = append(s.entries, fields)
	if len(s.entries) > s.cap {
		s.entries = s.entries[1:]
	}
}

func (s *Series) Len() int {
	return len(s.entries)
}

// Values returns the historical values of one field, oldest first.
// Entries missing the field are skipped.
func (s *Series) Values(field string) []float64 {
	out := make([]float64, 0, len(s.entries))
	for _, e := range s.entries {
		if v, ok := e.Number(field); ok {
			out = append(out, v)
		}
	}
	return out
}

// Tail returns the last n values of one field, oldest first.
func (s *Series) Tail(field string, n int) []float64 {
	values := s.Values(field)
	if len(values) > n {
		values = values[len(values)-n:]
	}
	return values
}

// Last returns the most recent snapshot, or nil when empty.
func (s *Series) Last() *metrics.RawFields {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// Book holds one Series per target key. Safe for concurrent use; each
// target's pipeline is independent, but workers share the book.
type Book struct {
	mu     sync.Mutex
	cap    int
	series map[string]*Series
}

func NewBook(seriesCap int) *Book {
	if seriesCap < 1 {
		seriesCap = DefaultSeriesCap
	}
	return &Book{
		cap:    seriesCap,
		series: make(map[string]*Series),
	}
}

// Series returns the series for the target key, creating it on first use.
func (b *Book) Series(targetKey string) *Series {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.series[targetKey]
	if !ok {
		s = NewSeries(b.cap)
		b.series[targetKey] = s
	}
	return s
}

// Preload seeds a target's series from persisted snapshots, oldest first.
// Call before the batch starts; appends are not synchronized with workers.
func (b *Book) Preload(targetKey string, snapshots []*metrics.RawFields) {
	s := b.Series(targetKey)
	for _, snap := range snapshots {
		s.Append(snap)
	}
}
