package scrape

import (
	"context"

	"github.com/metricspider/metricspider/internal/metrics"
	"github.com/metricspider/metricspider/pkg/failure"
)

/*
Responsibilities

- Perform the platform call for one target
- Extract raw numeric/text metrics
- Classify failures into the canonical error kinds

The engine never inspects extraction logic; it only consumes this contract.
An adapter must be safe for concurrent use by multiple workers.
*/

type Adapter interface {
	// Platform returns the target class this adapter serves.
	Platform() string
	// Scrape fetches the metrics for one target. On failure it returns a
	// classified error so retry eligibility stays a pure function of the
	// error value.
	Scrape(ctx context.Context, target metrics.Target) (*metrics.RawFields, failure.ClassifiedError)
}
