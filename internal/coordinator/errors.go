package coordinator

import (
	"strconv"

	"github.com/metricspider/metricspider/internal/metadata"
	"github.com/metricspider/metricspider/pkg/failure"
)

// outcomeCode maps an attempt result to the HTTP-style status code the
// adaptive limiter and the metadata recorder consume. The mapping is
// lossy on purpose: the limiter only cares about 2xx vs 429 vs the rest.
func outcomeCode(err error) int {
	if err == nil {
		return 200
	}
	switch failure.KindOf(err) {
	case failure.KindRateLimited:
		return 429
	case failure.KindNotFound:
		return 404
	case failure.KindPrivate:
		return 403
	case failure.KindAuth:
		return 401
	case failure.KindNetwork:
		return 503
	default:
		return 500
	}
}

// causeOf maps an error kind to the canonical observability cause.
func causeOf(err error) metadata.ErrorCause {
	switch failure.KindOf(err) {
	case failure.KindRateLimited:
		return metadata.CauseRateLimited
	case failure.KindNetwork:
		return metadata.CauseNetworkFailure
	case failure.KindNotFound:
		return metadata.CauseTargetMissing
	case failure.KindPrivate, failure.KindAuth:
		return metadata.CauseAccessDenied
	default:
		return metadata.CauseUnknown
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', 2, 64)
}
