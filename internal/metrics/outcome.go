package metrics

import "github.com/metricspider/metricspider/pkg/failure"

// OutcomeStatus tags the result of one scrape attempt.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeSkipped
	OutcomeFailed
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// ScrapeOutcome is the tagged result of one attempt at one target.
// Produced per attempt and consumed immediately by the coordinator;
// never persisted directly.
type ScrapeOutcome struct {
	status  OutcomeStatus
	fields  *RawFields
	reason  string
	errKind failure.Kind
	message string
}

func SuccessOutcome(fields *RawFields) ScrapeOutcome {
	return ScrapeOutcome{status: OutcomeSuccess, fields: fields}
}

func SkippedOutcome(reason string) ScrapeOutcome {
	return ScrapeOutcome{status: OutcomeSkipped, reason: reason}
}

func FailedOutcome(kind failure.Kind, message string) ScrapeOutcome {
	return ScrapeOutcome{status: OutcomeFailed, errKind: kind, message: message}
}

func (o ScrapeOutcome) Status() OutcomeStatus {
	return o.status
}

func (o ScrapeOutcome) Fields() *RawFields {
	return o.fields
}

func (o ScrapeOutcome) Reason() string {
	return o.reason
}

func (o ScrapeOutcome) ErrorKind() failure.Kind {
	return o.errKind
}

func (o ScrapeOutcome) Message() string {
	return o.message
}
