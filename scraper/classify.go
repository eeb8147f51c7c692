package scraper

import "github.com/use-agent/scrapeurl/models"

// OutcomeKind labels a fetch outcome.
type OutcomeKind int

const (
	// HardFailure means no response was obtained at all.
	HardFailure OutcomeKind = iota + 1
	// SoftOutcome means a response was obtained, whatever its status.
	SoftOutcome
)

func (k OutcomeKind) String() string {
	switch k {
	case HardFailure:
		return "hard_failure"
	case SoftOutcome:
		return "soft_outcome"
	default:
		return "unknown"
	}
}

// Classification is the verdict on one FetchOutcome.
type Classification struct {
	Kind       OutcomeKind
	StatusCode int
}

// Classify decides whether the pipeline may continue. Only a transport
// error with no status is a hard failure; 200, 404 and 500 alike are soft
// outcomes and keep their literal status code.
func Classify(o models.FetchOutcome) Classification {
	if o.TransportError != nil && o.StatusCode == 0 {
		return Classification{Kind: HardFailure}
	}
	return Classification{Kind: SoftOutcome, StatusCode: o.StatusCode}
}
