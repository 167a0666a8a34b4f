package enums

import "fmt"

// Outcome tags the result of a fallible operation so callers can tell real
// data from fallback data without reading logs.
type Outcome string

const (
	// OutcomeSuccess means the operation produced authoritative data.
	OutcomeSuccess Outcome = "success"
	// OutcomeDegraded means a fallback or partial result was substituted.
	OutcomeDegraded Outcome = "degraded"
	// OutcomeFailed means nothing usable was produced.
	OutcomeFailed Outcome = "failed"
)

var validOutcomes = []Outcome{
	OutcomeSuccess,
	OutcomeDegraded,
	OutcomeFailed,
}

// String implements fmt.Stringer.
func (o Outcome) String() string {
	return string(o)
}

// IsValid reports whether the value is a known Outcome.
func (o Outcome) IsValid() bool {
	for _, candidate := range validOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// Worst returns the least favourable of the given outcomes.
func Worst(outcomes ...Outcome) Outcome {
	worst := OutcomeSuccess
	for _, o := range outcomes {
		switch {
		case o == OutcomeFailed:
			return OutcomeFailed
		case o == OutcomeDegraded:
			worst = OutcomeDegraded
		}
	}
	return worst
}

// ParseOutcome converts raw input into an Outcome.
func ParseOutcome(value string) (Outcome, error) {
	for _, candidate := range validOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outcome %q", value)
}
