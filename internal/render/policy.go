package render

import (
	"fmt"
	"strings"
)

// FailurePolicy decides what happens to a run when one section fails.
type FailurePolicy string

const (
	// PolicyContinue logs the failure and keeps rendering other sections.
	PolicyContinue FailurePolicy = "continue"
	// PolicyAbort cancels the remaining sections on the first failure.
	PolicyAbort FailurePolicy = "abort"
)

// ParseFailurePolicy accepts the configured policy name.
func ParseFailurePolicy(value string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyContinue:
		return PolicyContinue, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q", value)
	}
}
