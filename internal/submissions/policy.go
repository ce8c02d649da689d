package submissions

import (
	"errors"
	"fmt"
)

// DuplicatePolicy decides what happens when a user completes a problem
// they have already completed.
type DuplicatePolicy string

const (
	// AllowResubmission records every completion. Re-solving a problem earns
	// its bloks again and counts toward totals again.
	AllowResubmission DuplicatePolicy = "allow"
	// RejectDuplicates fails the second completion of a problem with
	// ErrDuplicateSubmission before anything is written.
	RejectDuplicates DuplicatePolicy = "reject"
)

var ErrDuplicateSubmission = errors.New("problem already completed")

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case AllowResubmission, RejectDuplicates:
		return p, nil
	case "":
		return AllowResubmission, nil
	default:
		return "", fmt.Errorf("unknown duplicate submission policy %q", s)
	}
}
