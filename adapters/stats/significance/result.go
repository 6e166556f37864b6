// Package significance implements the classical tests used to compare
// policy segments: Welch's t-test, one-way ANOVA and the chi-squared test
// of independence. Inputs are plain slices and counts; callers own grouping.
package significance

import (
	"fmt"
	"math"

	"claimstat/domain/core"
)

// DefaultAlpha is the significance threshold used unless configured otherwise
const DefaultAlpha = 0.05

// Method names a test
type Method string

const (
	MethodAuto      Method = "auto"
	MethodWelch     Method = "welch"
	MethodANOVA     Method = "anova"
	MethodChiSquare Method = "chi2"
)

// ParseMethod validates a method name
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodAuto, MethodWelch, MethodANOVA, MethodChiSquare:
		return m, nil
	case "":
		return MethodAuto, nil
	}
	return "", fmt.Errorf("unknown test method %q (want auto|welch|anova|chi2)", s)
}

// Decision is the outcome against the null hypothesis
type Decision string

const (
	Reject       Decision = "reject"
	FailToReject Decision = "fail_to_reject"
)

// Decide rejects the null hypothesis when p < alpha
func Decide(pValue, alpha float64) Decision {
	if pValue < alpha {
		return Reject
	}
	return FailToReject
}

// PreconditionError reports that a test could not be run. Reason is one of
// the core sentinel errors so callers can use errors.Is.
type PreconditionError struct {
	Test   Method
	Reason error
	Detail string
}

func (e *PreconditionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Test, e.Reason)
	}
	return fmt.Sprintf("%s: %v: %s", e.Test, e.Reason, e.Detail)
}

func (e *PreconditionError) Unwrap() error {
	return e.Reason
}

func precondition(test Method, reason error, format string, args ...interface{}) error {
	return &PreconditionError{Test: test, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

func clampP(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return p
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// errDegenerate is returned when the statistic would be NaN
func errDegenerate(test Method, detail string) error {
	return &PreconditionError{Test: test, Reason: core.ErrDegenerateSample, Detail: detail}
}
