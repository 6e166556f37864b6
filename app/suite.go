package app

import (
	"time"

	"go.uber.org/zap"

	"claimstat/adapters/stats/significance"
	"claimstat/domain/core"
	"claimstat/domain/policy"
)

// DefaultSuite returns the standard risk and margin hypotheses: claim
// frequency across provinces and postal codes, margin across postal codes,
// and the gender and tracking device comparisons.
func DefaultSuite() []Request {
	binaryGender := []string{"Female", "Male"}
	return []Request{
		{Name: "province_claim_frequency", Feature: policy.ColProvince, Metric: policy.ColHasClaim, Method: significance.MethodANOVA},
		{Name: "zipcode_claim_frequency", Feature: policy.ColZipCode, Metric: policy.ColHasClaim, Method: significance.MethodANOVA},
		{Name: "zipcode_margin", Feature: policy.ColZipCode, Metric: policy.ColMargin, Method: significance.MethodANOVA},
		{Name: "gender_claim_frequency", Feature: policy.ColGender, Metric: policy.ColHasClaim, Method: significance.MethodWelch, Segments: binaryGender},
		{Name: "tracking_device_claims", Feature: policy.ColTrackingDevice, Metric: policy.ColHasClaim, Method: significance.MethodChiSquare},
		{Name: "tracking_device_claim_severity", Feature: policy.ColTrackingDevice, Metric: policy.ColClaimSeverity, Method: significance.MethodWelch},
		{Name: "tracking_device_margin", Feature: policy.ColTrackingDevice, Metric: policy.ColMargin, Method: significance.MethodWelch},
		{Name: "gender_claims", Feature: policy.ColGender, Metric: policy.ColHasClaim, Method: significance.MethodChiSquare},
		{Name: "gender_claim_severity", Feature: policy.ColGender, Metric: policy.ColClaimSeverity, Method: significance.MethodWelch, Segments: binaryGender},
		{Name: "gender_margin", Feature: policy.ColGender, Metric: policy.ColMargin, Method: significance.MethodWelch, Segments: binaryGender},
	}
}

// SuiteFailure records a request that could not be tested
type SuiteFailure struct {
	Request Request `json:"request"`
	Error   string  `json:"error"`
	// Precondition is true when the data could not support the test, as
	// opposed to a bad column or metric type.
	Precondition bool `json:"precondition"`
}

// SuiteReport collects the outcome of a batch of requests
type SuiteReport struct {
	RunID     core.RunID     `json:"run_id"`
	Alpha     float64        `json:"alpha"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
	Results   []*Result      `json:"results"`
	Failures  []SuiteFailure `json:"failures,omitempty"`
}

// Rejected returns the results whose null hypothesis was rejected
func (r *SuiteReport) Rejected() []*Result {
	var out []*Result
	for _, res := range r.Results {
		if res.Rejected() {
			out = append(out, res)
		}
	}
	return out
}

// RunSuite runs every request in order. A failing request is recorded and
// the rest still run.
func (t *Tester) RunSuite(tbl *policy.Table, reqs []Request) *SuiteReport {
	report := &SuiteReport{
		RunID:     core.NewRunID(),
		Alpha:     t.config.Alpha,
		StartedAt: time.Now(),
	}
	logger := t.logger.With(zap.String("run_id", report.RunID.String()))

	for _, req := range reqs {
		res, err := t.Run(tbl, req)
		if err != nil {
			logger.Warn("suite test failed", zap.String("test", req.Label()), zap.Error(err))
			report.Failures = append(report.Failures, SuiteFailure{
				Request:      req,
				Error:        err.Error(),
				Precondition: core.IsPreconditionError(err),
			})
			continue
		}
		report.Results = append(report.Results, res)
	}

	report.Duration = time.Since(report.StartedAt)
	logger.Info("suite finished",
		zap.Int("tests", len(report.Results)),
		zap.Int("failures", len(report.Failures)),
		zap.Int("rejected", len(report.Rejected())),
		zap.Duration("duration", report.Duration))
	return report
}
