package model

import "time"

// Outcome is the overall status of one analysis run.
type Outcome string

const (
	// OutcomeSuccess means the run produced at least one candidate.
	OutcomeSuccess Outcome = "success"
	// OutcomeStaticOnly means the external run failed and only static results exist.
	OutcomeStaticOnly Outcome = "static-only"
	// OutcomeTimeout means the external run exceeded its budget and was killed.
	OutcomeTimeout Outcome = "timeout"
	// OutcomeInconclusive means the trace produced no candidates.
	OutcomeInconclusive Outcome = "inconclusive"
	// OutcomeInputError means the input could not be loaded.
	OutcomeInputError Outcome = "input-error"
)

// ExitCode maps an outcome to the process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeSuccess:
		return 0
	case OutcomeInputError:
		return 1
	case OutcomeTimeout:
		return 2
	case OutcomeInconclusive:
		return 3
	case OutcomeStaticOnly:
		return 4
	}

	return 1
}

// StaticString is a literal recovered from the source without running it.
type StaticString struct {
	Payload string `json:"payload" yaml:"payload"`
	Value   string `json:"value" yaml:"value"`
}

// Report is the result of analysing one source file.
type Report struct {
	ID             string          `json:"id" yaml:"id"`
	Source         Path            `json:"source" yaml:"source"`
	Instrumented   Path            `json:"instrumented,omitempty" yaml:"instrumented,omitempty"`
	Detection      DetectionResult `json:"detection" yaml:"detection"`
	Plan           InjectionPlan   `json:"plan" yaml:"plan"`
	StaticStrings  []StaticString  `json:"static_strings,omitempty" yaml:"static_strings,omitempty"`
	Candidates     []Candidate     `json:"candidates" yaml:"candidates"`
	Stats          Stats           `json:"stats" yaml:"stats"`
	Outcome        Outcome         `json:"outcome" yaml:"outcome"`
	ExecutionError string          `json:"execution_error,omitempty" yaml:"execution_error,omitempty"`
	TraceTail      []TraceEntry    `json:"trace_tail,omitempty" yaml:"trace_tail,omitempty"`
	Started        time.Time       `json:"started" yaml:"started"`
	Duration       time.Duration   `json:"duration" yaml:"duration"`
}

// Best returns the top ranked candidate.
func (r Report) Best() (Candidate, bool) {
	if len(r.Candidates) == 0 {
		return Candidate{}, false
	}

	return r.Candidates[0], true
}

var outcomeSeverity = map[Outcome]int{
	OutcomeSuccess:      0,
	OutcomeInconclusive: 1,
	OutcomeStaticOnly:   2,
	OutcomeTimeout:      3,
	OutcomeInputError:   4,
}

// WorstOutcome picks the most severe outcome of a batch. An empty batch is
// inconclusive.
func WorstOutcome(reports []Report) Outcome {
	if len(reports) == 0 {
		return OutcomeInconclusive
	}

	worst := OutcomeSuccess

	for _, r := range reports {
		if outcomeSeverity[r.Outcome] > outcomeSeverity[worst] {
			worst = r.Outcome
		}
	}

	return worst
}
