package models

// ErrorCodes is the fixed set of named status codes carried by every
// conformer. The "no error" sentinel differs per field and is preserved
// exactly as the legacy computations emit it:
//
//   - Nstat1, NstatC, NstatT, Frequencies report 1 on success (zero is an
//     error for these, not the default-success most fields use).
//   - Nstat1 additionally treats 3 as success. This is a legacy quirk of
//     the upstream geometry optimizer, not a bug to fix.
//   - RotationalModes, AtomicAnalysis, Nsvg09 report 0 on success.
//
// The polarity rules live in ErrorFields so they are declared once and
// tested exhaustively instead of being scattered through conditionals.
type ErrorCodes struct {
	Nstat1          int `json:"error_nstat1"`
	NstatC          int `json:"error_nstatc"`
	NstatT          int `json:"error_nstatt"`
	Frequencies     int `json:"error_frequencies"`
	RotationalModes int `json:"error_rotational_modes"`
	AtomicAnalysis  int `json:"error_atomic_analysis"`
	Nsvg09          int `json:"error_nsvg09"`

	// MergeConflicts records human-readable notes for numeric conflicts
	// detected while merging this record's sources.
	MergeConflicts []string `json:"error_during_merging,omitempty"`
}

// ErrorField describes one named status code: how to read it and what value
// range counts as success.
type ErrorField struct {
	Name string
	Get  func(ErrorCodes) int
	OK   func(int) bool
}

// ErrorFields lists every status code in declaration order. Stats emission
// iterates this so zero values are reported too.
var ErrorFields = []ErrorField{
	{"error_nstat1", func(e ErrorCodes) int { return e.Nstat1 },
		// 3 is success despite being non-default; see type comment.
		func(v int) bool { return v == 1 || v == 3 }},
	{"error_nstatc", func(e ErrorCodes) int { return e.NstatC },
		func(v int) bool { return v == 1 }},
	{"error_nstatt", func(e ErrorCodes) int { return e.NstatT },
		func(v int) bool { return v == 1 }},
	{"error_frequencies", func(e ErrorCodes) int { return e.Frequencies },
		func(v int) bool { return v == 1 }},
	{"error_rotational_modes", func(e ErrorCodes) int { return e.RotationalModes },
		func(v int) bool { return v == 0 }},
	{"error_atomic_analysis", func(e ErrorCodes) int { return e.AtomicAnalysis },
		func(v int) bool { return v == 0 }},
	{"error_nsvg09", func(e ErrorCodes) int { return e.Nsvg09 },
		func(v int) bool { return v == 0 }},
}

// NewStageErrorCodes returns the codes a clean stage record carries: the
// inverted-polarity fields start at their success value.
func NewStageErrorCodes() ErrorCodes {
	return ErrorCodes{Nstat1: 1, NstatC: 1, NstatT: 1, Frequencies: 1}
}

// HasFault reports whether any status code signals a failure under the
// per-field polarity rules.
func (e ErrorCodes) HasFault() bool {
	for _, f := range ErrorFields {
		if !f.OK(f.Get(e)) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (e ErrorCodes) Clone() ErrorCodes {
	out := e
	out.MergeConflicts = append([]string(nil), e.MergeConflicts...)
	return out
}
