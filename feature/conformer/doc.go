// Package conformer serves read access to persisted pipeline results: the
// per-conformer outcomes, per-topology summaries, and run stat tables a
// pipeline run writes through the sink package. The heavy lifting lives in
// the subpackages; this package is only the HTTP query surface.
package conformer
