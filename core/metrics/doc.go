// Package metrics provides the counter sink used by pipeline components
// for observability.
//
// Components never mutate global counters; they receive a Sink and report
// events through it. The in-memory Counters implementation backs the
// end-of-run summary and tests; the Prometheus implementation exposes the
// same counters for scraping.
package metrics
