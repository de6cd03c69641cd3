// Package models defines the canonical conformer record and its
// sub-structures: bond topologies, geometries, the property map with
// visibility tiers, the fixed error-code struct with its per-field
// polarity rules, the fate classification enum, and the per-topology
// summary counters.
//
// Records use value semantics throughout the pipeline: every stage clones
// what it mutates, so the surrounding runtime may re-execute any unit of
// work without corrupting results.
package models
