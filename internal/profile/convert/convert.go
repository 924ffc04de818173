// Package convert implements the profile data conversion pipeline: an
// ordered chain of buffer transforms that turns raw dual-band sensor output
// into calibrated, flat, invalid-marked 3D point data.
//
// A Stage consumes a profile.Data and produces a profile.Data. Stages that
// change the buffer type or layout write into scratch buffers allocated once
// at construction and reused every call; stages that only operate on values
// mutate the input planes in place. Either way a Stage is not safe for
// concurrent or overlapping invocation, and its result must not be retained
// past the next Convert call on the same chain. The acquisition loop calls
// Convert once per frame, to completion, which guarantees exclusive access.
//
// Convert never fails at runtime: shape mismatches and nil calibrations are
// configuration defects rejected by the stage constructors, and an invalid
// sensor reading is in-band data (the validity mask), not an error.
package convert

import "github.com/scanline-data/profile.scan/internal/profile"

// Stage is one link of the conversion pipeline.
type Stage interface {
	// Convert transforms the buffer. The result may alias the input planes
	// (value-only stages) or the stage's internal scratch buffers.
	Convert(d profile.Data) profile.Data
}

// Chain applies its stages in order. It owns the stages; build it once at
// setup time and never mutate it during frame processing. An empty or nil
// chain is the identity transform.
type Chain struct {
	stages []Stage
}

// NewChain builds a chain that applies the given stages first to last.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// Append returns a chain extended with more stages. The receiver may be nil.
func (c *Chain) Append(stages ...Stage) *Chain {
	if c == nil {
		return NewChain(stages...)
	}
	return &Chain{stages: append(append([]Stage{}, c.stages...), stages...)}
}

// Len returns the number of stages in the chain.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Convert runs the buffer through every stage in order.
func (c *Chain) Convert(d profile.Data) profile.Data {
	if c == nil {
		return d
	}
	for _, s := range c.stages {
		d = s.Convert(d)
	}
	return d
}
