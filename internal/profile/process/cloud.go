package process

import (
	"sync"

	"github.com/google/uuid"
)

// Batch is one labeled set of 3D samples appended to the cloud, typically
// the points of one acquired frame. The coordinate slices are copies; the
// cloud never aliases conversion scratch buffers.
type Batch struct {
	Label string
	X     []float64
	Y     []float64
	Z     []float64
}

// Cloud is the append-only point-cloud container backing depth-map
// extraction. Prior frames' points are never removed or replaced; the
// accumulated set only grows. The depth-map processor is the sole writer;
// the mutex exists for read-only display consumers on other goroutines.
type Cloud struct {
	mu      sync.RWMutex
	batches []Batch
	points  int
}

// NewCloud creates an empty container.
func NewCloud() *Cloud { return &Cloud{} }

// Append copies one frame's samples into the cloud under a fresh label and
// returns the label.
func (c *Cloud) Append(x, y, z []float64) string {
	b := Batch{
		Label: uuid.New().String(),
		X:     append([]float64(nil), x...),
		Y:     append([]float64(nil), y...),
		Z:     append([]float64(nil), z...),
	}
	c.mu.Lock()
	c.batches = append(c.batches, b)
	c.points += len(b.X)
	c.mu.Unlock()
	return b.Label
}

// Len returns the total number of accumulated samples.
func (c *Cloud) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.points
}

// NumBatches returns the number of appended batches.
func (c *Cloud) NumBatches() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.batches)
}

// Walk calls fn for every accumulated sample. Iteration order is batch
// append order; fn must not retain the slices it is handed.
func (c *Cloud) Walk(fn func(x, y, z float64)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, b := range c.batches {
		for i := range b.X {
			fn(b.X[i], b.Y[i], b.Z[i])
		}
	}
}
