package store

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// JobConfig records how a run was started, so a resume can check it is
// continuing the same problem. InstancePath is only where resume looks by
// default; Fingerprint identifies the weighted graph itself.
type JobConfig struct {
	InstancePath string `json:"instancePath"`
	Fingerprint  string `json:"fingerprint,omitempty"`
	Format       string `json:"format"`
	NumQubits    int    `json:"numQubits"`
	MaxDepth     int    `json:"maxDepth"`
	Strategy     string `json:"strategy"` // fixed, interp
	Optimizer    string `json:"optimizer"`
	Iters        int    `json:"iters"`
	PopSize      int    `json:"popSize,omitempty"`
	Seed         int64  `json:"seed"`
}

// Checkpoint is the best angle vector found by a run.
//
// Only the angles are saved, never optimizer internals. A resume rebuilds
// the circuit from the instance and refines from BestAngles, so the energy it
// reports can only match or improve on BestEnergy.
type Checkpoint struct {
	JobID string `json:"jobId"`

	// BestAngles is (γ1, β1, …, γp, βp) for p = Depth.
	BestAngles []float64 `json:"bestAngles"`

	// BestEnergy is the cost expectation at BestAngles.
	BestEnergy float64 `json:"bestEnergy"`

	// InitialEnergy is the cost expectation of the initial state.
	InitialEnergy float64 `json:"initialEnergy"`

	Depth       int `json:"depth"`
	Evaluations int `json:"evaluations"`

	// MaxCut is the exact optimum of the instance, 0 if unknown.
	MaxCut float64 `json:"maxCut,omitempty"`

	Timestamp time.Time `json:"timestamp"`
	Config    JobConfig `json:"config"`
}

// CheckpointInfo is the checkpoint metadata shown by listings.
type CheckpointInfo struct {
	JobID        string    `json:"jobId"`
	BestEnergy   float64   `json:"bestEnergy"`
	Ratio        float64   `json:"ratio,omitempty"`
	Depth        int       `json:"depth"`
	Timestamp    time.Time `json:"timestamp"`
	Strategy     string    `json:"strategy"`
	NumQubits    int       `json:"numQubits"`
	InstancePath string    `json:"instancePath"`
}

// NewCheckpoint creates a timestamped checkpoint. The angles are copied.
func NewCheckpoint(jobID string, angles []float64, bestEnergy, initialEnergy float64, evaluations int, config JobConfig) *Checkpoint {
	return &Checkpoint{
		JobID:         jobID,
		BestAngles:    append([]float64(nil), angles...),
		BestEnergy:    bestEnergy,
		InitialEnergy: initialEnergy,
		Depth:         len(angles) / 2,
		Evaluations:   evaluations,
		Timestamp:     time.Now(),
		Config:        config,
	}
}

// Ratio returns the approximation ratio -BestEnergy/MaxCut, or 0 when the
// maximum cut is unknown.
func (c *Checkpoint) Ratio() float64 {
	if c.MaxCut <= 0 {
		return 0
	}
	return -c.BestEnergy / c.MaxCut
}

// ToInfo converts a full Checkpoint to CheckpointInfo (metadata only).
func (c *Checkpoint) ToInfo() CheckpointInfo {
	return CheckpointInfo{
		JobID:        c.JobID,
		BestEnergy:   c.BestEnergy,
		Ratio:        c.Ratio(),
		Depth:        c.Depth,
		Timestamp:    c.Timestamp,
		Strategy:     c.Config.Strategy,
		NumQubits:    c.Config.NumQubits,
		InstancePath: c.Config.InstancePath,
	}
}

// Validate checks the checkpoint is internally consistent.
func (c *Checkpoint) Validate() error {
	switch {
	case c.JobID == "":
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	case c.Depth < 1:
		return &ValidationError{Field: "Depth", Reason: "must be positive"}
	case len(c.BestAngles) != 2*c.Depth:
		return &ValidationError{
			Field:  "BestAngles",
			Reason: fmt.Sprintf("length mismatch: expected %d angles for depth %d, got %d", 2*c.Depth, c.Depth, len(c.BestAngles)),
		}
	case math.IsNaN(c.BestEnergy) || math.IsInf(c.BestEnergy, 0):
		return &ValidationError{Field: "BestEnergy", Reason: "must be finite"}
	case c.Evaluations < 0:
		return &ValidationError{Field: "Evaluations", Reason: "cannot be negative"}
	case c.Timestamp.IsZero():
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	case c.Config.InstancePath == "":
		return &ValidationError{Field: "Config.InstancePath", Reason: "cannot be empty"}
	case c.Config.NumQubits <= 0:
		return &ValidationError{Field: "Config.NumQubits", Reason: "must be positive"}
	case c.Config.Optimizer == "":
		return &ValidationError{Field: "Config.Optimizer", Reason: "cannot be empty"}
	case c.Config.Iters <= 0:
		return &ValidationError{Field: "Config.Iters", Reason: "must be positive"}
	}
	for i, a := range c.BestAngles {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return &ValidationError{Field: "BestAngles", Reason: fmt.Sprintf("angle %d is not finite", i)}
		}
	}
	return nil
}

// ValidationError represents a checkpoint validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}

// IsCompatible checks that config describes the same instance as the
// checkpoint. Instances are matched by fingerprint, so a moved copy is
// compatible and a file rewritten in place is not. Checkpoints written
// without a fingerprint fall back to the instance path. Optimizer settings
// may differ between runs.
func (c *Checkpoint) IsCompatible(config JobConfig) error {
	if c.Config.NumQubits != config.NumQubits {
		return &CompatibilityError{
			Field:    "NumQubits",
			Expected: strconv.Itoa(c.Config.NumQubits),
			Actual:   strconv.Itoa(config.NumQubits),
		}
	}
	if c.Config.Fingerprint != "" {
		if c.Config.Fingerprint != config.Fingerprint {
			return &CompatibilityError{
				Field:    "Fingerprint",
				Expected: c.Config.Fingerprint,
				Actual:   config.Fingerprint,
			}
		}
		return nil
	}
	if c.Config.InstancePath != config.InstancePath {
		return &CompatibilityError{
			Field:    "InstancePath",
			Expected: c.Config.InstancePath,
			Actual:   config.InstancePath,
		}
	}
	return nil
}

// CompatibilityError represents a checkpoint compatibility error.
type CompatibilityError struct {
	Field    string
	Expected string
	Actual   string
}

func (e *CompatibilityError) Error() string {
	return "compatibility error: " + e.Field + " mismatch (expected " + e.Expected + ", got " + e.Actual + ")"
}
