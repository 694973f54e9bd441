package solve

import (
	"log/slog"
	"math"
)

// ConvergenceConfig defines when a depth ramp stops adding layers
type ConvergenceConfig struct {
	// Enabled controls whether convergence detection is active
	Enabled bool

	// Patience is the number of consecutive depths with no significant
	// energy improvement before stopping
	Patience int

	// Threshold is the minimum relative improvement required to count as progress
	// Example: 0.001 = 0.1% improvement required
	// Relative improvement = (oldEnergy - newEnergy) / |oldEnergy|
	Threshold float64
}

// DefaultConvergenceConfig returns sensible defaults for convergence detection
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  2,
		Threshold: 0.001, // 0.1% improvement
	}
}

// DisabledConvergenceConfig returns a config with convergence detection disabled
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled: false,
	}
}

// minScale keeps the relative improvement finite when the reference energy is 0.
const minScale = 1e-12

// ConvergenceTracker tracks the energy reached at each depth and detects when
// extra layers stop paying off. Energies may be negative.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	best            float64 // Lowest energy ever seen
	lastSignificant float64 // Last energy that was a significant improvement
	staleCount      int     // Number of updates without significant improvement
}

// NewConvergenceTracker creates a new convergence tracker with the given config
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		best:            math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records a new energy and returns true if convergence is detected
func (c *ConvergenceTracker) Update(energy float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.history = append(c.history, energy)
	if energy < c.best {
		c.best = energy
	}

	if len(c.history) == 1 {
		c.lastSignificant = energy
		return false
	}

	improvement := (c.lastSignificant - energy) / math.Max(math.Abs(c.lastSignificant), minScale)
	if improvement >= c.config.Threshold {
		c.lastSignificant = energy
		c.staleCount = 0
		slog.Debug("Energy improvement detected",
			"energy", energy,
			"relative_improvement", improvement,
		)
		return false
	}

	c.staleCount++
	slog.Debug("No significant energy improvement",
		"energy", energy,
		"last_significant", c.lastSignificant,
		"relative_improvement", improvement,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)
	if c.staleCount >= c.config.Patience {
		slog.Info("Convergence detected - stopping early",
			"stale_count", c.staleCount,
			"patience", c.config.Patience,
			"best_energy", c.best,
		)
		return true
	}
	return false
}

// Best returns the lowest energy seen so far
func (c *ConvergenceTracker) Best() float64 {
	return c.best
}

// History returns the full energy history
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the current number of updates without improvement
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker's state
func (c *ConvergenceTracker) Reset() {
	c.history = nil
	c.best = math.Inf(1)
	c.lastSignificant = math.Inf(1)
	c.staleCount = 0
}
