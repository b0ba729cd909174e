// Package trust computes trust scores for agents from observed behavior
// dimensions. Scoring is a pure function over its inputs: no clocks other
// than the stamped timestamp, no stored state, no I/O, so identical inputs
// always produce identical composites and levels.
package trust

import (
	"fmt"
	"time"
)

// Dimensions are the rated behavior axes, each in [0, 100].
type Dimensions struct {
	// Competence rates task outcome quality.
	Competence float64 `json:"competence"`
	// Reliability rates consistency across runs.
	Reliability float64 `json:"reliability"`
	// Integrity rates policy and constraint adherence.
	Integrity float64 `json:"integrity"`
}

// Validate checks that every dimension lies in [0, 100].
func (d Dimensions) Validate() error {
	for _, dim := range []struct {
		name  string
		value float64
	}{
		{"competence", d.Competence},
		{"reliability", d.Reliability},
		{"integrity", d.Integrity},
	} {
		if dim.value < 0 || dim.value > 100 {
			return &DimensionError{Dimension: dim.name, Value: dim.value}
		}
	}
	return nil
}

// DimensionError reports a dimension outside [0, 100].
type DimensionError struct {
	Dimension string
	Value     float64
}

// Error implements the error interface.
func (e *DimensionError) Error() string {
	return fmt.Sprintf("trust dimension %q is %g; must be within [0, 100]", e.Dimension, e.Value)
}

// Level is the discrete trust band derived from the composite score.
type Level string

// Trust levels, ordered from least to most trusted.
const (
	Untrusted Level = "UNTRUSTED"
	Low       Level = "LOW"
	Medium    Level = "MEDIUM"
	High      Level = "HIGH"
	Verified  Level = "VERIFIED"
)

// Level breakpoints on the composite score. A composite below a breakpoint
// falls into the band beneath it.
const (
	untrustedBelow = 20.0
	lowBelow       = 40.0
	mediumBelow    = 70.0
	highBelow      = 90.0
)

// LevelFor maps a composite score to its trust band.
func LevelFor(composite float64) Level {
	switch {
	case composite < untrustedBelow:
		return Untrusted
	case composite < lowBelow:
		return Low
	case composite < mediumBelow:
		return Medium
	case composite < highBelow:
		return High
	default:
		return Verified
	}
}

// TrustScore is one scoring result for one agent at one point in time.
type TrustScore struct {
	AgentID    string     `json:"agent_id"`
	Dimensions Dimensions `json:"dimensions"`
	Composite  float64    `json:"composite"`
	Level      Level      `json:"level"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Score validates dims and derives the composite and level for agentID.
// The composite is the unweighted arithmetic mean of the three dimensions.
func Score(agentID string, dims Dimensions) (TrustScore, error) {
	if agentID == "" {
		return TrustScore{}, fmt.Errorf("agent_id is required")
	}
	if err := dims.Validate(); err != nil {
		return TrustScore{}, err
	}

	composite := (dims.Competence + dims.Reliability + dims.Integrity) / 3
	return TrustScore{
		AgentID:    agentID,
		Dimensions: dims,
		Composite:  composite,
		Level:      LevelFor(composite),
		Timestamp:  time.Now().UTC(),
	}, nil
}
