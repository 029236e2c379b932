package control

import (
	"fmt"
	"strings"
)

// Validation constants.
const (
	maxLabelLength = 100
)

// Validate performs validation on a control definition.
// Returns an error describing the first validation failure found.
func Validate(c *Control) error {
	if c == nil {
		return ErrInvalidControl
	}

	if !c.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}

	label := strings.TrimSpace(c.Label)
	if label == "" {
		return fmt.Errorf("%w: label is required", ErrInvalidControl)
	}
	if len(label) > maxLabelLength {
		return fmt.Errorf("%w: label exceeds %d characters", ErrInvalidControl, maxLabelLength)
	}

	if c.Type == TypeSlider && c.Min > c.Max {
		return fmt.Errorf("%w: min %g greater than max %g", ErrInvalidControl, c.Min, c.Max)
	}

	return nil
}

// Normalize fills in defaults: an unset slider range becomes the
// standard percent range, and the initial value is brought into range.
func Normalize(c *Control) {
	if c.Type == TypeSlider && c.Min == 0 && c.Max == 0 {
		c.Min = DefaultMin
		c.Max = DefaultMax
	}
	c.Value = ClampValue(c, c.Value)
}

// ClampValue brings a proposed value into the legal range for the
// control's type. Out-of-range input is clamped rather than rejected;
// panels send raw pointer positions and the edges are valid intents.
func ClampValue(c *Control, value float64) float64 {
	switch c.Type {
	case TypeSlider:
		if value < c.Min {
			return c.Min
		}
		if value > c.Max {
			return c.Max
		}
		return value
	case TypeSwitch, TypeButton:
		if value != 0 {
			return 1
		}
		return 0
	default:
		return value
	}
}
