package control

import "time"

// Type identifies the kind of widget a control renders as.
type Type string

// Control types supported by the panel UI.
const (
	TypeSlider Type = "slider"
	TypeSwitch Type = "switch"
	TypeButton Type = "button"
	TypeLabel  Type = "label"
)

// IsValid reports whether the type is one of the supported widget kinds.
func (t Type) IsValid() bool {
	switch t {
	case TypeSlider, TypeSwitch, TypeButton, TypeLabel:
		return true
	}
	return false
}

// Default slider range. Matches the percent model the range slider
// widget renders.
const (
	DefaultMin = 0
	DefaultMax = 100
)

// Control is a single element of the panel control surface.
type Control struct {
	// ID is the numeric identifier used in wire frames and topics.
	ID int `json:"id"`

	// Type selects the widget the panel renders.
	Type Type `json:"type"`

	// Label is the human-readable caption shown next to the widget.
	Label string `json:"label"`

	// Value is the current value. Interpretation depends on Type.
	Value float64 `json:"value"`

	// Min and Max bound slider values. Unused for other types.
	Min float64 `json:"min"`
	Max float64 `json:"max"`

	// CreatedAt and UpdatedAt are set by the repository.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a copy of the control. Controls hold no reference
// types, so a value copy is a full copy; the method exists so cache
// code reads the same as elsewhere in the codebase.
func (c *Control) Clone() *Control {
	clone := *c
	return &clone
}
