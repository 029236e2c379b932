package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/ember-ui/internal/control"
)

// Legacy frame opcodes. The stock panel widgets speak a colon-separated
// text protocol over the WebSocket: "<op>:<value>:<id>".
//
//	slvalue:75:4   slider 4 moved to 75
//	svalue:1:2     switch 2 turned on
//	bdown:1:7      button 7 pressed
//	bup:0:7        button 7 released
const (
	frameSlider     = "slvalue"
	frameSwitch     = "svalue"
	frameButtonDown = "bdown"
	frameButtonUp   = "bup"
)

// frame is a decoded legacy text frame.
type frame struct {
	Op    string
	Value float64
	ID    int
}

// isLegacyFrame reports whether data looks like a legacy text frame
// rather than a JSON message. JSON messages always start with '{'.
func isLegacyFrame(data []byte) bool {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return false
		default:
			return true
		}
	}
	return false
}

// parseFrame decodes a legacy text frame.
//
// Returns:
//   - frame: The decoded opcode, value and control ID
//   - error: If the frame is malformed or carries an unknown opcode
func parseFrame(data []byte) (frame, error) {
	parts := strings.Split(strings.TrimSpace(string(data)), ":")
	if len(parts) != 3 {
		return frame{}, fmt.Errorf("malformed frame %q: want op:value:id", data)
	}

	op := parts[0]
	switch op {
	case frameSlider, frameSwitch, frameButtonDown, frameButtonUp:
	default:
		return frame{}, fmt.Errorf("unknown frame opcode %q", op)
	}

	value, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return frame{}, fmt.Errorf("frame value %q is not numeric", parts[1])
	}

	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return frame{}, fmt.Errorf("frame control ID %q is not numeric", parts[2])
	}

	return frame{Op: op, Value: value, ID: id}, nil
}

// encodeFrame renders a control's current state as the legacy frame the
// stock widgets expect for that control type.
func encodeFrame(c *control.Control) []byte {
	op := frameSwitch
	switch c.Type {
	case control.TypeSlider:
		op = frameSlider
	case control.TypeButton:
		if c.Value != 0 {
			op = frameButtonDown
		} else {
			op = frameButtonUp
		}
	}

	value := strconv.FormatFloat(c.Value, 'f', -1, 64)
	return []byte(op + ":" + value + ":" + strconv.Itoa(c.ID))
}
