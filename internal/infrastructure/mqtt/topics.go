package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// Topic prefixes for the Ember UI MQTT surface.
//
// The hierarchy is deliberately small: retained state per control,
// inbound commands per control, and a system status topic carrying
// the LWT.
const (
	// TopicPrefix is the base for all Ember UI topics.
	TopicPrefix = "emberui"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "emberui/system"
)

// Topics provides builders for Ember UI MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ControlState(4)
//	// Returns: "emberui/state/4"
type Topics struct{}

// ControlState returns the retained state topic for a control.
//
// Example: emberui/state/4
func (Topics) ControlState(id int) string {
	return fmt.Sprintf("%s/state/%d", TopicPrefix, id)
}

// ControlCommand returns the inbound command topic for a control.
// External automation publishes here to move a control.
//
// Example: emberui/command/4
func (Topics) ControlCommand(id int) string {
	return fmt.Sprintf("%s/command/%d", TopicPrefix, id)
}

// SystemStatus returns the system status topic. Online/offline payloads
// and the LWT are published here, retained.
//
// Example: emberui/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllControlStates returns a pattern matching every control state topic.
//
// Pattern: emberui/state/+
func (Topics) AllControlStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllControlCommands returns a pattern matching every control command topic.
//
// Pattern: emberui/command/+
func (Topics) AllControlCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Ember UI topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: emberui/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// ControlIDFromTopic extracts the numeric control ID from a state or
// command topic. Subscription handlers receive expanded topics, so the
// last segment is always a concrete ID.
//
// Returns:
//   - int: The control ID
//   - error: If the topic does not end in a numeric segment
func ControlIDFromTopic(topic string) (int, error) {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 || idx == len(topic)-1 {
		return 0, fmt.Errorf("%w: no ID segment in %q", ErrInvalidTopic, topic)
	}
	id, err := strconv.Atoi(topic[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric ID in %q", ErrInvalidTopic, topic)
	}
	return id, nil
}
