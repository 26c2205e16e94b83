package mqtt

import (
	"fmt"
	"net/url"
	"strings"
)

// TopicPrefix is the root of every hub topic.
//
// Device topics use the scheme smarthub/{category}/{home}/{room}/{device},
// with each name escaped by EscapeSegment.
const TopicPrefix = "smarthub"

// Topic categories under TopicPrefix.
const (
	CategoryState   = "state"
	CategoryCommand = "command"
	CategoryAck     = "ack"
	CategorySystem  = "system"
)

// segmentEscaper encodes characters that would change the topic structure.
// '%' goes first so escaped output can be reversed with url.PathUnescape.
var segmentEscaper = strings.NewReplacer(
	"%", "%25",
	"/", "%2F",
	"+", "%2B",
	"#", "%23",
	"\x00", "%00",
)

// EscapeSegment encodes a home, room or device name for use as a single
// topic level. Names are otherwise kept readable ("Little Home" stays as is).
func EscapeSegment(name string) string {
	return segmentEscaper.Replace(name)
}

// UnescapeSegment reverses EscapeSegment.
func UnescapeSegment(segment string) (string, error) {
	name, err := url.PathUnescape(segment)
	if err != nil {
		return "", fmt.Errorf("%w: segment %q: %w", ErrInvalidTopic, segment, err)
	}
	return name, nil
}

// Topics provides builders for hub MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.State("Little Home", "Kitchen", "Kettle")
//	// Returns: "smarthub/state/Little Home/Kitchen/Kettle"
type Topics struct{}

// deviceTopic joins a category with the escaped device path.
func deviceTopic(category, home, room, device string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", TopicPrefix, category,
		EscapeSegment(home), EscapeSegment(room), EscapeSegment(device))
}

// State returns the retained reading topic for a device.
//
// Example: smarthub/state/Little Home/Kitchen/Thermo
func (Topics) State(home, room, device string) string {
	return deviceTopic(CategoryState, home, room, device)
}

// Command returns the topic a socket listens on for on/off commands.
//
// Example: smarthub/command/Little Home/Kitchen/Kettle
func (Topics) Command(home, room, device string) string {
	return deviceTopic(CategoryCommand, home, room, device)
}

// Ack returns the topic command results are published to.
//
// Example: smarthub/ack/Little Home/Kitchen/Kettle
func (Topics) Ack(home, room, device string) string {
	return deviceTopic(CategoryAck, home, room, device)
}

// SystemStatus returns the system status topic (also used for the LWT).
//
// Example: smarthub/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/%s/status", TopicPrefix, CategorySystem)
}

// AllStates returns a pattern matching every device reading.
//
// Pattern: smarthub/state/+/+/+
func (Topics) AllStates() string {
	return fmt.Sprintf("%s/%s/+/+/+", TopicPrefix, CategoryState)
}

// AllCommands returns a pattern matching every device command.
//
// Pattern: smarthub/command/+/+/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/%s/+/+/+", TopicPrefix, CategoryCommand)
}

// AllAcks returns a pattern matching every command acknowledgement.
//
// Pattern: smarthub/ack/+/+/+
func (Topics) AllAcks() string {
	return fmt.Sprintf("%s/%s/+/+/+", TopicPrefix, CategoryAck)
}

// AllTopics returns a pattern matching all hub topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: smarthub/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// DeviceTopic is a parsed smarthub/{category}/{home}/{room}/{device} topic.
type DeviceTopic struct {
	Category string
	Home     string
	Room     string
	Device   string
}

// ParseDeviceTopic splits a device topic into its unescaped parts.
//
// Returns:
//   - DeviceTopic: The category and names carried by the topic
//   - error: ErrInvalidTopic if the topic is not a hub device topic
func ParseDeviceTopic(topic string) (DeviceTopic, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != TopicPrefix {
		return DeviceTopic{}, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	names := make([]string, 0, 3)
	for _, segment := range parts[2:] {
		if segment == "" {
			return DeviceTopic{}, fmt.Errorf("%w: %q has an empty level", ErrInvalidTopic, topic)
		}
		name, err := UnescapeSegment(segment)
		if err != nil {
			return DeviceTopic{}, err
		}
		names = append(names, name)
	}

	return DeviceTopic{
		Category: parts[1],
		Home:     names[0],
		Room:     names[1],
		Device:   names[2],
	}, nil
}
