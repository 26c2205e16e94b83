package mqtt

import (
	"errors"
	"testing"
)

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"State", topics.State("Little Home", "Kitchen", "Thermo"), "smarthub/state/Little Home/Kitchen/Thermo"},
		{"Command", topics.Command("Home", "Kitchen", "Kettle"), "smarthub/command/Home/Kitchen/Kettle"},
		{"Ack", topics.Ack("Home", "Kitchen", "Kettle"), "smarthub/ack/Home/Kitchen/Kettle"},
		{"SystemStatus", topics.SystemStatus(), "smarthub/system/status"},
		{"AllStates", topics.AllStates(), "smarthub/state/+/+/+"},
		{"AllCommands", topics.AllCommands(), "smarthub/command/+/+/+"},
		{"AllAcks", topics.AllAcks(), "smarthub/ack/+/+/+"},
		{"AllTopics", topics.AllTopics(), "smarthub/#"},
		{"escaped", topics.State("a/b", "c+d", "e#f"), "smarthub/state/a%2Fb/c%2Bd/e%23f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestEscapeSegmentRoundtrip(t *testing.T) {
	names := []string{"Kitchen", "Little Home", "a/b", "50%", "+#", "Café", "%2F"}

	for _, name := range names {
		got, err := UnescapeSegment(EscapeSegment(name))
		if err != nil {
			t.Errorf("UnescapeSegment(EscapeSegment(%q)) error = %v", name, err)
			continue
		}
		if got != name {
			t.Errorf("roundtrip %q = %q", name, got)
		}
	}
}

func TestParseDeviceTopic(t *testing.T) {
	topic := Topics{}.Command("Little Home", "a/b", "50%")

	got, err := ParseDeviceTopic(topic)
	if err != nil {
		t.Fatalf("ParseDeviceTopic(%q) error = %v", topic, err)
	}

	want := DeviceTopic{Category: CategoryCommand, Home: "Little Home", Room: "a/b", Device: "50%"}
	if got != want {
		t.Errorf("ParseDeviceTopic() = %+v, want %+v", got, want)
	}
}

func TestParseDeviceTopicInvalid(t *testing.T) {
	invalid := []string{
		"",
		"smarthub/system/status",
		"other/command/a/b/c",
		"smarthub/command/a/b/c/d",
		"smarthub/command/a//c",
		"smarthub/command/a/b/%zz",
	}

	for _, topic := range invalid {
		if _, err := ParseDeviceTopic(topic); !errors.Is(err, ErrInvalidTopic) {
			t.Errorf("ParseDeviceTopic(%q) error = %v, want ErrInvalidTopic", topic, err)
		}
	}
}
