package control

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// Command names accepted in the "command" field.
const (
	CommandOn  = "on"
	CommandOff = "off"
)

// Command is a parsed command payload.
type Command struct {
	Name      string
	RequestID string
}

// ParseCommand reads a command payload.
//
// Returns:
//   - Command: The command name and optional request id
//   - error: ErrInvalidCommand for malformed JSON or an unknown command
func ParseCommand(payload []byte) (Command, error) {
	if !gjson.ValidBytes(payload) {
		return Command{}, fmt.Errorf("%w: payload is not valid JSON", ErrInvalidCommand)
	}

	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return Command{}, fmt.Errorf("%w: payload is not an object", ErrInvalidCommand)
	}

	cmd := Command{RequestID: root.Get("request_id").String()}

	result := root.Get("command")
	if !result.Exists() {
		return cmd, fmt.Errorf("%w: missing command", ErrInvalidCommand)
	}

	switch name := result.String(); name {
	case CommandOn, CommandOff:
		cmd.Name = name
	default:
		return cmd, fmt.Errorf("%w: unknown command %q", ErrInvalidCommand, name)
	}
	return cmd, nil
}
