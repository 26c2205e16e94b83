package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"command":"on","request_id":"r-1"}`))
	require.NoError(t, err)
	assert.Equal(t, Command{Name: CommandOn, RequestID: "r-1"}, cmd)

	cmd, err = ParseCommand([]byte(`{"command":"off","extra":[1,2]}`))
	require.NoError(t, err)
	assert.Equal(t, CommandOff, cmd.Name)
}

func TestParseCommand_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `on`},
		{"truncated", `{"command":`},
		{"array", `["on"]`},
		{"missing command", `{"request_id":"x"}`},
		{"unknown command", `{"command":"toggle"}`},
		{"wrong case", `{"command":"ON"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrInvalidCommand)
		})
	}
}

func TestParseCommand_KeepsRequestIDOnError(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"command":"toggle","request_id":"r-9"}`))
	require.Error(t, err)
	assert.Equal(t, "r-9", cmd.RequestID)
}
