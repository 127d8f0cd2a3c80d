package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("/open 42")
	require.NoError(t, err)
	assert.Equal(t, "open", cmd.Name)
	assert.Equal(t, []string{"42"}, cmd.Args)

	cmd, err = ParseCommand("  /send hello there  ")
	require.NoError(t, err)
	assert.Equal(t, "send", cmd.Name)
	assert.Equal(t, []string{"hello", "there"}, cmd.Args)

	cmd, err = ParseCommand("/status")
	require.NoError(t, err)
	assert.Equal(t, "status", cmd.Name)
	assert.Empty(t, cmd.Args)
}

func TestParseCommandRejectsBadInput(t *testing.T) {
	_, err := ParseCommand("")
	assert.Error(t, err)

	_, err = ParseCommand("   ")
	assert.Error(t, err)

	_, err = ParseCommand("open 42")
	assert.Error(t, err)
}

func TestParamsToArgs(t *testing.T) {
	cli := &HeadlessCLI{}

	tests := []struct {
		name    string
		command string
		params  map[string]interface{}
		want    []string
	}{
		{
			name:    "login",
			command: "login",
			params:  map[string]interface{}{"user_id": "alice", "password": "secret"},
			want:    []string{"alice", "secret"},
		},
		{
			name:    "open room id is numeric",
			command: "open",
			params:  map[string]interface{}{"room_id": float64(42)},
			want:    []string{"42"},
		},
		{
			name:    "send keeps text as one arg",
			command: "send",
			params:  map[string]interface{}{"text": "hello there"},
			want:    []string{"hello there"},
		},
		{
			name:    "search with limit",
			command: "search",
			params:  map[string]interface{}{"query": "hello", "limit": float64(5)},
			want:    []string{"hello", "5"},
		},
		{
			name:    "history without params",
			command: "history",
			params:  nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cli.paramsToArgs(tt.command, tt.params))
		})
	}
}
