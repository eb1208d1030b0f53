package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takehaya/ixnrest/pkg/ixnrest"
)

func TestParseAssignments(t *testing.T) {
	attrs, err := parseAssignments([]string{"name=Port 1", "enabled=true", "mtu=9000", "ids=[1,2]", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":    "Port 1",
		"enabled": true,
		"mtu":     float64(9000),
		"ids":     []any{float64(1), float64(2)},
		"expr":    "a=b",
	}, attrs)

	_, err = parseAssignments([]string{"novalue"})
	assert.ErrorContains(t, err, "KEY=VALUE")
	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t,
		[]any{"/api/v1/sessions/1/ixnetwork/vport/1", map[string]any{"arg1": "10.0.0.1"}, false},
		parseArgs([]string{"/api/v1/sessions/1/ixnetwork/vport/1", `{"arg1":"10.0.0.1"}`, "false"}),
	)
}

func TestOperationRef(t *testing.T) {
	assert.Equal(t, ixnrest.Ref(""), operationRef("root"))
	assert.Equal(t, ixnrest.Ref(""), operationRef(""))
	assert.Equal(t, ixnrest.Ref("/api/v1/sessions/1/ixnetwork/vport/1"), operationRef("/api/v1/sessions/1/ixnetwork/vport/1"))
}

func TestNewApp(t *testing.T) {
	app := newApp("1.2.3")
	assert.Contains(t, app.Version, "1.2.3")

	for _, name := range []string{"version", "new-config", "load-config", "save-config", "children", "get", "set", "describe", "exec", "reserve", "protocols", "traffic"} {
		assert.NotNil(t, app.Command(name), name)
	}
	traffic := app.Command("traffic")
	require.NotNil(t, traffic)
	assert.Len(t, traffic.Subcommands, 4)
}

func TestLoadConfigFailsBeforeConnecting(t *testing.T) {
	t.Setenv("IXN_PORT", "not-a-number")
	app := newApp("test")
	err := app.Run([]string{"ixnctl", "version"})
	assert.ErrorContains(t, err, "failed to read environment")
}
