package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandleArgs(t *testing.T) {
	cmd := Command{Name: "integrate", Summary: "detect and segment test images", Details: []string{"  extra"}}

	var buf bytes.Buffer
	require.False(t, HandleArgs(cmd, nil, &buf))
	require.False(t, HandleArgs(cmd, []string{"run"}, &buf))
	require.Empty(t, buf.String())

	require.True(t, HandleArgs(cmd, []string{"--version"}, &buf))
	require.Contains(t, buf.String(), "integrate dev")

	buf.Reset()
	require.True(t, HandleArgs(cmd, []string{"-h"}, &buf))
	require.Contains(t, buf.String(), "integrate - detect and segment test images")
	require.Contains(t, buf.String(), "CVPIPE_CONFIG")
	require.Contains(t, buf.String(), "  extra")
}
