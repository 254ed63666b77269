package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	out, err := execute(t, "run", "--computers", "3", "--processes", "12", "--moves", "200", "--workers", "2", "--assert")
	require.NoError(t, err)
	require.Contains(t, out, "WORKERS")
	require.Contains(t, out, "moves/s")
	require.Contains(t, out, "NETWORK")
	require.Contains(t, out, "groupBy")
}

func TestRunRejectsBadFlags(t *testing.T) {
	_, err := execute(t, "run", "--workers", "0")
	require.Error(t, err)

	_, err = execute(t, "run", "--computers", "0")
	require.Error(t, err)
}

func TestExplainCommand(t *testing.T) {
	out, err := execute(t, "explain", "--computers", "2", "--processes", "6", "--network")
	require.NoError(t, err)
	require.Contains(t, out, "CONSTRAINTS")
	require.Contains(t, out, "cloudbalancing/computer cost")
	require.Contains(t, out, "[Layer 0]")
}

func TestExplainWithConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incscore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("weights:\n  cloudbalancing/computer cost: 0hard/0soft\n"), 0o600))

	out, err := execute(t, "explain", "--config", path)
	require.NoError(t, err)
	require.NotContains(t, out, "cloudbalancing/computer cost")

	require.NoError(t, os.WriteFile(path, []byte("score_type: simple\n"), 0o600))
	_, err = execute(t, "explain", "--config", path)
	require.Error(t, err)
}
