package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CheckClearExitsZero(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"kontext", "check",
		"0x1111111111111111111111111111111111111111",
		"0x2222222222222222222222222222222222222222",
		"--amount", "100", "--token", "USDC",
	}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "CLEAR")
}

func TestRun_CheckMissingFlagsExitsTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"kontext", "check", "0x1111111111111111111111111111111111111111"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestRun_UnknownCommandExitsTwo(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"kontext", "bogus"}, &stdout, &stderr)
	assert.Equal(t, 2, code)
}

func TestRun_VerifyThenAuditRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("KONTEXT_DATA_DIR", filepath.Join(dir, "data"))

	var stdout, stderr bytes.Buffer
	code := Run([]string{"kontext", "verify",
		"--agent", "agent-1",
		"--amount", "100", "--token", "USDC",
		"--from", "0x1111111111111111111111111111111111111111",
		"--to", "0x2222222222222222222222222222222222222222",
	}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	stdout.Reset()
	stderr.Reset()
	code = Run([]string{"kontext", "audit"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "Chain VALID")

	_, err := os.Stat(filepath.Join(dir, "data"))
	require.NoError(t, err)
}
