package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home))

	stdout, stderr, err := runPRW(t, binaryPath, home,
		"ledger", "add",
		"--ref", "mxzaz-hqaaa-aaaar-qaada-cai",
		"--symbol", "ckBTC",
		"--decimals", "8",
		"--owner", "principal",
	)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "Saved ledger ckBTC")

	stdout, stderr, err = runPRW(t, binaryPath, home, "ledger", "list")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "ckBTC")

	stdout, stderr, err = runPRW(t, binaryPath, home, "status", "--json")
	require.NoError(t, err, "stderr: %s", stderr)

	var status map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &status))
	assert.Equal(t, "unauthenticated", status["status"])

	stdout, stderr, err = runPRW(t, binaryPath, home, "disconnect")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No wallet connected.")
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "prw-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/prw")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build prw binary: %s", string(output))
	return binaryPath
}

func runPRW(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

// writeConfigFixture keeps the run off the pass store and any real extension
// bridge.
func writeConfigFixture(home string) error {
	configDir := filepath.Join(home, ".pollrush")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	config := `[log]
level = "warn"

[credentials]
backend = "file"

[extension]
bridge_url = "http://127.0.0.1:1"
`

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config), 0o600)
}
