package e2e_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3gas/test/fixtures"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary before all E2E tests.
	tmp, err := os.MkdirTemp("", "w3gas-e2e-test")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	binaryPath = filepath.Join(tmp, "w3gas")
	// Build from the module root (two levels up from test/e2e/).
	moduleRoot, err := filepath.Abs(filepath.Join("..", ".."))
	if err != nil {
		panic(err)
	}
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	cmd.Dir = moduleRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic("build failed: " + string(out))
	}

	os.Exit(m.Run())
}

// runCLI runs the binary with a private config dir and only the given
// environment, so the caller's APIKEY/HOST/PORT never leak in.
func runCLI(t *testing.T, configDir string, env []string, args ...string) (string, error) {
	t.Helper()
	// Global flags go first so they never land after --version/--help.
	argv := append([]string{"--env-file=" + filepath.Join(configDir, "none.env")}, args...)
	cmd := exec.Command(binaryPath, argv...)
	cmd.Env = append([]string{
		"HOME=" + configDir,
		"PATH=" + os.Getenv("PATH"),
		"W3GAS_CONFIG_DIR=" + configDir,
	}, env...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func TestVersionFlag(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "w3gas")
	assert.Contains(t, out, "1.0.0")
}

func TestHelpListsCommands(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "--help")
	require.NoError(t, err)
	for _, c := range []string{"calc", "serve", "periods", "chains", "key", "config"} {
		assert.Contains(t, out, c)
	}
}

func TestPeriods(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "periods")
	require.NoError(t, err)
	assert.Contains(t, out, "Last24Hours")
	assert.Contains(t, out, "31536000")
}

func TestChains(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "chains")
	require.NoError(t, err)
	assert.Contains(t, out, "ethereum *")
	assert.Contains(t, out, "8453")
}

func TestConfigSetAndList(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, nil, "config", "set", "cache_ttl", "45")
	require.NoError(t, err)

	out, err := runCLI(t, dir, nil, "config", "list")
	require.NoError(t, err)
	assert.Contains(t, out, `"cache_ttl": "45s"`)

	_, err = os.Stat(filepath.Join(dir, "config.json"))
	assert.NoError(t, err)
}

func TestConfigSetUnknownChain(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "config", "set", "chain", "dogechain")
	assert.Error(t, err)
	assert.Contains(t, out, "unknown chain")
}

func TestServeWithoutSettingsFails(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), []string{"APIKEY=k"}, "serve")
	assert.Error(t, err)
	assert.Contains(t, out, "HOST is required")
	assert.Contains(t, out, "PORT is required")
}

func TestCalcAgainstRecordedExplorer(t *testing.T) {
	upstream := fixtures.ExplorerServer(t, map[string]string{
		"getblocknobytime": "block.json",
		"txlist":           "txlist.json",
	})

	out, err := runCLI(t, t.TempDir(), []string{
		"APIKEY=test-key",
		"EXPLORER_URL=" + upstream.URL,
	}, "calc", "0xABC", "--json", "--no-price")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"gas_used": 71000`)
	assert.Contains(t, out, `"fee_eth": "0.000121"`)
}

func TestUnknownCommandShowsError(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), nil, "nonexistent-command")
	assert.Error(t, err)
	assert.True(t, strings.Contains(out, "unknown command"), out)
}
