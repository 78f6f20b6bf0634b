package fixtures

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixturesDir returns the absolute path to the fixtures directory.
func fixturesDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(file)
}

// LoadExplorerResponse loads a recorded explorer response body.
func LoadExplorerResponse(t *testing.T, filename string) []byte {
	t.Helper()
	path := filepath.Join(fixturesDir(), "explorer", filename)
	data, err := os.ReadFile(path)
	require.NoError(t, err, "failed to load explorer fixture: %s", filename)
	return data
}

// ExplorerServer serves fixture files keyed by the request's action
// parameter, e.g. {"getblocknobytime": "block.json", "txlist": "txlist.json"}.
// Unknown actions get a 400.
func ExplorerServer(t *testing.T, byAction map[string]string) *httptest.Server {
	t.Helper()
	bodies := make(map[string][]byte, len(byAction))
	for action, file := range byAction {
		bodies[action] = LoadExplorerResponse(t, file)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Query().Get("action")]
		if !ok {
			http.Error(w, "unexpected action", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
