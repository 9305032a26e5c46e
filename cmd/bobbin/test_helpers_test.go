package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bobbin/internal/config"
	"bobbin/internal/testsupport"
)

const activeTaskJSON = `{
	"gid": "2089b05ecca3d829",
	"status": "active",
	"totalLength": "2048",
	"completedLength": "1024",
	"downloadSpeed": "512",
	"uploadSpeed": "0",
	"connections": "4",
	"dir": "%DIR%",
	"files": [{"index": "1", "path": "%DIR%/ubuntu.iso", "length": "2048", "completedLength": "1024", "selected": "true", "uris": []}]
}`

type rpcCall struct {
	Method string
	Params []json.RawMessage
}

// fakeAria2 answers the JSON-RPC methods the CLI drives.
type fakeAria2 struct {
	mu    sync.Mutex
	calls []rpcCall
	dir   string
	// reject answers every call with this RPC error message when set.
	reject string
}

func (f *fakeAria2) rejectWith(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reject = message
}

func (f *fakeAria2) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string            `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, rpcCall{Method: req.Method, Params: req.Params})
	reject := f.reject
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if reject != "" {
		payload, _ := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]any{"code": 1, "message": reject},
		})
		_, _ = w.Write(payload)
		return
	}

	var result string
	switch req.Method {
	case "aria2.addUri", "aria2.pause", "aria2.unpause", "aria2.forceRemove":
		result = `"2089b05ecca3d829"`
	case "aria2.tellActive":
		result = "[" + strings.ReplaceAll(activeTaskJSON, "%DIR%", f.dir) + "]"
	case "aria2.tellWaiting", "aria2.tellStopped":
		result = "[]"
	case "aria2.getVersion":
		result = `{"version": "1.37.0", "enabledFeatures": ["BitTorrent"]}`
	default:
		result = `"OK"`
	}
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"` + req.ID + `","result":` + result + `}`))
}

func (f *fakeAria2) methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, call := range f.calls {
		out = append(out, call.Method)
	}
	return out
}

func (f *fakeAria2) lastCall(method string) (rpcCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Method == method {
			return f.calls[i], true
		}
	}
	return rpcCall{}, false
}

type cliTestEnv struct {
	cfg        *config.Config
	aria2      *fakeAria2
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	t.Setenv("BOBBIN_DOWNLOAD_DIR", "")
	t.Setenv("BOBBIN_ARIA2_SECRET", "")

	fake := &fakeAria2{dir: cfg.Paths.DownloadDir}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	cfg.Aria2.RPCPort = serverPort(t, server.URL)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, aria2: fake, configPath: configPath}
}

func serverPort(t *testing.T, rawURL string) int {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	return port
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
