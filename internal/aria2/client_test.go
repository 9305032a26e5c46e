package aria2

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"bobbin/internal/services"
)

type recordedCall struct {
	ID     string
	Method string
	Params []json.RawMessage
}

type fakeDaemon struct {
	mu      sync.Mutex
	calls   []recordedCall
	results map[string]string
}

func newFakeDaemon(t *testing.T, results map[string]string) (*fakeDaemon, *httptest.Server) {
	t.Helper()
	fd := &fakeDaemon{results: results}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fd.mu.Lock()
		fd.calls = append(fd.calls, recordedCall(req))
		result, ok := fd.results[req.Method]
		fd.mu.Unlock()
		if !ok {
			result = `"OK"`
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"` + req.ID + `","result":` + result + `}`))
	}))
	t.Cleanup(srv.Close)
	return fd, srv
}

func (fd *fakeDaemon) snapshot() []recordedCall {
	fd.mu.Lock()
	defer fd.mu.Unlock()
	return append([]recordedCall(nil), fd.calls...)
}

func TestCallPrefixesNamespaceAndPrependsToken(t *testing.T) {
	fd, srv := newFakeDaemon(t, map[string]string{"aria2.addUri": `"2089b05ecca3d829"`})
	client := New(Options{Endpoint: srv.URL, Secret: "s3cret"})

	gid, err := client.AddURI(context.Background(), []string{"https://example.com/a.iso"}, AddOptions{Dir: "/dl", Out: "a.iso"})
	if err != nil {
		t.Fatalf("AddURI returned error: %v", err)
	}
	if gid != "2089b05ecca3d829" {
		t.Fatalf("unexpected gid %q", gid)
	}

	calls := fd.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	call := calls[0]
	if call.Method != "aria2.addUri" {
		t.Fatalf("expected namespaced method, got %q", call.Method)
	}
	if len(call.Params) != 3 {
		t.Fatalf("expected token + 2 params, got %d", len(call.Params))
	}
	if string(call.Params[0]) != `"token:s3cret"` {
		t.Fatalf("expected token first, got %s", call.Params[0])
	}
	var opts map[string]string
	if err := json.Unmarshal(call.Params[2], &opts); err != nil {
		t.Fatalf("decode options: %v", err)
	}
	if opts["dir"] != "/dl" || opts["out"] != "a.iso" {
		t.Fatalf("unexpected options %v", opts)
	}
	if !strings.HasPrefix(call.ID, "bobbin-") {
		t.Fatalf("unexpected request id %q", call.ID)
	}
}

func TestCallWithoutSecretOmitsToken(t *testing.T) {
	fd, srv := newFakeDaemon(t, nil)
	client := New(Options{Endpoint: srv.URL})

	if err := client.Pause(context.Background(), "abc"); err != nil {
		t.Fatalf("Pause returned error: %v", err)
	}
	if _, err := client.Call(context.Background(), "system.listMethods"); err != nil {
		t.Fatalf("Call returned error: %v", err)
	}
	calls := fd.snapshot()
	if len(calls[0].Params) != 1 || string(calls[0].Params[0]) != `"abc"` {
		t.Fatalf("expected only gid param, got %v", calls[0].Params)
	}
	if calls[1].Method != "system.listMethods" {
		t.Fatalf("namespaced method should not be prefixed, got %q", calls[1].Method)
	}
	if calls[0].ID == calls[1].ID {
		t.Fatalf("expected unique request ids, got %q twice", calls[0].ID)
	}
}

func TestCallReturnsRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"x","error":{"code":1,"message":"Unauthorized"}}`))
	}))
	defer srv.Close()

	err := New(Options{Endpoint: srv.URL}).ForceRemove(context.Background(), "abc")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Code != 1 || rpcErr.Message != "Unauthorized" {
		t.Fatalf("unexpected rpc error %#v", rpcErr)
	}
	if errors.Is(err, services.ErrConnection) {
		t.Fatal("daemon error must be distinct from transport failure")
	}
}

func TestCallClassifiesTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := New(Options{Endpoint: endpoint}).GetVersion(context.Background())
	if !errors.Is(err, services.ErrConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestCallClassifiesTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(Options{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}).GetVersion(context.Background())
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestCallClassifiesParseFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := New(Options{Endpoint: srv.URL}).TellActive(context.Background())
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestFetchAllMergesInOrderAndDecodesNumbers(t *testing.T) {
	fd, srv := newFakeDaemon(t, map[string]string{
		"aria2.tellActive": `[{"gid":"a1","status":"active","totalLength":"2048","completedLength":"1024","downloadSpeed":"512","uploadSpeed":"0","connections":"4","dir":"/dl","files":[{"index":"1","path":"/dl/movie.mp4","length":"2048","completedLength":"1024","selected":"true","uris":[{"uri":"https://example.com/movie.mp4","status":"used"}]}]}]`,
		"aria2.tellWaiting": `[{"gid":"w1","status":"paused","totalLength":"0","completedLength":"0","downloadSpeed":"0","uploadSpeed":"0","dir":"/dl","files":[]}]`,
		"aria2.tellStopped": `[{"gid":"s1","status":"error","totalLength":"0","completedLength":"0","downloadSpeed":"0","uploadSpeed":"0","dir":"/dl","errorCode":"3","errorMessage":"Resource not found","bittorrent":{"info":{"name":"Ubuntu ISO"}},"files":[]}]`,
	})
	client := New(Options{Endpoint: srv.URL})

	tasks, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll returned error: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(tasks))
	}
	if tasks[0].GID != "a1" || tasks[1].GID != "w1" || tasks[2].GID != "s1" {
		t.Fatalf("unexpected order: %s %s %s", tasks[0].GID, tasks[1].GID, tasks[2].GID)
	}
	if tasks[0].TotalLength != 2048 || tasks[0].CompletedLength != 1024 || tasks[0].DownloadSpeed != 512 {
		t.Fatalf("numbers not decoded: %#v", tasks[0])
	}
	if tasks[0].Name() != "movie.mp4" || tasks[0].PrimaryPath() != "/dl/movie.mp4" {
		t.Fatalf("unexpected name/path %q %q", tasks[0].Name(), tasks[0].PrimaryPath())
	}
	if !tasks[2].IsTorrent() || tasks[2].Name() != "Ubuntu ISO" {
		t.Fatalf("expected torrent name, got %q", tasks[2].Name())
	}
	if tasks[1].Name() != "w1" {
		t.Fatalf("expected gid fallback name, got %q", tasks[1].Name())
	}

	calls := fd.snapshot()
	if string(calls[1].Params[0]) != "0" || string(calls[1].Params[1]) != "1000" {
		t.Fatalf("unexpected tellWaiting window %v", calls[1].Params)
	}
}

func TestStatusIsTerminal(t *testing.T) {
	for _, s := range []Status{StatusComplete, StatusError, StatusRemoved} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusActive, StatusWaiting, StatusPaused} {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
