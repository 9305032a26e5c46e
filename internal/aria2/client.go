package aria2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"bobbin/internal/config"
	"bobbin/internal/services"
)

// DefaultTimeout bounds a single RPC call.
const DefaultTimeout = 5 * time.Second

// Options configures a Client.
type Options struct {
	Endpoint   string
	Secret     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues JSON-RPC calls to a single aria2c endpoint. It is safe for
// concurrent use.
type Client struct {
	endpoint string
	secret   string
	timeout  time.Duration
	http     *http.Client
	seq      atomic.Uint64
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// New constructs a client for the given endpoint.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		endpoint: strings.TrimSpace(opts.Endpoint),
		secret:   opts.Secret,
		timeout:  timeout,
		http:     httpClient,
	}
}

// NewFromConfig constructs a client for the configured loopback daemon.
func NewFromConfig(cfg *config.Config) *Client {
	return New(Options{
		Endpoint: cfg.RPCURL(),
		Secret:   cfg.Aria2.RPCSecret,
		Timeout:  cfg.RPCTimeout(),
	})
}

// Endpoint returns the RPC URL the client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Call invokes method with params and returns the raw result.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if !strings.Contains(method, ".") {
		method = "aria2." + method
	}

	args := make([]any, 0, len(params)+1)
	if c.secret != "" {
		args = append(args, "token:"+c.secret)
	}
	args = append(args, params...)

	body, err := json.Marshal(request{
		JSONRPC: "2.0",
		ID:      "bobbin-" + strconv.FormatUint(c.seq.Add(1), 10),
		Method:  method,
		Params:  args,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "aria2", method, "encode request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, services.Wrap(services.ErrConnection, "aria2", method, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, services.Wrap(services.ErrTimeout, "aria2", method, fmt.Sprintf("no response within %s", c.timeout), err)
		}
		return nil, services.Wrap(services.ErrConnection, "aria2", method, "daemon unreachable at "+c.endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, services.Wrap(services.ErrTimeout, "aria2", method, "read response", err)
		}
		return nil, services.Wrap(services.ErrConnection, "aria2", method, "read response", err)
	}

	var decoded response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, services.Wrap(services.ErrConnection, "aria2", method, "unexpected HTTP status "+resp.Status, nil)
		}
		return nil, services.Wrap(services.ErrParse, "aria2", method, "decode response", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("aria2 %s: %w", method, decoded.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrConnection, "aria2", method, "unexpected HTTP status "+resp.Status, nil)
	}
	return decoded.Result, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) callInto(ctx context.Context, out any, method string, params ...any) error {
	raw, err := c.Call(ctx, method, params...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return services.Wrap(services.ErrParse, "aria2", method, "decode result", err)
	}
	return nil
}
