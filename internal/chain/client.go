// Package chain provides JSON-RPC access to the scholarship registry chain.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/ScholarShield/scholarship-client/pkg/logger"
)

// ErrUserRejected indicates the wallet owner declined to sign a transaction.
// Callers must surface it as a non-alarming condition, not a generic failure.
var ErrUserRejected = errors.New("user rejected transaction")

// Client is a rate-limited JSON-RPC client for a registry chain node.
type Client struct {
	rpcURL       string
	httpClient   *http.Client
	limiter      *rate.Limiter
	log          *logger.Logger
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// Config holds client configuration.
type Config struct {
	RPCURL         string
	Timeout        time.Duration
	RequestsPerSec int
	Burst          int
}

// NewClient creates a new registry chain client.
func NewClient(cfg Config, log *logger.Logger) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("RPC URL required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = rps * 2
	}
	if log == nil {
		log = logger.NewDefault("chain")
	}

	return &Client{
		rpcURL: cfg.RPCURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(rps), burst),
		log:          log,
		pollInterval: DefaultPollInterval,
		waitTimeout:  DefaultWaitTimeout,
	}, nil
}

// Call makes a JSON-RPC call to the node.
func (c *Client) Call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		if isUserRejection(rpcResp.Error) {
			return nil, fmt.Errorf("%s: %w", method, ErrUserRejected)
		}
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}

// InvokeRead invokes a read-only contract method and returns the first stack item.
func (c *Client) InvokeRead(ctx context.Context, contract, method string, params []Param) (gjson.Result, error) {
	result, err := c.Call(ctx, "invokefunction", []interface{}{contract, method, params})
	if err != nil {
		return gjson.Result{}, err
	}

	var invokeResult InvokeResult
	if err := json.Unmarshal(result, &invokeResult); err != nil {
		return gjson.Result{}, fmt.Errorf("unmarshal invoke result: %w", err)
	}
	if invokeResult.State != "HALT" {
		return gjson.Result{}, fmt.Errorf("%s faulted: %s", method, invokeResult.Exception)
	}

	return gjson.GetBytes(invokeResult.Stack, "0"), nil
}

// SendInvocation submits a state-changing contract invocation signed by the
// node's connected wallet and returns an unconfirmed transaction handle.
func (c *Client) SendInvocation(ctx context.Context, contract, method string, params []Param) (*Tx, error) {
	result, err := c.Call(ctx, "sendinvocation", []interface{}{contract, method, params})
	if err != nil {
		return nil, err
	}

	var response struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(result, &response); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if response.Hash == "" {
		return nil, fmt.Errorf("%s: node returned no transaction hash", method)
	}

	c.log.WithField("tx_hash", response.Hash).WithField("method", method).Debug("invocation sent")
	return &Tx{client: c, Hash: response.Hash}, nil
}

// GetReceipt returns the receipt for a transaction, if it has been executed.
func (c *Client) GetReceipt(ctx context.Context, txHash string) (*Receipt, error) {
	result, err := c.Call(ctx, "getreceipt", []interface{}{txHash})
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	if err := json.Unmarshal(result, &receipt); err != nil {
		return nil, fmt.Errorf("unmarshal receipt: %w", err)
	}
	return &receipt, nil
}

func isUserRejection(e *RPCError) bool {
	if e == nil {
		return false
	}
	return e.Code == CodeUserRejected || strings.Contains(e.Message, "user rejected transaction")
}

func isNotFoundError(err error) bool {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == CodeUnknownTransaction
	}
	return false
}
