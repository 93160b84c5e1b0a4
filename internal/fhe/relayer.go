package fhe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Relayer is a JSON REST client for the FHE relayer service, which performs
// the cryptographic work the client treats as opaque: key material setup,
// encryption with input proofs, and the decrypt-then-prove protocol.
type Relayer struct {
	baseURL    string
	httpClient *http.Client
}

// RelayerConfig configures the relayer client.
type RelayerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewRelayer creates a relayer client.
func NewRelayer(cfg RelayerConfig) (*Relayer, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("relayer base URL required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Relayer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type keysResponse struct {
	PublicKey string `json:"public_key"`
}

type encryptRequest struct {
	ContractAddress string `json:"contract_address"`
	Account         string `json:"account"`
	Value           int64  `json:"value"`
}

// EncryptResult is a ciphertext with its input correctness proof, both
// hex-encoded as they travel on the wire.
type EncryptResult struct {
	Ciphertext string `json:"ciphertext"`
	Proof      string `json:"proof"`
}

type decryptRequest struct {
	Handles         []string `json:"handles"`
	ContractAddress string   `json:"contract_address"`
}

type decryptResponse struct {
	ClearValues        map[string]int64 `json:"clear_values"`
	ClearValuesEncoded string           `json:"clear_values_encoded"`
	Proof              string           `json:"proof"`
}

// FetchKeys retrieves the public key material needed before encryption.
func (r *Relayer) FetchKeys(ctx context.Context) (string, error) {
	var resp keysResponse
	if err := r.post(ctx, "/v1/keys", struct{}{}, &resp); err != nil {
		return "", err
	}
	if resp.PublicKey == "" {
		return "", fmt.Errorf("relayer returned empty public key")
	}
	return resp.PublicKey, nil
}

// Encrypt asks the relayer to encrypt value bound to the contract and account.
func (r *Relayer) Encrypt(ctx context.Context, contractAddr, account string, value int64) (*EncryptResult, error) {
	var resp EncryptResult
	req := encryptRequest{ContractAddress: contractAddr, Account: account, Value: value}
	if err := r.post(ctx, "/v1/encrypt", req, &resp); err != nil {
		return nil, err
	}
	if resp.Ciphertext == "" || resp.Proof == "" {
		return nil, fmt.Errorf("relayer returned incomplete encryption result")
	}
	return &resp, nil
}

// DecryptVerify runs the decrypt-then-prove protocol for the given handles.
func (r *Relayer) DecryptVerify(ctx context.Context, handles []string, contractAddr string) (*decryptResponse, error) {
	var resp decryptResponse
	req := decryptRequest{Handles: handles, ContractAddress: contractAddr}
	if err := r.post(ctx, "/v1/decrypt-verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *Relayer) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("relayer %s: status %d", path, resp.StatusCode)
		}
		if strings.Contains(apiErr.Error, alreadyVerifiedMarker) {
			return fmt.Errorf("%w: %s", ErrAlreadyVerified, apiErr.Error)
		}
		return fmt.Errorf("relayer %s: %s", path, apiErr.Error)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
