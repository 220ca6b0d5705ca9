package secrets

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaoTimeout bounds a single OpenBao request.
const DefaultBaoTimeout = 10 * time.Second

// BaoConfig holds configuration for the OpenBao backend.
type BaoConfig struct {
	Addr          string        // OpenBao server address
	Token         string        // OpenBao authentication token
	Namespace     string        // Optional: OpenBao namespace
	HTTPTimeout   time.Duration // HTTP request timeout
	TLSConfig     *tls.Config   // Optional: custom TLS config
	SkipTLSVerify bool          // INSECURE: skip TLS verification
}

// WithDefaults returns BaoConfig with default values applied.
func (c BaoConfig) WithDefaults() BaoConfig {
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultBaoTimeout
	}
	return c
}

// Validate checks required configuration fields.
func (c *BaoConfig) Validate() error {
	if c.Addr == "" {
		return ErrMissingBaoAddr
	}
	if c.Token == "" {
		return ErrMissingBaoToken
	}
	return nil
}

// BaoResolver reads secrets from an OpenBao KV v2 engine.
type BaoResolver struct {
	httpClient *http.Client
	baseURL    string
	token      string
	namespace  string
}

// NewBaoResolver creates a resolver for the given OpenBao server.
func NewBaoResolver(cfg BaoConfig) (*BaoResolver, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsConfig := cfg.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.SkipTLSVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig:     tlsConfig,
	}

	return &BaoResolver{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout, Transport: transport},
		baseURL:    strings.TrimSuffix(cfg.Addr, "/"),
		token:      cfg.Token,
		namespace:  cfg.Namespace,
	}, nil
}

// Resolve implements Resolver.
func (c *BaoResolver) Resolve(ctx context.Context, ref Ref) (string, error) {
	if ref.Scheme() != SchemeBao {
		return "", wrapRef(ref, fmt.Errorf("%w: bao resolver cannot read scheme %q", ErrInvalidRef, ref.Scheme()))
	}
	mount, path, field, err := ref.baoLocation()
	if err != nil {
		return "", wrapRef(ref, err)
	}

	resp, err := c.get(ctx, fmt.Sprintf("/v1/%s/data/%s", mount, path))
	if err != nil {
		return "", wrapRef(ref, err)
	}

	var result struct {
		Data struct {
			Data map[string]interface{} `json:"data"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return "", wrapRef(ref, fmt.Errorf("decode secret: %w", err))
	}

	raw, ok := result.Data.Data[field]
	if !ok {
		return "", wrapRef(ref, ErrSecretNotFound)
	}
	value, ok := raw.(string)
	if !ok {
		return "", wrapRef(ref, fmt.Errorf("field %q is %T, want string", field, raw))
	}
	if value == "" {
		return "", wrapRef(ref, ErrSecretNotFound)
	}
	return value, nil
}

// Health checks OpenBao status.
func (c *BaoResolver) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/sys/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBaoConnection, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBaoConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusServiceUnavailable:
		return ErrBaoSealed
	default:
		return ErrBaoUnavailable
	}
}

func (c *BaoResolver) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaoConnection, err)
	}

	req.Header.Set("X-Vault-Token", c.token)
	if c.namespace != "" {
		req.Header.Set("X-Vault-Namespace", c.namespace)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaoConnection, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBaoConnection, err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Errors []string `json:"errors"`
		}
		_ = json.Unmarshal(body, &errResp)
		return nil, &BaoError{StatusCode: resp.StatusCode, Errors: errResp.Errors}
	}

	return body, nil
}
