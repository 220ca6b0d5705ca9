package netcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spacehunters/contracts/internal/descriptor"
)

// Defaults for Options.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 4
)

// ErrForkBlockUnavailable is returned when the archive node does not serve
// the sandbox's fork block.
var ErrForkBlockUnavailable = errors.New("netcheck: fork block not available")

// ChainIDMismatchError reports an endpoint serving a different chain than
// the one declared for it.
type ChainIDMismatchError struct {
	Network  string
	Expected uint64
	Actual   uint64
}

// Error implements the error interface.
func (e *ChainIDMismatchError) Error() string {
	return fmt.Sprintf("network %s: endpoint reports chain ID %d, declared %d", e.Network, e.Actual, e.Expected)
}

// Result is the outcome of probing one network.
type Result struct {
	Network         string        `json:"network"`
	URL             string        `json:"url"`
	Sandbox         bool          `json:"sandbox,omitempty"`
	ExpectedChainID uint64        `json:"expectedChainId,omitempty"`
	ChainID         uint64        `json:"chainId,omitempty"`
	Latency         time.Duration `json:"-"`
	Err             error         `json:"-"`
}

// OK reports whether the probe succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Options configures a Checker.
type Options struct {
	Dial        DialFunc
	Timeout     time.Duration
	Concurrency int
	Logger      *slog.Logger
	Metrics     *Metrics
}

// Checker probes network endpoints.
type Checker struct {
	dial        DialFunc
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
	metrics     *Metrics
}

// NewChecker creates a checker. Zero options fall back to DialEth,
// DefaultTimeout, DefaultConcurrency and a discarding logger.
func NewChecker(opts Options) *Checker {
	c := &Checker{
		dial:        opts.Dial,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if c.dial == nil {
		c.dial = DialEth
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.concurrency <= 0 {
		c.concurrency = DefaultConcurrency
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Check probes a remote network's endpoint and compares its chain ID with
// the declared one, if any. A sandbox network is checked through its fork.
func (c *Checker) Check(ctx context.Context, n descriptor.Network) Result {
	if n.IsSandbox() {
		return c.checkSandbox(ctx, n)
	}

	result := Result{Network: n.Name, URL: n.URL, ExpectedChainID: n.ChainID}
	start := time.Now()
	result.ChainID, result.Err = c.chainID(ctx, n.URL)
	result.Latency = time.Since(start)

	if result.Err == nil && n.ChainID != 0 && result.ChainID != n.ChainID {
		result.Err = &ChainIDMismatchError{Network: n.Name, Expected: n.ChainID, Actual: result.ChainID}
	}

	c.record(result)
	return result
}

// CheckFork confirms the archive node behind f serves the fork block.
func (c *Checker) CheckFork(ctx context.Context, f descriptor.Forking) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.dial(ctx, f.URL)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", f.URL, err)
	}
	defer client.Close()

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain ID from %s: %w", f.URL, err)
	}

	header, err := client.HeaderByNumber(ctx, new(big.Int).SetUint64(f.BlockNumber))
	if err != nil {
		return chainID.Uint64(), fmt.Errorf("%w: block %d: %v", ErrForkBlockUnavailable, f.BlockNumber, err)
	}
	if header == nil {
		return chainID.Uint64(), fmt.Errorf("%w: block %d", ErrForkBlockUnavailable, f.BlockNumber)
	}
	return chainID.Uint64(), nil
}

// CheckAll probes every network concurrently and returns results in
// declaration order.
func (c *Checker) CheckAll(ctx context.Context, d *descriptor.Descriptor) []Result {
	networks := d.Networks()
	results := make([]Result, len(networks))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, n := range networks {
		i, n := i, n
		g.Go(func() error {
			results[i] = c.Check(ctx, n)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (c *Checker) checkSandbox(ctx context.Context, n descriptor.Network) Result {
	result := Result{Network: n.Name, URL: n.Forking.URL, Sandbox: true}
	start := time.Now()
	result.ChainID, result.Err = c.CheckFork(ctx, *n.Forking)
	result.Latency = time.Since(start)
	c.record(result)
	return result
}

func (c *Checker) chainID(ctx context.Context, rpcURL string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	client, err := c.dial(ctx, rpcURL)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("get chain ID from %s: %w", rpcURL, err)
	}
	return id.Uint64(), nil
}

func (c *Checker) record(r Result) {
	if c.metrics != nil {
		c.metrics.observe(r)
	}
	if r.OK() {
		c.logger.Debug("network reachable",
			slog.String("network", r.Network),
			slog.Uint64("chain_id", r.ChainID),
			slog.Duration("latency", r.Latency),
		)
		return
	}
	c.logger.Warn("network check failed",
		slog.String("network", r.Network),
		slog.String("error", r.Err.Error()),
	)
}
