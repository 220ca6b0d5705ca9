package netcheck

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacehunters/contracts/internal/descriptor"
	"github.com/spacehunters/contracts/internal/secrets"
)

type fakeClient struct {
	chainID  uint64
	head     uint64
	chainErr error
}

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) {
	if f.chainErr != nil {
		return nil, f.chainErr
	}
	return new(big.Int).SetUint64(f.chainID), nil
}

func (f *fakeClient) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	if number.Uint64() > f.head {
		return nil, errors.New("header not found")
	}
	return &types.Header{Number: number}, nil
}

func (f *fakeClient) Close() {}

type fakeDialer struct {
	mu      sync.Mutex
	clients map[string]*fakeClient
	dialed  []string
}

func (d *fakeDialer) dial(_ context.Context, rpcURL string) (ChainClient, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dialed = append(d.dialed, rpcURL)
	c, ok := d.clients[rpcURL]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return c, nil
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		network descriptor.Network
		client  *fakeClient
		wantID  uint64
		wantErr bool
	}{
		{
			name:    "matching chain ID",
			network: descriptor.Network{Name: "arbitrum_mainnet", URL: "http://rpc", ChainID: 42161},
			client:  &fakeClient{chainID: 42161},
			wantID:  42161,
		},
		{
			name:    "undeclared chain ID accepts any",
			network: descriptor.Network{Name: "kovan", URL: "http://rpc"},
			client:  &fakeClient{chainID: 42},
			wantID:  42,
		},
		{
			name:    "mismatch",
			network: descriptor.Network{Name: "arbitrum_rinkeby", URL: "http://rpc", ChainID: 421611},
			client:  &fakeClient{chainID: 1},
			wantID:  1,
			wantErr: true,
		},
		{
			name:    "rpc error",
			network: descriptor.Network{Name: "goerli", URL: "http://rpc"},
			client:  &fakeClient{chainErr: errors.New("boom")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDialer{clients: map[string]*fakeClient{"http://rpc": tt.client}}
			c := NewChecker(Options{Dial: d.dial})

			r := c.Check(context.Background(), tt.network)
			assert.Equal(t, tt.network.Name, r.Network)
			assert.Equal(t, tt.wantID, r.ChainID)
			if tt.wantErr {
				assert.Error(t, r.Err)
				assert.False(t, r.OK())
			} else {
				assert.NoError(t, r.Err)
				assert.True(t, r.OK())
			}
		})
	}
}

func TestCheck_Mismatch(t *testing.T) {
	d := &fakeDialer{clients: map[string]*fakeClient{"http://rpc": {chainID: 1}}}
	c := NewChecker(Options{Dial: d.dial})

	r := c.Check(context.Background(), descriptor.Network{Name: "arb", URL: "http://rpc", ChainID: 42161})

	var mismatch *ChainIDMismatchError
	require.True(t, errors.As(r.Err, &mismatch))
	assert.Equal(t, uint64(42161), mismatch.Expected)
	assert.Equal(t, uint64(1), mismatch.Actual)
}

func TestCheckFork(t *testing.T) {
	d := &fakeDialer{clients: map[string]*fakeClient{
		"http://archive": {chainID: 97, head: 20_000_000},
		"http://pruned":  {chainID: 97, head: 100},
	}}
	c := NewChecker(Options{Dial: d.dial})

	id, err := c.CheckFork(context.Background(), descriptor.Forking{URL: "http://archive", BlockNumber: descriptor.SandboxForkBlock})
	require.NoError(t, err)
	assert.Equal(t, uint64(97), id)

	_, err = c.CheckFork(context.Background(), descriptor.Forking{URL: "http://pruned", BlockNumber: descriptor.SandboxForkBlock})
	assert.ErrorIs(t, err, ErrForkBlockUnavailable)

	_, err = c.CheckFork(context.Background(), descriptor.Forking{URL: "http://nowhere", BlockNumber: 1})
	assert.Error(t, err)
}

func TestCheckAll(t *testing.T) {
	spec := descriptor.DefaultSpec()
	d, err := descriptor.Build(context.Background(), spec,
		secrets.NewEnvResolverFrom(func(string) (string, bool) { return "", false }, nil),
		descriptor.BuildOptions{Mode: descriptor.ModeLenient})
	require.NoError(t, err)

	dialer := &fakeDialer{clients: map[string]*fakeClient{}}
	for _, n := range d.Networks() {
		switch {
		case n.IsSandbox():
			dialer.clients[n.Forking.URL] = &fakeClient{chainID: 97, head: n.Forking.BlockNumber}
		case n.Name == "matic":
			// unreachable
		default:
			dialer.clients[n.URL] = &fakeClient{chainID: n.ChainID}
		}
	}

	metrics := NewMetrics()
	c := NewChecker(Options{Dial: dialer.dial, Concurrency: 2, Metrics: metrics})
	results := c.CheckAll(context.Background(), d)

	require.Len(t, results, len(d.Networks()))
	for i, n := range d.NetworkNames() {
		assert.Equal(t, n, results[i].Network, "results keep declaration order")
	}

	for _, r := range results {
		switch {
		case r.Network == "matic":
			assert.False(t, r.OK())
			assert.Equal(t, 0.0, testutil.ToFloat64(metrics.up.WithLabelValues(r.Network)))
		case r.Network == descriptor.SandboxNetwork:
			assert.True(t, r.Sandbox)
			assert.True(t, r.OK(), "sandbox: %v", r.Err)
		default:
			assert.True(t, r.OK(), "%s: %v", r.Network, r.Err)
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.up.WithLabelValues(r.Network)))
		}
	}

	assert.Equal(t, 42161.0, testutil.ToFloat64(metrics.chainID.WithLabelValues("arbitrum_mainnet")))
	assert.Equal(t, len(results), testutil.CollectAndCount(metrics.latency))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.observe(Result{Network: "goerli", ChainID: 5})

	path := filepath.Join(t.TempDir(), "netcheck.prom")
	require.NoError(t, m.WriteTextfile(path))

	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(`
# HELP toolchain_network_up Whether the last probe of the network succeeded (1) or not (0)
# TYPE toolchain_network_up gauge
toolchain_network_up{network="goerli"} 1
`), "toolchain_network_up")
	assert.NoError(t, err)
}
