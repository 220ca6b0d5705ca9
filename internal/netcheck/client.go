// Package netcheck probes the declared network endpoints: it confirms each
// remote endpoint answers with the chain ID the descriptor expects and that
// the sandbox's archive node still serves the fork block.
package netcheck

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainClient is the subset of an Ethereum RPC client the checks need.
type ChainClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	Close()
}

// DialFunc connects to an RPC endpoint.
type DialFunc func(ctx context.Context, rpcURL string) (ChainClient, error)

// DialEth connects using go-ethereum's ethclient.
func DialEth(ctx context.Context, rpcURL string) (ChainClient, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}
