package simulator

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// Client performs the eth_simulateV1 call against an Ethereum-like node. It
// is safe to share across concurrent simulations.
type Client interface {
	SimulateV1(ctx context.Context, payload *SimulatePayload) ([]*SimulatedBlock, error)
	Close()
}

type rpcClient struct {
	c       *rpc.Client
	timeout time.Duration
}

// Dial connects to the node at url. Every simulate call is bounded by
// timeout on top of whatever deadline the caller's context carries.
func Dial(ctx context.Context, url string, timeout time.Duration) (Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to eth endpoint at %q: %w", url, err)
	}
	return &rpcClient{c: c, timeout: timeout}, nil
}

func (c *rpcClient) SimulateV1(ctx context.Context, payload *SimulatePayload) ([]*SimulatedBlock, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var blocks []*SimulatedBlock
	if err := c.c.CallContext(ctx, &blocks, "eth_simulateV1", payload, "pending"); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (c *rpcClient) Close() { c.c.Close() }
