package auctioneer

import (
	"time"

	"golang.org/x/time/rate"
)

// Config configures the auctioneer service.
type Config struct {
	// RPCURL is the endpoint of the Ethereum-like node used for bundle
	// simulation.
	RPCURL string `toml:",omitempty"`
	// RPCTimeout is the per-call ceiling for the simulate RPC.
	RPCTimeout time.Duration `toml:",omitempty"`
	// ListenAddr is the address of the bundle submission endpoint.
	ListenAddr string `toml:",omitempty"`
	// RequestQueueSize bounds the orderpool's request channel.
	RequestQueueSize int `toml:",omitempty"`
	// MaxInflightSimulations caps concurrent simulate RPCs; zero means no
	// cap.
	MaxInflightSimulations int `toml:",omitempty"`
	// LatencyMargin is how long an auction stays open for bids.
	LatencyMargin time.Duration `toml:",omitempty"`
	// SubmissionRate and SubmissionBurst limit bundle submissions on the
	// JSON-RPC surface.
	SubmissionRate  rate.Limit `toml:",omitempty"`
	SubmissionBurst int        `toml:",omitempty"`
}

// DefaultConfig is the default config for the auctioneer.
var DefaultConfig = Config{
	RPCURL:                 "http://127.0.0.1:8545",
	RPCTimeout:             500 * time.Millisecond,
	ListenAddr:             ":28545",
	RequestQueueSize:       64,
	MaxInflightSimulations: 0,
	LatencyMargin:          250 * time.Millisecond,
	SubmissionRate:         100,
	SubmissionBurst:        50,
}
