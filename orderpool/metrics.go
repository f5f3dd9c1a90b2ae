package orderpool

import (
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	bundlesInsertedCounter  = metrics.NewRegisteredCounter("orderpool/bundles/inserted", nil)
	bundlesReplacedCounter  = metrics.NewRegisteredCounter("orderpool/bundles/replaced", nil)
	bundlesRejectedCounter  = metrics.NewRegisteredCounter("orderpool/bundles/rejected", nil)
	bundlesCancelledCounter = metrics.NewRegisteredCounter("orderpool/bundles/cancelled", nil)
	bundlesEvictedCounter   = metrics.NewRegisteredCounter("orderpool/bundles/evicted", nil)

	auctionsStartedCounter = metrics.NewRegisteredCounter("orderpool/auctions/started", nil)
	auctionsWonCounter     = metrics.NewRegisteredCounter("orderpool/auctions/won", nil)

	simulationTimer       = metrics.NewRegisteredTimer("orderpool/simulation/duration", nil)
	simulationFailedMeter = metrics.NewRegisteredMeter("orderpool/simulation/failed", nil)
	simulationPanicMeter  = metrics.NewRegisteredMeter("orderpool/simulation/panicked", nil)

	bidsSentMeter       = metrics.NewRegisteredMeter("orderpool/bids/sent", nil)
	bidsAfterCloseMeter = metrics.NewRegisteredMeter("orderpool/bids/late", nil)
)
