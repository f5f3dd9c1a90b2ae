package auctioneer

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/astriaorg/auctioneer/auction"
	"github.com/astriaorg/auctioneer/internal/watch"
	"github.com/astriaorg/auctioneer/orderpool"
	"github.com/astriaorg/auctioneer/simulator"
)

// Service ties the orderpool, the simulation client and the bundle
// submission endpoint together. One service runs one orderpool; auctions are
// announced to it through RunAuction.
type Service struct {
	cfg Config

	srv    *http.Server
	rpcSrv *rpc.Server

	pool     *orderpool.Orderpool
	client   simulator.Client
	auctions *watch.Source[*auction.Bidpipe]
}

// New dials the simulation endpoint, spawns the orderpool and wires the
// bundle API. The returned service is not yet listening; call Start.
func New(ctx context.Context, cfg Config) (*Service, error) {
	client, err := simulator.Dial(ctx, cfg.RPCURL, cfg.RPCTimeout)
	if err != nil {
		return nil, err
	}

	auctions, activeAuction := watch.New[*auction.Bidpipe](nil)
	pool := orderpool.Spawn(ctx, activeAuction, client, orderpool.Config{
		RequestQueueSize:       cfg.RequestQueueSize,
		MaxInflightSimulations: cfg.MaxInflightSimulations,
	})

	limiter := rate.NewLimiter(cfg.SubmissionRate, cfg.SubmissionBurst)
	rpcSrv := rpc.NewServer()
	if err := rpcSrv.RegisterName("eth", NewBundleAPI(pool, limiter)); err != nil {
		client.Close()
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle("/", rpcSrv)

	return &Service{
		cfg: cfg,
		srv: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: router,
		},
		rpcSrv:   rpcSrv,
		pool:     pool,
		client:   client,
		auctions: auctions,
	}, nil
}

// Start brings up the bundle submission endpoint. It does not block.
func (s *Service) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("bundle endpoint failed", "err", err)
		}
	}()
	log.Info("auctioneer started", "listenAddr", s.cfg.ListenAddr, "rpcURL", s.cfg.RPCURL)
}

// Stop tears the service down: it stops accepting submissions, winds down
// the orderpool and closes the simulation client.
func (s *Service) Stop() error {
	s.srv.Close()
	s.rpcSrv.Stop()
	s.pool.Cancel()
	err := s.pool.Wait()
	s.auctions.Close()
	s.client.Close()
	return err
}

// Pool exposes the orderpool, mainly so callers can observe shutdown.
func (s *Service) Pool() *orderpool.Orderpool { return s.pool }

// RunAuction announces a new auction for the given optimistic block to the
// orderpool, collects bids for the configured latency margin and returns the
// winning bid, or nil if no bid arrived in time. The auction is withdrawn
// when RunAuction returns, whatever the outcome.
func (s *Service) RunAuction(ctx context.Context, id auction.ID, optimisticBlockHash common.Hash, optimisticBlockNumber uint64) (*auction.Bid, error) {
	a := auction.New(id, optimisticBlockHash, optimisticBlockNumber, s.cfg.LatencyMargin)
	s.auctions.Send(a.Bidpipe())
	defer s.auctions.Send(nil)

	winner, err := a.Run(ctx)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		log.Info("auction closed without bids", "auction", id)
		return nil, nil
	}
	log.Info("auction won", "auction", id, "fee", winner.Fee)
	return winner, nil
}
