// Package server exposes the node over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goEscrow/internal/config"
	"github.com/LeJamon/goEscrow/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/storage/relationaldb"
)

// maxBodyBytes bounds request bodies; a transaction is far smaller.
const maxBodyBytes = 64 * 1024

// Engine applies transactions and faucet credits
type Engine interface {
	Submit(ctx context.Context, txn *tx.Transaction) tx.ApplyResult
	Airdrop(ctx context.Context, key solana.PublicKey, lamports uint64) (uint64, error)
}

// State is the committed ledger the API reads from
type State interface {
	tx.ReadView
	Sequence() uint64
	ForEachOwned(ctx context.Context, program solana.PublicKey, fn func(solana.PublicKey, *entry.Account) error) error
}

// Journal answers transaction history queries
type Journal interface {
	GetTransaction(ctx context.Context, hash tx.Hash) (*relationaldb.TransactionRecord, error)
	AccountTransactions(ctx context.Context, account solana.PublicKey, limit int) ([]*relationaldb.TransactionRecord, error)
}

// Options carries the optional collaborators
type Options struct {
	// Journal enables the history endpoints when set
	Journal Journal

	// Metrics is served at /metrics when set
	Metrics http.Handler

	// Stream enables the websocket transaction feed at /v1/stream when set
	Stream *Stream
}

// Server is the node HTTP API
type Server struct {
	engine  Engine
	state   State
	journal Journal
	metrics http.Handler
	stream  *Stream
	config  config.ServerConfig
	router  chi.Router
	log     *logrus.Entry
}

// New creates a server over engine and state.
func New(engine Engine, state State, cfg config.ServerConfig, opts Options) *Server {
	s := &Server{
		engine:  engine,
		state:   state,
		journal: opts.Journal,
		metrics: opts.Metrics,
		stream:  opts.Stream,
		config:  cfg,
		log:     logrus.WithFields(logrus.Fields{"module": "server"}),
	}
	s.router = s.routes()
	return s
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/transactions", s.handleSubmit)
		r.Get("/transactions/{hash}", s.handleGetTransaction)
		r.Get("/accounts/{address}", s.handleGetAccount)
		r.Get("/accounts/{address}/transactions", s.handleAccountTransactions)
		r.Get("/escrows", s.handleListEscrows)
		r.Get("/escrows/{id}", s.handleGetEscrow)
		if s.stream != nil {
			r.Get("/stream", s.handleStream)
		}
		if s.config.Faucet {
			r.Post("/airdrop", s.handleAirdrop)
		}
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed":    time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}

// Run serves on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.WithField("address", ln.Addr().String()).Info("serving node API")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.log.Info("shutting down node API")
		// Shutdown does not track hijacked websocket connections
		if s.stream != nil {
			_ = s.stream.Close()
		}
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
