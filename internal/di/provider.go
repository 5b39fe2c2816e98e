package di

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrow/internal/config"
	"github.com/LeJamon/goEscrow/internal/core/ledger"
	"github.com/LeJamon/goEscrow/internal/core/tx"
	"github.com/LeJamon/goEscrow/internal/metrics"
	"github.com/LeJamon/goEscrow/internal/server"
	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb"
	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb/bbolt"
	"github.com/LeJamon/goEscrow/internal/storage/keyValueDb/pebble"
	"github.com/LeJamon/goEscrow/internal/storage/relationaldb"
)

// ledgerDBName is the key-value database holding accounts.
const ledgerDBName = "ledger"

// Provider configures and registers services in the container.
type Provider struct {
	container *Container
	config    *config.Config
	log       *logrus.Entry
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{
		container: container,
		config:    cfg,
		log:       logrus.WithFields(logrus.Fields{"module": "di"}),
	}
}

// RegisterAll registers all services.
func (p *Provider) RegisterAll() error {
	p.container.Register(ServiceConfig, p.config)

	p.registerStorageBuilders()
	p.registerLedgerBuilders()
	p.registerServerBuilders()
	return nil
}

// registerStorageBuilders registers the account store and the journal.
func (p *Provider) registerStorageBuilders() {
	p.container.RegisterBuilder(ServiceKVStore, func(c *Container) (interface{}, error) {
		cfg := p.config.Ledger
		p.log.WithFields(logrus.Fields{"backend": cfg.Backend, "path": cfg.Path}).Info("opening account store")
		switch cfg.Backend {
		case "memory":
			return keyValueDb.NewMemoryManager(), nil
		case "pebble":
			return pebble.NewManager(cfg.Path), nil
		case "bbolt":
			return bbolt.NewBBoltManager(cfg.Path), nil
		}
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	})

	// Resolves to a nil *relationaldb.Journal when the journal is disabled.
	p.container.RegisterBuilder(ServiceJournal, func(c *Container) (interface{}, error) {
		if !p.config.Journal.Enabled {
			return (*relationaldb.Journal)(nil), nil
		}
		p.log.WithField("driver", p.config.Journal.Driver).Info("opening transaction journal")
		return relationaldb.Open(context.Background(), p.config.Journal.Relational())
	})
}

// registerLedgerBuilders registers the ledger, metrics and engine.
func (p *Provider) registerLedgerBuilders() {
	p.container.RegisterBuilder(ServiceLedger, func(c *Container) (interface{}, error) {
		store, err := c.Get(ServiceKVStore)
		if err != nil {
			return nil, err
		}
		db, err := store.(keyValueDb.Manager).OpenDB(ledgerDBName)
		if err != nil {
			return nil, err
		}
		return ledger.Open(context.Background(), db, ledger.Config{
			CacheSize: p.config.Ledger.CacheSize,
			Rent:      p.config.Rent.Rent(),
		})
	})

	p.container.RegisterBuilder(ServiceMetrics, func(c *Container) (interface{}, error) {
		return metrics.NewRegistry(), nil
	})

	// Resolves to a nil *server.Stream when the feed is disabled.
	p.container.RegisterBuilder(ServiceStream, func(c *Container) (interface{}, error) {
		if !p.config.Server.Stream {
			return (*server.Stream)(nil), nil
		}
		return server.NewStream(), nil
	})

	p.container.RegisterBuilder(ServiceTxEngine, func(c *Container) (interface{}, error) {
		l, err := p.Ledger()
		if err != nil {
			return nil, err
		}
		m, err := p.Metrics()
		if err != nil {
			return nil, err
		}
		observers := []tx.Observer{m}
		j, err := p.Journal()
		if err != nil {
			return nil, err
		}
		if j != nil {
			observers = append(observers, j)
		}
		stream, err := p.Stream()
		if err != nil {
			return nil, err
		}
		if stream != nil {
			observers = append(observers, stream)
		}
		return tx.NewEngine(l, p.config.Engine.EngineConfig(), observers...), nil
	})
}

// registerServerBuilders registers the HTTP API.
func (p *Provider) registerServerBuilders() {
	p.container.RegisterBuilder(ServiceServer, func(c *Container) (interface{}, error) {
		engine, err := p.Engine()
		if err != nil {
			return nil, err
		}
		l, err := p.Ledger()
		if err != nil {
			return nil, err
		}
		m, err := p.Metrics()
		if err != nil {
			return nil, err
		}
		opts := server.Options{Metrics: m.Handler()}
		j, err := p.Journal()
		if err != nil {
			return nil, err
		}
		if j != nil {
			opts.Journal = j
		}
		if opts.Stream, err = p.Stream(); err != nil {
			return nil, err
		}
		return server.New(engine, l, p.config.Server, opts), nil
	})
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}

// Ledger returns the committed account state.
func (p *Provider) Ledger() (*ledger.Ledger, error) {
	svc, err := p.container.Get(ServiceLedger)
	if err != nil {
		return nil, err
	}
	return svc.(*ledger.Ledger), nil
}

// Journal returns the transaction journal, or nil if it is disabled.
func (p *Provider) Journal() (*relationaldb.Journal, error) {
	svc, err := p.container.Get(ServiceJournal)
	if err != nil {
		return nil, err
	}
	return svc.(*relationaldb.Journal), nil
}

// Metrics returns the prometheus registry.
func (p *Provider) Metrics() (*metrics.Registry, error) {
	svc, err := p.container.Get(ServiceMetrics)
	if err != nil {
		return nil, err
	}
	return svc.(*metrics.Registry), nil
}

// Stream returns the websocket transaction feed, or nil if it is disabled.
func (p *Provider) Stream() (*server.Stream, error) {
	svc, err := p.container.Get(ServiceStream)
	if err != nil {
		return nil, err
	}
	return svc.(*server.Stream), nil
}

// Engine returns the transaction engine.
func (p *Provider) Engine() (*tx.Engine, error) {
	svc, err := p.container.Get(ServiceTxEngine)
	if err != nil {
		return nil, err
	}
	return svc.(*tx.Engine), nil
}

// Server returns the HTTP API server.
func (p *Provider) Server() (*server.Server, error) {
	svc, err := p.container.Get(ServiceServer)
	if err != nil {
		return nil, err
	}
	return svc.(*server.Server), nil
}
