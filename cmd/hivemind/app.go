package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hivemind-swarm/hivemind/internal/adapter/evm"
	hmnats "github.com/hivemind-swarm/hivemind/internal/adapter/nats"
	"github.com/hivemind-swarm/hivemind/internal/adapter/natskv"
	hmotel "github.com/hivemind-swarm/hivemind/internal/adapter/otel"
	"github.com/hivemind-swarm/hivemind/internal/adapter/ristretto"
	"github.com/hivemind-swarm/hivemind/internal/adapter/tiered"
	"github.com/hivemind-swarm/hivemind/internal/config"
	"github.com/hivemind-swarm/hivemind/internal/domain/address"
	"github.com/hivemind-swarm/hivemind/internal/port/broadcast"
	"github.com/hivemind-swarm/hivemind/internal/port/cache"
	"github.com/hivemind-swarm/hivemind/internal/port/ledger"
	"github.com/hivemind-swarm/hivemind/internal/resilience"
	"github.com/hivemind-swarm/hivemind/internal/secrets"
	"github.com/hivemind-swarm/hivemind/internal/service"
)

// appDeps are the optional collaborators an app is built with.
type appDeps struct {
	Broadcaster broadcast.Broadcaster // nil disables push
	Queue       *hmnats.Queue         // nil disables the L2 cache tier
	Metrics     *hmotel.Metrics
	// Passphrase returns the keystore passphrase when the config carries
	// none. nil means the wallet cannot be unlocked interactively.
	Passphrase func() (string, error)
	// Confirm, when set, is asked before every signature.
	Confirm evm.ConfirmFunc
	// ReadOnly skips unlocking the wallet.
	ReadOnly bool
	Secrets  *secrets.Vault
}

// app is the wired ledger client, views and action service shared by the
// server and the CLI.
type app struct {
	cfg     *config.Config
	client  *evm.Client
	signer  *evm.Signer // nil in read-only mode
	fetcher *service.RecordFetcher
	model   *service.ReadModel
	actions *service.ActionService
	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, deps appDeps) (*app, error) {
	coordinator, err := address.Parse(cfg.Ledger.CoordinatorAddress)
	if err != nil {
		return nil, fmt.Errorf("ledger.coordinator_address: %w", err)
	}
	token, err := address.Parse(cfg.Ledger.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("ledger.token_address: %w", err)
	}

	client, eth, err := evm.Dial(ctx, cfg.Ledger.RPCURL, coordinator, token)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, client: client, closers: []func(){eth.Close}}

	a.fetcher = service.NewRecordFetcher(client, resilience.NewPool(cfg.Ledger.MaxConcurrentReads))
	a.fetcher.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	c, err := a.buildCache(ctx, deps.Queue)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.fetcher.SetCache(c)

	a.model = service.NewReadModel(client, a.fetcher, deps.Broadcaster)

	var writer ledger.Writer
	if cfg.Wallet.KeystorePath != "" && !deps.ReadOnly {
		a.signer, err = a.unlock(ctx, eth, deps)
		if err != nil {
			a.Close()
			return nil, err
		}
		writer = a.signer
	}
	a.actions = service.NewActionService(a.model, client, writer, cfg.Ledger.ConfirmTimeout)

	if deps.Broadcaster != nil {
		a.actions.SetBroadcaster(deps.Broadcaster)
	}
	if deps.Metrics != nil {
		a.fetcher.SetMetrics(deps.Metrics)
		a.model.SetMetrics(deps.Metrics)
		a.actions.SetMetrics(deps.Metrics)
	}
	return a, nil
}

// buildCache assembles the frozen-record cache: ristretto in process, backed
// by a NATS KV bucket when one is configured and a queue is connected.
func (a *app) buildCache(ctx context.Context, q *hmnats.Queue) (cache.Cache, error) {
	l1, err := ristretto.New(a.cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return nil, fmt.Errorf("l1 cache: %w", err)
	}
	a.closers = append(a.closers, l1.Close)

	var l2 cache.Cache
	if q != nil && a.cfg.Cache.L2Bucket != "" {
		kv, err := natskv.Open(ctx, q.JetStream(), a.cfg.Cache.L2Bucket, a.cfg.Cache.L2TTL)
		if err != nil {
			return nil, err
		}
		l2 = kv
		slog.Info("l2 cache enabled", "bucket", a.cfg.Cache.L2Bucket)
	}
	return tiered.New(l1, l2, time.Hour), nil
}

func (a *app) unlock(ctx context.Context, eth *ethclient.Client, deps appDeps) (*evm.Signer, error) {
	passphrase := a.cfg.Wallet.Passphrase
	if passphrase == "" {
		passphrase = deps.Secrets.Get(secrets.KeystorePassphrase)
	}
	if passphrase == "" && deps.Passphrase != nil {
		p, err := deps.Passphrase()
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		passphrase = p
	}
	key, err := evm.LoadKey(a.cfg.Wallet.KeystorePath, passphrase)
	if err != nil {
		return nil, err
	}

	chainID := a.cfg.Ledger.ChainID
	if remote, err := eth.ChainID(ctx); err == nil && remote.Int64() != chainID {
		return nil, fmt.Errorf("rpc chain id %s does not match ledger.chain_id %d", remote, chainID)
	}

	s, err := evm.NewSigner(a.client, key, chainID)
	if err != nil {
		return nil, err
	}
	if deps.Confirm != nil {
		s.SetConfirm(deps.Confirm)
	}
	slog.Info("wallet unlocked", "account", s.Account().Checksum())
	return s, nil
}

func newVault(cfg *config.Config) (*secrets.Vault, error) {
	return secrets.NewVault(secrets.Merge(
		secrets.EnvLoader(secrets.KeystorePassphrase, secrets.MCPAPIKey),
		secrets.FileLoader(cfg.SecretsFile),
	))
}

// Close releases the RPC connection and caches.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
