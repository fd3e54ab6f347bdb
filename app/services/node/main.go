package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/ledger/app/services/node/handlers"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/index/leveldb"
	indexmem "github.com/ardanlabs/ledger/foundation/blockchain/database/index/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/script"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/logger"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// This is all the configuration for the application and the default values.
	// Configuration values will be passed through the application as individual
	// values.
	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
			CORSOrigins     []string      `conf:"default:*"`
		}
		State struct {
			MinerKey        string `conf:"default:zblock/wallets/miner1.ecdsa"`
			GenesisPath     string `conf:"default:zblock/genesis.json"`
			DBPath          string `conf:"default:zblock/miner1/"`
			Storage         string `conf:"default:disk"`
			SelectStrategy  string `conf:"default:fifo"`
			Workers         int    `conf:"default:0"`
			MineEmptyBlocks bool   `conf:"default:true"`
			Mining          bool   `conf:"default:true"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/wallets/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Blockchain Support

	// The chain parameters every node must agree on.
	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	// Need to load the private key file for the configured miner so the
	// mining rewards can be locked to it.
	alg, privateKey, err := loadMinerKey(cfg.State.MinerKey)
	if err != nil {
		return fmt.Errorf("unable to load private key for node: %w", err)
	}

	publicKey, err := signature.PublicKey(alg, privateKey)
	if err != nil {
		return fmt.Errorf("unable to derive public key for node: %w", err)
	}

	minerLock, err := script.LockP2PKH(alg, script.PublicKeyHash(publicKey))
	if err != nil {
		return fmt.Errorf("unable to build miner locking script: %w", err)
	}

	// The name service maps public key hashes to the wallet key files found
	// in the folder. It is only used to make the logs and api readable.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load name service: %w", err)
	}

	log.Infow("startup", "status", "miner", "algorithm", alg, "name", ns.Lookup(script.PublicKeyHash(publicKey)))

	// The blockchain packages accept a function of this signature to allow the
	// application to log. Block events are also sent to any websocket client
	// that is connected into the system through the events package.
	evts := events.New()
	send := evts.Handler(state.BlockEventPrefix)
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		send(v, args...)
	}

	strg, index, err := openStorage(cfg.State.Storage, cfg.State.DBPath, ev)
	if err != nil {
		return err
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		MinerLock:       minerLock,
		Genesis:         gen,
		Storage:         strg,
		Index:           index,
		SelectStrategy:  cfg.State.SelectStrategy,
		Workers:         cfg.State.Workers,
		MineEmptyBlocks: cfg.State.MineEmptyBlocks,
		EvHandler:       ev,
	})
	if err != nil {
		strg.Close()
		index.Close()
		return err
	}
	defer st.Shutdown()

	log.Infow("startup", "status", "chain loaded", "height", st.RetrieveHeight(), "latest", st.RetrieveLatestBlock().Hash())

	// The worker package implements the mining workflow. The worker will
	// register itself with the state. With empty blocks allowed, a block is
	// mined at startup so the miner has rewards to spend.
	if cfg.State.Mining {
		w := worker.Run(st, ev)
		if st.IsMiningEmptyAllowed() {
			w.SignalStartMining()
		}
	}

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.

	// Construct the mux for the debug calls.
	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	// Construct the mux for the public API calls.
	publicMux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Evts:     evts,
		NS:       ns,
		Origins:  cfg.Web.CORSOrigins,
	})

	// Construct a server to service the requests against the mux.
	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      publicMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	// Construct the mux for the private API calls.
	privateMux := handlers.PrivateMux(handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
	})

	// Construct a server to service the requests against the mux.
	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      privateMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// openStorage constructs the block storage and index for the configured
// kind. Disk storage keeps the index in leveldb next to the block files.
func openStorage(kind string, dbPath string, ev func(v string, args ...any)) (database.Storage, database.Index, error) {
	switch kind {
	case "memory":
		return memory.New(), indexmem.New(), nil

	case "disk":
		strg, err := disk.New(dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("unable to open block storage: %w", err)
		}

		index, err := leveldb.New(filepath.Join(dbPath, "index"), ev)
		if err != nil {
			strg.Close()
			return nil, nil, fmt.Errorf("unable to open index: %w", err)
		}

		return strg, index, nil
	}

	return nil, nil, fmt.Errorf("unknown storage %q", kind)
}

// loadMinerKey reads the miner's private key, generating and saving a new
// one when the file does not exist yet.
func loadMinerKey(path string) (signature.Algorithm, []byte, error) {
	alg, privateKey, err := signature.LoadKey(path)
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		return alg, privateKey, err
	}

	alg, err = signature.ParseAlgorithm(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return 0, nil, err
	}

	privateKey, _, err = signature.GenerateKey(alg)
	if err != nil {
		return 0, nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, nil, err
	}

	if err := signature.SaveKey(path, alg, privateKey); err != nil {
		return 0, nil, err
	}

	return alg, privateKey, nil
}
