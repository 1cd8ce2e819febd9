package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/injectivepass/nfc_service/api"
	"github.com/injectivepass/nfc_service/chain"
	"github.com/injectivepass/nfc_service/config"
	"github.com/injectivepass/nfc_service/db"
	"github.com/injectivepass/nfc_service/domain"
	"github.com/injectivepass/nfc_service/logger"
	"github.com/injectivepass/nfc_service/metrics"
	"github.com/injectivepass/nfc_service/repository"
	"github.com/injectivepass/nfc_service/service"
	"github.com/injectivepass/nfc_service/utils"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "injpass",
		Short:         "Injective Pass NFC wallet service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (env overrides it)")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create MongoDB indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context(), configPath)
		},
	})
	return root
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func migrate(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoRepo, err := db.NewMongoRepo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer mongoRepo.Close(context.Background()) //nolint:errcheck

	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	log.Info("all indexes initialized", zap.String("database", cfg.Mongo.Database))
	return nil
}

// chainDeps groups the chain collaborators so an offline stand-in can
// replace all of them at once.
type chainDeps struct {
	funder    service.Funder
	balances  service.BalanceReader
	status    service.StatusReader
	binder    service.CardBinder
	registrar service.DomainRegistrar
	minter    service.CatMinter
	close     func()
}

func dialChain(ctx context.Context, cfg config.ChainConfig, log *zap.Logger) (*chainDeps, error) {
	if !cfg.Enabled {
		log.Warn("chain disabled, wallets will not be funded")
		off := chain.Offline{}
		return &chainDeps{off, off, off, off, off, off, func() {}}, nil
	}

	eth, err := chain.NewETHChain(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	domains, err := chain.NewDomainRegistry(eth)
	if err != nil {
		return nil, err
	}
	nfcs, err := chain.NewNFCRegistry(eth)
	if err != nil {
		return nil, err
	}
	cats, err := chain.NewCatNFT(eth)
	if err != nil {
		return nil, err
	}
	log.Info("chain connected", zap.String("master", eth.MasterAddress().Hex()))
	return &chainDeps{
		funder:    eth,
		balances:  eth,
		status:    eth,
		binder:    nfcs,
		registrar: domains,
		minter:    cats,
		close:     eth.Close,
	}, nil
}

func serve(ctx context.Context, configPath string) error {
	cfg, log, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		return err
	}

	// 1. 加密密钥
	aesKey, err := domain.KeyFromConfig(cfg.Crypto.AESKey, cfg.Crypto.Salt)
	if err != nil {
		return fmt.Errorf("load AES key: %w", err)
	}
	cipher, err := domain.NewCipher(aesKey)
	if err != nil {
		return err
	}
	fundAmount, err := utils.INJToWei(cfg.Funding.Amount)
	if err != nil {
		return fmt.Errorf("funding.amount: %w", err)
	}

	// 2. 存储
	var (
		repo  repository.WalletRepository
		store api.Pinger
	)
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store, wallets are lost on restart")
		repo = repository.NewMemoryWalletRepo()
	default:
		mongoRepo, err := db.NewMongoRepo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer mongoRepo.Close(context.Background()) //nolint:errcheck
		if err := mongoRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		repo = repository.NewMongoWalletRepo(mongoRepo.WalletColl)
		store = mongoRepo
	}

	// 3. 链
	chainCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	deps, err := dialChain(chainCtx, cfg.Chain, log)
	cancel()
	if err != nil {
		return fmt.Errorf("connect chain: %w", err)
	}
	defer deps.close()

	// 4. 服务
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	keys := domain.NewKeyGenerator(cfg.Chain.Bech32Prefix)
	nfcService := service.NewNFCService(service.NFCServiceDeps{
		Repo:        repo,
		Keys:        keys,
		Cipher:      cipher,
		Funder:      deps.funder,
		Binder:      deps.binder,
		Log:         log,
		Metrics:     m,
		FundAmount:  fundAmount,
		FundTimeout: cfg.Funding.Timeout,
	})
	domainService := service.NewDomainService(repo, deps.registrar, log, m)
	catService := service.NewCatService(repo, deps.minter, log, m)
	chainService := service.NewChainService(deps.balances, deps.status, keys.Prefix())

	// 5. HTTP
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.RouterDeps{
		NFC:      api.NewNFCHandler(nfcService, domainService, catService, chainService, log),
		Store:    store,
		Gatherer: reg,
		Log:      log,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server start failed: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	// let background funding jobs finish before closing the store
	nfcService.Wait()
	log.Info("server stopped")
	return nil
}
