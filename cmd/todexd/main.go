package main

import (
	"context"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/todex/todex-client/params"
	"github.com/todex/todex-client/pkg/api"
	"github.com/todex/todex-client/pkg/cache"
	"github.com/todex/todex-client/pkg/exchange"
	"github.com/todex/todex-client/pkg/session"
	"github.com/todex/todex-client/pkg/util"
)

func main() {
	cfg, err := params.LoadFromEnv("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Subscriptions need a streaming transport, so the RPC URL should be
	// ws:// or ipc.
	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		sugar.Fatalw("rpc_dial_failed", "url", cfg.Chain.RPCURL, "err", err)
	}
	defer client.Close()

	key, err := crypto.HexToECDSA(cfg.Chain.PrivateKey)
	if err != nil {
		sugar.Fatalw("invalid_private_key", "err", err)
	}
	signer, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(cfg.Chain.ChainID))
	if err != nil {
		sugar.Fatalw("signer_init_failed", "err", err)
	}
	account := crypto.PubkeyToAddress(key.PublicKey)
	sugar.Infow("wallet_connected", "account", account.Hex())

	contract, err := exchange.NewContract(client, cfg.Contracts.Exchange, cfg.Contracts.Token, signer)
	if err != nil {
		sugar.Fatalw("contract_init_failed", "err", err)
	}
	handler := exchange.NewHandler(contract, cfg.Contracts.Exchange, cfg.Contracts.Token)

	sess := session.New(handler, sugar)
	if cfg.CachePath != "" {
		trades, err := cache.Open(cfg.CachePath)
		if err != nil {
			// The cache is a warm-start convenience only.
			sugar.Warnw("trade_cache_disabled", "path", cfg.CachePath, "err", err)
		} else {
			defer trades.Close()
			sess.SetCache(trades)
		}
	}

	srv := api.NewServer(handler, sess, cfg.API.AllowedOrigins, sugar)
	sess.OnChange(srv.PushUpdate)

	if err := sess.Start(ctx); err != nil {
		sugar.Fatalw("session_start_failed", "err", err)
	}
	defer sess.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.API.Listen) }()

	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			sugar.Warnw("api_shutdown_failed", "err", err)
		}
	case err := <-errCh:
		sugar.Errorw("api_server_stopped", "err", err)
	}
}
