package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/walletmux/walletmux/internal/envconfig"
	"github.com/walletmux/walletmux/pkg/connector"
	"github.com/walletmux/walletmux/pkg/connector/hostedwallet"
	"github.com/walletmux/walletmux/pkg/logging"
	"github.com/walletmux/walletmux/pkg/walletsdk"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log warning since .env is optional
		logrus.WithError(err).Warn("Error loading .env file")
	}

	// Initialize logger
	log := logrus.New()
	log.SetFormatter(logging.NewColoredJSONFormatter())

	cfg, err := envconfig.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configured := cfg.Chains()

	conn, err := hostedwallet.New(configured, hostedwallet.Config{
		Factory: walletsdk.RemoteFactory(walletsdk.RemoteConfig{
			RPCURL:            cfg.RPCURL,
			Accounts:          cfg.Accounts,
			ChainID:           cfg.ChainID,
			Chains:            configured,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Logger:            log,
		}),
		Logger: log,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create connector")
	}

	unsubscribe := conn.Subscribe(func(ev connector.Event) {
		fields := logrus.Fields{"event": ev.Type}
		if ev.Account != "" {
			fields["account"] = ev.Account
		}
		if ev.Chain != nil {
			fields["chain_id"] = ev.Chain.ID
			fields["unsupported"] = ev.Chain.Unsupported
		}
		log.WithFields(fields).Info("Connector event")
	})
	defer unsubscribe()

	result, err := conn.Connect(ctx, connector.ConnectOptions{ChainID: cfg.TargetChainID})
	if err != nil {
		log.WithError(err).Fatal("Failed to connect wallet")
	}
	log.WithFields(logrus.Fields{
		"account":     result.Account,
		"chain_id":    result.Chain.ID,
		"unsupported": result.Chain.Unsupported,
	}).Info("Connected")

	// Run until interrupted, relaying wallet events
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down")
	if err := conn.Disconnect(ctx); err != nil {
		log.WithError(err).Error("Failed to disconnect wallet")
	}
}
