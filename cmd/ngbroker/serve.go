package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flynn/noise"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nextgraph-core/ng/pkg/broker"
	"github.com/nextgraph-core/ng/pkg/config"
	"github.com/nextgraph-core/ng/pkg/metrics"
	"github.com/nextgraph-core/ng/pkg/netconn"
	"github.com/nextgraph-core/ng/pkg/object"
	"github.com/nextgraph-core/ng/pkg/verifier"
)

var (
	serveDev     bool
	serveVariant string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept broker-to-broker and client links and serve requests",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "bind the localhost development port instead of the public one")
	serveCmd.Flags().StringVar(&serveVariant, "variant", "core", "actor set this listener exposes: client, core, app, or admin")
	rootCmd.AddCommand(serveCmd)
}

func parseVariant(s string) (netconn.Variant, error) {
	switch s {
	case "client":
		return netconn.VariantClient, nil
	case "core":
		return netconn.VariantCore, nil
	case "app":
		return netconn.VariantApp, nil
	case "admin":
		return netconn.VariantAdmin, nil
	default:
		return 0, fmt.Errorf("unknown variant %q", s)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	zlog, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("ngbroker: build logger: %w", err)
	}
	defer zlog.Sync()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("ngbroker: load config: %w", err)
	}

	staticKeypair, err := readNoiseKey(cfg.Network.NoiseStaticKeyPath)
	if err != nil {
		return fmt.Errorf("ngbroker: load noise static key (run init-identity first): %w", err)
	}

	variant, err := parseVariant(serveVariant)
	if err != nil {
		return fmt.Errorf("ngbroker: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("ngbroker: open store: %w", err)
	}

	log := logrus.StandardLogger()
	tree := object.New(store, object.DefaultConfig())
	v := verifier.New(store, tree, verifier.NewMemoryDataset())
	b := broker.New(store, tree, v, log)

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector, err = metrics.New(b, cfg.Metrics.HealthLog)
		if err != nil {
			return fmt.Errorf("ngbroker: start metrics collector: %w", err)
		}
		defer collector.Close()
		if _, err := collector.StartServer(cfg.Metrics.BindAddress); err != nil {
			return fmt.Errorf("ngbroker: start metrics server: %w", err)
		}
		zlog.Info("metrics server listening", zap.String("address", cfg.Metrics.BindAddress))
	}

	port := cfg.Network.PublicPort
	if serveDev {
		port = cfg.Network.LocalDevPort
	}
	addr := fmt.Sprintf("%s:%d", cfg.Network.BindAddress, port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ngbroker: listen on %s: %w", addr, err)
	}
	defer ln.Close()
	zlog.Info("broker listening", zap.String("address", ln.Addr().String()))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if collector != nil {
		go collector.Run(ctx, 15*time.Second)
	}

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("ngbroker: accept: %w", err)
			}
		}
		go serveConn(conn, variant, staticKeypair, b, log)
	}
}

func serveConn(rw net.Conn, variant netconn.Variant, staticKeypair noise.DHKey, b *broker.Broker, log *logrus.Logger) {
	defer rw.Close()
	conn, err := netconn.AcceptServer(rw, variant, staticKeypair, b.Handler(variant), log)
	if err != nil {
		log.WithError(err).WithField("remote", rw.RemoteAddr()).Warn("ngbroker: handshake failed")
		return
	}
	b.RegisterActorTable(conn.ActorCount)
	if err := conn.ServeLoop(); err != nil {
		log.WithError(err).WithField("remote", rw.RemoteAddr()).Debug("ngbroker: connection closed")
	}
}
