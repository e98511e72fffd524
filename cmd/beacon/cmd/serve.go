package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ferrisk/beacon/config"
	"github.com/ferrisk/beacon/creds"
	"github.com/ferrisk/beacon/internal/util"
	"github.com/ferrisk/beacon/platform"
	bboltstorage "github.com/ferrisk/beacon/storage/bbolt"
	"github.com/ferrisk/beacon/wifi"
)

var (
	configPath string
	dataDir    string
	tlsCert    string
	tlsKey     string
)

// tickInterval paces the main-loop work: link supervision and store
// sweeps.
const tickInterval = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the device web platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if dataDir != "" {
			cfg.Storage.DataDir = dataDir
		}
		if cfg.Device.Version == "dev" {
			cfg.Device.Version = Version
		}

		if err := os.MkdirAll(cfg.Storage.DataDir, 0o700); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		store, err := bboltstorage.NewStoreFromFile(cfg.Storage.DataDir+"/beacon.db", nil)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		region, err := creds.OpenFileRegion(cfg.Storage.DataDir + "/wifi.bin")
		if err != nil {
			return fmt.Errorf("opening credential region: %w", err)
		}
		defer region.Close()

		// On a development host the simulated radio stands in for the
		// wireless hardware; the process exits for a supervisor to
		// restart the way the device firmware resets itself.
		radio := wifi.NewSimRadio()
		restarter := wifi.RestarterFunc(func() {
			log.Info().Msg("restarting")
			os.Exit(0)
		})

		p := platform.New(cfg, radio, region, store, restarter, log)
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := p.Begin(ctx, nil); err != nil {
			return err
		}
		defer p.Shutdown()

		r := chi.NewRouter()
		r.Use(chimiddleware.RealIP)
		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Handle("/*", p.Handler())

		done := make(chan error, 2)

		httpServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("http server failed: %w", err)
				return
			}
			done <- nil
		}()

		var httpsServer *http.Server
		if cfg.Server.HTTPSEnabled {
			tlsConfig, err := buildTLSConfig(cfg.Device.Name)
			if err != nil {
				return err
			}
			httpsServer = &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPSPort),
				Handler:           r,
				TLSConfig:         tlsConfig,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			go func() {
				if err := httpsServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
					done <- fmt.Errorf("https server failed: %w", err)
					return
				}
				done <- nil
			}()
		}

		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		go func() {
			for {
				select {
				case <-ticker.C:
					p.Tick(ctx)
				case <-ctx.Done():
					return
				}
			}
		}()

		printBanner()
		log.Info().
			Stringer("mode", p.Mode()).
			Int("http_port", cfg.Server.HTTPPort).
			Bool("https", cfg.Server.HTTPSEnabled).
			Str("data_dir", cfg.Storage.DataDir).
			Msg("beacon up")

		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http shutdown failed: %w", err)
			}
			if httpsServer != nil {
				if err := httpsServer.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("https shutdown failed: %w", err)
				}
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// buildTLSConfig loads the configured key pair, or generates a
// self-signed certificate when none is provided.
func buildTLSConfig(deviceName string) (*tls.Config, error) {
	if tlsCert != "" && tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
		if err != nil {
			return nil, fmt.Errorf("loading TLS key pair: %w", err)
		}
		return &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}, nil
	}
	cert, err := util.GenerateSelfSignedCert(deviceName)
	if err != nil {
		return nil, fmt.Errorf("generating self-signed certificate: %w", err)
	}
	fmt.Println("Using self-signed runtime generated certificate for TLS")
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for persistent data (overrides config)")
	serveCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serveCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
