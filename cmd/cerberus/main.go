// Command cerberus runs the CAPTCHA challenge service: it issues distorted
// image challenges and verifies answers exactly once.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GreenledgerHQ/cerberus"
	"github.com/GreenledgerHQ/cerberus/internal"
	libcerberus "github.com/GreenledgerHQ/cerberus/lib"
	"github.com/GreenledgerHQ/cerberus/lib/captcha/render"
	"github.com/GreenledgerHQ/cerberus/lib/store"
	"github.com/facebookgo/flagenv"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/GreenledgerHQ/cerberus/lib/store/all"
)

var (
	bind         = flag.String("bind", ":8917", "network address to bind HTTP to")
	metricsBind  = flag.String("metrics-bind", ":9090", "network address to bind metrics to")
	slogLevel    = flag.String("slog-level", "INFO", "logging level (see https://pkg.go.dev/log/slog#hdr-Levels)")
	configFname  = flag.String("config", "", "path to YAML config file, defaults to the in-memory store")
	secret       = flag.String("secret", "", "pepper appended to challenge answers before hashing; a random one is generated when unset")
	challengeTTL = flag.Duration("challenge-ttl", cerberus.DefaultTTL, "how long an issued challenge stays answerable")
	maxAttempts  = flag.Int("max-attempts", cerberus.DefaultMaxAttempts, "verification call budget per challenge")
	answerLength = flag.Int("answer-length", cerberus.DefaultAnswerLength, "number of characters in a challenge answer")
	imageWidth   = flag.Int("image-width", cerberus.DefaultImageWidth, "challenge image width in pixels")
	imageHeight  = flag.Int("image-height", cerberus.DefaultImageHeight, "challenge image height in pixels")
	versionFlag  = flag.Bool("version", false, "print Cerberus version")
)

func main() {
	flagenv.Parse()
	flag.Parse()

	if *versionFlag {
		fmt.Println("cerberus", cerberus.Version)
		return
	}

	internal.InitSlog(*slogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	config := libcerberus.DefaultConfig()
	if *configFname != "" {
		var err error
		config, err = libcerberus.LoadConfig(*configFname)
		if err != nil {
			return err
		}
	}

	fac, ok := store.Get(config.Store.Backend)
	if !ok {
		return fmt.Errorf("unknown store backend %q (have: %v)", config.Store.Backend, store.Backends())
	}

	challengeStore, err := fac.Build(ctx, config.Store.Parameters)
	if err != nil {
		return fmt.Errorf("can't build store backend %q: %w", config.Store.Backend, err)
	}

	secretValue := *secret
	if secretValue == "" {
		secretValue = randomSecret()
		slog.Warn("no secret configured, generated a random one; outstanding challenges will not survive a restart and multi-instance deployments will not agree on digests")
	}

	srv, err := libcerberus.New(libcerberus.Options{
		Store:        challengeStore,
		Secret:       secretValue,
		ChallengeTTL: *challengeTTL,
		MaxAttempts:  *maxAttempts,
		AnswerLength: *answerLength,
		Render: render.Options{
			Width:  *imageWidth,
			Height: *imageHeight,
		},
	})
	if err != nil {
		return err
	}

	go metricsServer(ctx)

	h := &http.Server{
		Addr:     *bind,
		Handler:  srv,
		ErrorLog: internal.GetFilteredHTTPLogger(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "err", err)
		}
	}()

	slog.Info("cerberus is ready",
		"bind", *bind,
		"metricsBind", *metricsBind,
		"storeBackend", config.Store.Backend,
		"challengeTTL", challengeTTL.String(),
		"version", cerberus.Version,
	)

	if err := h.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func metricsServer(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	h := &http.Server{
		Addr:     *metricsBind,
		Handler:  mux,
		ErrorLog: internal.GetFilteredHTTPLogger(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := h.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during metrics shutdown", "err", err)
		}
	}()

	if err := h.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server failed", "err", err)
	}
}

func randomSecret() string {
	var raw [32]byte
	if _, err := rand.Read(raw[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(raw[:])
}
