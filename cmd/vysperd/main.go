// Copyright 2026 The Mellium Contributors.
// Use of this source code is governed by the BSD 2-clause
// license that can be found in the LICENSE file.

// The vysperd command runs an XMPP server accepting client connections over
// TCP and, optionally, BOSH.
//
// For more information try running:
//
//	vysperd -help
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/spf13/pflag"

	xmpp "github.com/pokebadgerswithspoon/vysper"
	"github.com/pokebadgerswithspoon/vysper/auth"
	"github.com/pokebadgerswithspoon/vysper/bind"
	"github.com/pokebadgerswithspoon/vysper/bosh"
	"github.com/pokebadgerswithspoon/vysper/disco"
	"github.com/pokebadgerswithspoon/vysper/dispatch"
	"github.com/pokebadgerswithspoon/vysper/internal/config"
	"github.com/pokebadgerswithspoon/vysper/ping"
	"github.com/pokebadgerswithspoon/vysper/presence"
	"github.com/pokebadgerswithspoon/vysper/roster"
	"github.com/pokebadgerswithspoon/vysper/router"
	"github.com/pokebadgerswithspoon/vysper/server"
	"github.com/pokebadgerswithspoon/vysper/starttls"
	"github.com/pokebadgerswithspoon/vysper/version"
	"github.com/pokebadgerswithspoon/vysper/xtime"
)

const (
	envConfig = "VYSPER_CONFIG"
	release   = "0.1.0"
)

func main() {
	// Setup logging and a verbose logger that's disabled by default.
	logger := log.New(os.Stderr, "", log.LstdFlags)
	debug := log.New(io.Discard, "DEBUG ", log.LstdFlags)

	var (
		cfgPath = os.Getenv(envConfig)
		verbose bool
	)
	flags := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", flags.Name())
		fmt.Fprintf(os.Stderr, "\n  $%s: path to the configuration file\n\n", envConfig)
		flags.PrintDefaults()
	}
	flags.StringVarP(&cfgPath, "config", "c", cfgPath, "path to the YAML configuration file")
	flags.BoolVarP(&verbose, "verbose", "v", verbose, "turns on verbose debug logging")

	switch err := flags.Parse(os.Args[1:]); err {
	case pflag.ErrHelp:
		return
	case nil:
	default:
		logger.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal(err)
	}
	if verbose || cfg.Debug {
		debug.SetOutput(os.Stderr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, debug); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, cfg config.Config, logger, debug *log.Logger) error {
	domain, err := cfg.DomainJID()
	if err != nil {
		return err
	}
	mechs, err := cfg.SASLMechanisms()
	if err != nil {
		return err
	}
	tlsConfig, err := cfg.LoadTLS()
	if err != nil {
		return err
	}
	if tlsConfig == nil {
		logger.Printf("no TLS certificate configured, client streams will not be encrypted")
	}

	rt := xmpp.NewRuntime(domain,
		xmpp.Logger(logger),
		xmpp.DebugLogger(debug),
		xmpp.TLSConfig(tlsConfig),
		xmpp.StartTLSRequired(cfg.TLS.Required),
		xmpp.Mechanisms(mechs...),
		xmpp.WithAccounts(xmpp.Accounts(cfg.Accounts)),
		xmpp.WithRouter(router.NewTable()),
		xmpp.Storage(roster.StorageName, &roster.MemoryStore{}),
		xmpp.Storage(presence.StorageName, &presence.MemoryCache{}),
	)
	d, err := dispatch.New(rt,
		starttls.Module{},
		auth.Module{},
		bind.Module{},
		ping.Module{},
		disco.Module{},
		roster.New(nil),
		presence.New(nil),
		version.Module{Software: "vysperd", Release: release},
		xtime.Module{},
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 3)
	running := 1
	go func() {
		srv := server.New(d,
			server.ClientAddr(cfg.Client.Addr),
			server.HandshakeTimeout(cfg.Client.HandshakeTimeout),
		)
		logger.Printf("serving %s on %s", domain, cfg.Client.Addr)
		errc <- srv.ListenAndServe(ctx)
	}()

	if cfg.BOSH.Enabled {
		running += 2
		boshHandler := bosh.NewHandler(d,
			bosh.WaitCeiling(cfg.BOSH.Wait),
			bosh.MaxBodySize(cfg.BOSH.MaxBodySize),
			bosh.ReapInterval(cfg.BOSH.ReapInterval),
		)
		var h http.Handler = boshHandler
		if cfg.BOSH.Gzip {
			h = gzhttp.GzipHandler(h)
		}
		mux := http.NewServeMux()
		mux.Handle(cfg.BOSH.Path, h)
		httpSrv := &http.Server{
			Addr:              cfg.BOSH.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          logger,
		}
		go func() {
			errc <- boshHandler.Run(ctx)
		}()
		go func() {
			logger.Printf("serving BOSH on %s%s", cfg.BOSH.Addr, cfg.BOSH.Path)
			errc <- httpSrv.ListenAndServe()
		}()
		context.AfterFunc(ctx, func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Printf("shutting down BOSH listener: %v", err)
			}
		})
	}

	var firstErr error
	for ; running > 0; running-- {
		err := <-errc
		switch {
		case err == nil, errors.Is(err, context.Canceled), errors.Is(err, http.ErrServerClosed):
		default:
			logger.Printf("listener failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
			cancel()
		}
	}
	return firstErr
}
