package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/credlink/openbank-credit/bank"
	"github.com/credlink/openbank-credit/credentials"
	"github.com/credlink/openbank-credit/internal/config"
	"github.com/credlink/openbank-credit/server"
	"github.com/credlink/openbank-credit/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Error().Err(err).Msg("error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	initLogging(c.GetLogLevel())
	displayAppname(c.GetAppName())

	creds, err := loadCredentials(c)
	if err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	exchanger := bank.NewExchangeClient(c.GetTokenEndpoint(),
		bank.WithTLSConfig(creds.TLSConfig()),
		bank.WithTimeout(c.GetTokenRequestTimeout()),
		bank.WithExpiryBuffer(c.GetTokenExpiryBuffer()),
		bank.WithLogger(log.Logger),
	)
	fetcher := bank.NewDataClient(c.GetAccountDataBaseURL(),
		bank.WithDataTLSConfig(creds.TLSConfig()),
		bank.WithDataRateLimit(c.GetDataFetchRateLimit()),
		bank.WithDataLogger(log.Logger),
	)
	sessionRepo := sessions.NewInMemoryRepo(c.GetMaxSessionAge())

	var options []server.ServerOption
	if issuer := c.GetBankIssuerURL(); issuer != "" {
		options = append(options, server.WithIDVerifier(bank.NewIDTokenVerifier(issuer, c.GetBankClientID())))
	}

	srv, err := server.New(c, creds, exchanger, fetcher, sessionRepo, options...)
	if err != nil {
		return fmt.Errorf("server.New: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func loadCredentials(c config.Config) (*credentials.Store, error) {
	certFile := c.GetClientCertFile()
	keyFile := c.GetClientKeyFile()
	signingKeyFile := c.GetSigningKeyFile()
	if certFile == "" || keyFile == "" || signingKeyFile == "" {
		log.Warn().Msg("client credentials not configured; using ephemeral development credentials")
		return credentials.NewEphemeral()
	}
	return credentials.Load(certFile, keyFile, signingKeyFile)
}

func initLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
