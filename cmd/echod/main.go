// Command echod runs Echo's local audio sidecar: it ingests agent hook
// events over HTTP and transcript files on disk, narrates them, and listens
// for spoken responses to blocked prompts. The hook shell stub, settings
// backup, and daemonization pieces of the CLI are out of scope here.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/echohq/echo/internal/config"
	echoapp "github.com/echohq/echo/internal/echo"
	"github.com/echohq/echo/internal/httpserver"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	httpAddress := flag.String("http-address", "", "override ECHO_HTTP_ADDRESS")
	envFile := flag.String("env-file", "", "load environment variables from this file first; ./.env still fills keys it leaves unset")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			log.Fatalf("loading %s: %v", *envFile, err)
		}
	}

	cfg := config.Load()
	if *httpAddress != "" {
		cfg.HTTPAddress = *httpAddress
	}

	app := echoapp.New(cfg)
	app.Start(context.Background())
	defer app.Stop()

	srv := httpserver.New(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("echod listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
