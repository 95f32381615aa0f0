// Command stubserver runs the in-process auth backend on a local port so the
// intranet CLI and SDK can be exercised without the real directory. Dev use
// only; every seeded account has the password "x".
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-intranet-client/backendtest"
	"github.com/jrsteele09/go-intranet-client/internal/config"
	"github.com/jrsteele09/go-intranet-client/users"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running stub server: %s\n", err)
	}
	log.Printf("Stub server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	displayAppname("intranet stub")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	backend, err := backendtest.New(cfg.TokenSecret, backendtest.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := seedUsers(backend); err != nil {
		return err
	}

	server := &http.Server{Addr: cfg.ListenAddr, Handler: backend}
	go listenAndServe(server) // nolint: errcheck
	waitForStopSignal()
	return shutdown(server)
}

// seedUsers loads the development directory.
func seedUsers(backend *backendtest.Backend) error {
	seed := []users.User{
		{Code: "DBAMV", Name: "Administrador MV", Role: "admin"},
		{Code: "F04821", Name: "Gerente de Unidade", Role: "gerente"},
		{Code: "F10032", Name: "Usuário Padrão", Role: "user"},
	}
	for _, user := range seed {
		if err := backend.AddUser(user, "x"); err != nil {
			return err
		}
	}
	return nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Stub server listening on %s\n", server.Addr)
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
