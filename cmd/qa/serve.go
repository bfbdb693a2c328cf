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

	"github.com/charmbracelet/log"
	"github.com/sonnes/qachat/core"
	"github.com/sonnes/qachat/server"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local mock backend for development",
		Description: `Serves the chat API on --addr with sessions kept in a SQLite file.
Answers rotate through canned responses. A development user is signed in
at startup and its session token is printed for use with --session.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Address to listen on",
				Value: ":8000",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "SQLite database path",
				Value: "qachat.sqlite",
			},
			&cli.DurationFlag{
				Name:  "latency",
				Usage: "Delay before each answer",
				Value: 500 * time.Millisecond,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			store, err := server.OpenSQLite(cmd.String("db"))
			if err != nil {
				return err
			}
			defer store.Close()

			srv := server.New(store)
			srv.Latency = cmd.Duration("latency")

			token, err := srv.SignIn(ctx, core.MockUser)
			if err != nil {
				return fmt.Errorf("sign in development user: %w", err)
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpServer := &http.Server{
				Addr:              cmd.String("addr"),
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- httpServer.ListenAndServe()
			}()

			log.Info("serving", "addr", cmd.String("addr"), "db", cmd.String("db"))
			fmt.Printf("QACHAT_SESSION=%s\n", token)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
}
