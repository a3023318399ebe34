package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/handlers"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/middleware"
)

const shutdownTimeout = 10 * time.Second

func buildServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API, health checks, stored runs and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, *configPath)
		},
	}
}

func buildAskCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask questions about the logistics graph",
		Long: `Answer a single question given as arguments, or read questions from stdin
until "exit" or end of input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, *configPath, strings.Join(args, " "))
		},
	}
}

func runServe(cmd *cobra.Command, configPath string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	g, err := a.Graph(ctx)
	if err != nil {
		return err
	}
	chat, err := a.ChatService(ctx)
	if err != nil {
		return err
	}
	runs, err := a.Runs(ctx)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	handlers.NewHealthHandler(a.cfg, g, a.logger).RegisterRoutes(mux)
	handlers.NewChatHandler(chat, a.logger).RegisterRoutes(mux)
	if runs != nil {
		handlers.NewRunsHandler(runs, a.logger).RegisterRoutes(mux)
	}
	if a.cfg.Metrics.Enabled {
		mux.Handle("GET "+a.cfg.Metrics.Path, a.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = middleware.RequestLogger(a.logger)(handler)
	handler = middleware.CORS(a.cfg.AllowedOriginList())(handler)

	addr := net.JoinHostPort(a.cfg.BindAddr, a.cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	a.logger.Info("Starting ekaya-cypher-eval",
		zap.String("addr", addr),
		zap.String("version", a.cfg.Version),
		zap.Bool("runs_api", runs != nil))

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP server shutdown error", zap.Error(err))
	}
	return nil
}

func runAsk(cmd *cobra.Command, configPath, question string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	chat, err := a.ChatService(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	answer := func(q string) {
		resp, err := chat.Answer(ctx, q)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return
		}
		if resp.Cypher != "" {
			fmt.Fprintf(out, "Cypher: %s\n", resp.Cypher)
		}
		fmt.Fprintf(out, "Answer: %s\n", resp.Response)
	}

	if question != "" {
		answer(question)
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\nQuestion (or 'exit'): ")
		if !scanner.Scan() {
			break
		}
		q := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(q, "exit") {
			break
		}
		if q == "" {
			continue
		}
		answer(q)
		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}
