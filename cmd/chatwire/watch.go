package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chatwire/internal/admin"
	"github.com/rickgao/chatwire/internal/connection"
	"github.com/rickgao/chatwire/internal/dispatch"
	"github.com/rickgao/chatwire/internal/logging"
	"github.com/rickgao/chatwire/internal/metrics"
	"github.com/rickgao/chatwire/internal/version"
	"github.com/rickgao/chatwire/internal/wire"
)

func watchCmd() *cobra.Command {
	var (
		configPath string
		readStdin  bool
		noAdmin    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Connect and print realtime events",
		Long: `Open the realtime session and print every event until interrupted.

With --stdin each input line is sent to the server as a client_message.
Health, status and Prometheus metrics are served on the admin port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			logger := logging.New(cfg.Log, os.Stderr)
			slog.SetDefault(logger)

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(reg)

			mgr := connection.NewManager(cfg.ManagerConfig(),
				connection.WithLogger(logger),
				connection.WithMetrics(m),
			)

			logger.Info("starting chatwire",
				"version", version.Version,
				"commit", version.Commit,
				"client_id", mgr.ClientID(),
				"url", mgr.URL(),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)

			mgr.Connect(printCallbacks(cmd.OutOrStdout(), logger))

			// Session: runs until shutdown, then closes cleanly.
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("shutting down...")
				mgr.Close()
				return nil
			})

			if !noAdmin {
				server := &http.Server{
					Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
					Handler:           admin.NewRouter(mgr, reg, cfg.Admin.MetricsPath, logger),
					ReadHeaderTimeout: 5 * time.Second,
				}

				g.Go(func() error {
					logger.Info("starting admin server", "port", cfg.Admin.Port)
					if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return fmt.Errorf("admin server: %w", err)
					}
					return nil
				})

				g.Go(func() error {
					<-gctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					return server.Shutdown(shutdownCtx)
				})
			}

			if readStdin {
				// Not part of the group: a blocked stdin read must not hold up shutdown.
				go func() {
					if err := pumpLines(os.Stdin, mgr); err != nil {
						logger.Warn("stdin read failed", "error", err)
					}
				}()
			}

			err = g.Wait()
			logger.Info("chatwire stopped")
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults if empty)")
	cmd.Flags().BoolVar(&readStdin, "stdin", false, "send each stdin line as a client message")
	cmd.Flags().BoolVar(&noAdmin, "no-admin", false, "do not serve the admin endpoints")

	return cmd
}

// sender is the outbound side of the session.
type sender interface {
	ClientID() string
	Send(payload wire.Outbound)
}

// pumpLines sends every non-blank line from r until EOF.
func pumpLines(r io.Reader, s sender) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.Send(wire.Outbound{
			"type":      "client_message",
			"client_id": s.ClientID(),
			"text":      line,
		})
	}
	return scanner.Err()
}

// printCallbacks renders domain events to out and logs lifecycle events.
func printCallbacks(out io.Writer, logger *slog.Logger) dispatch.Callbacks {
	return dispatch.Callbacks{
		OnConnecting:   func() { logger.Info("session connecting") },
		OnConnected:    func() { logger.Info("session connected") },
		OnDisconnected: func() { logger.Info("session disconnected") },
		OnError: func(message string) {
			fmt.Fprintf(out, "! error: %s\n", message)
		},
		OnNewMessage: func(msg wire.Message) {
			fmt.Fprintf(out, "[%s] %s %s: %s\n",
				msg.CreatedAt.Local().Format(time.TimeOnly), msg.ChatID, msg.Role, msg.Content)
		},
		OnChatsUpdated: func() {
			fmt.Fprintln(out, "* chats updated")
		},
		OnProcessingStarted: func(chatID string) {
			fmt.Fprintf(out, "* processing started in chat %s\n", chatID)
		},
	}
}
