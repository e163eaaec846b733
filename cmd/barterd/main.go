// Command barterd runs the NFT barter discovery engine as a standalone CLI:
// it reads newline-delimited JSON mutations from stdin, submits each to a
// single in-process tenant, and prints the resulting active loops and status
// as JSON to stdout on EOF.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/internal/env"
	"github.com/barterlabs/loopengine/internal/logger"
	"github.com/barterlabs/loopengine/internal/logtransport"
	"github.com/barterlabs/loopengine/internal/memstore"
	"github.com/barterlabs/loopengine/internal/sentryutil"
	"github.com/barterlabs/loopengine/registry"
	"github.com/barterlabs/loopengine/tenant"
)

// Exit codes per the ingestion API's failure contract.
const (
	exitOK            = 0
	exitInvalidConfig = 64
	exitTenantNotFound = 69
	exitTimeout       = 75
	exitInternal      = 70
)

func main() {
	os.Exit(run())
}

func run() int {
	env.SetDefaults()
	logger.InitWithGCPDefaults()

	if dsn := env.GetString("SENTRY_DSN"); dsn != "" {
		if err := sentryutil.Init(dsn, env.GetString("ENV")); err != nil {
			logger.For(context.Background()).WithError(err).Warn("sentry init failed, continuing without it")
		}
		defer sentryutil.Flush()
	}

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		return exitCodeFor(err)
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "barterd",
		Short: "NFT barter loop discovery engine",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newStatusCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var tenantID string
	var displayName string
	var webhookURL string
	var webhookSecret string
	var maxDepth int
	var minScore float64

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Ingest mutations from stdin for a single tenant and report discovered loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := tenant.DefaultConfig()
			if maxDepth > 0 {
				cfg.MaxDepth = maxDepth
			}
			if minScore > 0 {
				cfg.MinScore = minScore
			}
			if webhookURL != "" {
				cfg.Webhook.URL = webhookURL
				cfg.Webhook.Secret = webhookSecret
				cfg.Webhook.Enabled = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				sigCh := make(chan os.Signal, 1)
				signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
				<-sigCh
				cancel()
			}()

			eng := tenant.NewEngine(memstore.New(), logtransport.New())
			if err := eng.CreateTenant(ctx, tenantID, displayName, cfg); err != nil {
				return err
			}

			if err := ingest(ctx, eng, tenantID, cmd.InOrStdin()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			return report(eng, tenantID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "demo", "tenant id to ingest into")
	cmd.Flags().StringVar(&displayName, "name", "Demo Tenant", "tenant display name, used in webhook payloads")
	cmd.Flags().StringVar(&webhookURL, "webhook-url", "", "webhook endpoint; enables delivery when set")
	cmd.Flags().StringVar(&webhookSecret, "webhook-secret", "", "webhook HMAC secret")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "override tenant maxDepth (2..12)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "override tenant minScore (0..1)")

	return cmd
}

// newStatusCmd loads a tenant through the wired Store (without ingesting any
// new mutations) and reports its current counts and active loops, per
// spec.md §6's status(tenantId) operation.
func newStatusCmd() *cobra.Command {
	var tenantID string
	var displayName string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report a tenant's current counts, active loops, and metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := tenant.DefaultConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}

			eng := tenant.NewEngine(memstore.New(), logtransport.New())
			if err := eng.CreateTenant(cmd.Context(), tenantID, displayName, cfg); err != nil {
				return err
			}

			return report(eng, tenantID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "demo", "tenant id to report status for")
	cmd.Flags().StringVar(&displayName, "name", "Demo Tenant", "tenant display name, used in webhook payloads")

	return cmd
}

func ingest(ctx context.Context, eng *tenant.Engine, tenantID string, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		m, trigger, err := parseMutation(line)
		if err != nil {
			return err
		}
		if err := eng.Submit(ctx, tenantID, m, trigger); err != nil {
			return err
		}
	}
	return scanner.Err()
}

type serveReport struct {
	Status tenant.Status      `json:"status"`
	Loops  []json.RawMessage  `json:"loops"`
}

func report(eng *tenant.Engine, tenantID string, out io.Writer) error {
	status, err := eng.Status(tenantID)
	if err != nil {
		return err
	}
	loops, err := eng.QueryLoops(tenantID, registry.Query{})
	if err != nil {
		return err
	}

	encoded := make([]json.RawMessage, 0, len(loops))
	for _, l := range loops {
		b, err := json.Marshal(l)
		if err != nil {
			return err
		}
		encoded = append(encoded, b)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(serveReport{Status: status, Loops: encoded})
}

func exitCodeFor(err error) int {
	var invalid bterr.ErrInvalidInput
	var notFound tenant.ErrTenantNotFound
	var internal bterr.ErrInternal
	var cancelled bterr.ErrCancelled

	switch {
	case errors.As(err, &invalid):
		return exitInvalidConfig
	case errors.As(err, &notFound):
		return exitTenantNotFound
	case errors.As(err, &cancelled):
		return exitTimeout
	case errors.As(err, &internal):
		return exitInternal
	default:
		fmt.Fprintln(os.Stderr, err)
		return exitInternal
	}
}
