package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/random-robbie/Flight-Search-MCP-Server/internal/audit"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/config"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/flights"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/policy"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/secrets"
	"github.com/random-robbie/Flight-Search-MCP-Server/internal/server"
)

var (
	configPath    string
	transportType string
	port          int
	auditLogPath  string
	logLevel      string
	dryRun        bool
)

func main() {
	root := &cobra.Command{
		Use:   "flight-search",
		Short: "Flight search MCP server",
	}

	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Serve the flight search tools over JSON-RPC",
		RunE:         runServe,
		SilenceUsage: true,
	}
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to config file (optional)")
	serveCmd.Flags().StringVar(&transportType, "connection-type", "", "transport to serve on (stdio, http)")
	serveCmd.Flags().IntVar(&port, "port", 0, "port for the http transport")
	serveCmd.Flags().StringVar(&auditLogPath, "audit-log", "", "path to audit log file (default: stderr)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&dryRun, "dry-run", false, "evaluate search policy but allow all calls")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		RunE:  runValidate,
	}
	validateCmd.Flags().StringVar(&configPath, "config", "flight-search.yaml", "path to config file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Default()
			fmt.Printf("%s v%s\n", cfg.Server.Name, cfg.Server.Version)
		},
	}

	root.AddCommand(serveCmd, validateCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Pick up SERP_API_KEY and friends from a local .env if present.
	_ = godotenv.Load()

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if transportType != "" {
		cfg.Transport.Type = transportType
	}
	if port != 0 {
		cfg.Transport.Port = port
	}
	if auditLogPath != "" {
		cfg.AuditLog = auditLogPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	configureLogging(cfg.LogLevel)

	apiKey, cleanup, err := resolveCredential(cfg)
	if err != nil {
		return fmt.Errorf("resolving SerpAPI credential: %w", err)
	}
	defer cleanup()

	auditWriter := io.Writer(os.Stderr)
	if cfg.AuditLog != "" {
		f, err := os.OpenFile(cfg.AuditLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer f.Close()
		auditWriter = f
	}
	auditor := audit.New(auditWriter, apiKey)

	searcher := flights.NewClient(apiKey, cfg.Search)
	engine := policy.NewEngine(cfg.Search)
	invoker := server.NewInvoker(searcher, engine, auditor, dryRun)
	dispatcher, err := server.NewDispatcher(server.NewRegistry(), invoker, cfg.Server)
	if err != nil {
		return err
	}

	transport, err := server.NewTransport(cfg.Transport, dispatcher, auditor)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"server":    cfg.Server.Name,
		"transport": transport.Name(),
	}).Info("starting flight search MCP server")

	auditor.LogStartup(cfg.Server.Name, transport.Name())
	defer auditor.LogShutdown(cfg.Server.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- transport.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logrus.Info("interrupt received, shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// resolveCredential fetches the SerpAPI key through the configured
// secret reference. The cleanup stops Vault token renewal if any.
func resolveCredential(cfg *config.Config) (string, func(), error) {
	cleanup := func() {}
	providers := map[string]secrets.Provider{
		"env": secrets.NewEnvProvider(),
	}
	if cfg.Vault != nil {
		vp, err := secrets.NewVaultProvider(*cfg.Vault)
		if err != nil {
			return "", cleanup, fmt.Errorf("vault setup: %w", err)
		}
		cleanup = vp.StartRenewal()
		providers["vault"] = vp
	}

	apiKey, err := secrets.Resolve(cfg.Credentials.SerpAPIKey, providers)
	if err != nil {
		return "", cleanup, err
	}
	return apiKey, cleanup, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	fmt.Printf("%s: OK (%d policy rules)\n", configPath, len(cfg.Search.Rules))
	return nil
}

func configureLogging(level string) {
	// stdout belongs to the protocol; diagnostics go to stderr only.
	logrus.SetOutput(os.Stderr)
	switch strings.ToLower(level) {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
