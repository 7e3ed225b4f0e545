package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsacademy/toolcalc/formula"
	tcotel "github.com/opsacademy/toolcalc/otel"
	"github.com/opsacademy/toolcalc/server"
	"github.com/opsacademy/toolcalc/tool"
)

const (
	envSQLitePath   = "TOOLCALC_SQLITE_PATH"
	envOTLPEndpoint = "TOOLCALC_OTLP_ENDPOINT"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}

	cmd.Flags().IntP("port", "p", 8080, "Listen port")
	cmd.Flags().String("host", "0.0.0.0", "Listen host")
	cmd.Flags().String("cors-origin", "*", "Allowed CORS origin")
	cmd.Flags().String("sqlite-path", "", "Path to SQLite database (default: ~/.toolcalc/toolcalc.db)")
	cmd.Flags().Bool("memory", false, "Keep tools in memory instead of SQLite")
	cmd.Flags().String("config", "", "Path to toolcalc.yaml")
	cmd.Flags().String("lint-cron", server.DefaultLintCron, "UTC cron schedule for the stored-tool lint sweep")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP traces URL (e.g. http://localhost:4318/v1/traces)")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Int64("max-body", 1<<20, "Max request body size in bytes")

	return cmd
}

// serveSettings is the merged result of flags, environment and toolcalc.yaml.
type serveSettings struct {
	Host         string
	Port         int
	CORSOrigin   string
	SQLiteDSN    string
	Memory       bool
	LintCron     string
	OTLPEndpoint string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBody      int64
}

func (s serveSettings) addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func runServe(cmd *cobra.Command, _ []string) error {
	explicitConfigPath, _ := cmd.Flags().GetString("config")
	logger := slog.Default()

	var fileCfg server.FileConfig
	configPath, found, err := server.DiscoverConfigPath(explicitConfigPath)
	if err != nil {
		return exitError(exitFileNotFound, "%v", err)
	}
	if found {
		fileCfg, err = server.LoadFileConfig(configPath)
		if err != nil {
			return exitError(exitInputParse, "%v", err)
		}
		logger.Debug("loaded config", "path", configPath)
	}

	settings, err := resolveServeSettings(cmd, fileCfg.Server)
	if err != nil {
		return err
	}

	providers, err := tcotel.NewProviders(cmd.Context(), tcotel.ProviderConfig{
		ServiceName:  "toolcalc",
		OTLPEndpoint: settings.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("initializing observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("observability shutdown", "error", err)
		}
	}()

	observer, err := providers.ComputeObserver()
	if err != nil {
		return fmt.Errorf("initializing compute observer: %w", err)
	}
	tool.SetObserver(observer)
	defer tool.SetObserver(nil)

	store, err := openServeStore(settings)
	if err != nil {
		return err
	}
	defer func() {
		_ = store.Close()
	}()

	if found && len(fileCfg.Tools) > 0 {
		created, err := server.SeedTools(cmd.Context(), store, fileCfg.Tools, filepath.Dir(configPath), logger)
		if err != nil {
			return exitError(exitValidation, "loading tools from %s: %v", configPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d tool(s) from %s\n", created, configPath)
	}

	lintScheduler, err := server.NewLintScheduler(server.LintSchedulerConfig{
		Store:  store,
		Cron:   settings.LintCron,
		Logger: logger,
	})
	if err != nil {
		return exitError(exitInputParse, "lint schedule: %v", err)
	}
	if err := lintScheduler.Start(cmd.Context()); err != nil {
		return fmt.Errorf("starting lint scheduler: %w", err)
	}
	defer func() {
		_ = lintScheduler.Stop(context.Background())
	}()

	apiServer := server.NewServer(server.ServerConfig{
		Store:      store,
		Cache:      formula.NewCache(),
		Metrics:    providers,
		Lint:       lintScheduler,
		CORSOrigin: settings.CORSOrigin,
		MaxBody:    settings.MaxBody,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:         settings.addr(),
		Handler:      apiServer.Handler(),
		ReadTimeout:  settings.ReadTimeout,
		WriteTimeout: settings.WriteTimeout,
	}

	// Signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "toolcalc listening on %s\n", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}

func openServeStore(settings serveSettings) (tool.Store, error) {
	if settings.Memory {
		return tool.NewMemoryStore(), nil
	}
	store, err := tool.NewSQLiteStore(tool.SQLiteStoreConfig{DSN: settings.SQLiteDSN})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite tool store: %w", err)
	}
	return store, nil
}

// resolveServeSettings merges configuration sources. An explicitly set flag
// wins, then the environment, then toolcalc.yaml, then the flag default.
func resolveServeSettings(cmd *cobra.Command, file server.ServerSettings) (serveSettings, error) {
	flags := cmd.Flags()
	s := serveSettings{
		Host:         stringSetting(cmd, "host", "", file.Host),
		CORSOrigin:   stringSetting(cmd, "cors-origin", "", file.CORSOrigin),
		LintCron:     stringSetting(cmd, "lint-cron", "", file.LintCron),
		OTLPEndpoint: stringSetting(cmd, "otlp-endpoint", envOTLPEndpoint, file.OTLPEndpoint),
	}
	s.Port, _ = flags.GetInt("port")
	if !flags.Changed("port") && file.Port > 0 {
		s.Port = file.Port
	}
	if s.Port < 0 || s.Port > 65535 {
		return serveSettings{}, exitError(exitInputParse, "invalid port %d", s.Port)
	}
	s.Memory, _ = flags.GetBool("memory")
	s.ReadTimeout, _ = flags.GetDuration("read-timeout")
	s.WriteTimeout, _ = flags.GetDuration("write-timeout")
	s.MaxBody, _ = flags.GetInt64("max-body")

	if !s.Memory {
		dsn, err := resolveServeSQLiteDSN(cmd, file.SQLitePath)
		if err != nil {
			return serveSettings{}, err
		}
		s.SQLiteDSN = dsn
	}
	return s, nil
}

func resolveServeSQLiteDSN(cmd *cobra.Command, fileValue string) (string, error) {
	dsn := stringSetting(cmd, "sqlite-path", envSQLitePath, fileValue)
	if dsn == "" {
		defaultPath, err := tool.DefaultSQLitePath()
		if err != nil {
			return "", fmt.Errorf("resolving default sqlite path: %w", err)
		}
		dsn = defaultPath
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "file:") {
		dsn = filepath.Clean(dsn)
	}
	return dsn, nil
}

func stringSetting(cmd *cobra.Command, flag, env, fileValue string) string {
	value, _ := cmd.Flags().GetString(flag)
	if cmd.Flags().Changed(flag) {
		return strings.TrimSpace(value)
	}
	if env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(fileValue); v != "" {
		return v
	}
	return strings.TrimSpace(value)
}
