// Package main provides the kykd binary entry point.
// Kykd serves composable page components ("kyks") over HTTP: a template
// engine with an embedding protocol, status-gated access, multi-stage
// actions and a sqlite-backed page store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/kykwerk/kyk/config"
	"github.com/kykwerk/kyk/dispatch"
	"github.com/kykwerk/kyk/kyk"
	"github.com/kykwerk/kyk/page"
	"github.com/kykwerk/kyk/render"
	"github.com/kykwerk/kyk/status"
	"github.com/kykwerk/kyk/store"
	"github.com/kykwerk/kyk/user"
	"github.com/kykwerk/kyk/web"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "kykd"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Composable page component server",
		Long: `Kykd serves pages assembled from registered components ("kyks").

Each kyk renders into a page slot through the kykin template protocol,
gated by the requesting user's status. Pages, users and sessions are
backed by sqlite.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Bare invocation serves too; the subcommand is the explicit form.
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, logLevel)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(configPath, logLevel)
			if err != nil {
				return err
			}
			return store.RunMigrations(cfg.Database.Path, cfg.Database.Migrations)
		},
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the user config file with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(nil).EnsureUserConfig()
		},
	})
	cmd.AddCommand(configCmd)

	return cmd
}

func loadConfig(configPath, logLevel string) (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
		if err == nil {
			err = cfg.Validate()
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, logger, nil
}

func run(configPath, logLevel string) error {
	cfg, logger, err := loadConfig(configPath, logLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Status ladder
	levels := status.DefaultSet()
	if len(cfg.Status.Names) > 0 {
		levels, err = status.NewSet(cfg.Status.Names...)
		if err != nil {
			return fmt.Errorf("status config: %w", err)
		}
	}
	roles, err := user.RolesFrom(levels)
	if err != nil {
		return err
	}

	// Storage
	if err := store.RunMigrations(cfg.Database.Path, cfg.Database.Migrations); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Templates
	engine, err := render.NewEngine(cfg.Templates.Dir, logger)
	if err != nil {
		return fmt.Errorf("load templates: %w", err)
	}
	if cfg.Templates.Watch {
		// Watch blocks until ctx is cancelled.
		go func() {
			if err := engine.Watch(ctx); err != nil {
				logger.Warn("template watching stopped", "error", err)
			}
		}()
	}

	// Metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	promReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Components
	users := user.NewRepo(db)
	panel := user.NewPanel(users, levels, roles, "users.html", "form.html", logger)

	pages := page.NewService(db, page.DefaultConfig(), logger)

	kyks := kyk.NewRegistry()
	if err := registerKyks(kyks, panel, pages); err != nil {
		return err
	}

	dispatcher := dispatch.New(engine, kyks, levels, logger)
	dispatcher.MaxAttempts = cfg.Render.MaxAttempts
	dispatcher.Styles = cfg.Render.Styles
	dispatcher.Metrics = dispatch.NewMetrics(promReg)
	if cfg.Render.Debug {
		engine.Debug = true
	}

	home, _ := kyks.Lookup("pages")

	server := &web.Server{
		Addr:     cfg.Server.Addr,
		MaxConns: cfg.Server.MaxConns,
		Handler: &web.Handler{
			Dispatcher:   dispatcher,
			Sessions:     web.NewSessionStore(cfg.Session.CookieName, cfg.Session.MaxAge, cfg.Session.Secure),
			Users:        users,
			Roles:        roles,
			Pages:        pages,
			PageTemplate: cfg.Templates.Page,
			Home:         home,
			Logger:       logger,
		},
		Registry:        promReg,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	}

	logger.Info("starting kykd",
		slog.String("version", Version),
		slog.String("addr", cfg.Server.Addr),
		slog.String("database", cfg.Database.Path))

	return server.Run(ctx)
}

// registerKyks wires every addressable component into the registry.
// Registration is explicit and deterministic; nothing registers itself as
// an import side effect.
func registerKyks(kyks *kyk.Registry, panel *user.Panel, pages *page.Service) error {
	entries := []struct {
		name string
		c    kyk.Component
	}{
		{user.PanelName, panel},
		{"register", panel.Register()},
		{"login", panel.LogInAction()},
		{"logout", panel.LogOutAction()},
		{"loginout", panel.LogInOut()},
		{"edit_user", panel.Edit()},
		{"change_status", panel.ChangeStatus()},
		{"pages", pages.List()},
		{"create_page", pages.Create()},
	}
	for _, e := range entries {
		if err := kyks.Register(e.name, e.c); err != nil {
			return fmt.Errorf("register kyk %q: %w", e.name, err)
		}
	}
	return nil
}
