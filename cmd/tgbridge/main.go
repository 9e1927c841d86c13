package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tgbridge/internal/classify"
	"tgbridge/internal/collect"
	"tgbridge/internal/config"
	"tgbridge/internal/gateway"
	"tgbridge/internal/store"
	"tgbridge/internal/tool"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "tgbridge",
		Short: "tgbridge: Telegram account tools over the Bot API",
		Long:  "tgbridge exposes Telegram dialog, message and media operations as schema-described tools.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.tgbridge/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(listToolsCmd())
	root.AddCommand(callToolCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(schemaCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and cache directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			if _, err := os.Stat(cfgPath); err == nil {
				logger.Info("config already exists", "path", cfgPath)
				return nil
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger = newLogger(cfg.Log)
	return cfg, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stderr
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			out = f
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// app bundles everything a running command needs.
type app struct {
	store    *store.Store
	gateway  *gateway.Telegram
	registry *tool.Registry
}

func (a *app) Close() {
	a.store.Close()
}

func buildApp(cfg *config.Config) (*app, error) {
	st, err := store.Open(cfg.Store.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	gw, err := gateway.NewTelegram(gateway.Config{
		Token:     cfg.Telegram.Token,
		AllowFrom: cfg.Telegram.AllowFrom,
		Store:     st,
		Logger:    logger,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("telegram gateway: %w", err)
	}

	history := classify.New(gw, classify.HistoryLabels, logger)
	collector := collect.New(gw, gw, classify.New(gw, classify.UserLabels, logger), logger)

	reg := tool.NewRegistry(logger)
	reg.Register(tool.NewListDialogsTool(st))
	reg.Register(tool.NewListMessagesTool(st))
	reg.Register(tool.NewGetMessagesWithMediaTool(st, history))
	reg.Register(tool.NewRequestUserMediaTool(st, collector))
	reg.Register(tool.NewRequestUserPhotosTool(st, collector))

	return &app{store: st, gateway: gw, registry: reg}, nil
}

func listToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "List available tools and their parameter schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := json.MarshalIndent(a.registry.Definitions(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func callToolCmd() *cobra.Command {
	var argsFile string

	cmd := &cobra.Command{
		Use:   "call-tool NAME [JSON-ARGS]",
		Short: "Execute a tool and print its content items",
		Long: `Executes the named tool. Arguments are given inline as a JSON object
or loaded from a YAML/JSON file with --args-file.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			name := cmdArgs[0]

			toolArgs := map[string]any{}
			if argsFile != "" {
				data, err := os.ReadFile(argsFile)
				if err != nil {
					return fmt.Errorf("read args file: %w", err)
				}
				if err := yaml.Unmarshal(data, &toolArgs); err != nil {
					return fmt.Errorf("parse args file %s: %w", argsFile, err)
				}
			}
			if len(cmdArgs) == 2 {
				if err := json.Unmarshal([]byte(cmdArgs[1]), &toolArgs); err != nil {
					return fmt.Errorf("parse inline args: %w", err)
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// The event stream has to be live for the request tools.
			go func() {
				if err := a.gateway.Start(ctx); err != nil {
					logger.Error("gateway error", "err", err)
				}
			}()

			items, err := a.registry.Execute(ctx, name, toolArgs)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(items, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&argsFile, "args-file", "f", "", "YAML or JSON file with tool arguments")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway and record incoming updates",
		Long:  "Polls Telegram for updates and records dialogs and messages into the cache. Press Ctrl+C to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("gateway started", "bot", a.gateway.Username(), "tools", a.registry.Names())
			if err := a.gateway.Start(ctx); err != nil {
				return err
			}
			logger.Info("gateway stopped")
			return nil
		},
	}
}

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema for the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
