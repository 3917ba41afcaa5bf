// Package cmd defines and implements the CLI commands for the vatk executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/annotation-tables/internal/app"
	"github.com/JakeFAU/annotation-tables/internal/config"
	"github.com/JakeFAU/annotation-tables/internal/orchestrator"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use.
// Tests inject their own implementation through newApp.
type App interface {
	Close()
	Logger() *zap.Logger
	Config() config.Config
	Orchestrator() *orchestrator.Orchestrator
}

// newApp is the application factory. It is a variable so tests can swap it.
var newApp = func(ctx context.Context, cfg config.Config) (App, error) {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// newRootCmd creates and configures the root command. The App built for the
// invocation is stored in built so the caller can close it on every exit path.
func newRootCmd(built *App) *cobra.Command {
	var (
		cfgFile string
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "vatk",
		Short: "Variant annotation toolkit.",
		Long: `vatk builds and maintains the annotation tables used to
interpret genetic variants. Each table is materialised as a .ht artifact
under the configured output directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Runs with the subcommand's flags parsed, so config can bind them.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			*built = appInstance
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().StringVar(&envFile, "env_file", ".env", "dotenv file loaded before config, if present")

	cmd.AddCommand(newMakeTablesCmd())

	return cmd
}

// loadEnvFile loads path into the environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// run executes the CLI with args and closes the App whether or not the command failed.
func run(ctx context.Context, args []string) error {
	var appInstance App
	root := newRootCmd(&appInstance)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if appInstance != nil {
		appInstance.Close()
	}
	return err
}

// Execute is the main entry point. Any command error exits non-zero.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		stop()
		logger, lerr := zap.NewProduction()
		if lerr != nil {
			fmt.Fprintf(os.Stderr, "command execution failed: %v\n", err)
			os.Exit(1)
		}
		logger.Fatal("command execution failed", zap.Error(err))
	}
}
