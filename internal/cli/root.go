// Package cli implements ledgerctl, the operator tool for inspecting and
// correcting purchase records directly against the ledger service.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/amirasaad/tripledger/infra/initializer"
	"github.com/amirasaad/tripledger/pkg/app"
	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// ConfigLoader reads the application configuration.
type ConfigLoader func(envFile string) (*config.App, error)

// Connector builds the application from configuration.
type Connector func(cfg *config.App) (*app.App, error)

func connect(cfg *config.App) (*app.App, error) {
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return nil, err
	}
	return app.New(deps, cfg), nil
}

type runtime struct {
	envFile string
	asJSON  bool

	loadConfig ConfigLoader
	connect    Connector

	cfg *config.App
	app *app.App
}

func (r *runtime) config() (*config.App, error) {
	if r.cfg != nil {
		return r.cfg, nil
	}
	cfg, err := r.loadConfig(r.envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	r.cfg = cfg
	return cfg, nil
}

func (r *runtime) ledger() (*app.App, error) {
	if r.app != nil {
		return r.app, nil
	}
	cfg, err := r.config()
	if err != nil {
		return nil, err
	}
	a, err := r.connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	r.app = a
	return a, nil
}

func (r *runtime) close() {
	if r.app != nil {
		_ = r.app.Close()
		r.app = nil
	}
}

// NewRootCommand builds the command tree. Nil loaders fall back to the
// environment and a real database connection.
func NewRootCommand(loadConfig ConfigLoader, connector Connector) *cobra.Command {
	rt := &runtime{loadConfig: loadConfig, connect: connector}
	if rt.loadConfig == nil {
		rt.loadConfig = func(envFile string) (*config.App, error) { return config.Load(envFile) }
	}
	if rt.connect == nil {
		rt.connect = connect
	}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Inspect and correct purchase records",
		Long: `ledgerctl works directly against the purchase ledger using the
same configuration as the server (DATABASE_URL, AUTH_JWT_SECRET, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			rt.close()
		},
	}
	root.PersistentFlags().StringVar(&rt.envFile, "env-file", ".env", "Environment file to load")
	root.PersistentFlags().BoolVar(&rt.asJSON, "json", false, "Print JSON instead of text")

	root.AddCommand(
		newListCommand(rt),
		newShowCommand(rt),
		newRefundCommand(rt),
		newTokenCommand(rt),
	)
	return root
}

// Execute runs ledgerctl with the process arguments.
func Execute(version string) error {
	root := NewRootCommand(nil, nil)
	root.Version = version
	if err := root.Execute(); err != nil {
		errorf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func errorf(w io.Writer, format string, args ...any) {
	_, _ = color.New(color.FgRed).Fprintf(w, format, args...)
}
