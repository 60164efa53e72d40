// Package cli implements the dsla command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"dsla/internal/codec"
	"dsla/internal/config"
	"dsla/internal/domain"
	"dsla/internal/repository"
	"dsla/internal/repository/badgerstore"
	"dsla/internal/repository/sqlite"
	"dsla/internal/service"
)

// NewRootCmd builds the dsla command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dsla",
		Short: "Record ledger that filters and stores records by identifier",
		Long: `dsla keeps a ledger of submitted records. Records are deduplicated by
their identifying field (a GitHub repository name, or a file name under the
legacy schema) and only unseen ones are stored.

Run 'dsla serve' for the HTTP API, or check and insert batch files directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default: $DSLA_CONFIG, ./dsla.yaml, ~/.config/dsla/config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(ServeCmd())
	rootCmd.AddCommand(CheckCmd())
	rootCmd.AddCommand(InsertCmd())
	rootCmd.AddCommand(ExportCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func setupLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// loadConfig reads the --config file or searches the default locations,
// then validates. A config that cannot locate the store is an error.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, path, err = config.LoadFromPath(path)
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return nil, path, err
	}
	if err := cfg.Validate(); err != nil {
		if path == "" {
			return nil, path, fmt.Errorf("%w (no config file in %s)", err, strings.Join(config.SearchPaths(), ", "))
		}
		return nil, path, err
	}
	return cfg, path, nil
}

// components holds initialized components for use by subcommands
type components struct {
	Config    *config.Config
	Schema    domain.IdentitySchema
	Store     repository.Store
	Events    *service.EventBus
	Dedup     *service.DedupService
	Documents *service.DocumentService
	Logger    *slog.Logger
}

// initComponents opens the store and builds the services
func initComponents(cfg *config.Config, logger *slog.Logger) (*components, error) {
	schema, err := cfg.IdentitySchema()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	events := service.NewEventBus()
	return &components{
		Config:    cfg,
		Schema:    schema,
		Store:     store,
		Events:    events,
		Dedup:     service.NewDedupService(store, schema, events, logger),
		Documents: service.NewDocumentService(store, schema, events, logger),
		Logger:    logger,
	}, nil
}

func (c *components) Close() error {
	return c.Store.Close()
}

func openStore(cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.New(cfg.DSN, cfg.Collection)
	case config.DriverBadger:
		return badgerstore.New(cfg.DSN, cfg.Collection)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// readBatch parses a JSON or YAML batch file (by extension) and maps wire
// field names onto stored ones
func readBatch(r io.Reader, path string, schema domain.IdentitySchema) ([]domain.Record, error) {
	records, err := codec.ForPath(path).Parse(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("reading %s: record %d is not a mapping", path, i)
		}
		records[i] = schema.FromWire(rec)
	}
	return records, nil
}
