package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dsla/internal/codec"
	"dsla/internal/filter"
)

// ExportCmd returns the export command
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write stored documents as JSON or YAML",
		Long: `Dump the stored documents, each with its "_id", in insertion order.

The --filter flag takes an expr-lang boolean expression evaluated per
document. Fields are variables; use $env for names with spaces.

Examples:
  dsla export --format yaml
  dsla export --filter 'name == "Ada"'
  dsla export --filter '($env["GitHub Repo Name"] ?? "") startsWith "acme/"'`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().StringP("format", "f", "json", "output format: json or yaml")
	cmd.Flags().String("filter", "", "expr-lang expression selecting documents")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	expression, _ := cmd.Flags().GetString("filter")

	exporter, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	f, err := filter.Compile(expression)
	if err != nil {
		return err
	}

	logger := setupLogger(cmd)

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	c, err := initComponents(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing components: %w", err)
	}
	defer c.Close()

	docs, err := c.Documents.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}
	docs, err = f.Apply(docs)
	if err != nil {
		return err
	}

	logger.Debug("exporting documents", "count", len(docs), "format", exporter.Format())
	return exporter.Export(docs, cmd.OutOrStdout())
}
