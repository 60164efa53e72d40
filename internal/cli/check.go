package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dsla/internal/domain"
)

// CheckCmd returns the check command
func CheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Label each record in a batch file New or Duplicate",
		Long: `Read a JSON or YAML array of records and report, per record, whether its
identifying value is already stored. Nothing is written.

Examples:
  dsla check repos.json
  dsla check uploads.yaml --config legacy.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runCheck,
	}
}

func runCheck(cmd *cobra.Command, args []string) error {
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

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	batch, err := readBatch(f, args[0], c.Schema)
	if err != nil {
		return err
	}

	labeled, err := c.Dedup.CheckDuplicates(cmd.Context(), batch)
	if err != nil {
		return err
	}

	newStatus := color.New(color.FgGreen).SprintFunc()
	dupStatus := color.New(color.FgYellow).SprintFunc()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTATUS\n", c.Schema.Field)

	duplicates := 0
	for _, l := range labeled {
		id, ok := c.Schema.Identifier(l.Record)
		if !ok {
			id = "-"
		}
		status := newStatus(string(l.Status))
		if l.Status == domain.StatusDuplicate {
			status = dupStatus(string(l.Status))
			duplicates++
		}
		fmt.Fprintf(w, "%s\t%s\n", id, status)
	}
	w.Flush()

	fmt.Fprintf(cmd.OutOrStdout(), "\n%d record(s), %d new, %d duplicate\n",
		len(labeled), len(labeled)-duplicates, duplicates)
	return nil
}
