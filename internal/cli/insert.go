package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dsla/internal/watcher"
)

// InsertCmd returns the insert command
func InsertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insert <file>",
		Short: "Store the records of a batch file that are not yet stored",
		Long: `Read a JSON or YAML array of records and store those whose identifying
value is not already present. Stored records keep only the identifying field.
Running the same file twice stores nothing the second time.

With --watch the file is inserted again every time it is rewritten, until
interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: runInsert,
	}

	cmd.Flags().Bool("watch", false, "re-insert the file whenever it changes")

	return cmd
}

func runInsert(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	if err := insertFile(cmd.Context(), c, args[0], out); err != nil {
		return err
	}

	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watcher.New(args[0], func(ctx context.Context, path string) {
		if err := insertFile(ctx, c, path, out); err != nil {
			logger.Error("insert failed", "path", path, "error", err)
		}
	}, logger)

	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func insertFile(ctx context.Context, c *components, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	batch, err := readBatch(f, path, c.Schema)
	if err != nil {
		return err
	}

	result, err := c.Dedup.InsertNew(ctx, batch)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Inserted %s of %d record(s)\n",
		color.New(color.FgGreen).Sprint(result.Inserted), len(batch))
	if result.Conflicts > 0 {
		fmt.Fprintf(out, "%s %d record(s) were stored concurrently and skipped\n",
			color.New(color.FgYellow).Sprint("!"), result.Conflicts)
	}
	return nil
}
