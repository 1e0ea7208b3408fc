package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sprite-ai/agtrace/internal/store"
	"github.com/sprite-ai/agtrace/internal/tui"
)

var viewCmd = &cobra.Command{
	Use:   "view <task-id>",
	Short: "Open an interactive trace viewer",
	Long: `Open an interactive TUI showing a task's execution trace: the agent
tree with lazily loaded sub-agents, tool invocations, and a timeline view
of concurrent work. The trace refreshes while the task is running.

Examples:
  agtrace view t-8f3a            # open one task's trace
  agtrace view t-8f3a --no-poll  # single fetch, no live refresh`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().Bool("no-poll", false, "disable live refresh")
	viewCmd.Flags().Bool("no-snapshot", false, "do not persist UI state between runs")
}

func runView(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc := newService(cfg)

	var persister store.Persister
	noSnapshot, _ := cmd.Flags().GetBool("no-snapshot")
	if !noSnapshot {
		if err := os.MkdirAll(filepath.Dir(cfg.Paths.SnapshotDB), 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
		sq, err := store.OpenSQLite(cfg.Paths.SnapshotDB)
		if err != nil {
			return err
		}
		defer sq.Close()
		persister = sq
	}

	st := store.New(persister)

	tree, err := svc.BuildTree(context.Background(), taskID)
	if err != nil {
		return fmt.Errorf("loading trace: %w", err)
	}
	st.SetExecution(tree)

	pollInterval := cfg.Backend.PollInterval.Duration
	if noPoll, _ := cmd.Flags().GetBool("no-poll"); noPoll {
		pollInterval = 0
	}

	m := tui.New(svc, st, taskID, pollInterval)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running viewer: %w", err)
	}
	return nil
}
