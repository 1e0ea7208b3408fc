package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sprite-ai/agtrace/internal/model"
	"github.com/sprite-ai/agtrace/internal/stats"
	"github.com/sprite-ai/agtrace/internal/trace"
)

var statsCmd = &cobra.Command{
	Use:   "stats <task-id>",
	Short: "Print trace statistics (non-interactive)",
	Long: `Fetch a task's trace and print aggregate and per-level statistics.
Useful for dashboards and piping into other tools.`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringP("format", "f", "text", "output format: text, json, markdown")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc := newService(cfg)

	tree, err := svc.BuildTree(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("loading trace: %w", err)
	}

	levels := stats.LevelStats(tree)

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return statsJSON(tree, levels)
	case "markdown":
		return statsMarkdown(tree, levels)
	default:
		return statsText(tree, levels)
	}
}

func statsText(tree *model.ExecutionTree, levels []model.LevelStatistics) error {
	fmt.Printf("%s: %d agent(s), %d tool(s), %.0f%% success, %s\n\n",
		tree.Root.Name, tree.TotalAgents, tree.TotalTools, tree.SuccessRate,
		tree.TotalDuration.Round(time.Millisecond))

	for _, l := range levels {
		fmt.Printf("  level %d: %d agent(s), %d tool(s), avg %s, %.0f%% completed\n",
			l.Level, l.AgentCount, l.ToolCount,
			l.AvgDuration.Round(time.Millisecond), l.SuccessRate)
	}

	if files := trace.FilesChanged(tree.Root); len(files) > 0 {
		fmt.Printf("\n%d file(s) changed:\n", len(files))
		for _, f := range files {
			fmt.Printf("  %s\n", f)
		}
	}
	return nil
}

func statsJSON(tree *model.ExecutionTree, levels []model.LevelStatistics) error {
	type levelOut struct {
		Level         int     `json:"level"`
		AgentCount    int     `json:"agent_count"`
		ToolCount     int     `json:"tool_count"`
		AvgDurationMs int64   `json:"avg_duration_ms"`
		SuccessRate   float64 `json:"success_rate"`
	}

	type output struct {
		Name         string     `json:"name"`
		TotalAgents  int        `json:"total_agents"`
		TotalTools   int        `json:"total_tools"`
		SuccessRate  float64    `json:"success_rate"`
		DurationMs   int64      `json:"duration_ms"`
		Levels       []levelOut `json:"levels"`
		FilesChanged []string   `json:"files_changed,omitempty"`
	}

	out := output{
		Name:         tree.Root.Name,
		TotalAgents:  tree.TotalAgents,
		TotalTools:   tree.TotalTools,
		SuccessRate:  tree.SuccessRate,
		DurationMs:   tree.TotalDuration.Milliseconds(),
		FilesChanged: trace.FilesChanged(tree.Root),
	}
	for _, l := range levels {
		out.Levels = append(out.Levels, levelOut{
			Level:         l.Level,
			AgentCount:    l.AgentCount,
			ToolCount:     l.ToolCount,
			AvgDurationMs: l.AvgDuration.Milliseconds(),
			SuccessRate:   l.SuccessRate,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func statsMarkdown(tree *model.ExecutionTree, levels []model.LevelStatistics) error {
	fmt.Printf("## Trace Report: %s\n\n", tree.Root.Name)
	fmt.Printf("**%d agent(s)**, **%d tool(s)**, %.0f%% success, %s\n\n",
		tree.TotalAgents, tree.TotalTools, tree.SuccessRate,
		tree.TotalDuration.Round(time.Millisecond))

	fmt.Println("| Level | Agents | Tools | Avg duration | Completed |")
	fmt.Println("|-------|--------|-------|--------------|-----------|")
	for _, l := range levels {
		fmt.Printf("| %d | %d | %d | %s | %.0f%% |\n",
			l.Level, l.AgentCount, l.ToolCount,
			l.AvgDuration.Round(time.Millisecond), l.SuccessRate)
	}

	return nil
}
