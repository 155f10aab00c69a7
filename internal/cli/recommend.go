package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harun/toolgate/internal/config"
)

var (
	recommendContext []string
	recommendCaps    []string
	recommendProbe   []string
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank tools for a task",
	Long: `Rank tools for a task by recorded success rate and contextual fit.
Only tools with granted permissions and matching capabilities are listed.`,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().StringSliceVar(&recommendContext, "context", nil, "task context as key=value (repeatable)")
	recommendCmd.Flags().StringSliceVar(&recommendCaps, "caps", nil, "required capabilities")
	recommendCmd.Flags().StringSliceVar(&recommendProbe, "probe", defaultProbeTools(), "CLI tools to probe on PATH before ranking")

	rootCmd.AddCommand(recommendCmd)
}

func defaultProbeTools() []string {
	return []string{"git", "npm", "pip", "docker", "curl", "psql"}
}

func runRecommend(cmd *cobra.Command, args []string) error {
	validator := config.NewValidator()
	queryContext := make(map[string]interface{}, len(recommendContext))
	for _, pair := range recommendContext {
		if err := validator.ValidateContextPair(pair); err != nil {
			return err
		}
		parts := strings.SplitN(pair, "=", 2)
		queryContext[parts[0]] = parts[1]
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()

	app.catalog.ProbeCLI(ctx, recommendProbe...)

	// Ranking needs the aggregates current with the usage log
	if err := app.index.Rebuild(ctx); err != nil {
		return err
	}

	ranked := app.engine.Recommend(ctx, queryContext, recommendCaps)
	if len(ranked) == 0 {
		fmt.Println("No permitted tool matches the requested capabilities")
		return nil
	}

	for i, tool := range ranked {
		line := fmt.Sprintf("%d. %s", i+1, tool)
		if perf, ok := app.index.Get(tool); ok && perf.TotalUses > 0 {
			line += fmt.Sprintf("  (success %.0f%% over %d uses)", perf.SuccessRate()*100, perf.TotalUses)
		} else {
			line += "  (no history)"
		}
		if meta, ok := app.catalog.Get(tool); ok && meta.Version != "" {
			line += "  " + meta.Version
		}
		fmt.Println(line)
	}

	return nil
}
