package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/pkg/learning"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <tool>",
	Short: "Summarize a tool's failure patterns",
	Long: `Group a tool's recorded failures by normalized error message and by the
contexts and inputs that co-occur with failure.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	tool := args[0]

	validator := config.NewValidator()
	if err := validator.ValidateToolName(tool); err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	analysis, err := app.engine.AnalyzeFailures(context.Background(), tool)
	if err != nil {
		return err
	}

	fmt.Printf("Tool: %s\n", analysis.ToolName)
	fmt.Printf("Failures: %d (%.1f%% failure rate)\n", analysis.TotalFailures, analysis.FailureRate*100)

	printClusters("Common errors", analysis.CommonErrors)
	printClusters("Failure contexts", analysis.FailureContexts)
	printClusters("Failure inputs", analysis.FailureParams)

	return nil
}

func printClusters(heading string, clusters []learning.Cluster) {
	if len(clusters) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", heading)
	for _, c := range clusters {
		fmt.Printf("  %4d  %s\n", c.Count, c.Key)
	}
}
