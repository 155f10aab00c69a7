package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/pkg/security"
)

var (
	limitMemoryMB     float64
	limitCPUPercent   float64
	limitExecTimeSec  float64
	limitFileSizeMB   float64
	limitNetRequests  float64
	limitAllowDomains []string
	limitAllowPaths   []string
	limitShow         bool
	limitClear        bool
)

var limitsCmd = &cobra.Command{
	Use:   "limits <tool>",
	Short: "Set or show a tool's resource limits",
	Long: `Set resource ceilings for a tool. Flags left at zero mean unlimited
for that dimension. The new limits replace the tool's previous entry.`,
	Args: cobra.ExactArgs(1),
	RunE: runLimits,
}

func init() {
	limitsCmd.Flags().Float64Var(&limitMemoryMB, "memory-mb", 0, "max memory in MB")
	limitsCmd.Flags().Float64Var(&limitCPUPercent, "cpu-percent", 0, "max CPU percent")
	limitsCmd.Flags().Float64Var(&limitExecTimeSec, "execution-time-sec", 0, "max execution time in seconds")
	limitsCmd.Flags().Float64Var(&limitFileSizeMB, "file-size-mb", 0, "max file size in MB")
	limitsCmd.Flags().Float64Var(&limitNetRequests, "network-requests", 0, "max network requests")
	limitsCmd.Flags().StringSliceVar(&limitAllowDomains, "allow-domain", nil, "allowed network domain (repeatable)")
	limitsCmd.Flags().StringSliceVar(&limitAllowPaths, "allow-path", nil, "allowed filesystem path prefix (repeatable)")
	limitsCmd.Flags().BoolVar(&limitShow, "show", false, "show the tool's current limits")
	limitsCmd.Flags().BoolVar(&limitClear, "clear", false, "remove the tool's limits entry")

	rootCmd.AddCommand(limitsCmd)
}

func runLimits(cmd *cobra.Command, args []string) error {
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

	if limitShow {
		return showLimits(app, tool)
	}
	if limitClear {
		if err := app.gate.ClearTool(context.Background(), tool); err != nil {
			return err
		}
		fmt.Printf("Cleared configuration for %s\n", tool)
		return nil
	}

	limits := security.ResourceLimit{
		AllowedDomains: limitAllowDomains,
		AllowedPaths:   limitAllowPaths,
	}
	setIfFlagged(cmd, "memory-mb", &limits.MaxMemoryMB, limitMemoryMB)
	setIfFlagged(cmd, "cpu-percent", &limits.MaxCPUPercent, limitCPUPercent)
	setIfFlagged(cmd, "execution-time-sec", &limits.MaxExecutionTimeSec, limitExecTimeSec)
	setIfFlagged(cmd, "file-size-mb", &limits.MaxFileSizeMB, limitFileSizeMB)
	setIfFlagged(cmd, "network-requests", &limits.MaxNetworkRequests, limitNetRequests)

	if err := app.gate.SetLimits(context.Background(), tool, limits); err != nil {
		return err
	}

	fmt.Printf("Limits set for %s\n", tool)
	return nil
}

// setIfFlagged only binds a ceiling when the flag was supplied, so an
// untouched flag stays "unlimited" rather than becoming a zero ceiling
func setIfFlagged(cmd *cobra.Command, flag string, dst **float64, value float64) {
	if cmd.Flags().Changed(flag) {
		v := value
		*dst = &v
	}
}

func showLimits(app *app, tool string) error {
	limits := app.gate.Tracker().Limits(tool)
	if limits == nil {
		fmt.Printf("No limits configured for %s\n", tool)
		return nil
	}

	data, err := json.MarshalIndent(limits, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
