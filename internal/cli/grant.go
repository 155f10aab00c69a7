package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/pkg/security"
)

var grantCmd = &cobra.Command{
	Use:   "grant <tool> [permission...]",
	Short: "Replace a tool's granted permissions",
	Long: `Replace the full set of permissions granted to a tool. Granting with
no permissions revokes everything; the previous set is never merged in.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGrant,
}

func init() {
	rootCmd.AddCommand(grantCmd)
}

func runGrant(cmd *cobra.Command, args []string) error {
	tool := args[0]

	validator := config.NewValidator()
	if err := validator.ValidateToolName(tool); err != nil {
		return err
	}

	perms := make([]security.Permission, 0, len(args)-1)
	for _, name := range args[1:] {
		p, err := security.ParsePermission(name)
		if err != nil {
			return err
		}
		perms = append(perms, p)
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	set := security.NewPermissionSet(perms...)
	if err := app.gate.SetPermissions(context.Background(), tool, set); err != nil {
		return err
	}

	if set.IsEmpty() {
		fmt.Printf("Revoked all permissions for %s\n", tool)
	} else {
		fmt.Printf("Granted %s: %s\n", tool, strings.Join(set.Strings(), ", "))
	}

	return nil
}
