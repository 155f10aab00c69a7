package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harun/toolgate/internal/config"
	"github.com/harun/toolgate/pkg/credentials"
)

var credsCmd = &cobra.Command{
	Use:   "creds",
	Short: "Manage encrypted tool credentials",
}

var credsSetCmd = &cobra.Command{
	Use:   "set <tool> <key=value>...",
	Short: "Store credentials for a tool",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCredsSet,
}

var credsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tools with stored credentials",
	RunE:  runCredsList,
}

var credsShowCmd = &cobra.Command{
	Use:   "show <tool>",
	Short: "Show the credential keys stored for a tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredsShow,
}

var credsDeleteCmd = &cobra.Command{
	Use:   "delete <tool>",
	Short: "Delete a tool's credentials",
	Args:  cobra.ExactArgs(1),
	RunE:  runCredsDelete,
}

func init() {
	credsCmd.AddCommand(credsSetCmd, credsListCmd, credsShowCmd, credsDeleteCmd)
	rootCmd.AddCommand(credsCmd)
}

func openCredStore() (*credentials.FileStore, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	return credentials.NewFileStore(filepath.Join(cfg.DataDir, "credentials"))
}

func runCredsSet(cmd *cobra.Command, args []string) error {
	tool := args[0]

	validator := config.NewValidator()
	if err := validator.ValidateToolName(tool); err != nil {
		return err
	}

	creds := make(map[string]string, len(args)-1)
	for _, pair := range args[1:] {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return fmt.Errorf("invalid credential pair %q (expected key=value)", pair)
		}
		creds[parts[0]] = parts[1]
	}

	store, err := openCredStore()
	if err != nil {
		return err
	}
	if err := store.Put(tool, creds); err != nil {
		return err
	}

	fmt.Printf("Stored %d credential(s) for %s\n", len(creds), tool)
	return nil
}

func runCredsList(cmd *cobra.Command, args []string) error {
	store, err := openCredStore()
	if err != nil {
		return err
	}

	tools, err := store.List()
	if err != nil {
		return err
	}
	if len(tools) == 0 {
		fmt.Println("No credentials stored")
		return nil
	}
	for _, tool := range tools {
		fmt.Println(tool)
	}
	return nil
}

func runCredsShow(cmd *cobra.Command, args []string) error {
	store, err := openCredStore()
	if err != nil {
		return err
	}

	creds, err := store.Get(args[0])
	if err != nil {
		return err
	}

	// Values stay secret; only the keys are shown
	keys := make([]string, 0, len(creds))
	for key := range creds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Println(key)
	}
	return nil
}

func runCredsDelete(cmd *cobra.Command, args []string) error {
	store, err := openCredStore()
	if err != nil {
		return err
	}
	if err := store.Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted credentials for %s\n", args[0])
	return nil
}
