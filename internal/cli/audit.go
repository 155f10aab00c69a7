package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/toolgate/pkg/journal"
	"github.com/harun/toolgate/pkg/security"
)

var (
	auditTool  string
	auditType  string
	auditSince string
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the security audit trail",
	Long: `Print audit events as JSON lines, oldest first. --since accepts either
an RFC3339 timestamp or a duration like 24h counted back from now.`,
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditTool, "tool", "", "filter by tool name")
	auditCmd.Flags().StringVar(&auditType, "type", "", "filter by event type (permission_check, resource_check, violation, config_change)")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "only events at or after this time")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 0, "stop after this many events (0 = all)")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	filter := security.Filter{
		Tool: auditTool,
		Type: security.EventType(auditType),
	}

	if auditSince != "" {
		since, err := parseSince(auditSince)
		if err != nil {
			return err
		}
		filter.Since = since
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	printed := 0
	err = app.gate.Audit().Each(context.Background(), filter, func(event security.SecurityEvent) error {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		fmt.Println(string(data))

		printed++
		if auditLimit > 0 && printed >= auditLimit {
			return journal.ErrStop
		}
		return nil
	})
	if err != nil {
		return err
	}

	if printed == 0 {
		fmt.Println("No matching audit events")
	}
	return nil
}

func parseSince(s string) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since value %q (want RFC3339 or duration)", s)
	}
	return t, nil
}
