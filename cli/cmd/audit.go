package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Ch4lkP0wd3r/CalcPro/audit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit events",
	RunE:  runAuditQuery,
}

var (
	auditAction   string
	auditFailures bool
	auditLimit    int
	auditSince    string
)

func init() {
	auditQueryCmd.Flags().StringVar(&auditAction, "action", "", "filter by action")
	auditQueryCmd.Flags().BoolVar(&auditFailures, "failures", false, "show only failed operations")
	auditQueryCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum events to show")
	auditQueryCmd.Flags().StringVar(&auditSince, "since", "", "only events after this RFC 3339 time")

	auditCmd.AddCommand(auditQueryCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	if !viper.GetBool("audit.enabled") {
		return fmt.Errorf("audit logging is not enabled")
	}

	logger, err := audit.NewLogger(&audit.Config{
		Enabled: true,
		Type:    audit.ConfigType(viper.GetString("audit.type")),
		Options: viper.GetStringMap("audit.options"),
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	options := audit.QueryOptions{
		Action: auditAction,
		Limit:  auditLimit,
	}
	if auditFailures {
		failed := false
		options.Success = &failed
	}
	if auditSince != "" {
		since, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		options.Since = &since
	}

	result, err := logger.Query(options)
	if err != nil {
		return err
	}

	if len(result.Events) == 0 {
		fmt.Println("No matching events.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOK\tDETAIL")
	for _, event := range result.Events {
		detail := event.Error
		if detail == "" && event.Metadata != nil {
			if e, ok := event.Metadata["error"].(string); ok {
				detail = e
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\n",
			event.Timestamp.Format(time.RFC3339), event.Action, event.Success, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if result.HasMore {
		fmt.Printf("(%d of %d matching events shown)\n", len(result.Events), result.Filtered)
	}
	return nil
}
