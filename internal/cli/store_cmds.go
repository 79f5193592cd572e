package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/noahxzhu/chatcard/internal/sender"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently sent payloads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items := a.store.History()
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(items)
			}

			if len(items) == 0 {
				fmt.Fprintln(out, "No history.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tSENT\tMODE\tWEBHOOK\tPAYLOAD")
			for i, item := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i, item.Timestamp.Local().Format("2006-01-02 15:04:05"),
					item.Mode, sender.Redact(item.Webhook), truncate(string(item.Payload), 60))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of entries to show (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}

func newWebhooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhooks",
		Short: "Manage saved webhooks",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List saved webhooks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			webhooks := a.store.Webhooks()
			if len(webhooks) == 0 {
				fmt.Fprintln(out, "No saved webhooks.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tURL")
			for _, w := range webhooks {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", w.ID, w.Name, sender.Redact(w.URL))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <url>",
		Short: "Save a webhook under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.store.AddWebhook(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s as %s\n", w.Name, w.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a saved webhook by id",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteWebhook(args[0]); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
