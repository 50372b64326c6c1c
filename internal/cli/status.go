package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/gw2ledger/pkg/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store contents and sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			st, err := apiClient.Sync().Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			if getOutputFormat() != "table" {
				return printOutput(st)
			}

			printStatus(st)
			return nil
		},
	}
}

func printStatus(st *client.SyncStatus) {
	fmt.Println("gw2ledger")
	fmt.Println(strings.Repeat("=", 40))

	if st.Snapshot.LastUpdated != nil {
		fmt.Printf("  Last refresh:  %s\n", st.Snapshot.LastUpdated.Local().Format(time.RFC1123))
	} else {
		fmt.Println("  Last refresh:  never")
	}
	if st.Snapshot.Account != "" {
		fmt.Printf("  Account:       %s\n", st.Snapshot.Account)
	}

	types := make([]string, 0, len(st.Snapshot.Counts))
	for rt := range st.Snapshot.Counts {
		types = append(types, rt)
	}
	sort.Strings(types)
	for _, rt := range types {
		fmt.Printf("  %-14s %d cached\n", rt+":", st.Snapshot.Counts[rt])
	}

	switch {
	case st.Running && st.Cycle != nil:
		fmt.Printf("  Sync:          %s (cycle %s)\n", formatStatus("running"), st.Cycle.ID)
		for _, p := range st.Progress {
			fmt.Printf("    %-12s %d/%d\n", p.Label, p.Processed, p.Total)
		}
	case st.LastCycle != nil:
		fmt.Printf("  Last sync:     %s (cycle %s)\n", formatStatus(st.LastCycle.Status), st.LastCycle.ID)
		if st.LastCycle.Error != "" {
			fmt.Printf("                 %s\n", st.LastCycle.Error)
		}
	default:
		fmt.Println("  Sync:          idle")
	}

	if st.NextRun != nil {
		fmt.Printf("  Next sync:     %s\n", st.NextRun.Local().Format(time.RFC1123))
	}
}
