package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/gw2ledger/pkg/client"
)

func newSyncCmd() *cobra.Command {
	var wait bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Trigger a sync cycle on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			cycle, err := apiClient.Sync().Trigger(ctx)
			if err != nil {
				if apiErr, ok := client.AsAPIError(err); ok {
					switch {
					case apiErr.IsConflict():
						return fmt.Errorf("a sync cycle is already running; use 'gw2ledger status' to follow it")
					case apiErr.IsUnauthorized():
						return fmt.Errorf("the server requires an operator token; run 'gw2ledger token mint --save'")
					}
				}
				return fmt.Errorf("failed to trigger sync: %w", err)
			}
			fmt.Printf("Sync cycle %s started\n", cycle.ID)

			if !wait {
				return nil
			}

			last := map[string]int{}
			done, err := apiClient.Sync().Wait(ctx, interval, func(st *client.SyncStatus) {
				for _, p := range st.Progress {
					if last[p.Label] != p.Processed {
						last[p.Label] = p.Processed
						fmt.Printf("  %-12s %d/%d\n", p.Label, p.Processed, p.Total)
					}
				}
			})
			if err != nil {
				return fmt.Errorf("failed while waiting for sync: %w", err)
			}
			if done == nil {
				return nil
			}
			if getOutputFormat() != "table" {
				return printOutput(done)
			}
			printCycle(done)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait for the cycle to finish")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "status poll interval while waiting")

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running sync cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Sync().Cancel(context.Background()); err != nil {
				if apiErr, ok := client.AsAPIError(err); ok && apiErr.IsNotFound() {
					fmt.Println("No sync cycle is running")
					return nil
				}
				return fmt.Errorf("failed to cancel sync: %w", err)
			}
			fmt.Println("Cancellation requested")
			return nil
		},
	})

	return cmd
}

func printCycle(c *client.Cycle) {
	fmt.Printf("Cycle %s: %s\n", c.ID, formatStatus(c.Status))
	if c.Error != "" {
		fmt.Printf("Error: %s\n", c.Error)
	}
	printJobTable(c.Jobs)
}

func printJobTable(jobs []*client.FetchJob) {
	table := NewTable("ID", "TYPE", "STATUS", "FETCHED", "TOTAL", "GAPS", "STARTED")
	for _, j := range jobs {
		started := "-"
		if j.StartedAt != nil {
			started = j.StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		table.AddRow(
			truncate(j.ID, 12),
			j.ResourceType,
			formatStatus(j.Status),
			strconv.Itoa(j.Fetched),
			strconv.Itoa(j.Total),
			strconv.Itoa(len(j.FailedRanges)),
			started,
		)
	}
	table.Render()
}

func newJobsCmd() *cobra.Command {
	var opts client.JobListOptions

	cmd := &cobra.Command{
		Use:   "jobs [id]",
		Short: "List fetch jobs or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if len(args) == 1 {
				j, err := apiClient.Sync().Job(ctx, args[0])
				if err != nil {
					return fmt.Errorf("failed to get job: %w", err)
				}
				if getOutputFormat() != "table" {
					return printOutput(j)
				}
				printJobTable([]*client.FetchJob{j})
				for _, r := range j.FailedRanges {
					fmt.Printf("  gap [%d,%d] %d ids\n", r.First, r.Last, r.Count)
				}
				if j.ErrorMessage != "" {
					fmt.Printf("  error: %s\n", j.ErrorMessage)
				}
				return nil
			}

			page, err := apiClient.Sync().Jobs(ctx, &opts)
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}
			if getOutputFormat() != "table" {
				return printOutput(page)
			}
			printJobTable(page.Data)
			fmt.Printf("\nPage %d of %d (%d jobs)\n", page.Page, page.TotalPages, page.TotalItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ResourceType, "type", "", "filter by resource type")
	cmd.Flags().StringVar(&opts.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&opts.CycleID, "cycle", "", "filter by cycle id")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 20, "jobs per page")

	return cmd
}
