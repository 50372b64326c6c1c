package client_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pratik-mahalle/gw2ledger/pkg/client"
)

// Example demonstrates basic usage of the gw2ledger client
func Example() {
	c := client.NewClient(client.Config{
		BaseURL: "http://localhost:8080",
	})

	ctx := context.Background()

	status, err := c.Sync().Status(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Items cached: %d\n", status.Snapshot.Counts[client.TypeItems])

	value, err := c.Ledger().AccountValue(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Account value: %d copper\n", value.Total)
}

// ExampleSyncService_Wait demonstrates triggering a sync and waiting for it
func ExampleSyncService_Wait() {
	c := client.NewClient(client.Config{
		BaseURL: "http://localhost:8080",
	})
	ctx := context.Background()

	if _, err := c.Sync().Trigger(ctx); err != nil {
		if apiErr, ok := client.AsAPIError(err); !ok || !apiErr.IsConflict() {
			log.Fatal(err)
		}
	}

	cycle, err := c.Sync().Wait(ctx, 2*time.Second, nil)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Cycle %s finished: %s\n", cycle.ID, cycle.Status)
}
