package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/gw2ledger/internal/report"
	"github.com/pratik-mahalle/gw2ledger/pkg/client"
)

func parseIDArgs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <type> <id>...",
		Short: "Look up cached records (items, itemstats, recipes, prices)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDArgs(args[1:])
			if err != nil {
				return err
			}

			ctx := context.Background()
			if getOutputFormat() == "table" && args[0] == client.TypeItems {
				items, missing, err := apiClient.Records().Items(ctx, ids)
				if err != nil {
					return fmt.Errorf("failed to get records: %w", err)
				}
				table := NewTable("ID", "NAME", "TYPE", "RARITY", "LEVEL")
				for _, it := range items {
					table.AddRow(strconv.FormatInt(it.ID, 10), truncate(it.Name, 40), it.Type, it.Rarity, strconv.Itoa(it.Level))
				}
				table.Render()
				printMissing(missing)
				return nil
			}

			resp, err := apiClient.Records().List(ctx, args[0], ids)
			if err != nil {
				return fmt.Errorf("failed to get records: %w", err)
			}
			return printOutput(resp)
		},
	}
}

func printMissing(ids []int64) {
	if len(ids) == 0 {
		return
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	fmt.Printf("\nNot cached yet: %s\n", strings.Join(parts, ", "))
}

func writeXLSX(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func newValueCmd() *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "value [id:count]...",
		Short: "Value the account, or the given stacks, at current sell prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var v *client.Valuation
			var err error
			if len(args) == 0 {
				v, err = apiClient.Ledger().AccountValue(ctx)
			} else {
				var stacks []client.Stack
				stacks, err = parseStacks(args)
				if err != nil {
					return err
				}
				v, err = apiClient.Ledger().Value(ctx, stacks)
			}
			if err != nil {
				if apiErr, ok := client.AsAPIError(err); ok && apiErr.IsUnavailable() {
					return fmt.Errorf("the server has no account snapshot yet; run 'gw2ledger sync --wait' first")
				}
				return fmt.Errorf("failed to compute valuation: %w", err)
			}

			if xlsxPath != "" {
				return writeXLSX(xlsxPath, func(f *os.File) error {
					return report.WriteValuation(f, v, time.Now())
				})
			}
			if getOutputFormat() != "table" {
				return printOutput(v)
			}

			table := NewTable("ID", "NAME", "COUNT", "UNIT", "VALUE")
			for _, s := range v.Stacks {
				table.AddRow(strconv.FormatInt(s.ID, 10), truncate(s.Name, 40), strconv.Itoa(s.Count),
					formatCoins(s.UnitPrice), formatCoins(s.Value))
			}
			table.Render()
			fmt.Printf("\nTotal: %s\n", formatCoins(v.Total))
			if len(v.Unpriced) > 0 {
				fmt.Printf("%d stack(s) have no sell price\n", len(v.Unpriced))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the valuation to an xlsx file")
	return cmd
}

// parseStacks reads arguments of the form id:count, or a bare id for a count of one
func parseStacks(args []string) ([]client.Stack, error) {
	stacks := make([]client.Stack, 0, len(args))
	for _, a := range args {
		idPart, countPart, hasCount := strings.Cut(a, ":")
		id, err := strconv.ParseInt(idPart, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid stack %q, want id:count", a)
		}
		count := 1
		if hasCount {
			count, err = strconv.Atoi(countPart)
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid count in %q", a)
			}
		}
		stacks = append(stacks, client.Stack{ID: id, Count: count})
	}
	return stacks, nil
}

func newRecipeCmd() *cobra.Command {
	var xlsxPath string

	cmd := &cobra.Command{
		Use:   "recipe <id>",
		Short: "Show how much of a recipe the account can already cover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid recipe id %q", args[0])
			}

			c, err := apiClient.Ledger().RecipeCompletion(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to compute completion: %w", err)
			}

			if xlsxPath != "" {
				return writeXLSX(xlsxPath, func(f *os.File) error {
					return report.WriteCompletion(f, c)
				})
			}
			if getOutputFormat() != "table" {
				return printOutput(c)
			}

			table := NewTable("ITEM", "NAME", "REQUIRED", "OWNED", "SATISFIED")
			for _, ing := range c.Ingredients {
				table.AddRow(strconv.FormatInt(ing.ItemID, 10), truncate(ing.Name, 40),
					strconv.Itoa(ing.Required), strconv.Itoa(ing.Owned), strconv.Itoa(ing.Satisfied))
			}
			table.Render()
			fmt.Printf("\nCompletion: %d/%d (%d%%)\n", c.Satisfied, c.Required, c.Percent)
			return nil
		},
	}

	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "write the completion to an xlsx file")
	return cmd
}

func newEquipmentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "equipment <character>",
		Short: "Show a character's equipment joined with item definitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := apiClient.Ledger().Equipment(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get equipment: %w", err)
			}
			if getOutputFormat() != "table" {
				return printOutput(e)
			}

			table := NewTable("SLOT", "ID", "NAME", "RARITY", "UPGRADES")
			for _, it := range e.Items {
				name, rarity := "(not cached)", ""
				if it.Item != nil {
					name, rarity = it.Item.Name, it.Item.Rarity
				}
				upgrades := make([]string, 0, len(it.Upgrades))
				for _, u := range it.Upgrades {
					upgrades = append(upgrades, u.Name)
				}
				table.AddRow(it.Slot, strconv.FormatInt(it.ID, 10), truncate(name, 40), rarity, truncate(strings.Join(upgrades, ", "), 40))
			}
			table.Render()
			printMissing(e.Pending)
			return nil
		},
	}
}
