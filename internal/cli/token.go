package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/gw2ledger/internal/auth"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the operator token used for sync control",
	}
	cmd.AddCommand(newTokenMintCmd())
	return cmd
}

func newTokenMintCmd() *cobra.Command {
	var (
		secret   string
		operator string
		ttl      time.Duration
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "mint",
		Short: "Sign an operator token with the server's OPERATOR_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("OPERATOR_JWT_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("no secret given; pass --secret or set OPERATOR_JWT_SECRET")
			}

			token, err := auth.MintToken(operator, secret, ttl)
			if err != nil {
				return fmt.Errorf("failed to mint token: %w", err)
			}
			if !save {
				fmt.Println(token)
				return nil
			}

			viper.Set("auth.token", token)
			path, err := writeConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Token for %s saved to %s\n", operator, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default $OPERATOR_JWT_SECRET)")
	cmd.Flags().StringVar(&operator, "operator", "operator", "operator name recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime, 0 for no expiry")
	cmd.Flags().BoolVar(&save, "save", false, "store the token in the CLI config")
	return cmd
}
