package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

// NewUserCommand builds the contributor management command group.
func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage known contributors",
	}

	cmd.AddCommand(newUserAddCommand())

	return cmd
}

func newUserAddCommand() *cobra.Command {
	var (
		configPath string
		nickname   string
		email      string
		name       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a contributor so assignee tokens resolve",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(configPath, func(ctx context.Context, st *store.Store) error {
				user := &store.User{Nickname: nickname, Email: email, Name: name}

				if err := st.CreateUser(ctx, user); err != nil {
					return err
				}

				fmt.Fprintf(os.Stdout, "user %q registered (id %d)\n", user.Nickname, user.ID)

				return nil
			})(cmd)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&nickname, "nickname", "n", "", "assignee token (required)")
	cmd.Flags().StringVarP(&email, "email", "e", "", "contributor email (required)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	_ = cmd.MarkFlagRequired("nickname")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
