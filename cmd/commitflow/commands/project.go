package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/commitflow/internal/config"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

// NewProjectCommand builds the project management command group.
func NewProjectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage tracked projects",
	}

	cmd.AddCommand(newProjectAddCommand())

	return cmd
}

func newProjectAddCommand() *cobra.Command {
	var (
		configPath string
		key        string
		repoID     int64
		repoURL    string
		secret     string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a project and its webhook secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(configPath, func(ctx context.Context, st *store.Store) error {
				project := &store.Project{
					Key:        key,
					ExternalID: repoID,
					HTMLURL:    repoURL,
					Secret:     secret,
				}

				if err := st.CreateProject(ctx, project); err != nil {
					return err
				}

				fmt.Fprintf(os.Stdout, "project %q registered (id %d)\n", project.Key, project.ID)

				return nil
			})(cmd)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")
	cmd.Flags().StringVarP(&key, "key", "k", "", "project key (required)")
	cmd.Flags().Int64Var(&repoID, "repo-id", 0, "provider repository id")
	cmd.Flags().StringVar(&repoURL, "repo-url", "", "repository html url")
	cmd.Flags().StringVar(&secret, "secret", "", "webhook shared secret")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

// withStore opens the configured store around one command body.
func withStore(configPath string, fn func(ctx context.Context, st *store.Store) error) func(*cobra.Command) error {
	return func(cmd *cobra.Command) error {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		return fn(cmd.Context(), st)
	}
}
