package cmd

import (
	"fmt"

	"github.com/Daskott/famtree/colors"
	"github.com/Daskott/famtree/server"
	"github.com/Daskott/famtree/server/migrations"
	"github.com/Daskott/famtree/server/models"
	"github.com/spf13/cobra"
)

func createMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, revert or list famtree schema migrations",
		Long: `Runs the versioned schema migrations against the database named in the
server config (--sconfig, or dev/config/server.yml in --dev mode)`,
	}

	cmd.PersistentFlags().StringVar(&serverConfigFile, "sconfig", "", "config for server")

	steps := 1
	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recently applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDatabase(func() error {
				reverted, err := migrations.Down(models.DB(), steps)
				for _, id := range reverted {
					cmd.Printf("%s %s\n", colors.Yellow("reverted"), id)
				}
				return err
			})
		},
	}
	downCmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to revert")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func() error {
					applied, err := migrations.Up(models.DB())
					for _, id := range applied {
						cmd.Printf("%s %s\n", colors.Green("applied"), id)
					}
					if err == nil && len(applied) == 0 {
						cmd.Println("database is up to date")
					}
					return err
				})
			},
		},
		downCmd,
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDatabase(func() error {
					statuses, err := migrations.Status(models.DB())
					if err != nil {
						return err
					}

					for _, status := range statuses {
						if status.Applied {
							cmd.Printf("%s  %s (%s)\n", colors.MigrationState(true), status.ID, status.AppliedAt.Format("2006-01-02 15:04:05"))
							continue
						}
						cmd.Printf("%s  %s\n", colors.MigrationState(false), status.ID)
					}
					return nil
				})
			},
		},
	)

	return cmd
}

// withDatabase opens the server config's database for the duration of fn.
func withDatabase(fn func() error) error {
	config, err := serverConfig()
	if err != nil {
		return err
	}

	cfg, err := server.LoadServerConfig(config)
	if err != nil {
		return err
	}

	err = models.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer models.Close()

	if err = fn(); err != nil {
		return fmt.Errorf("migrate: %v", err)
	}
	return nil
}
