package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-resolver/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-resolver/internal/schema"
	"github.com/nerrad567/gray-logic-resolver/migrations"
)

// newRootCommand builds the resolver CLI. Without a subcommand it runs
// the resolver.
func newRootCommand() *cobra.Command {
	var configFlag string

	runE := func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), getConfigPath(configFlag))
	}

	root := &cobra.Command{
		Use:           "resolver",
		Short:         "Gray Logic resolver",
		Long:          `The resolver owns the device inventory, naming directory and capability schema of a Gray Logic site.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runE,
	}
	root.PersistentFlags().StringVar(&configFlag, "config", "", "path to the config file (default $GRAYLOGIC_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the resolver until interrupted",
			Args:  cobra.NoArgs,
			RunE:  runE,
		},
		newSchemaCommand(&configFlag),
		newConfigCommand(&configFlag),
		newMigrateCommand(&configFlag),
		newVersionCommand(),
	)
	return root
}

// newSchemaCommand prints the merged schema as YAML.
func newSchemaCommand(configFlag *string) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Merge the schema fragments and print the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				cfg, err := config.Load(getConfigPath(*configFlag))
				if err != nil {
					return fmt.Errorf("loading config: %w", err)
				}
				dir = cfg.Resolver.SchemaDir
			}

			tree, err := schema.Load(dir)
			if err != nil {
				return fmt.Errorf("loading schema: %w", err)
			}
			out, err := yaml.Marshal(tree)
			if err != nil {
				return fmt.Errorf("encoding schema: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "schema fragment directory (default resolver.schema_dir from the config)")
	return cmd
}

// newConfigCommand prints the effective configuration with secrets masked.
func newConfigCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(getConfigPath(*configFlag))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			out, err := yaml.Marshal(cfg.Masked())
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// newMigrateCommand manages the directory database schema outside a
// running resolver.
func newMigrateCommand(configFlag *string) *cobra.Command {
	// withDB opens the configured database for the duration of fn.
	withDB := func(cmd *cobra.Command, fn func(db *database.DB) error) error {
		cfg, err := config.Load(getConfigPath(*configFlag))
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		db, err := database.Open(cmd.Context(), cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close() //nolint:errcheck // close on exit
		return fn(db)
	}

	status := func(cmd *cobra.Command, db *database.DB) error {
		applied, pending, err := db.MigrationStatus(cmd.Context(), migrations.FS)
		if err != nil {
			return fmt.Errorf("reading migration status: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, r := range applied {
			fmt.Fprintf(out, "applied  %s  %s\n", r.Version, r.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		for _, m := range pending {
			fmt.Fprintf(out, "pending  %s  %s\n", m.Version, m.Name)
		}
		return nil
	}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the directory database schema",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "List applied and pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, func(db *database.DB) error { return status(cmd, db) })
			},
		},
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, func(db *database.DB) error {
					if err := db.Migrate(cmd.Context(), migrations.FS); err != nil {
						return fmt.Errorf("running migrations: %w", err)
					}
					return status(cmd, db)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd, func(db *database.DB) error {
					if err := db.MigrateDown(cmd.Context(), migrations.FS); err != nil {
						return fmt.Errorf("rolling back migration: %w", err)
					}
					return status(cmd, db)
				})
			},
		},
	)
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "resolver %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
