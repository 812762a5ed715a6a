package main

import (
	"github.com/spf13/cobra"

	"github.com/definite-d/zonosign-backend/storage/database"
)

var runMigrationFunc = database.RunMigration // mockable

func (cli *commandLine) newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a goose migration command: up, up-by-one, up-to, down, down-to, redo, reset, status, version",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrationFunc(cli.db, args[0], args[1:]...)
		},
	}
}
