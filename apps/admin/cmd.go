package main

import (
	"io"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
	"github.com/definite-d/zonosign-backend/core/progress"
	"github.com/definite-d/zonosign-backend/core/session"
	recognitionsvc "github.com/definite-d/zonosign-backend/services/recognition"
	sqlxrepos "github.com/definite-d/zonosign-backend/storage/database/sqlx"
)

type commandLine struct {
	db     *sqlx.DB
	conf   *core.Config
	logger core.Logger
	out    io.Writer

	catalogRepo catalogSaver
	progressSvc *progress.Service
	sessionSvc  *session.Service
}

func newCommandLine(db *sqlx.DB, conf *core.Config, logger core.Logger) *commandLine {
	locks := core.NewKeyedMutex()
	catalogRepo := sqlxrepos.NewCatalogRepository(db)
	catalogSvc := catalog.NewService(catalogRepo, conf)
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(db), catalogSvc, locks, conf)

	return &commandLine{
		db:          db,
		conf:        conf,
		logger:      logger,
		out:         os.Stdout,
		catalogRepo: catalogRepo,
		progressSvc: progressSvc,
		sessionSvc: session.NewService(
			session.Deps{
				Repo:       sqlxrepos.NewSessionRepository(db),
				Catalog:    catalogSvc,
				Recognizer: recognitionsvc.NewConsoleService(),
				Lessons:    progressSvc,
				Locks:      locks,
				Logger:     logger,
			},
			conf,
		),
	}
}

func (cli *commandLine) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         cli.conf.AppName + " administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(cli.out)

	rootCmd.AddCommand(cli.newMigrateCommand())
	rootCmd.AddCommand(cli.newSeedCommand())
	rootCmd.AddCommand(cli.newSweepCommand())
	rootCmd.AddCommand(cli.newOverviewCommand())
	rootCmd.AddCommand(cli.newSessionsCommand())
	rootCmd.AddCommand(cli.newTokenCommand())
	return rootCmd
}

// run executes the command line in args, args[0] being the program name.
func (cli *commandLine) run(args []string) error {
	cmd := cli.rootCommand()
	if len(args) > 0 {
		args = args[1:]
	}
	cmd.SetArgs(args)
	return cmd.Execute()
}
