package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/definite-d/zonosign-backend/apps/api/echo"
	"github.com/definite-d/zonosign-backend/core"
	"github.com/definite-d/zonosign-backend/core/catalog"
	"github.com/definite-d/zonosign-backend/core/progress"
	"github.com/definite-d/zonosign-backend/core/session"
	logsvc "github.com/definite-d/zonosign-backend/services/logger"
	recognitionsvc "github.com/definite-d/zonosign-backend/services/recognition"
	"github.com/definite-d/zonosign-backend/storage/database"
	sqlxrepos "github.com/definite-d/zonosign-backend/storage/database/sqlx"
)

func startManual() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	recognizer, err := recognitionsvc.New(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up recognizer: %v", err), err)
	}

	locks := core.NewKeyedMutex()
	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db), conf)
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(db), catalogSvc, locks, conf)
	sessionSvc := session.NewService(
		session.Deps{
			Repo:       sqlxrepos.NewSessionRepository(db),
			Catalog:    catalogSvc,
			Recognizer: recognizer,
			Lessons:    progressSvc,
			Locks:      locks,
			Logger:     logger,
		},
		conf,
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	if err = sessionSvc.Restore(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("restoring active sessions: %v", err), err)
	}

	ctx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sessionSvc.RunSweeper(ctx, conf.Session.SweepInterval)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.Publish("active_sessions", expvar.Func(func() interface{} { return sessionSvc.Registry().Len() }))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			ProgressSvc: progressSvc,
			SessionSvc:  sessionSvc,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		stopSweeper()

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
