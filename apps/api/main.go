package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/khollendar/apps/api/echo"
	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
	emailsvc "github.com/trezcool/khollendar/services/email"
	logsvc "github.com/trezcool/khollendar/services/logger"
	"github.com/trezcool/khollendar/services/scheduler"
	"github.com/trezcool/khollendar/storage/cache"
	"github.com/trezcool/khollendar/storage/database"
	sqlxrepos "github.com/trezcool/khollendar/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	zl, err := logsvc.NewZap(conf)
	if err != nil {
		panic(fmt.Sprintf("building zap logger: %v", err))
	}
	logger := logsvc.NewRollbarLogger(zl.Named("api"), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	defer logger.Sync()

	dbLogger := logsvc.NewRollbarLogger(zl.Named("db"), conf)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("failed to close", err)
		}
	}()

	// set up cache
	drafts, tokens, closeCache := setUpCache(conf, logger)
	defer closeCache()

	// set up services
	mailSvc := emailsvc.NewService(conf, logger)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), logger)
	kholleSvc := kholle.NewService(sqlxrepos.NewKholleRepository(db), usrSvc, mailSvc, conf, logger)
	wizard := kholle.NewWizard(kholleSvc, drafts, tokens, conf.Ranking)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	kholle.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger, conf)

	// =========================================================================
	// Start Assignment Scheduler

	sched, err := scheduler.New(scheduler.NewAssignmentJob(kholleSvc, conf.Assignment, logger), conf.Assignment.Schedule, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up scheduler: %v", err), err)
	}
	sched.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()
		if err := sched.Stop(ctx); err != nil {
			logger.Error("scheduler did not stop in time", err)
		}
	}()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server, err := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		KholleSvc:  kholleSvc,
		Wizard:     wizard,
		Assigner:   sched,
		Validate:   validate,
		Translator: translator,
	})
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up server: %v", err), err)
	}

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
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// setUpCache returns the draft store and ranking tokens of the configured cache engine.
// Tokens outlive an animation by a second when their holder never releases them.
func setUpCache(conf *core.Config, logger core.Logger) (kholle.DraftStore, kholle.TokenProvider, func()) {
	if conf.Cache.Engine != "redis" {
		return cache.NewMemoryDraftStore(conf.Cache.DraftTTL), cache.NewMemoryTokens(), func() {}
	}

	client, err := cache.NewRedisClient(context.Background(), conf.Cache)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	closeFn := func() {
		if err := client.Close(); err != nil && err != redis.ErrClosed {
			logger.Error("failed to close cache", err)
		}
	}
	tokenTTL := conf.Ranking.AnimationDuration + time.Second
	return cache.NewRedisDraftStore(client, conf.Cache.DraftTTL), cache.NewRedisTokens(client, tokenTTL, logger), closeFn
}
