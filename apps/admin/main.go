package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
	emailsvc "github.com/trezcool/khollendar/services/email"
	logsvc "github.com/trezcool/khollendar/services/logger"
	"github.com/trezcool/khollendar/services/scheduler"
	"github.com/trezcool/khollendar/storage/database"
	sqlxrepos "github.com/trezcool/khollendar/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building zap logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(false)

	// set up DB
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err = database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(ctx, conf)
	cancel()
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	kholle.InitValidators(validate, translator)
	core.ParseEmailTemplates(logger, conf)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), logger)
	kholleSvc := kholle.NewService(sqlxrepos.NewKholleRepository(db), usrSvc, emailsvc.NewService(conf, logger), conf, logger)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		usrSvc:    usrSvc,
		kholleSvc: kholleSvc,
		job:       scheduler.NewAssignmentJob(kholleSvc, conf.Assignment, logger),
		validate:  validate,
		out:       os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
