package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
	"github.com/trezcool/trainings/fs"
	emailsvc "github.com/trezcool/trainings/services/email"
	logsvc "github.com/trezcool/trainings/services/logger"
	"github.com/trezcool/trainings/storage/database"
	boiledrepos "github.com/trezcool/trainings/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/trainings/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer db.Close()

	svc := session.NewService(
		sqlxrepos.NewRepository(db),
		boiledrepos.NewReporter(db),
		emailsvc.NewConsoleService(conf, logger),
		validate,
		logger,
		conf,
	)

	// start CLI
	cli := commandLine{
		db:   db,
		conf: conf,
		svc:  svc,
		out:  os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}
