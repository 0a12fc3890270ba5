package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cyberlab/core"
	"github.com/trezcool/cyberlab/core/lab"
	"github.com/trezcool/cyberlab/core/quiz"
	logsvc "github.com/trezcool/cyberlab/services/logger"
	"github.com/trezcool/cyberlab/storage/database"
	inmemdb "github.com/trezcool/cyberlab/storage/database/inmem"
	boiledrepos "github.com/trezcool/cyberlab/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/cyberlab/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB (grading needs none)
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()
	if len(os.Args) > 1 && os.Args[1] != "grade" {
		if err = database.Ping(db, 5); err != nil {
			logger.Fatal("pinging database", err)
		}
	}

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	lab.InitValidators(validate, translator)

	labSvc := lab.NewService(sqlxrepos.NewLabRepository(db), logger, conf)

	// start CLI
	cli := commandLine{
		db:       db,
		conf:     conf,
		labSvc:   labSvc,
		quizSvc:  quiz.NewService(boiledrepos.NewQuestionRepository(db), labSvc, logger, conf),
		validate: validate,
		out:      os.Stdout,
		dryRun: func() (lab.ServiceInterface, quiz.ServiceInterface) {
			mem := inmemdb.Open()
			memLabSvc := lab.NewService(inmemdb.NewLabRepository(mem), logger, conf)
			return memLabSvc, quiz.NewService(inmemdb.NewQuestionRepository(mem), memLabSvc, logger, conf)
		},
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			log.Printf("\nerror: %+v\n", err)
		}
		os.Exit(1)
	}
}
