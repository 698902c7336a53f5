package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/services/digest"
	"github.com/trezcool/attendance/services/email"
	"github.com/trezcool/attendance/services/logger"
	"github.com/trezcool/attendance/services/notify"
	"github.com/trezcool/attendance/storage/database"
	"github.com/trezcool/attendance/storage/database/gorm"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("getting sql.DB: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	schoolRepo := gormrepos.NewSchoolRepository(db)
	schoolSvc := school.NewService(schoolRepo)
	attSvc := attendance.NewService(gormrepos.NewAttendanceRepository(db), schoolRepo, notifysvc.NewLogNotifier(logger), conf.Location)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		ctx:         context.Background(),
		db:          sqlDB,
		schoolSvc:   schoolSvc,
		digest:      digestsvc.New(schoolSvc, attSvc, mailSvc, logger, conf.Location),
		validate:    validate,
		refDataPath: conf.RefDataPath,
	}
	err = cli.run(os.Args)
	emailsvc.Wait(mailSvc)
	if cErr := database.Close(db); cErr != nil {
		logger.Error("closing database", cErr)
	}
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		os.Exit(1)
	}
}
