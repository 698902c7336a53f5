package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/trezcool/attendance/apps/api/echo"
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/attendance"
	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/fs"
	"github.com/trezcool/attendance/services/digest"
	"github.com/trezcool/attendance/services/email"
	"github.com/trezcool/attendance/services/logger"
	"github.com/trezcool/attendance/services/notify"
	"github.com/trezcool/attendance/storage/database"
	"github.com/trezcool/attendance/storage/database/gorm"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = database.Close(db); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	dir, err := appfs.LoadRefData(conf.RefDataPath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading reference data: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	defer emailsvc.Wait(mailSvc)

	notifiers := notifysvc.Multi{notifysvc.NewLogNotifier(logger)}
	if len(conf.Notify.Recipients) > 0 {
		notifiers = append(notifiers, notifysvc.NewEmailNotifier(mailSvc, conf.Notify.Recipients))
	}
	if conf.Notify.Redis {
		client, err := notifysvc.NewRedisClient(context.Background(), conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer func() { _ = client.Close() }()
		redisNotifier := notifysvc.NewRedisNotifier(client, conf.Redis.Channel, logger)
		defer redisNotifier.Wait()
		notifiers = append(notifiers, redisNotifier)
	}

	schoolRepo := gormrepos.NewSchoolRepository(db)
	schoolSvc := school.NewService(schoolRepo)
	attSvc := attendance.NewService(gormrepos.NewAttendanceRepository(db), schoolRepo, notifiers, conf.Location)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	school.InitValidators(validate, translator)

	if n, err := schoolSvc.ImportSchools(context.Background(), dir, false); err != nil {
		logger.Fatal(fmt.Sprintf("importing schools: %v", err), err)
	} else if n > 0 {
		logger.Info(fmt.Sprintf("imported %d schools", n))
	}

	if conf.Digest.Enabled {
		digest := digestsvc.New(schoolSvc, attSvc, mailSvc, logger, conf.Location)
		if err = digest.Start(conf.Digest.Spec); err != nil {
			logger.Fatal(fmt.Sprintf("starting digest: %v", err), err)
		}
		defer func() { <-digest.Stop().Done() }()
	}

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

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			SchoolSvc:     schoolSvc,
			AttendanceSvc: attSvc,
			RefData:       dir,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*gorm.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}
