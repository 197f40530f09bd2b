package main

import (
	"log"
	"os"

	echoapi "github.com/mwalimuhq/ngao/apps/api/echo"
	"github.com/mwalimuhq/ngao/core"
	"github.com/mwalimuhq/ngao/core/csrf"
	"github.com/mwalimuhq/ngao/core/ratelimit"
	"github.com/mwalimuhq/ngao/core/session"
	"github.com/mwalimuhq/ngao/core/textrisk"
	auditsvc "github.com/mwalimuhq/ngao/services/audit"
	authsvc "github.com/mwalimuhq/ngao/services/auth"
	logsvc "github.com/mwalimuhq/ngao/services/logger"
	"github.com/mwalimuhq/ngao/storage/database"
	inmemdb "github.com/mwalimuhq/ngao/storage/database/inmem"
	"github.com/mwalimuhq/ngao/storage/database/sqlxrepos"
	"github.com/mwalimuhq/ngao/storage/sessionstore"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(std, err)

	// set up logger
	var logger core.Logger
	if conf.Debug {
		logger = logsvc.NewConsoleLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up event storage; DEV runs without a database
	var evtRepo core.EventRepository
	if conf.Database.User != "" {
		db, err := database.Open(conf)
		errAndDie(std, err)
		defer db.Close()
		errAndDie(std, database.Ping(db))
		evtRepo = sqlxrepos.NewEventRepository(db)
	} else {
		evtRepo = inmemdb.NewEventRepository()
	}

	// set up the audit fan-out
	sinks := []core.AuditService{
		auditsvc.NewConsoleService(logger),
		auditsvc.NewDatabaseService(evtRepo, logger),
	}
	if conf.SendgridApiKey != "" && len(conf.AlertEmails) > 0 {
		sinks = append(sinks, auditsvc.NewSendgridService(conf, logger))
	}
	audit := auditsvc.NewMultiService(sinks...)

	// set up the guard components
	limiter := ratelimit.NewLimiter(conf.Guard.RateLimitWindow, audit, logger)
	limiter.StartSweep(conf.Guard.RateLimitSweepInterval)
	defer limiter.Stop()

	csrfMgr := csrf.NewManager(conf.Guard.CSRFTokenTTL, audit, logger)
	csrfMgr.StartSweep(conf.Guard.CSRFTokenTTL)
	defer csrfMgr.Stop()

	sessions := sessionstore.NewInMemStore()
	monitor := session.NewMonitor(sessions, audit, logger, conf)
	monitor.Start()
	defer monitor.Stop()

	tracker := textrisk.NewTracker(audit, logger)

	// stand-in auth accounts until the managed backend is wired
	auth := authsvc.NewStaticAuthenticator()
	if conf.Debug {
		_, _ = auth.AddAccount("admin", "admin@localhost", "LocalAdm1n!", []string{authsvc.RoleAdmin})
		_, _ = auth.AddAccount("teacher", "teacher@localhost", "LocalTeach3r!", []string{authsvc.RoleTeacher})
		_, _ = auth.AddAccount("student", "student@localhost", "LocalStud3nt!", []string{authsvc.RoleStudent})
	}

	validate, translator := core.NewValidator()

	// start API server
	app := echoapi.NewServer(&echoapi.Options{
		Addr:       conf.ServerAddress(),
		Conf:       conf,
		Logger:     logger,
		Audit:      audit,
		Auth:       auth,
		Sessions:   sessions,
		Events:     evtRepo,
		Limiter:    limiter,
		CSRF:       csrfMgr,
		Monitor:    monitor,
		Tracker:    tracker,
		Validate:   validate,
		Translator: translator,
	})
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatal(err)
	}
}
