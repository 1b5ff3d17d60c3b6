package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"os"
	"time"

	echoapi "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/audit"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/payment"
	"github.com/darasahq/darasa/core/user"
	auditsvc "github.com/darasahq/darasa/services/audit"
	emailsvc "github.com/darasahq/darasa/services/email"
	logsvc "github.com/darasahq/darasa/services/logger"
	paymentsvc "github.com/darasahq/darasa/services/payment"
	"github.com/darasahq/darasa/storage/database"
	sqlxrepos "github.com/darasahq/darasa/storage/database/sqlx"
)

const shutdownTimeout = 20 * time.Second

func main() {
	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up repos
	usrRepo := sqlxrepos.NewUserRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	usrSvc := user.NewService(usrRepo)
	crsSvc := course.NewService(crsRepo)

	// durable audit trail in prod; a local file is enough when hacking
	var auditSink audit.Sink
	if conf.Debug {
		auditSink = auditsvc.NewFileSink(conf)
	} else {
		auditSink = sqlxrepos.NewAuditSink(db)
	}

	stripeClient := paymentsvc.NewStripeClient(conf)
	coordinator := payment.NewCoordinator(payment.CoordinatorDeps{
		Client:     stripeClient,
		Sink:       auditSink,
		Logger:     logger,
		MailSvc:    mailSvc,
		Enroller:   crsSvc,
		AdminEmail: conf.AdminEmail,
	})

	issuer := access.NewTokenIssuer(conf)
	guard := access.NewGuard(conf, usrSvc, crsSvc, crsSvc, auditSink, logger)
	limiter := access.NewPermissiveLimiter()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Addr:        conf.Server.Address(),
		Logger:      logger,
		UserSvc:     usrSvc,
		CourseSvc:   crsSvc,
		TokenIssuer: issuer,
		Guard:       guard,
		Limiter:     limiter,
		Coordinator: coordinator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
