package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-redis/redis/v8"

	echoapi "github.com/jferreira/maitrenotifie/api/echo"
	"github.com/jferreira/maitrenotifie/core"
	"github.com/jferreira/maitrenotifie/core/homework"
	"github.com/jferreira/maitrenotifie/core/roster"
	emailsvc "github.com/jferreira/maitrenotifie/services/email"
	logsvc "github.com/jferreira/maitrenotifie/services/logger"
	visionsvc "github.com/jferreira/maitrenotifie/services/vision"
	rosterdb "github.com/jferreira/maitrenotifie/storage/roster"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up storage
	repo, err := newRepository(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}

	// set up services
	rosterSvc, err := roster.NewService(context.Background(), repo)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading roster: %v", err), err)
	}

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	extractSvc := visionsvc.NewGeminiService(conf, logger)

	workflow := homework.NewController(rosterSvc, extractSvc, mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	core.InitValidators()
	core.ParseEmailTemplates(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:      conf,
		Logger:    logger,
		RosterSvc: rosterSvc,
		Workflow:  workflow,
	})
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newRepository(conf *core.Config) (roster.Repository, error) {
	switch conf.Storage.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: conf.Storage.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		return rosterdb.NewRedisRepository(client, conf.Storage.Key), nil
	default:
		return rosterdb.NewFileRepository(conf.Storage.File), nil
	}
}
