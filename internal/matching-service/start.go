package matchingservice

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"tujane/internal/config"
	"tujane/internal/matching-service/adapters/driven/bm"
	"tujane/internal/matching-service/adapters/driven/registry"
	"tujane/internal/matching-service/adapters/driver/consumer"
	"tujane/internal/matching-service/adapters/driver/myhttp"
	"tujane/internal/matching-service/adapters/driver/myhttp/handle"
	"tujane/internal/matching-service/adapters/driver/myhttp/ws"
	"tujane/internal/matching-service/core/ports"
	"tujane/internal/matching-service/core/services"
	"tujane/internal/mylogger"
)

const inboxDepth = 64

// Execute runs the matcher until a shutdown signal arrives or the HTTP
// server fails.
func Execute(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) error {
	newCtx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// workers outlive newCtx so that shutdown can stop the listener first
	workCtx, cancelWork := context.WithCancel(context.Background())
	defer cancelWork()
	// intake stops before the inbox closes so that queued messages drain
	intakeCtx, stopIntake := context.WithCancel(workCtx)
	defer stopIntake()

	store, err := openStorage(newCtx, mylog, cfg)
	if err != nil {
		mylog.Action("db_connection_failed").Error("Failed to open storage", err)
		return err
	}
	defer closeWith(mylog, "storage", store.close)
	mylog.Action("db_connected").Info("Storage ready", "driver", cfg.Storage.Driver)

	var codes ports.ICodeRegistry = registry.NewMemory()
	if cfg.Redis.Addr != "" {
		rdb := registry.NewRedis(cfg.Redis)
		if err := rdb.IsAlive(newCtx); err != nil {
			mylog.Action("redis_connection_failed").Error("Failed to reach redis", err)
			return err
		}
		defer closeWith(mylog, "redis", rdb.Close)
		codes = rdb
	}

	inbox := services.NewInbox(mylog, cfg.Matching.InboxShards, inboxDepth)
	checks := map[string]handle.Check{"db": store.isAlive}

	var (
		messenger  ports.IMessenger
		bridge     http.Handler
		consumerWG sync.WaitGroup
	)
	switch cfg.Transport.Kind {
	case config.TransportAMQP:
		mb, err := bm.New(workCtx, cfg.RabbitMq, mylog)
		if err != nil {
			mylog.Action("mb_connection_failed").Error("Failed to connect to rabbitmq", err)
			return err
		}
		defer closeWith(mylog, "rabbitmq", mb.Close)
		inbound := consumer.New(intakeCtx, &consumerWG, mylog, mb, inbox)
		if err := inbound.Run(); err != nil {
			return err
		}
		messenger = mb
		checks["transport"] = func(context.Context) error {
			if !mb.IsAlive() {
				return errors.New("amqp connection is closed")
			}
			if !inbound.IsConsuming() {
				return errors.New("inbound queue is not being consumed")
			}
			return nil
		}
	case config.TransportWebsocket:
		dispatcher := ws.NewDispatcher(workCtx, mylog, cfg.Auth.JwtSecret, inbox)
		messenger = dispatcher
		bridge = dispatcher.WsHandler()
		checks["transport"] = func(context.Context) error {
			if dispatcher.Connected() == 0 {
				return errors.New("no bridge connected")
			}
			return nil
		}
	}

	requests := services.NewRequestStore(cfg.Matching.MaxRequestsPerRider)
	generator := services.NewCodeGenerator(mylog, cfg.Matching.RideCodePrefix, cfg.Matching.ClaimWindow, codes)
	matching := services.NewMatchingService(mylog, store.rides, store.drivers, messenger, generator,
		cfg.Matching.DriversGroupID, cfg.Matching.ClaimWindow)
	riders := services.NewRiderService(mylog, requests, matching, messenger)
	router := services.NewRouter(mylog, riders, matching, cfg.Matching.DriversGroupID, cfg.Matching.RideCodePrefix)
	query := services.NewRidesQueryService(mylog, store.rides, store.drivers, cfg.Matching.ClaimWindow)

	inbox.Run(workCtx, router.Handle)
	go services.NewSweeper(mylog, requests, cfg.Matching.SweepInterval, cfg.Matching.RequestTimeout).Run(workCtx)
	if cfg.Srv.ExternalURL != "" {
		go myhttp.NewKeepAlive(cfg.Srv.ExternalURL, cfg.Srv.KeepAliveInterval, mylog).Run(workCtx)
	}

	server := myhttp.NewServer(newCtx, mylog, cfg, myhttp.Routes{
		Rides:  query,
		Bridge: bridge,
		Checks: checks,
	})

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	shutdown := func() error {
		err := server.Stop(context.Background())
		stopIntake()
		consumerWG.Wait()
		inbox.Close()
		inbox.Wait()
		mylog.Action("workers_stopped").Info("Inbox workers drained")
		cancelWork()
		return err
	}

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return shutdown()
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("matcher_failed").Error("Server failed unexpectedly", err)
			_ = shutdown()
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return shutdown()
	}
}

func closeWith(mylog mylogger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		mylog.Action("close_failed").Error("Failed to close "+name, err)
		return
	}
	mylog.Action("closed").Info(name + " closed")
}
