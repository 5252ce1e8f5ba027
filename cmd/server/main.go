package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/cbodonnell/gametable/pkg/api"
	authproviders "github.com/cbodonnell/gametable/pkg/auth/providers"
	"github.com/cbodonnell/gametable/pkg/game"
	"github.com/cbodonnell/gametable/pkg/log"
	"github.com/cbodonnell/gametable/pkg/network"
	"github.com/cbodonnell/gametable/pkg/queue"
	"github.com/cbodonnell/gametable/pkg/repositories"
	"github.com/cbodonnell/gametable/pkg/rooms"
	"github.com/cbodonnell/gametable/pkg/sessions"
	"github.com/cbodonnell/gametable/pkg/version"
	"github.com/cbodonnell/gametable/pkg/workers"
)

func main() {
	wsPort := flag.Int("ws-port", 8888, "WebSocket port to listen on")
	apiPort := flag.Int("api-port", 9000, "HTTP API port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	emptyRoomTimeout := flag.Duration("empty-room-timeout", rooms.DefaultEmptyRoomTimeout, "How long an empty room lingers before it is removed")
	masterTimeout := flag.Duration("master-timeout", rooms.DefaultMasterTimeout, "How long a paused room waits for its master to return")
	cleanupInterval := flag.Duration("cleanup-interval", 5*time.Minute, "Interval between empty room sweeps")
	timeoutInterval := flag.Duration("timeout-interval", time.Minute, "Interval between master timeout sweeps")
	autosaveInterval := flag.Duration("autosave-interval", 5*time.Minute, "Interval between room autosaves")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx := context.Background()

	firebaseProjectID := os.Getenv("GAMETABLE_FIREBASE_PROJECT_ID")
	if firebaseProjectID == "" {
		panic("GAMETABLE_FIREBASE_PROJECT_ID environment variable must be set")
	}
	firebaseAPIKey := os.Getenv("GAMETABLE_FIREBASE_API_KEY")
	if firebaseAPIKey == "" {
		panic("GAMETABLE_FIREBASE_API_KEY environment variable must be set")
	}
	authProvider, err := authproviders.NewFirebaseAuthProvider(ctx, firebaseProjectID, firebaseAPIKey)
	if err != nil {
		panic(fmt.Sprintf("Failed to create Firebase auth provider: %v", err))
	}

	connStr := os.Getenv("GAMETABLE_DATABASE_URL")
	if connStr == "" {
		connStr = "sqlite://gametable.db"
	}

	u, err := url.Parse(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse connection string: %v", err))
	}

	var repository repositories.Repository
	switch u.Scheme {
	case "sqlite":
		repository, err = repositories.NewSQLiteRepository(ctx, u.Host, "./migrations/sqlite")
		if err != nil {
			panic(fmt.Sprintf("Failed to create SQLite repository: %v", err))
		}
	case "postgresql":
		repository = repositories.NewPostgresRepository(ctx, u.String())
	default:
		panic(fmt.Sprintf("Unknown database type %s", u.Scheme))
	}
	defer repository.Close(ctx)

	sessionManager := sessions.NewManager()
	actionQueue := queue.NewInMemoryQueue(10000)

	var networkManager *network.NetworkManager
	registry := rooms.NewRegistry(rooms.NewRegistryOptions{
		EmptyRoomTimeout: *emptyRoomTimeout,
		MasterTimeout:    *masterTimeout,
		OnRoomCreated: func(room *rooms.Room) {
			game.RegisterHandlers(room)
			networkManager.WatchRoom(room)
		},
	})

	networkManager = network.NewNetworkManager(network.NewNetworkManagerOptions{
		AuthProvider: authProvider,
		Sessions:     sessionManager,
		Registry:     registry,
		ActionQueue:  actionQueue,
		WSPort:       *wsPort,
	})
	networkManager.Start(ctx)

	saveSnapshotChannelSize := 100
	saveSnapshotChan := make(chan workers.SaveSnapshotRequest, saveSnapshotChannelSize)

	saveSnapshotWorker := workers.NewSaveSnapshotWorker(workers.NewSaveSnapshotWorkerOptions{
		Repository:       repository,
		Registry:         registry,
		SaveSnapshotChan: saveSnapshotChan,
		AutosaveInterval: *autosaveInterval,
	})
	go saveSnapshotWorker.Start(ctx)

	cleanupWorker := workers.NewCleanupWorker(workers.NewCleanupWorkerOptions{
		Registry: registry,
		Interval: *cleanupInterval,
	})
	go cleanupWorker.Start(ctx)

	masterTimeoutWorker := workers.NewMasterTimeoutWorker(workers.NewMasterTimeoutWorkerOptions{
		Registry:         registry,
		Notifier:         networkManager,
		SaveSnapshotChan: saveSnapshotChan,
		Interval:         *timeoutInterval,
	})
	go masterTimeoutWorker.Start(ctx)

	actionLoopInterval := 50 * time.Millisecond
	actionProcessor := game.NewActionProcessor(game.NewActionProcessorOptions{
		ActionQueue:  actionQueue,
		LoopInterval: actionLoopInterval,
	})
	go actionProcessor.Start(ctx)

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:         *apiPort,
		AuthProvider: authProvider,
		Registry:     registry,
		Repository:   repository,
	})

	log.Info("Starting API server")
	apiServer.Start()
}
