package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/chat-relay/modules/api"
	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/chat"
	"github.com/example/chat-relay/modules/files"
	"github.com/example/chat-relay/modules/history"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Chat Relay - Rooms, WebSocket Fan-out, Durable History ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	chatModule := chat.NewModule()
	broadcastModule := broadcast.NewModule()
	historyModule := history.NewModule()
	filesModule := files.NewModule()
	apiModule := api.NewModule()

	// Manual injections for state not exposed via ServiceContainer:
	// the hub doubles as the coordinator's presence view, and the api
	// module drives both directly from its WebSocket read loop.
	chatModule.SetPresence(broadcastModule.GetHub())
	apiModule.SetHub(broadcastModule.GetHub())
	apiModule.SetCoordinator(chatModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - chat: Room registry + session coordinator (services + events)
	// - broadcast: WebSocket hub (event consumer)
	// - history: Durable message log (event consumer + query services)
	// - files: Upload storage on JetStream Object Store
	// - api: Driving adapter (Fiber HTTP/WebSocket server)
	app.Register(chatModule)
	app.Register(broadcastModule)
	app.Register(historyModule)
	app.Register(filesModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Event Bus: NATS JetStream (internal pubsub)")
	log.Println("  - History: GORM + SQLite append-only log")
	log.Println("  - Uploads: NATS JetStream Object Store")
	log.Printf("  - NATS URL: %s", natsURL)
	log.Println("")
	log.Println("Event-Driven Relay:")
	log.Println("  - MessageSent events -> broadcast (fan-out) + history (persist)")
	log.Println("  - UserJoined / UserLeft / OnlineCount events -> broadcast")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health            - Health check")
	log.Println("  POST   /rooms             - Create a room")
	log.Println("  GET    /rooms/:roomId     - Room details + online count")
	log.Println("  GET    /messages          - Lazy-load room history")
	log.Println("  GET    /messages/search   - Keyword search in a room")
	log.Println("  POST   /upload            - Upload an attachment")
	log.Println("  GET    /uploads/:name     - Fetch an uploaded attachment")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Actions: join {roomId,userId,password}, chat {type,content,...}")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
