package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/amaan-q00/beta-chatx/internal/chat/app"
	"github.com/amaan-q00/beta-chatx/internal/chat/repository"
	"github.com/amaan-q00/beta-chatx/internal/chat/router"
	"github.com/amaan-q00/beta-chatx/pkg"
	"github.com/amaan-q00/beta-chatx/pkg/config"
	"github.com/amaan-q00/beta-chatx/pkg/database"
	"github.com/amaan-q00/beta-chatx/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	cfg.Defaults()
	if config.EnvConfig.ChatServicePort != "" {
		cfg.Port = config.EnvConfig.ChatServicePort
	}

	if !pkg.Contains([]string{"memory", "minio"}, cfg.MediaStore) {
		logger.Log.Fatal("unknown media_store setting", zap.String("media_store", cfg.MediaStore))
	}

	// Assembled binaries default to the ephemeral in-memory store so a
	// room's media dies with the room; MinIO is opt-in.
	var mediaStore repository.MediaStore
	switch cfg.MediaStore {
	case "minio":
		mc, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:      cfg.MinIO.Endpoint,
			User:          cfg.MinIO.User,
			Password:      cfg.MinIO.Password,
			BucketName:    cfg.MinIO.Bucket,
			UseSSL:        cfg.MinIO.UseSSL,
			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal(
				"Unable to connect to minIO after retries",
				zap.String("endpoint", fmt.Sprintf("[%s]", cfg.MinIO.Endpoint)),
				zap.Error(err),
			)
		}
		mediaStore = repository.NewMinIOMediaStore(mc)
	default:
		mediaStore = repository.NewMemoryMediaStore()
	}

	clock := clockwork.NewRealClock()

	roomStore := repository.NewMemoryRoomStore()
	viewUC := app.NewViewUseCase()
	roomUC := app.NewRoomUseCase(roomStore, mediaStore, viewUC, clock, cfg.RoomEvictionGrace)
	uploadUC := app.NewUploadUseCase(clock, cfg.UploadIdleTTL, cfg.MaxMediaBytes)

	hub := app.NewHub(roomUC, uploadUC, viewUC, mediaStore)
	wsHandler := app.NewChatWebsocketHandler(hub, int64(cfg.MaxFrameBytes))

	r := fiber.New(fiber.Config{
		BodyLimit: int(cfg.MaxMediaBytes) + (1 << 20), // media plus multipart overhead
	})

	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, hub, wsHandler, cfg.MaxMediaBytes)

	port := ":" + cfg.Port
	logger.Log.Info("Chat Service listening", zap.String("port", port))
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
