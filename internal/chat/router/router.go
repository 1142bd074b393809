package router

import (
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/amaan-q00/beta-chatx/internal/chat/app"
	"github.com/amaan-q00/beta-chatx/internal/chat/domain"
	"github.com/amaan-q00/beta-chatx/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wires the websocket endpoint, the plain-HTTP upload
// fallback and the media fetch endpoint.
func RegisterRoutes(r *fiber.App, hub *app.Hub, wsHandler *app.ChatWebsocketHandler, maxMediaBytes int64) {
	r.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	r.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHandler.HandleConnection(context.Background(), c)
	}))

	// The upload fallback is reachable cross-origin; browsers preflight
	// it when the page is served elsewhere.
	api := r.Group("/api", cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	api.Post("/upload", uploadHandler(hub, maxMediaBytes))
	api.Get("/media/:id", mediaHandler(hub))
}

// uploadHandler accepts one whole media file in a multipart request
// and runs it through the same finalize path as a completed chunked
// upload.
func uploadHandler(hub *app.Hub, maxMediaBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roomID := c.FormValue("roomId")
		if roomID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing roomId"})
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file"})
		}
		if fileHeader.Size > maxMediaBytes {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "file too large"})
		}

		file, err := fileHeader.Open()
		if err != nil {
			logger.Log.Errorf("upload open failed:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			logger.Log.Errorf("upload read failed:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
		}

		oneTime, _ := strconv.ParseBool(c.FormValue("oneTime"))
		filename := c.FormValue("filename")
		if filename == "" {
			filename = fileHeader.Filename
		}
		mimeType := c.FormValue("mimeType")
		if mimeType == "" {
			mimeType = fileHeader.Header.Get("Content-Type")
		}

		meta := domain.MediaMeta{
			Filename: filename,
			MimeType: mimeType,
			Sender:   c.FormValue("sender"),
			Username: c.FormValue("username"),
			OneTime:  oneTime,
		}

		msg, err := hub.PostMedia(c.Context(), roomID, meta, data)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
		}
		return c.JSON(msg)
	}
}

// mediaHandler materializes a stored media binary for one viewer,
// answering 410 once that viewer has consumed a one-time message.
func mediaHandler(hub *app.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		messageID := c.Params("id")
		viewerID := c.Query("viewerId")

		data, contentType, err := hub.MediaContent(c.Context(), messageID, viewerID)
		switch {
		case errors.Is(err, app.ErrMediaUnknown):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
		case errors.Is(err, app.ErrMediaExpired):
			return c.Status(fiber.StatusGone).JSON(fiber.Map{"error": domain.Expired})
		case err != nil:
			logger.Log.Errorf("media fetch failed:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "media fetch failed"})
		}

		if contentType != "" {
			c.Set(fiber.HeaderContentType, contentType)
		}
		return c.Send(data)
	}
}
