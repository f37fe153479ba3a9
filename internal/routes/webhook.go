package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pigeon-sms/pigeon/internal/webhook"
)

// RegisterWebhookRoutes wires the two inbound SMS wire shapes plus the
// structured classify-and-execute endpoint.
func RegisterWebhookRoutes(app *fiber.App, h *webhook.Handler) {
	app.Post("/api/sms-webhook", h.HTTPSMS)
	app.Post("/api/esp32-sms-webhook", h.Gateway)
	app.Post("/api/sms", h.SMS)
}
