package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. The config
// section reports presence booleans only, never credential values.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "ok"
		redisStatus := "ok"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			if err := d.DB.Ping(ctx); err != nil {
				dbStatus = err.Error()
			}
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
			}
		}
		status := http.StatusOK
		if dbStatus != "ok" || redisStatus != "ok" {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
			"config": fiber.Map{
				"httpsms_api_key":     d.Cfg.HTTPSMSAPIKey != "",
				"httpsms_owner_phone": d.Cfg.HTTPSMSOwnerPhone != "",
				"webhook_signing_key": d.Cfg.WebhookSigningKey != "",
				"gemini_api_key":      d.Cfg.GeminiAPIKey != "",
				"algo_admin_wallet":   d.Cfg.AlgoAdminMnemonic != "",
				"solana_admin_wallet": d.Cfg.SolanaAdminSecret != "",
			},
		})
	})
}
