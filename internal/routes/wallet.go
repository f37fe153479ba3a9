package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pigeon-sms/pigeon/internal/wallet"
)

// RegisterWalletRoutes wires the per-chain wallet operation endpoints. The
// destructive account endpoint is only registered when an admin key is
// configured, and then requires it on every call.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, adminKey string) {
	wallets := r.Group("/wallets/:chain")
	wallets.Post("/onboard", h.Onboard)
	wallets.Post("/send", h.Send)
	wallets.Post("/fund", h.Fund)
	wallets.Post("/export", h.Export)
	wallets.Get("/address", h.Address)
	wallets.Get("/balance", h.Balance)
	wallets.Get("/transactions", h.Transactions)

	if adminKey != "" {
		wallets.Delete("/accounts/:phone", requireAdminKey(adminKey), h.Delete)
	}
}

func requireAdminKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("X-Admin-Key") != key {
			return fiber.NewError(http.StatusUnauthorized, "invalid admin key")
		}
		return c.Next()
	}
}
