package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

// Handler exposes the wallet operations as a JSON API: every operation takes
// {phone, password?, ...} and answers {success, ...}; failures map to a
// non-2xx status with a declared reason.
type Handler struct {
	services map[chain.ID]*Service
}

// NewHandler builds a handler over the per-chain services.
func NewHandler(services map[chain.ID]*Service) *Handler {
	return &Handler{services: services}
}

func (h *Handler) service(c *fiber.Ctx) (*Service, error) {
	id := chain.ID(c.Params("chain"))
	svc, ok := h.services[id]
	if !ok {
		return nil, fiber.NewError(http.StatusNotFound, "unknown chain")
	}
	return svc, nil
}

type onboardRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Onboard creates a wallet for a phone number.
func (h *Handler) Onboard(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req onboardRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := svc.Onboard(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return mapError(err)
	}
	status := http.StatusCreated
	if res.AlreadyOnboarded {
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"success":           true,
		"already_onboarded": res.AlreadyOnboarded,
		"address":           res.Address,
	})
}

type sendRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Amount   string `json:"amount"`
	Asset    string `json:"asset"`
	To       string `json:"to"`
}

// Send submits a peer-to-peer transfer.
func (h *Handler) Send(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := svc.Send(c.UserContext(), req.Phone, req.Password, SendInput{
		Amount: req.Amount,
		Asset:  req.Asset,
		To:     req.To,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success":         true,
		"tx_id":           res.TxID,
		"confirmed_round": res.ConfirmedRound,
		"explorer_url":    res.ExplorerURL,
	})
}

type fundRequest struct {
	Phone string `json:"phone"`
}

// Fund grants testnet tokens from the admin wallet.
func (h *Handler) Fund(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := svc.Fund(c.UserContext(), req.Phone)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success":         true,
		"tx_id":           res.TxID,
		"confirmed_round": res.ConfirmedRound,
		"explorer_url":    res.ExplorerURL,
	})
}

type exportRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Export returns the decrypted recovery secret.
func (h *Handler) Export(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	var req exportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	secret, err := svc.ExportSecret(c.UserContext(), req.Phone, req.Password)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"success": true, "secret": secret})
}

// Address returns the stored receiving address.
func (h *Handler) Address(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	res, err := svc.Address(c.UserContext(), c.Query("phone"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"success": true, "address": res.Address, "phone": res.Phone})
}

// Balance returns the user's spendable balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	res, err := svc.Balance(c.UserContext(), c.Query("phone"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"balance": res.Balance,
		"asset":   res.Asset,
		"address": res.Address,
	})
}

// Transactions returns recent history, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	limit, err := strconv.Atoi(c.Query("limit", "5"))
	if err != nil || limit <= 0 {
		limit = 5
	}
	res, err := svc.Transactions(c.UserContext(), c.Query("phone"), limit)
	if err != nil {
		return mapError(err)
	}
	txs := make([]fiber.Map, 0, len(res.Transactions))
	for _, tx := range res.Transactions {
		txs = append(txs, fiber.Map{
			"tx_id":        tx.ID,
			"type":         tx.Type,
			"timestamp":    tx.Time,
			"amount":       tx.Amount,
			"sender":       tx.Sender,
			"receiver":     tx.Receiver,
			"explorer_url": tx.ExplorerURL,
		})
	}
	return c.JSON(fiber.Map{"success": true, "address": res.Address, "transactions": txs})
}

// Delete removes a user record. Registered behind the admin guard.
func (h *Handler) Delete(c *fiber.Ctx) error {
	svc, err := h.service(c)
	if err != nil {
		return err
	}
	if err := svc.DeleteAccount(c.UserContext(), c.Params("phone")); err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// mapError converts declared failure kinds into HTTP statuses. Unknown
// errors become 502s so chain flakiness is never mistaken for a client bug.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrWrongPassword):
		return fiber.NewError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrNotOnboarded), errors.Is(err, ErrRecipientNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrLegacyAccount):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInsufficientBalance), errors.Is(err, ErrAdminInsufficientBalance):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRateLimited):
		return fiber.NewError(http.StatusTooManyRequests, err.Error())
	case errors.Is(err, ErrAdminNotConfigured):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, chain.ErrConfirmationTimeout):
		return fiber.NewError(http.StatusGatewayTimeout, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
