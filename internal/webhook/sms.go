package webhook

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/pigeon-sms/pigeon/internal/intent"
	"github.com/pigeon-sms/pigeon/internal/wallet"
)

type smsRequest struct {
	From    string `json:"from"`
	Message string `json:"message"`
	// Messege is a deprecated alias kept for old gateway firmware.
	Messege  string `json:"messege"`
	Password string `json:"password"`
}

// SMS is the structured classify-and-execute endpoint: the message is
// classified like an inbound SMS, but the password comes from the request
// body and the operation result is returned as JSON instead of a reply text.
func (h *Handler) SMS(c *fiber.Ctx) error {
	var req smsRequest
	if err := c.BodyParser(&req); err != nil {
		return smsError(c, http.StatusBadRequest, "invalid JSON payload")
	}
	message := req.Message
	if message == "" {
		message = req.Messege
	}
	if message == "" {
		return smsError(c, http.StatusBadRequest, "Missing or invalid 'message' in body. Expected JSON: { from, message }")
	}

	d := h.dispatcher
	if d.classifier == nil {
		return smsError(c, http.StatusInternalServerError, "GEMINI_API_KEY is not configured")
	}
	res, err := d.classifier.Classify(c.UserContext(), Sanitize(message))
	if err != nil {
		return smsError(c, http.StatusBadGateway, "intent extraction failed: "+err.Error())
	}

	svc := d.resolve(res.Params.Chain)
	payload := fiber.Map{
		"ok":      true,
		"from":    req.From,
		"message": message,
		"intent":  res.Intent,
		// The extracted password is deliberately not echoed back.
		"params": fiber.Map{
			"amount": res.Params.Amount,
			"asset":  res.Params.Asset,
			"to":     res.Params.To,
			"txnId":  res.Params.TxnID,
			"chain":  svc.Chain().ID(),
		},
	}

	password := req.Password
	if password == "" {
		password = res.Params.Password
	}

	switch res.Intent {
	case intent.TypeOnboard:
		if req.From == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'onboard' requires 'from' (phone number) in the request body")
		}
		if password == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'onboard' requires 'password' in the request body (used to encrypt your wallet; never stored)")
		}
		out, err := svc.Onboard(c.UserContext(), req.From, password)
		if err != nil {
			return smsOpError(c, payload, err)
		}
		payload["onboarding"] = fiber.Map{
			"success":           true,
			"already_onboarded": out.AlreadyOnboarded,
			"address":           out.Address,
		}

	case intent.TypeSend:
		if req.From == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'send' requires 'from' (phone number) in the request body")
		}
		if password == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'send' requires 'password' in the request body (used to decrypt wallet to sign the transaction)")
		}
		out, err := svc.Send(c.UserContext(), req.From, password, wallet.SendInput{
			Amount: res.Params.Amount,
			Asset:  res.Params.Asset,
			To:     res.Params.To,
		})
		if err != nil {
			return smsOpError(c, payload, err)
		}
		payload["send"] = transferPayload(out)

	case intent.TypeBalance:
		if req.From == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'get_balance' requires 'from' (phone number) in the request body")
		}
		out, err := svc.Balance(c.UserContext(), req.From)
		if err != nil {
			return smsOpError(c, payload, err)
		}
		payload["balance"] = fiber.Map{
			"success": true,
			"balance": out.Balance,
			"asset":   out.Asset,
			"address": out.Address,
		}

	case intent.TypeAddress:
		if req.From == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'get_address' requires 'from' (phone number) in the request body")
		}
		out, err := svc.Address(c.UserContext(), req.From)
		if err != nil {
			return smsOpError(c, payload, err)
		}
		payload["address"] = fiber.Map{"success": true, "address": out.Address}

	case intent.TypeTransactions:
		if req.From == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'get_txn' requires 'from' (phone number) in the request body")
		}
		out, err := svc.Transactions(c.UserContext(), req.From, historyLimit)
		if err != nil {
			return smsOpError(c, payload, err)
		}
		txs := make([]fiber.Map, 0, len(out.Transactions))
		for _, tx := range out.Transactions {
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
		payload["transactions"] = fiber.Map{"success": true, "address": out.Address, "transactions": txs}

	case intent.TypeFund:
		if req.From == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'fund' requires 'from' (phone number) in the request body")
		}
		out, err := svc.Fund(c.UserContext(), req.From)
		if err != nil {
			return smsOpError(c, payload, err)
		}
		payload["fund"] = transferPayload(out)

	case intent.TypeExportKey:
		if req.From == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'get_pvt_key' requires 'from' (phone number) in the request body")
		}
		if password == "" {
			return smsError(c, http.StatusBadRequest, "Intent 'get_pvt_key' requires 'password' in the request body")
		}
		secret, err := svc.ExportSecret(c.UserContext(), req.From, password)
		if err != nil {
			return smsOpError(c, payload, err)
		}
		payload["pvt_key"] = fiber.Map{"success": true, "mnemonic": secret}
	}

	return c.JSON(payload)
}

func transferPayload(out wallet.SendResult) fiber.Map {
	return fiber.Map{
		"success":         true,
		"tx_id":           out.TxID,
		"confirmed_round": out.ConfirmedRound,
		"explorer_url":    out.ExplorerURL,
	}
}

func smsError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"ok": false, "error": msg})
}

// smsOpError keeps the classification payload in the error response so the
// caller still sees what was understood.
func smsOpError(c *fiber.Ctx, payload fiber.Map, err error) error {
	payload["ok"] = false
	payload["error"] = err.Error()
	return c.Status(http.StatusBadRequest).JSON(payload)
}
