package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pigeon-sms/pigeon/internal/notify"
)

const securityWarning = "## SECURITY WARNING: Your previous message contained your password in plain text. Please DELETE it from your message history immediately for your safety."

// Handler terminates both inbound wire shapes: the httpSMS CloudEvents
// webhook, which is answered out-of-band through the notifier, and the
// hardware-gateway shape, whose reply rides back in the HTTP response for
// the device to transmit.
type Handler struct {
	dispatcher   *Dispatcher
	filter       EventFilter
	validator    *SignatureValidator
	notifier     notify.Notifier
	scheduler    *notify.Scheduler
	warningDelay time.Duration
	logger       *slog.Logger
	now          func() time.Time
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Dispatcher *Dispatcher
	Filter     EventFilter
	Validator  *SignatureValidator
	Notifier   notify.Notifier
	Scheduler  *notify.Scheduler
	// WarningDelay separates the security warning from the main reply so
	// it arrives as its own message. Zero defaults to two seconds.
	WarningDelay time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

// NewHandler builds the webhook handler.
func NewHandler(cfg HandlerConfig) *Handler {
	h := &Handler{
		dispatcher:   cfg.Dispatcher,
		filter:       cfg.Filter,
		validator:    cfg.Validator,
		notifier:     cfg.Notifier,
		scheduler:    cfg.Scheduler,
		warningDelay: cfg.WarningDelay,
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if h.warningDelay == 0 {
		h.warningDelay = 2 * time.Second
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// HTTPSMS handles httpSMS CloudEvents deliveries.
func (h *Handler) HTTPSMS(c *fiber.Ctx) error {
	var event Event
	if err := c.BodyParser(&event); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid JSON payload",
		})
	}
	if event.Type == "" || event.Data == (EventData{}) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   `Invalid payload: missing "type" or "data" field`,
		})
	}

	if !h.validator.Valid(c.Get(fiber.HeaderAuthorization)) {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid webhook signature",
		})
	}

	h.logger.Info("webhook event received", "type", event.Type, "event_id", event.ID)

	if event.ID != "" {
		seen, err := h.filter.Seen(c.UserContext(), event.ID)
		if err != nil {
			h.logger.Error("dedup lookup failed", "event_id", event.ID, "error", err)
		} else if seen {
			return c.JSON(fiber.Map{
				"success": true,
				"message": "Duplicate event " + event.ID + " ignored",
			})
		}
	}

	if event.Type != TypeMessageReceived {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Event " + event.Type + " acknowledged",
		})
	}
	if event.Data.Contact == "" || event.Data.Content == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Missing data.contact or data.content in received event",
		})
	}

	reply := h.dispatcher.Process(c.UserContext(), event.Data.Contact, event.Data.Content)

	// The reply goes out before the handler returns. Delivery failure is
	// reported in the payload, never rolled back into the wallet operation.
	var smsErr string
	if err := h.notifier.Send(c.UserContext(), event.Data.Contact, reply.Text); err != nil {
		h.logger.Warn("sms reply failed", "to", event.Data.Contact, "error", err)
		smsErr = err.Error()
	}

	if reply.ContainedPassword {
		h.scheduleWarning(event.Data.Contact)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "SMS processed and reply sent",
		"data": fiber.Map{
			"from":                    event.Data.Contact,
			"owner":                   event.Data.Owner,
			"intent_reply":            reply.Text,
			"sms_sent":                smsErr == "",
			"sms_send_error":          smsErr,
			"security_warning_queued": reply.ContainedPassword,
		},
	})
}

// Gateway handles the ESP32/SIM800L shape. The device sends the reply
// itself, so the text is returned in the response body.
func (h *Handler) Gateway(c *fiber.Ctx) error {
	var msg GatewayMessage
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "invalid JSON payload",
		})
	}
	if msg.From == "" || msg.Message == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   `Missing "from" or "message" in gateway payload`,
		})
	}

	event := msg.Event(h.now())
	h.logger.Info("gateway sms received", "device", event.Data.UserID, "event_id", event.ID)

	reply := h.dispatcher.Process(c.UserContext(), msg.From, msg.Message)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "SMS processed successfully",
		"data": fiber.Map{
			"from":              msg.From,
			"reply":             reply.Text,
			"containedPassword": reply.ContainedPassword,
			"deviceId":          event.Data.UserID,
			"send_reply":        true,
		},
	})
}

// scheduleWarning queues the detached security warning. Best-effort: the
// main reply never waits on it.
func (h *Handler) scheduleWarning(to string) {
	h.scheduler.Schedule(h.warningDelay, "security-warning", func() error {
		// Detached from the request, so the send gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return h.notifier.Send(ctx, to, securityWarning)
	})
}
