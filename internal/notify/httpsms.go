package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultSendURL = "https://api.httpsms.com/v1/messages/send"

// HTTPSMSNotifier sends replies through the httpSMS API, authenticated by an
// API key and a configured sender phone.
type HTTPSMSNotifier struct {
	apiKey     string
	ownerPhone string
	sendURL    string
	httpc      *http.Client
}

// NewHTTPSMS builds a notifier for the given credentials.
func NewHTTPSMS(apiKey, ownerPhone string) *HTTPSMSNotifier {
	return &HTTPSMSNotifier{
		apiKey:     apiKey,
		ownerPhone: ownerPhone,
		sendURL:    defaultSendURL,
		httpc:      &http.Client{Timeout: 15 * time.Second},
	}
}

// WithSendURL points the notifier at a different endpoint. Test hook.
func (n *HTTPSMSNotifier) WithSendURL(url string) *HTTPSMSNotifier {
	n.sendURL = url
	return n
}

type sendRequest struct {
	Content string `json:"content"`
	From    string `json:"from"`
	To      string `json:"to"`
}

func (n *HTTPSMSNotifier) Send(ctx context.Context, to, content string) error {
	payload, err := json.Marshal(sendRequest{Content: content, From: n.ownerPhone, To: to})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.sendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", n.apiKey)

	resp, err := n.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("httpsms send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("httpsms API %d: %s", resp.StatusCode, body)
	}
	return nil
}
