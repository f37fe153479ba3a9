package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultModel = "gemini-2.5-flash"

const classifierPrompt = `You are an intent classifier for SMS-based crypto wallet commands.
Given a user message, return a JSON object with:
- "intent": one of "send" | "get_balance" | "get_txn" | "onboard" | "get_address" | "fund" | "get_pvt_key" | "unknown"
  - "send": user wants to send crypto (e.g. "send 30 ALGO to 9912345678 password mypass123")
  - "get_balance": user wants to check balance (e.g. "balance", "how much SOL do I have")
  - "get_txn": user wants transaction history or status (e.g. "last transaction", "txn status")
  - "onboard": new user wants to onboard / sign up / create wallet (e.g. "create wallet password mypass123")
  - "get_address": user wants their wallet address (e.g. "my address", "show my address")
  - "fund": user wants free testnet tokens from the admin wallet (e.g. "fund me", "top up my wallet")
  - "get_pvt_key": user wants to export their private key / mnemonic / recovery phrase
  - "unknown": unclear or unrelated
- "params": object with extracted fields when relevant:
  - for "send": amount (string number), asset (e.g. "ALGO" or "SOL"), to (recipient address/phone), password
  - for "onboard": password (the password protecting the wallet)
  - for "get_txn": txnId if the user asked about a specific transaction
  - chain ("algorand" or "solana") when the user named a network explicitly
  - omit fields that are not present in the message

IMPORTANT: The "password" field is critical for "send" and "onboard" intents. Extract it from phrases like "password mypass", "pass mypass", "pw mypass", "pin 1234", or the last word after the keyword "password".

Reply with ONLY valid JSON, no markdown or extra text. Examples:
{"intent":"onboard","params":{"password":"mypass123"}}
{"intent":"send","params":{"amount":"5","asset":"ALGO","to":"9912345678","password":"mypass123"}}
{"intent":"fund","params":{}}
{"intent":"get_pvt_key","params":{}}`

// GeminiClassifier calls the Generative Language REST API. Model output is
// run through Parse, so garbage from the model degrades to TypeUnknown; only
// transport-level failures surface as errors.
type GeminiClassifier struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

// NewGemini builds a classifier using the given API key.
func NewGemini(apiKey string) *GeminiClassifier {
	return &GeminiClassifier{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: "https://generativelanguage.googleapis.com",
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the classifier at a different endpoint. Test hook.
func (g *GeminiClassifier) WithBaseURL(url string) *GeminiClassifier {
	g.baseURL = url
	return g
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiClassifier) Classify(ctx context.Context, message string) (Result, error) {
	req := generateRequest{Contents: []content{
		{Parts: []part{{Text: classifierPrompt + "\n\nUser message: " + message}}},
	}}

	payload, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("classifier request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("classifier response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("classifier API %d: %s", resp.StatusCode, body)
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, fmt.Errorf("classifier response: %w", err)
	}
	var text string
	if len(decoded.Candidates) > 0 && len(decoded.Candidates[0].Content.Parts) > 0 {
		text = decoded.Candidates[0].Content.Parts[0].Text
	}
	return Parse(text, message), nil
}
