// Package intent turns free-text SMS commands into structured intents. The
// language understanding itself is delegated to an external model; this
// package owns the defensive parsing of its output, which must never crash
// the pipeline.
package intent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pigeon-sms/pigeon/internal/chain"
)

// Type enumerates the supported commands.
type Type string

const (
	TypeSend         Type = "send"
	TypeBalance      Type = "get_balance"
	TypeTransactions Type = "get_txn"
	TypeOnboard      Type = "onboard"
	TypeAddress      Type = "get_address"
	TypeFund         Type = "fund"
	TypeExportKey    Type = "get_pvt_key"
	TypeUnknown      Type = "unknown"
)

var validTypes = map[Type]bool{
	TypeSend:         true,
	TypeBalance:      true,
	TypeTransactions: true,
	TypeOnboard:      true,
	TypeAddress:      true,
	TypeFund:         true,
	TypeExportKey:    true,
	TypeUnknown:      true,
}

// Params are the fields the classifier extracted from the message. Password
// presence is what allows single-message execution instead of the two-step
// flow. Chain is inferred from an explicit mention or the asset symbol.
type Params struct {
	Amount   string
	Asset    string
	To       string
	TxnID    string
	Password string
	Chain    chain.ID
}

// Result is the classification of one inbound message. Ephemeral, never
// persisted.
type Result struct {
	Intent Type
	Params Params
	Raw    string
}

// Classifier extracts a Result from a raw SMS body. Implementations may fail
// on transport errors; parse-level garbage must degrade to TypeUnknown
// instead.
type Classifier interface {
	Classify(ctx context.Context, message string) (Result, error)
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Parse interprets raw model output for the given message. Enclosing code
// fences are stripped; malformed JSON, non-object params, and out-of-enum
// intents all collapse to TypeUnknown.
func Parse(raw, message string) Result {
	unknown := Result{Intent: TypeUnknown, Raw: message}

	jsonStr := strings.TrimSpace(raw)
	if m := codeFence.FindStringSubmatch(jsonStr); m != nil {
		jsonStr = strings.TrimSpace(m[1])
	}

	var parsed struct {
		Intent string          `json:"intent"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return unknown
	}

	typ := Type(strings.ToLower(strings.TrimSpace(parsed.Intent)))
	if !validTypes[typ] {
		return unknown
	}

	var rawParams struct {
		Amount   string `json:"amount"`
		Asset    string `json:"asset"`
		To       string `json:"to"`
		TxnID    string `json:"txnId"`
		Password string `json:"password"`
		Chain    string `json:"chain"`
	}
	if len(parsed.Params) > 0 {
		// Params that fail to decode are dropped, not fatal.
		_ = json.Unmarshal(parsed.Params, &rawParams)
	}

	params := Params{
		Amount:   rawParams.Amount,
		Asset:    rawParams.Asset,
		To:       rawParams.To,
		TxnID:    rawParams.TxnID,
		Password: rawParams.Password,
		Chain:    inferChain(rawParams.Chain, rawParams.Asset),
	}
	return Result{Intent: typ, Params: params, Raw: message}
}

// inferChain resolves the target chain: an explicit chain wins, then the
// asset symbol; otherwise empty and the dispatcher applies its default.
func inferChain(explicit, asset string) chain.ID {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case string(chain.Algorand):
		return chain.Algorand
	case string(chain.Solana):
		return chain.Solana
	}
	if id, ok := chain.FromAsset(asset); ok {
		return id
	}
	return ""
}
