package models

import (
	"bytes"
	"encoding/json"

	"github.com/go-errors/errors"
)

// Request/response shapes of the node RPC actions the gateway uses. The node
// speaks JSON over HTTP POST; amounts on this boundary are always raw.

type AccountInfoRequest struct {
	Action  string `json:"action"`
	Account string `json:"account"`
}

type AccountInfo struct {
	Balance  string `json:"balance"`
	Frontier string `json:"frontier"`
	Error    string `json:"error,omitempty"`
}

type PendingRequest struct {
	Action               string `json:"action"`
	Account              string `json:"account"`
	Count                int    `json:"count"`
	Threshold            string `json:"threshold"`
	Source               bool   `json:"source"`
	IncludeOnlyConfirmed bool   `json:"include_only_confirmed"`
}

// PendingEntry is one unclaimed inbound block. Entries keep the order the
// node listed them in, so the last element is the most recently listed one.
type PendingEntry struct {
	Hash      string
	Source    string
	AmountRaw string
}

type pendingBlock struct {
	Source string `json:"source"`
	Amount string `json:"amount"`
}

type PendingResponse struct {
	Blocks []PendingEntry
	Error  string
}

// UnmarshalJSON walks the blocks object with a token decoder instead of
// decoding into a map, because the listing order of the entries matters to
// the caller and Go maps would lose it.
func (r *PendingResponse) UnmarshalJSON(b []byte) error {
	var envelope struct {
		Blocks json.RawMessage `json:"blocks"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return err
	}
	r.Error = envelope.Error
	r.Blocks = nil

	// The node reports an empty set as "" rather than {}.
	trimmed := bytes.TrimSpace(envelope.Blocks)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte(`""`)) || bytes.Equal(trimmed, []byte(`null`)) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("pending blocks: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		hash, ok := keyTok.(string)
		if !ok {
			return errors.Errorf("pending blocks: non-string key")
		}
		var block pendingBlock
		if err := dec.Decode(&block); err != nil {
			return err
		}
		r.Blocks = append(r.Blocks, PendingEntry{
			Hash:      hash,
			Source:    block.Source,
			AmountRaw: block.Amount,
		})
	}
	return nil
}

type WorkGenerateRequest struct {
	Action     string `json:"action"`
	Difficulty string `json:"difficulty"`
	Hash       string `json:"hash"`
}

type WorkGenerateResponse struct {
	Work  string `json:"work"`
	Error string `json:"error,omitempty"`
}

type AccountRepresentativeRequest struct {
	Action  string `json:"action"`
	Account string `json:"account"`
}

type AccountRepresentativeResponse struct {
	Representative string `json:"representative"`
	Error          string `json:"error,omitempty"`
}

type BlocksInfoRequest struct {
	Action string   `json:"action"`
	Hashes []string `json:"hashes"`
}

type BlocksInfoResponse struct {
	Blocks map[string]json.RawMessage `json:"blocks"`
	Error  string                     `json:"error,omitempty"`
}

// ProcessRequest submits a signed block. The node wants the block itself as
// a JSON-encoded string, not as a nested object.
type ProcessRequest struct {
	Action  string `json:"action"`
	Subtype string `json:"subtype"`
	Block   string `json:"block"`
}

type ProcessResponse struct {
	Hash  string `json:"hash"`
	Error string `json:"error,omitempty"`
}

// StateBlock is a signed state block ready for submission.
type StateBlock struct {
	Type           string `json:"type"`
	Account        string `json:"account"`
	Previous       string `json:"previous"`
	Representative string `json:"representative"`
	Balance        string `json:"balance"`
	Link           string `json:"link"`
	Signature      string `json:"signature"`
	Work           string `json:"work"`
}

const (
	BlockSubtypeReceive = "receive"
	BlockSubtypeSend    = "send"
)
