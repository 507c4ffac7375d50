package nanorpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/go-errors/errors"
	"github.com/google/uuid"

	"xnopay.com/payment-gateway/log"
	"xnopay.com/payment-gateway/models"
)

const (
	pendingCount     = 50
	pendingThreshold = "1000000000000000000000000"
	workDifficulty   = "fffffff800000000"

	// Total attempts for block submission. Reads are single-shot; the
	// polling loop retries them naturally on its next tick.
	processAttempts = 3
)

// Client is a typed wrapper around the node RPC. It keeps no per-call state
// and is safe for concurrent use by any number of sessions.
type Client struct {
	url        string
	httpClient *http.Client
	headers    map[string]string
}

func NewClient(url string) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func NewClientWithHeaders(url string, headers map[string]string) *Client {
	client := NewClient(url)
	client.headers = headers
	return client
}

func (c *Client) invoke(ctx context.Context, body interface{}, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	requestId := uuid.New().String()
	log.Debugf("rpc %s: %s", requestId, string(encoded))

	req, err := http.NewRequest("POST", c.url, bytes.NewReader(encoded))
	if err != nil {
		return errors.Wrap(err, 0)
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	defer func() {
		io.Copy(ioutil.Discard, response.Body)
		response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return errors.Errorf("rpc %s: node returned status %d", requestId, response.StatusCode)
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return errors.Errorf("rpc %s: malformed response: %v", requestId, err)
	}
	return nil
}

// AccountInfo returns the balance and frontier of an account. An account the
// node has never seen opens with a zero balance and no frontier, which is
// reported here as an empty AccountInfo rather than an error.
func (c *Client) AccountInfo(ctx context.Context, account string) (models.AccountInfo, error) {
	var info models.AccountInfo
	err := c.invoke(ctx, &models.AccountInfoRequest{
		Action:  "account_info",
		Account: account,
	}, &info)
	if err != nil {
		return models.AccountInfo{}, err
	}
	if info.Error != "" {
		if strings.EqualFold(info.Error, "Account not found") {
			return models.AccountInfo{}, nil
		}
		return models.AccountInfo{}, errors.Errorf("account_info: %s", info.Error)
	}
	return info, nil
}

// Pending lists the unclaimed confirmed inbound blocks of an account, in the
// node's listing order, raw amounts above the dust threshold only.
func (c *Client) Pending(ctx context.Context, account string) ([]models.PendingEntry, error) {
	var response models.PendingResponse
	err := c.invoke(ctx, &models.PendingRequest{
		Action:               "pending",
		Account:              account,
		Count:                pendingCount,
		Threshold:            pendingThreshold,
		Source:               true,
		IncludeOnlyConfirmed: true,
	}, &response)
	if err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, errors.Errorf("pending: %s", response.Error)
	}
	return response.Blocks, nil
}

// GenerateWork asks the node for a proof-of-work token over the given hash
// (the account frontier, or the public key for a first block).
func (c *Client) GenerateWork(ctx context.Context, hash string) (string, error) {
	var response models.WorkGenerateResponse
	err := c.invoke(ctx, &models.WorkGenerateRequest{
		Action:     "work_generate",
		Difficulty: workDifficulty,
		Hash:       hash,
	}, &response)
	if err != nil {
		return "", err
	}
	if response.Error != "" {
		return "", errors.Errorf("work_generate: %s", response.Error)
	}
	if response.Work == "" {
		return "", errors.Errorf("work_generate: empty work")
	}
	return response.Work, nil
}

// AccountRepresentative returns the representative of an account, or an
// empty string if the account has none yet.
func (c *Client) AccountRepresentative(ctx context.Context, account string) (string, error) {
	var response models.AccountRepresentativeResponse
	err := c.invoke(ctx, &models.AccountRepresentativeRequest{
		Action:  "account_representative",
		Account: account,
	}, &response)
	if err != nil {
		return "", err
	}
	return response.Representative, nil
}

// BlocksInfo returns the node's view of the given block hashes.
func (c *Client) BlocksInfo(ctx context.Context, hashes ...string) (*models.BlocksInfoResponse, error) {
	var response models.BlocksInfoResponse
	err := c.invoke(ctx, &models.BlocksInfoRequest{
		Action: "blocks_info",
		Hashes: hashes,
	}, &response)
	if err != nil {
		return nil, err
	}
	if response.Error != "" {
		return nil, errors.Errorf("blocks_info: %s", response.Error)
	}
	return &response, nil
}

// Process submits a signed block and returns its hash. Submission is the one
// write on this surface, so it retries up to processAttempts times before
// giving up.
func (c *Client) Process(ctx context.Context, block *models.StateBlock, subtype string) (string, error) {
	encoded, err := json.Marshal(block)
	if err != nil {
		return "", errors.Wrap(err, 0)
	}
	request := &models.ProcessRequest{
		Action:  "process",
		Subtype: subtype,
		Block:   string(encoded),
	}

	var lastErr error
	for attempt := 1; attempt <= processAttempts; attempt++ {
		var response models.ProcessResponse
		err := c.invoke(ctx, request, &response)
		if err == nil && response.Error != "" {
			err = errors.Errorf("process: %s", response.Error)
		}
		if err == nil && response.Hash == "" {
			err = errors.Errorf("process: node accepted block but returned no hash")
		}
		if err == nil {
			return response.Hash, nil
		}
		lastErr = err
		log.Warnf("process attempt %d/%d failed: %s", attempt, processAttempts, err.Error())
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}
