package nanorpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xnopay.com/payment-gateway/models"
)

func rpcServer(t *testing.T, handler func(action string, body map[string]interface{}) (int, string)) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &body))
		action, _ := body["action"].(string)

		status, response := handler(action, body)
		w.WriteHeader(status)
		fmt.Fprint(w, response)
	}))
}

func TestAccountInfoNotFoundIsZero(t *testing.T) {
	assert := assert.New(t)

	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		assert.Equal("account_info", action)
		return http.StatusOK, `{"error":"Account not found"}`
	})
	defer server.Close()

	info, err := NewClient(server.URL).AccountInfo(context.Background(), "nano_account")
	assert.NoError(err)
	assert.Equal("", info.Balance)
	assert.Equal("", info.Frontier)
}

func TestPendingSendsQueryParameters(t *testing.T) {
	assert := assert.New(t)

	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		assert.Equal("pending", action)
		assert.Equal(float64(50), body["count"])
		assert.Equal("1000000000000000000000000", body["threshold"])
		assert.Equal(true, body["source"])
		assert.Equal(true, body["include_only_confirmed"])
		return http.StatusOK, `{"blocks":""}`
	})
	defer server.Close()

	entries, err := NewClient(server.URL).Pending(context.Background(), "nano_account")
	assert.NoError(err)
	assert.Empty(entries)
}

func TestPendingPreservesListingOrder(t *testing.T) {
	assert := assert.New(t)

	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		return http.StatusOK, `{"blocks":{
			"HASH1":{"source":"nano_first","amount":"100"},
			"HASH2":{"source":"nano_second","amount":"200"},
			"HASH3":{"source":"nano_third","amount":"300"}
		}}`
	})
	defer server.Close()

	entries, err := NewClient(server.URL).Pending(context.Background(), "nano_account")
	assert.NoError(err)
	require.Len(t, entries, 3)
	assert.Equal("HASH1", entries[0].Hash)
	assert.Equal("nano_third", entries[2].Source)
	assert.Equal("300", entries[2].AmountRaw)
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	assert := assert.New(t)

	var attempts int32
	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		assert.Equal("process", action)
		assert.Equal("receive", body["subtype"])

		// The block travels as a JSON-encoded string.
		encoded, ok := body["block"].(string)
		assert.True(ok)
		var block models.StateBlock
		assert.NoError(json.Unmarshal([]byte(encoded), &block))
		assert.Equal("state", block.Type)

		if atomic.AddInt32(&attempts, 1) < 3 {
			return http.StatusOK, `{"error":"gap previous"}`
		}
		return http.StatusOK, `{"hash":"ABCDEF"}`
	})
	defer server.Close()

	hash, err := NewClient(server.URL).Process(context.Background(), &models.StateBlock{Type: "state"}, models.BlockSubtypeReceive)
	assert.NoError(err)
	assert.Equal("ABCDEF", hash)
	assert.Equal(int32(3), atomic.LoadInt32(&attempts))
}

func TestProcessGivesUpAfterBoundedAttempts(t *testing.T) {
	assert := assert.New(t)

	var attempts int32
	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		atomic.AddInt32(&attempts, 1)
		return http.StatusOK, `{"error":"fork"}`
	})
	defer server.Close()

	_, err := NewClient(server.URL).Process(context.Background(), &models.StateBlock{Type: "state"}, models.BlockSubtypeSend)
	assert.Error(err)
	assert.Equal(int32(3), atomic.LoadInt32(&attempts), "submission retries exactly three attempts")
}

func TestReadsFailFast(t *testing.T) {
	assert := assert.New(t)

	var attempts int32
	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		atomic.AddInt32(&attempts, 1)
		return http.StatusInternalServerError, `boom`
	})
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.Pending(context.Background(), "nano_account")
	assert.Error(err)
	_, err = client.GenerateWork(context.Background(), "HASH")
	assert.Error(err)

	assert.Equal(int32(2), atomic.LoadInt32(&attempts), "reads are single-shot")
}

func TestGenerateWork(t *testing.T) {
	assert := assert.New(t)

	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		assert.Equal("work_generate", action)
		assert.Equal("fffffff800000000", body["difficulty"])
		assert.Equal("FRONTIER", body["hash"])
		return http.StatusOK, `{"work":"2bf29ef00786a6bc"}`
	})
	defer server.Close()

	work, err := NewClient(server.URL).GenerateWork(context.Background(), "FRONTIER")
	assert.NoError(err)
	assert.Equal("2bf29ef00786a6bc", work)
}

func TestAccountRepresentative(t *testing.T) {
	assert := assert.New(t)

	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		return http.StatusOK, `{"representative":"nano_rep"}`
	})
	defer server.Close()

	rep, err := NewClient(server.URL).AccountRepresentative(context.Background(), "nano_account")
	assert.NoError(err)
	assert.Equal("nano_rep", rep)
}

func TestMalformedResponseIsAnError(t *testing.T) {
	assert := assert.New(t)

	server := rpcServer(t, func(action string, body map[string]interface{}) (int, string) {
		return http.StatusOK, `{not json`
	})
	defer server.Close()

	_, err := NewClient(server.URL).Pending(context.Background(), "nano_account")
	assert.Error(err)
}
