package wsclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestSubscriberDeliversWatchedConfirmations(t *testing.T) {
	assert := assert.New(t)

	upgrader := websocket.Upgrader{}
	received := make(chan subscribePacket, 4)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// Expect the initial subscription with the watched address.
		var packet subscribePacket
		require.NoError(t, conn.ReadJSON(&packet))
		received <- packet

		// One confirmation for the watched address, one for a stranger.
		watched := packet.Options.Accounts[0]
		for _, account := range []string{"nano_stranger", watched} {
			message := map[string]interface{}{
				"topic": "confirmation",
				"message": map[string]interface{}{
					"account": account,
					"hash":    "HASH-" + account,
					"block": map[string]interface{}{
						"link_as_account": "nano_receiver",
					},
				},
			}
			require.NoError(t, conn.WriteJSON(message))
		}

		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	subscriber := New(wsURL(server))
	subscriber.Subscribe("nano_watched")
	subscriber.Start()
	defer subscriber.Close()

	select {
	case packet := <-received:
		assert.Equal("subscribe", packet.Action)
		assert.Equal("confirmation", packet.Topic)
		assert.Equal([]string{"nano_watched"}, packet.Options.Accounts)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw a subscription")
	}

	select {
	case event := <-subscriber.Events():
		assert.Equal("nano_watched", event.Account)
		assert.Equal("HASH-nano_watched", event.Hash)
		assert.Equal("nano_receiver", event.ReceivingAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("watched confirmation never arrived")
	}

	// The stranger's confirmation must have been filtered out.
	select {
	case event := <-subscriber.Events():
		t.Fatalf("unexpected event for %s", event.Account)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeUnsubscribePackets(t *testing.T) {
	assert := assert.New(t)

	subscriber := New("ws://unused")
	subscriber.Subscribe("nano_a")
	subscriber.Subscribe("nano_b")
	subscriber.Subscribe("nano_a") // duplicate, ignored
	assert.ElementsMatch([]string{"nano_a", "nano_b"}, subscriber.Watched())

	subscriber.Unsubscribe("nano_a")
	subscriber.Unsubscribe("nano_missing")
	assert.Equal([]string{"nano_b"}, subscriber.Watched())
}

func TestUpdatePacketShape(t *testing.T) {
	assert := assert.New(t)

	packet := subscribePacket{
		Action: "update",
		Topic:  "confirmation",
		Options: subscribeOptions{
			ConfirmationType: "active_quorum",
			AccountsAdd:      []string{"nano_new"},
		},
	}
	encoded, err := json.Marshal(&packet)
	assert.NoError(err)
	assert.JSONEq(`{
		"action": "update",
		"topic": "confirmation",
		"options": {
			"confirmation_type": "active_quorum",
			"accounts_add": ["nano_new"]
		}
	}`, string(encoded))
}
