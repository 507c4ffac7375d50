package wsclient

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"xnopay.com/payment-gateway/log"
	"xnopay.com/payment-gateway/models"
)

const (
	handshakeTimeout  = time.Second
	minReconnectDelay = 10 * time.Millisecond
	maxReconnectDelay = 2 * time.Second
)

type subscribePacket struct {
	Action  string           `json:"action"`
	Topic   string           `json:"topic"`
	Options subscribeOptions `json:"options"`
}

type subscribeOptions struct {
	ConfirmationType string   `json:"confirmation_type,omitempty"`
	Accounts         []string `json:"accounts,omitempty"`
	AccountsAdd      []string `json:"accounts_add,omitempty"`
	AccountsDel      []string `json:"accounts_del,omitempty"`
}

type confirmationMessage struct {
	Topic   string `json:"topic"`
	Message struct {
		Account string `json:"account"`
		Hash    string `json:"hash"`
		Block   struct {
			LinkAsAccount string `json:"link_as_account"`
		} `json:"block"`
	} `json:"message"`
}

// Subscriber keeps a reconnecting websocket subscription to the node's
// confirmation topic and delivers events for watched addresses. It is a
// latency optimization only; sessions stay correct on polling alone. Dropped
// connections are re-dialed with bounded backoff and the full watch list is
// replayed on every reconnect.
type Subscriber struct {
	url    string
	events chan models.ConfirmationEvent
	done   chan struct{}

	mu        sync.Mutex
	addresses map[string]struct{}
	conn      *websocket.Conn
	closed    bool
}

func New(url string) *Subscriber {
	return &Subscriber{
		url:       url,
		events:    make(chan models.ConfirmationEvent, 64),
		done:      make(chan struct{}),
		addresses: make(map[string]struct{}),
	}
}

// Start launches the connection loop.
func (s *Subscriber) Start() {
	go s.run()
}

// Events delivers confirmations for watched addresses. Events are dropped
// rather than blocking the read loop when the buffer is full.
func (s *Subscriber) Events() <-chan models.ConfirmationEvent {
	return s.events
}

// Done is closed when the subscriber shuts down.
func (s *Subscriber) Done() <-chan struct{} {
	return s.done
}

// Subscribe adds an address to the watch list.
func (s *Subscriber) Subscribe(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[address]; ok {
		return
	}
	s.addresses[address] = struct{}{}
	s.writeLocked(&subscribePacket{
		Action: "update",
		Topic:  "confirmation",
		Options: subscribeOptions{
			ConfirmationType: "active_quorum",
			AccountsAdd:      []string{address},
		},
	})
}

// Unsubscribe removes an address from the watch list.
func (s *Subscriber) Unsubscribe(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.addresses[address]; !ok {
		return
	}
	delete(s.addresses, address)
	s.writeLocked(&subscribePacket{
		Action: "update",
		Topic:  "confirmation",
		Options: subscribeOptions{
			ConfirmationType: "active_quorum",
			AccountsDel:      []string{address},
		},
	})
}

// Watched returns the currently watched addresses.
func (s *Subscriber) Watched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.addresses))
	for address := range s.addresses {
		out = append(out, address)
	}
	return out
}

func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	close(s.done)
	if conn != nil {
		conn.Close()
	}
}

func (s *Subscriber) run() {
	delay := minReconnectDelay
	for {
		select {
		case <-s.done:
			return
		default:
		}

		dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
		conn, _, err := dialer.Dial(s.url, nil)
		if err != nil {
			log.Warnf("websocket dial %s failed: %s", s.url, err.Error())
			delay = s.sleep(delay)
			continue
		}
		delay = minReconnectDelay

		s.mu.Lock()
		s.conn = conn
		s.resubscribeLocked()
		s.mu.Unlock()

		s.readLoop(conn)

		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.mu.Unlock()
		conn.Close()
	}
}

func (s *Subscriber) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
			default:
				log.Warnf("websocket read failed, reconnecting: %s", err.Error())
			}
			return
		}

		var msg confirmationMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debugf("websocket: skipping malformed message: %s", err.Error())
			continue
		}
		if msg.Topic != "confirmation" {
			continue
		}

		s.mu.Lock()
		_, watchedAccount := s.addresses[msg.Message.Account]
		_, watchedReceiver := s.addresses[msg.Message.Block.LinkAsAccount]
		s.mu.Unlock()
		if !watchedAccount && !watchedReceiver {
			continue
		}

		select {
		case s.events <- models.ConfirmationEvent{
			Account:          msg.Message.Account,
			Hash:             msg.Message.Hash,
			ReceivingAddress: msg.Message.Block.LinkAsAccount,
		}:
		default:
			log.Warnf("websocket: event buffer full, dropping confirmation %s", msg.Message.Hash)
		}
	}
}

// resubscribeLocked replays the full watch list after a (re)connect.
func (s *Subscriber) resubscribeLocked() {
	if len(s.addresses) == 0 {
		return
	}
	accounts := make([]string, 0, len(s.addresses))
	for address := range s.addresses {
		accounts = append(accounts, address)
	}
	s.writeLocked(&subscribePacket{
		Action: "subscribe",
		Topic:  "confirmation",
		Options: subscribeOptions{
			ConfirmationType: "active_quorum",
			Accounts:         accounts,
		},
	})
}

func (s *Subscriber) writeLocked(packet *subscribePacket) {
	if s.conn == nil {
		return
	}
	if err := s.conn.WriteJSON(packet); err != nil {
		log.Warnf("websocket write failed: %s", err.Error())
	}
}

func (s *Subscriber) sleep(delay time.Duration) time.Duration {
	select {
	case <-s.done:
		return delay
	case <-time.After(delay):
	}
	next := delay * 2
	if next > maxReconnectDelay {
		next = maxReconnectDelay
	}
	return next
}
