package client

import (
	"sort"
	"sync"
	"time"
)

// ClearText is a decrypted application message, addressed by name
// rather than pseudonym (spec.md's client-facing message shape).
type ClearText struct {
	Sender    string
	Receiver  string
	Body      []byte
	Nonce     []byte
	Timestamp time.Time
}

// MessageStore holds every cleartext message this client has sent or
// received, indexed for conversation and contact lookups.
type MessageStore struct {
	mu       sync.RWMutex
	self     string
	messages []ClearText
}

// NewMessageStore builds an empty store scoped to the given local
// address (messages addressed to self are "received").
func NewMessageStore(self string) *MessageStore {
	return &MessageStore{self: self}
}

// Record appends a message to the store.
func (s *MessageStore) Record(msg ClearText) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Received returns every message addressed to this client.
func (s *MessageStore) Received() []ClearText {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ClearText
	for _, m := range s.messages {
		if m.Receiver == s.self {
			out = append(out, m)
		}
	}
	return out
}

// Contacts returns every address this client has exchanged a message
// with, other than itself.
func (s *MessageStore) Contacts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, m := range s.messages {
		for _, addr := range []string{m.Sender, m.Receiver} {
			if addr != s.self && addr != "" {
				seen[addr] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for addr := range seen {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// ConversationWith returns every message exchanged with address, sorted
// by timestamp.
func (s *MessageStore) ConversationWith(address string) []ClearText {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ClearText
	for _, m := range s.messages {
		if m.Sender == address || m.Receiver == address {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

// Conversations groups every message by contact.
func (s *MessageStore) Conversations() map[string][]ClearText {
	out := make(map[string][]ClearText)
	for _, contact := range s.Contacts() {
		out[contact] = s.ConversationWith(contact)
	}
	return out
}
