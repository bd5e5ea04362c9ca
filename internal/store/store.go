// Package store persists chat messages and fans them out over the pub/sub
// bus, grounded on _examples/original_source/server/src/state.rs and
// scaling.rs (RedisBroadcastService).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/roomline/chatgate/internal/kv"
)

// Channel is the pub/sub topic every server instance subscribes to so
// WebSocket clients connected anywhere see every accepted message.
const Channel = "chat:messages"

const (
	messagesKey      = "messages"
	messageKeyPrefix = "message:"
)

// Visibility controls how widely a broadcast envelope should be delivered,
// carrying spec section 4.6's reputation-driven throttling through the bus
// to the WebSocket fan-out layer.
type Visibility string

const (
	VisibilityNormal    Visibility = "normal"
	VisibilityThrottled Visibility = "throttled"
	VisibilityBanned    Visibility = "banned"
)

// Envelope wraps a message with the routing metadata the WebSocket layer
// needs to honor Visibility without re-deriving the sender's reputation.
// SenderIP carries the author's IP so a Throttled envelope can be delivered
// only to subscribers connected from the same IP over the single shared
// channel, the documented alternative to a dedicated per-IP channel (spec
// section 4.10's "observable contract is not visible to other IPs").
type Envelope struct {
	Message    ChatMessage `json:"message"`
	Visibility Visibility  `json:"visibility"`
	SenderIP   string      `json:"sender_ip,omitempty"`
}

type Store struct {
	store kv.Store
	bus   kv.Bus
	ttl   time.Duration
}

func New(s kv.Store, bus kv.Bus, ttl time.Duration) *Store {
	return &Store{store: s, bus: bus, ttl: ttl}
}

// Persist writes the message with a TTL and records it in the chronological
// index, independent of whether it will be broadcast.
func (s *Store) Persist(ctx context.Context, msg ChatMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("store: marshal message: %w", err)
	}
	if err := s.store.SetEx(ctx, messageKeyPrefix+msg.ID, string(payload), s.ttl); err != nil {
		return fmt.Errorf("store: persist message: %w", err)
	}
	if err := s.store.ZAdd(ctx, messagesKey, float64(msg.Timestamp), msg.ID); err != nil {
		return fmt.Errorf("store: index message: %w", err)
	}
	if err := s.store.Expire(ctx, messagesKey, s.ttl); err != nil {
		return fmt.Errorf("store: refresh index ttl: %w", err)
	}
	return nil
}

// DeleteMessage removes a message, used when it accumulates enough reports
// to warrant takedown.
func (s *Store) DeleteMessage(ctx context.Context, messageID string) error {
	return s.store.Del(ctx, messageKeyPrefix+messageID)
}

// Broadcast publishes an envelope for the WebSocket layer to fan out,
// honoring Visibility. A VisibilityBanned envelope is never published. A
// VisibilityThrottled envelope is published but carries SenderIP so the
// WebSocket fan-out loop can skip subscribers connected from other IPs.
func (s *Store) Broadcast(ctx context.Context, msg ChatMessage, visibility Visibility, senderIP string) error {
	if visibility == VisibilityBanned {
		return nil
	}
	env := Envelope{Message: msg.WithoutPhone(), Visibility: visibility, SenderIP: senderIP}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("store: marshal envelope: %w", err)
	}
	return s.bus.Publish(ctx, Channel, string(payload))
}

// Subscribe exposes the raw bus subscription for the WebSocket handler.
func (s *Store) Subscribe(ctx context.Context) kv.Subscription {
	return s.bus.Subscribe(ctx, Channel)
}

// Messages returns every persisted message, oldest first, optionally
// filtered by location.
func (s *Store) Messages(ctx context.Context, location string) ([]ChatMessage, error) {
	keys, err := s.store.Keys(ctx, messageKeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("store: list message keys: %w", err)
	}
	messages := make([]ChatMessage, 0, len(keys))
	for _, key := range keys {
		payload, ok, err := s.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var msg ChatMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			continue
		}
		if location != "" && msg.Location != location {
			continue
		}
		messages = append(messages, msg.WithoutPhone())
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].Timestamp < messages[j].Timestamp })
	return messages, nil
}

// MessageByID looks up a single message, phone number included, for the
// contact-reveal endpoint.
func (s *Store) MessageByID(ctx context.Context, id string) (ChatMessage, bool, error) {
	payload, ok, err := s.store.Get(ctx, messageKeyPrefix+id)
	if err != nil {
		return ChatMessage{}, false, fmt.Errorf("store: get message: %w", err)
	}
	if !ok {
		return ChatMessage{}, false, nil
	}
	var msg ChatMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return ChatMessage{}, false, fmt.Errorf("store: unmarshal message: %w", err)
	}
	return msg, true, nil
}
