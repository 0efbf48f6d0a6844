package event

import (
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"
)

// Subscription is the handle returned by On. It stands in for the listener
// reference when removing a registration: registering the same Listener
// value twice yields two independent subscriptions.
type Subscription struct {
	id        string
	channel   string
	listener  Listener
	once      bool
	cancelled atomic.Bool
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Channel returns the channel name the subscription is registered on.
func (s *Subscription) Channel() string {
	return s.channel
}

// IsActive returns true if the subscription can still receive emissions.
func (s *Subscription) IsActive() bool {
	return !s.cancelled.Load()
}

// SubscriptionOption configures a subscription at registration time.
type SubscriptionOption func(*Subscription)

// Once auto-cancels the subscription after its first delivery.
func Once() SubscriptionOption {
	return func(s *Subscription) {
		s.once = true
	}
}

// generateID creates a unique subscription ID.
func generateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "sub-fallback"
	}
	return hex.EncodeToString(b)
}
