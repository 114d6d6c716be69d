package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/FrankAsanteVanLaarhoven/oponmeta-sub008/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EVENT ENVELOPE
// ══════════════════════════════════════════════════════════════════════════════

// Envelope is the wire form of an inbound event. It is shared by the Redis
// bus and the YAML replay file.
type Envelope struct {
	InstanceID string                 `json:"instance_id,omitempty" yaml:"-"`
	Type       shared.EventType       `json:"type" yaml:"type"`
	UserID     string                 `json:"user_id" yaml:"user_id"`
	Timestamp  time.Time              `json:"timestamp" yaml:"timestamp"`
	Payload    map[string]interface{} `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Encode wraps an event in an envelope.
func Encode(event shared.Event) Envelope {
	return Envelope{
		Type:      event.EventType(),
		UserID:    event.AggregateID(),
		Timestamp: event.OccurredAt(),
		Payload:   event.Payload(),
	}
}

// decoders build a concrete event from an envelope payload.
var decoders = map[shared.EventType]func(base shared.BaseEvent, payload []byte) (shared.Event, error){
	shared.EventCourseCompleted: func(base shared.BaseEvent, payload []byte) (shared.Event, error) {
		e := shared.CourseCompletedEvent{}
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		e.BaseEvent = base
		return e, nil
	},
	shared.EventCourseProgressed: func(base shared.BaseEvent, payload []byte) (shared.Event, error) {
		e := shared.CourseProgressedEvent{}
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		e.BaseEvent = base
		return e, nil
	},
	shared.EventDailyLogin: func(base shared.BaseEvent, _ []byte) (shared.Event, error) {
		return shared.DailyLoginEvent{BaseEvent: base}, nil
	},
	shared.EventPeerHelped: func(base shared.BaseEvent, payload []byte) (shared.Event, error) {
		e := shared.PeerHelpedEvent{}
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		e.BaseEvent = base
		return e, nil
	},
	shared.EventSocialInteraction: func(base shared.BaseEvent, payload []byte) (shared.Event, error) {
		e := shared.SocialInteractionEvent{}
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, err
		}
		e.BaseEvent = base
		return e, nil
	},
}

// Decode rebuilds the concrete event carried by env.
func (env Envelope) Decode() (shared.Event, error) {
	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEventNotSupported, env.Type)
	}
	if env.UserID == "" {
		return nil, fmt.Errorf("decode %s: missing user_id", env.Type)
	}
	if env.Timestamp.IsZero() {
		return nil, fmt.Errorf("decode %s: missing timestamp", env.Type)
	}

	payload := []byte("{}")
	if len(env.Payload) > 0 {
		var err error
		if payload, err = json.Marshal(env.Payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", env.Type, err)
		}
	}
	event, err := decode(shared.NewBaseEvent(env.Type, env.UserID, env.Timestamp), payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return event, nil
}
