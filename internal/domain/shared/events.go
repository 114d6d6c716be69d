package shared

import (
	"context"
	"time"
)

// EventType represents the type of an inbound domain event.
type EventType string

// Inbound event types. The UI/CRUD layer publishes these; the engine's event
// handlers translate them into engine operations.
const (
	// Learning events
	EventCourseCompleted  EventType = "course.completed"
	EventCourseProgressed EventType = "course.progressed"

	// Engagement events
	EventDailyLogin EventType = "user.daily_login"

	// Social events
	EventPeerHelped        EventType = "peer.helped"
	EventSocialInteraction EventType = "social.interaction"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the user the event is about.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type" yaml:"type"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
	AggregateId   string    `json:"aggregate_id" yaml:"user_id"`
	CorrelationID string    `json:"correlation_id,omitempty" yaml:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event occurring at the given time.
func NewBaseEvent(eventType EventType, userID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: userID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Learning Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseCompletedEvent is submitted when a user finishes a course.
type CourseCompletedEvent struct {
	BaseEvent
	CourseID     string `json:"course_id"`
	Experience   int    `json:"experience"`
	Score        int    `json:"score"`
	StudyMinutes int    `json:"study_minutes"`
}

// Payload implements Event.
func (e CourseCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":     e.CourseID,
		"experience":    e.Experience,
		"score":         e.Score,
		"study_minutes": e.StudyMinutes,
	}
}

// NewCourseCompletedEvent creates a new CourseCompletedEvent.
func NewCourseCompletedEvent(userID, courseID string, experience, score, studyMinutes int, at time.Time) CourseCompletedEvent {
	return CourseCompletedEvent{
		BaseEvent:    NewBaseEvent(EventCourseCompleted, userID, at),
		CourseID:     courseID,
		Experience:   experience,
		Score:        score,
		StudyMinutes: studyMinutes,
	}
}

// CourseProgressedEvent is submitted when a user finishes a lesson or module.
type CourseProgressedEvent struct {
	BaseEvent
	CourseID     string `json:"course_id"`
	Experience   int    `json:"experience"`
	StudyMinutes int    `json:"study_minutes"`
}

// Payload implements Event.
func (e CourseProgressedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id":     e.CourseID,
		"experience":    e.Experience,
		"study_minutes": e.StudyMinutes,
	}
}

// NewCourseProgressedEvent creates a new CourseProgressedEvent.
func NewCourseProgressedEvent(userID, courseID string, experience, studyMinutes int, at time.Time) CourseProgressedEvent {
	return CourseProgressedEvent{
		BaseEvent:    NewBaseEvent(EventCourseProgressed, userID, at),
		CourseID:     courseID,
		Experience:   experience,
		StudyMinutes: studyMinutes,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Engagement Events
// ═══════════════════════════════════════════════════════════════════════════

// DailyLoginEvent is submitted on every sign-in.
type DailyLoginEvent struct {
	BaseEvent
}

// Payload implements Event.
func (e DailyLoginEvent) Payload() map[string]interface{} {
	return map[string]interface{}{}
}

// NewDailyLoginEvent creates a new DailyLoginEvent.
func NewDailyLoginEvent(userID string, at time.Time) DailyLoginEvent {
	return DailyLoginEvent{BaseEvent: NewBaseEvent(EventDailyLogin, userID, at)}
}

// ═══════════════════════════════════════════════════════════════════════════
// Social Events
// ═══════════════════════════════════════════════════════════════════════════

// PeerHelpedEvent is submitted when a user helps another learner
// (answered a question, reviewed work, mentored a session).
type PeerHelpedEvent struct {
	BaseEvent
	PeerID string `json:"peer_id"`
}

// Payload implements Event.
func (e PeerHelpedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"peer_id": e.PeerID,
	}
}

// NewPeerHelpedEvent creates a new PeerHelpedEvent. The aggregate is the helper.
func NewPeerHelpedEvent(helperID, peerID string, at time.Time) PeerHelpedEvent {
	return PeerHelpedEvent{
		BaseEvent: NewBaseEvent(EventPeerHelped, helperID, at),
		PeerID:    peerID,
	}
}

// SocialInteractionEvent is submitted for comments, likes and posts.
type SocialInteractionEvent struct {
	BaseEvent
	Kind string `json:"kind"`
}

// Payload implements Event.
func (e SocialInteractionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"kind": e.Kind,
	}
}

// NewSocialInteractionEvent creates a new SocialInteractionEvent.
func NewSocialInteractionEvent(userID, kind string, at time.Time) SocialInteractionEvent {
	return SocialInteractionEvent{
		BaseEvent: NewBaseEvent(EventSocialInteraction, userID, at),
		Kind:      kind,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
