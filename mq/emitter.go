package mq

import (
	"context"
	"encoding/json"
	"time"

	"recipehub/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const Channel = "recipehub-events"

// Event types
const (
	RecipeCreated      = "recipe.created"
	RecipeUpdated      = "recipe.updated"
	RecipeDeleted      = "recipe.deleted"
	RecipeImageUpdated = "recipe.image_updated"
	RecipeRated        = "recipe.rated"
	CommentAdded       = "comment.added"
	UserCreated        = "user.created"
	UserFollowed       = "user.followed"
	UserUnfollowed     = "user.unfollowed"
)

// Event is a domain change published after it has been persisted.
type Event struct {
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	ActorID  string    `json:"actorId,omitempty"`
	TargetID string    `json:"targetId,omitempty"`
	At       time.Time `json:"at"`
}

// Emitter publishes events. Emit never fails the caller.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}

// Publisher emits events on a redis pub/sub channel.
type Publisher struct {
	conn    *redis.Client
	channel string
}

func NewPublisher(conn *redis.Client) *Publisher {
	return &Publisher{conn: conn, channel: Channel}
}

// Emit publishes e to redis. Failures are logged and counted.
func (p *Publisher) Emit(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("type", e.Type).Msg("failed to marshal event")
		metrics.EventsPublished.WithLabelValues(e.Type, "error").Inc()
		return
	}

	err = p.conn.Publish(ctx, p.channel, data).Err()
	metrics.EventsPublished.WithLabelValues(e.Type, metrics.Outcome(err)).Inc()
	if err != nil {
		log.Warn().Err(err).Str("type", e.Type).Str("entityId", e.EntityID).Msg("failed to publish event")
		return
	}
	log.Debug().Str("type", e.Type).Str("entityId", e.EntityID).Msg("event published")
}

// Handler processes one received event.
type Handler func(ctx context.Context, e Event) error

// StartWorker consumes the channel until ctx is done. Malformed payloads
// and handler errors are logged and skipped.
func StartWorker(ctx context.Context, conn *redis.Client, handle Handler) {
	sub := conn.Subscribe(ctx, Channel)
	defer sub.Close()
	ch := sub.Channel()

	log.Info().Str("channel", Channel).Msg("event worker listening")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var e Event
			if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
				log.Warn().Err(err).Msg("failed to parse event")
				continue
			}
			if err := handle(ctx, e); err != nil {
				log.Warn().Err(err).Str("type", e.Type).Msg("event handler failed")
			}
		}
	}
}

type activityPusher interface {
	Push(ctx context.Context, userID string, v any) error
}

// RecordActivity appends each event to its actor's activity feed.
func RecordActivity(feed activityPusher) Handler {
	return func(ctx context.Context, e Event) error {
		if e.ActorID == "" {
			return nil
		}
		return feed.Push(ctx, e.ActorID, e)
	}
}
