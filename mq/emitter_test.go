package mq

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"recipehub/rdx"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherEmit(t *testing.T) {
	mr := miniredis.RunT(t)
	conn := rdx.NewClient(mr.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := conn.Subscribe(ctx, Channel)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	NewPublisher(conn).Emit(ctx, Event{Type: RecipeCreated, EntityID: "r1", ActorID: "u1"})

	select {
	case msg := <-sub.Channel():
		var e Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &e))
		assert.Equal(t, RecipeCreated, e.Type)
		assert.Equal(t, "r1", e.EntityID)
		assert.False(t, e.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestPublisherEmit_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	conn := rdx.NewClient(mr.Addr())
	mr.Close()

	assert.NotPanics(t, func() {
		NewPublisher(conn).Emit(context.Background(), Event{Type: UserFollowed, EntityID: "u2"})
	})
}

func TestStartWorker_RecordsActivity(t *testing.T) {
	mr := miniredis.RunT(t)
	conn := rdx.NewClient(mr.Addr())
	feed := rdx.NewActivityFeed(conn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		StartWorker(ctx, conn, RecordActivity(feed))
		close(done)
	}()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(Channel)[Channel] == 1
	}, 2*time.Second, 10*time.Millisecond)

	mr.Publish(Channel, "not json")
	NewPublisher(conn).Emit(ctx, Event{Type: CommentAdded, EntityID: "r9", ActorID: "u7"})
	NewPublisher(conn).Emit(ctx, Event{Type: RecipeDeleted, EntityID: "r8"})

	require.Eventually(t, func() bool {
		items, err := feed.Recent(context.Background(), "u7", 10)
		return err == nil && len(items) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNop(t *testing.T) {
	var e Emitter = Nop{}
	e.Emit(context.Background(), Event{Type: UserCreated})
}
