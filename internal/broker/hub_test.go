package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"checkout-builder/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageEvent(t *testing.T, pageID string) *models.ChangeEvent {
	t.Helper()
	ev, err := NewChangeEvent(models.TableCheckoutPages, models.ActionUpdate, pageID, pageID, "user-1",
		map[string]string{"title": "Promo"})
	require.NoError(t, err)
	return ev
}

func TestHubDeliversByChannel(t *testing.T) {
	hub := NewHub()

	var got []string
	sub := hub.Subscribe(models.ChannelName(models.TableCheckoutPages, "p1"), func(e *models.ChangeEvent) {
		got = append(got, e.RecordID)
	})
	defer sub.Unsubscribe()

	assert.Equal(t, 1, hub.Dispatch(pageEvent(t, "p1")))
	assert.Equal(t, 0, hub.Dispatch(pageEvent(t, "p2")))
	assert.Equal(t, []string{"p1"}, got)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	hub := NewHub()
	channel := models.ChannelName(models.TableOrders, "p1")

	calls := 0
	a := hub.Subscribe(channel, func(*models.ChangeEvent) { calls++ })
	b := hub.Subscribe(channel, func(*models.ChangeEvent) { calls++ })
	assert.Equal(t, 2, hub.Subscribers(channel))

	a.Unsubscribe()
	a.Unsubscribe()
	assert.Equal(t, 1, hub.Subscribers(channel))

	ev, err := NewChangeEvent(models.TableOrders, models.ActionInsert, "o1", "p1", "", nil)
	require.NoError(t, err)
	hub.Dispatch(ev)
	assert.Equal(t, 1, calls)

	b.Unsubscribe()
	assert.Equal(t, 0, hub.Subscribers(channel))
	assert.Equal(t, 0, hub.Dispatch(ev))
}

func TestUnsubscribeFromHandler(t *testing.T) {
	hub := NewHub()
	channel := models.ChannelName(models.TableCheckoutPages, "p1")

	var sub *Subscription
	calls := 0
	sub = hub.Subscribe(channel, func(*models.ChangeEvent) {
		calls++
		sub.Unsubscribe()
	})

	hub.Dispatch(pageEvent(t, "p1"))
	hub.Dispatch(pageEvent(t, "p1"))
	assert.Equal(t, 1, calls)
}

func TestHubConcurrentSubscribers(t *testing.T) {
	hub := NewHub()
	channel := models.ChannelName(models.TableCheckoutPages, "p1")

	ev := pageEvent(t, "p1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe(channel, func(*models.ChangeEvent) {})
			hub.Dispatch(ev)
			sub.Unsubscribe()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.Subscribers(channel))
}

type recordingSink struct {
	keys   []string
	events []interface{}
}

func (r *recordingSink) PublishEvent(_ context.Context, key string, event interface{}) error {
	r.keys = append(r.keys, key)
	r.events = append(r.events, event)
	return nil
}

func TestPublishAndHandleRoundTrip(t *testing.T) {
	sink := &recordingSink{}
	publisher := NewEventPublisher(sink)

	ev := pageEvent(t, "p1")
	require.NoError(t, publisher.PublishChange(context.Background(), ev))
	require.Equal(t, []string{"checkout_pages:p1"}, sink.keys)

	value, err := json.Marshal(sink.events[0])
	require.NoError(t, err)

	hub := NewHub()
	var received *models.ChangeEvent
	sub := hub.Subscribe("checkout_pages:p1", func(e *models.ChangeEvent) { received = e })
	defer sub.Unsubscribe()

	handler := NewEventHandler(hub)
	require.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: value}))

	require.NotNil(t, received)
	assert.Equal(t, ev.EventID, received.EventID)
	assert.JSONEq(t, `{"title":"Promo"}`, string(received.Record))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	handler := NewEventHandler(NewHub())
	assert.Error(t, handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("{")}))
	assert.NoError(t, handler.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"OTHER"}`)}))
}
