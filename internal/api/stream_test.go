package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checkout-builder/internal/broker"
	"checkout-builder/internal/models"
	"checkout-builder/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// streamRecorder adds CloseNotify, which gin's Stream needs
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func TestStreamPageChanges(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(t, http.MethodPost, "/api/v1/pages", "owner", samplePage("Live"))
	require.Equal(t, http.StatusCreated, w.Code)
	pageID := decode[service.SaveResult](t, w).Page.ID
	channel := models.ChannelName(models.TableCheckoutPages, pageID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/"+pageID+"/changes", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+token(t, "owner", time.Now().Add(time.Hour)))
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.router.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return s.hub.Subscribers(channel) == 1 }, time.Second, 5*time.Millisecond)

	event, err := broker.NewChangeEvent(models.TableCheckoutPages, models.ActionUpdate, pageID, pageID, "owner", map[string]string{"title": "Live"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.hub.Dispatch(event))

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end after the client went away")
	}

	assert.Equal(t, 0, s.hub.Subscribers(channel))
	body := rec.Body.String()
	assert.Contains(t, body, "event:subscribed")
	assert.Contains(t, body, "event:change")
	assert.Contains(t, body, event.EventID)
}

func TestCloseStreamsEndsOpenStreams(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(t, http.MethodPost, "/api/v1/pages", "owner", samplePage("Closing"))
	require.Equal(t, http.StatusCreated, w.Code)
	pageID := decode[service.SaveResult](t, w).Page.ID
	channel := models.ChannelName(models.TableOrders, pageID)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/"+pageID+"/orders/changes", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, "owner", time.Now().Add(time.Hour)))
	rec := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.router.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return s.hub.Subscribers(channel) == 1 }, time.Second, 5*time.Millisecond)

	s.handler.CloseStreams()
	s.handler.CloseStreams()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream kept running after CloseStreams")
	}
	assert.Equal(t, 0, s.hub.Subscribers(channel))

	// ordinary requests keep working while streams are closed
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/v1/pages/"+pageID, "owner", nil).Code)
}

func TestStreamRejectsOtherOwners(t *testing.T) {
	s := newTestServer(nil)

	w := s.do(t, http.MethodPost, "/api/v1/pages", "owner", samplePage("Private"))
	require.Equal(t, http.StatusCreated, w.Code)
	pageID := decode[service.SaveResult](t, w).Page.ID

	w = s.do(t, http.MethodGet, "/api/v1/pages/"+pageID+"/orders/changes", "intruder", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 0, s.hub.Subscribers(models.ChannelName(models.TableOrders, pageID)))
}
