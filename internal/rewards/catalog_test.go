package rewards

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/state"
)

type recordingPublisher struct {
	requests []CatalogRequest
}

func (r *recordingPublisher) Publish(_ context.Context, req CatalogRequest) error {
	r.requests = append(r.requests, req)
	return nil
}

func testCatalogOptions() CatalogOptions {
	return CatalogOptions{
		Prompt:            "camdirector",
		Cameras:           []Entry{{Title: "Gyro", Cost: 100}, {Title: "Cockpit", Cost: 200, CooldownEnabled: true, CooldownSec: 60}},
		RandomTitle:       "Random Camera",
		RandomCost:        50,
		FriendCost:        300,
		FriendCooldownSec: 120,
	}
}

func TestCatalogSyncerCoalescesSignals(t *testing.T) {
	st := state.New()
	st.BeginSession(state.Session{SessionID: 1, Connected: true})
	st.SetFriends([]state.Friend{{ID: 42, Nickname: "Jo"}})
	pub := &recordingPublisher{}
	s := NewCatalogSyncer(testCatalogOptions(), st, pub, zap.NewNop())

	s.Remove()
	s.Recreate()
	s.Recreate()
	s.Flush(context.Background())
	s.Flush(context.Background())

	if len(pub.requests) != 1 {
		t.Fatalf("expected one coalesced request, got %d", len(pub.requests))
	}
	req := pub.requests[0]
	if req.Action != ActionRecreate || req.Session.SessionID != 1 {
		t.Errorf("unexpected request: %+v", req)
	}

	want := []Entry{
		{Title: "Gyro", Cost: 100},
		{Title: "Cockpit", Cost: 200, CooldownEnabled: true, CooldownSec: 60},
		{Title: "Random Camera", Cost: 50},
		{Title: "Jo", Cost: 300, CooldownEnabled: true, CooldownSec: 120},
	}
	if diff := cmp.Diff(want, req.Entries); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestCatalogSyncerRemoveHasNoEntries(t *testing.T) {
	pub := &recordingPublisher{}
	s := NewCatalogSyncer(testCatalogOptions(), state.New(), pub, zap.NewNop())

	s.Remove()
	s.Flush(context.Background())

	if len(pub.requests) != 1 || pub.requests[0].Action != ActionRemove || len(pub.requests[0].Entries) != 0 {
		t.Fatalf("unexpected requests: %+v", pub.requests)
	}
}

func TestCatalogSyncerRun(t *testing.T) {
	received := make(chan CatalogRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer token")
		}
		var req CatalogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- req
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pub := NewPublisher(true, server.URL, "secret", 5*time.Second, zap.NewNop())
	s := NewCatalogSyncer(testCatalogOptions(), state.New(), pub, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	s.Recreate()
	select {
	case req := <-received:
		if req.Action != ActionRecreate || len(req.Entries) != 3 {
			t.Errorf("unexpected request: %+v", req)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}
}

func TestWebhookPublisherError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	pub := NewWebhookPublisher(server.URL, "", time.Second, zap.NewNop())
	if err := pub.Publish(context.Background(), CatalogRequest{Action: ActionRemove}); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestNewPublisherWithoutWebhook(t *testing.T) {
	if _, ok := NewPublisher(true, "", "", time.Second, zap.NewNop()).(NoopPublisher); !ok {
		t.Error("expected NoopPublisher without a webhook")
	}
}
