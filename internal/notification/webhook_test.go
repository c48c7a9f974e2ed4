package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/saistv/corolla-trading-bot/internal/model"
)

func TestWebhookNotifier_Send(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	alert := SignalAlert(&model.Signal{
		Symbol:    "NQ",
		TS:        time.Date(2025, 3, 10, 14, 41, 0, 0, time.UTC),
		Direction: model.Long,
		Strength:  0.82,
		WindowID:  7,
	}, 18050.25)

	if err := n.Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got["symbol"] != "NQ" || got["direction"] != "LONG" {
		t.Errorf("payload symbol/direction = %v/%v", got["symbol"], got["direction"])
	}
	if got["window_id"].(float64) != 7 {
		t.Errorf("window_id = %v", got["window_id"])
	}
	if got["ts"] == nil || got["ts"] == "" {
		t.Error("payload missing ts")
	}
}

func TestWebhookNotifier_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Send(context.Background(), Alert{Level: AlertWarning, Title: "t"}); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestSignalAlert_Message(t *testing.T) {
	alert := SignalAlert(&model.Signal{
		Symbol:    "NQ",
		Direction: model.Short,
		Strength:  0.65,
		WindowID:  3,
	}, 17990.5)

	if alert.Level != AlertInfo {
		t.Errorf("level = %s", alert.Level)
	}
	want := "NQ SHORT @ 17990.50, strength 0.65, window 3"
	if alert.Message != want {
		t.Errorf("message = %q, want %q", alert.Message, want)
	}
}
