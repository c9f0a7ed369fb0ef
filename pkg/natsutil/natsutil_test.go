package natsutil

import (
	"strconv"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("expected traceparent, got %q", got)
	}

	keys := carrier.Keys()
	if len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestHeaderCarrierNilHeader(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*headerCarrier)(msg)

	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}
}

func TestRetries(t *testing.T) {
	tests := []struct {
		name   string
		header nats.Header
		want   int
	}{
		{"nil header", nil, 0},
		{"absent header", nats.Header{}, 0},
		{"malformed count", nats.Header{RetryHeader: []string{"abc"}}, 0},
		{"valid count", nats.Header{RetryHeader: []string{"2"}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &nats.Msg{Header: tt.header}
			if got := Retries(msg); got != tt.want {
				t.Errorf("Retries = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRetryMsgRoundTrip(t *testing.T) {
	msg := retryMsg("study.ingest", []byte(`{"compound":"Q2270"}`), 2)

	if msg.Subject != "study.ingest" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if got := msg.Header.Get(RetryHeader); got != "2" {
		t.Errorf("retry header = %q, want \"2\"", got)
	}
	if got := Retries(msg); got != 2 {
		t.Errorf("Retries = %d, want 2", got)
	}
}

func TestRetryMsgCountsAdvance(t *testing.T) {
	// A redelivered message carries the previous count; the republished
	// message carries the incremented one.
	first := retryMsg("study.ingest", nil, 1)
	next := retryMsg("study.ingest", nil, Retries(first)+1)

	if got := Retries(next); got != 2 {
		t.Errorf("Retries after republish = %d, want 2", got)
	}
	if got := next.Header.Get(RetryHeader); got != strconv.Itoa(2) {
		t.Errorf("retry header = %q, want \"2\"", got)
	}
}
