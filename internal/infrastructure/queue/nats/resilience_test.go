package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/storyforge/narrative-search/internal/core/domain"
)

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		retryable     bool
		recordFailure bool
	}{
		{"canceled context", context.Canceled, false, false},
		{"deadline", context.DeadlineExceeded, false, false},
		{"no servers", nats.ErrNoServers, true, true},
		{"timeout", nats.ErrTimeout, true, true},
		{"connection closed", nats.ErrConnectionClosed, true, true},
		{"unknown", errors.New("boom"), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := classifyNATSError(tt.err)
			if class.Retryable != tt.retryable || class.RecordFailure != tt.recordFailure {
				t.Fatalf("classifyNATSError(%v) = %+v", tt.err, class)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("retryable error must become temporary, got %v", err)
	}
	permanent := errors.New("subject not allowed")
	if err := wrapTemporaryIfNeeded(permanent); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must stay permanent, got %v", err)
	}
	already := domain.WrapError(domain.ErrTemporary, "publish corpus event", nats.ErrTimeout)
	if err := wrapTemporaryIfNeeded(already); err != already {
		t.Fatalf("already-temporary error must pass through unchanged")
	}
	if err := wrapTemporaryIfNeeded(nil); err != nil {
		t.Fatalf("nil must stay nil, got %v", err)
	}
}
