package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestWithRequestID(t *testing.T) {
	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")

	requestID := GetRequestID(ctx)
	if requestID != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", requestID, "req-123")
	}
}

func TestWithClientIP(t *testing.T) {
	ctx := context.Background()
	ctx = WithClientIP(ctx, "203.0.113.9")

	ip := GetClientIP(ctx)
	if ip != "203.0.113.9" {
		t.Errorf("GetClientIP() = %q, want %q", ip, "203.0.113.9")
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	ctx := context.Background()
	requestID := GetRequestID(ctx)
	if requestID != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", requestID)
	}
}

func TestGetRequestID_NilContext(t *testing.T) {
	var ctx context.Context
	requestID := GetRequestID(ctx)
	if requestID != "" {
		t.Errorf("GetRequestID() on nil context = %q, want empty", requestID)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	logger := slog.Default()

	t.Run("nil context returns original logger", func(t *testing.T) {
		result := FromContext(nil, logger)
		if result != logger {
			t.Error("FromContext(nil, logger) should return original logger")
		}
	})

	t.Run("context with requestID adds attribute", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-abc")
		result := FromContext(ctx, logger)
		if result == logger {
			t.Error("FromContext with requestID should return a new logger")
		}
	})

	t.Run("context without requestID returns original", func(t *testing.T) {
		ctx := context.Background()
		result := FromContext(ctx, logger)
		if result != logger {
			t.Error("FromContext without requestID should return original logger")
		}
	})
}
