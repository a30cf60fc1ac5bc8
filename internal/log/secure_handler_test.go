package log

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestSecureHandler_MasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		key      string
		value    string
		wantMask bool
	}{
		{name: "cookie header", key: "Cookie", value: "sessionid=abc123", wantMask: true},
		{name: "authorization", key: "authorization", value: "authz-secret-xyz", wantMask: true},
		{name: "password", key: "password", value: "hunter2", wantMask: true},
		{name: "otp", key: "otp", value: "otp-secret-code", wantMask: true},
		{name: "session", key: "session", value: "session-secret-id", wantMask: true},
		{name: "keyword in key", key: "site_auth_header", value: "auth-secret-value", wantMask: true},
		{name: "plain url key", key: "url", value: "https://example.com/doc.pdf", wantMask: false},
		{name: "filename", key: "filename", value: "document_1.pdf", wantMask: false},
		{name: "bearer value", key: "header", value: "Bearer abc.def", wantMask: true},
		{name: "jwt value", key: "value", value: "eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig", wantMask: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			newTestLogger(&buf).Info("test", tt.key, tt.value)
			out := buf.String()

			masked := strings.Contains(out, MaskValue)
			if masked != tt.wantMask {
				t.Errorf("masked = %v, want %v (output: %s)", masked, tt.wantMask, out)
			}
			if tt.wantMask && strings.Contains(out, tt.value) {
				t.Errorf("output leaks value %q: %s", tt.value, out)
			}
		})
	}
}

func TestSecureHandler_SanitizesURLs(t *testing.T) {
	t.Parallel()

	t.Run("query credentials are masked", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		newTestLogger(&buf).Info("download", "url", "https://files.example.com/a.pdf?token=s3cr3t&page=2")
		out := buf.String()

		if strings.Contains(out, "s3cr3t") {
			t.Errorf("token leaked: %s", out)
		}
		if !strings.Contains(out, "page=2") {
			t.Errorf("harmless parameter was dropped: %s", out)
		}
		if !strings.Contains(out, "REDACTED") {
			t.Errorf("expected mask in output: %s", out)
		}
	})

	t.Run("userinfo is masked", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		newTestLogger(&buf).Info("fetch", "url", "https://alice:pw@example.com/doc.pdf")
		out := buf.String()

		if strings.Contains(out, "alice") || strings.Contains(out, ":pw@") {
			t.Errorf("userinfo leaked: %s", out)
		}
	})

	t.Run("urls inside errors are masked", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		err := fmt.Errorf("get %q: %w", "https://example.com/a.pdf?sig=abcdef", errors.New("connection refused"))
		newTestLogger(&buf).Warn("download failed", "error", err)
		out := buf.String()

		if strings.Contains(out, "abcdef") {
			t.Errorf("signature leaked: %s", out)
		}
		if !strings.Contains(out, "connection refused") {
			t.Errorf("error text lost: %s", out)
		}
	})

	t.Run("clean urls are untouched", func(t *testing.T) {
		t.Parallel()

		in := "https://example.com/docs/report.pdf?page=1"
		got, changed := SanitizeURLs(in)
		if changed || got != in {
			t.Errorf("SanitizeURLs(%q) = %q, %v", in, got, changed)
		}
	})
}

func TestSecureHandler_WithAttrsAndGroups(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf).
		With("cookie", "sid=1").
		WithGroup("site").
		With(slog.Group("auth", slog.String("password", "pw1")))
	logger.Info("crawl", "host", "example.com")
	out := buf.String()

	if strings.Contains(out, "sid=1") || strings.Contains(out, "pw1") {
		t.Errorf("sensitive attrs leaked: %s", out)
	}
	if !strings.Contains(out, "example.com") {
		t.Errorf("plain attr missing: %s", out)
	}
}

func TestNewSecureLogger(t *testing.T) {
	t.Parallel()

	t.Run("info by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewSecureLogger(&buf, false)
		logger.Debug("hidden")
		logger.Info("shown")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("debug record written without verbose: %s", out)
		}
		if !strings.Contains(out, "shown") {
			t.Errorf("info record missing: %s", out)
		}
	})

	t.Run("debug when verbose", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewSecureLogger(&buf, true).Debug("visible")
		if !strings.Contains(buf.String(), "visible") {
			t.Errorf("debug record missing: %s", buf.String())
		}
	})

	t.Run("discard logger writes nothing", func(t *testing.T) {
		t.Parallel()

		logger := NewDiscardLogger()
		if logger.Enabled(t.Context(), slog.LevelError) {
			t.Error("discard logger should not be enabled")
		}
	})
}
