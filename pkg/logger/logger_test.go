package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		" DEBUG ": zerolog.DebugLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_IsSingleton(t *testing.T) {
	Reset()
	defer Reset()

	var first, second bytes.Buffer
	Init(Options{Output: &first, Service: "printease"})
	Init(Options{Output: &second})

	l := Get()
	l.Info().Msg("hello")
	if !strings.Contains(first.String(), `"service":"printease"`) {
		t.Fatalf("expected service field in first writer, got %q", first.String())
	}
	if second.Len() != 0 {
		t.Fatalf("second Init must not replace the logger")
	}
}

func TestFromContext_PrefersRequestLogger(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	reqLog := zerolog.New(&buf).With().Str("request_id", "r-1").Logger()
	ctx := reqLog.WithContext(context.Background())

	FromContext(ctx).Info().Msg("scoped")
	if !strings.Contains(buf.String(), `"request_id":"r-1"`) {
		t.Fatalf("expected request logger output, got %q", buf.String())
	}

	// Without Init and without a request logger this is a no-op logger.
	FromContext(context.Background()).Info().Msg("dropped")
}
