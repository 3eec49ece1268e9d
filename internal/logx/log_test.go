package logx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, log.DebugLevel)

	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("expected the attached logger back")
	}
	FromContext(ctx).Debug("fetched", "source", "a.json")
	if !strings.Contains(buf.String(), "source=a.json") {
		t.Errorf("unexpected log output: %q", buf.String())
	}

	if FromContext(context.Background()) != log.Default() {
		t.Error("expected log.Default() without an attached logger")
	}
}

func TestParseLevel(t *testing.T) {
	if ParseLevel("DEBUG") != log.DebugLevel {
		t.Error("expected debug level")
	}
	if ParseLevel("nonsense") != log.InfoLevel {
		t.Error("expected info fallback")
	}
}
