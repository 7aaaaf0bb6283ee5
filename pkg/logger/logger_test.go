package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestErrorCarriesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "settlement-test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithVendorID(ctx, "c1a9a9a0-0000-4000-8000-000000000001")

	log.Error(ctx, "transfer failed", errors.New("boom"))

	entry := buf.String()
	if !bytes.Contains(buf.Bytes(), []byte(`"request_id"`)) {
		t.Fatalf("expected request_id in entry: %s", entry)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"vendor_id"`)) {
		t.Fatalf("expected vendor_id in entry: %s", entry)
	}
}

func TestPayoutFieldShowsUpInOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "settlement-test", Level: ParseLevel("debug"), Output: buf})

	ctx := log.WithPayoutID(context.Background(), "d2b8b8b0-0000-4000-8000-000000000002")
	log.Info(ctx, "payout completed")

	if !bytes.Contains(buf.Bytes(), []byte(`"payout_id"`)) {
		t.Fatalf("expected payout_id in entry: %s", buf.String())
	}
}

func TestParseLevelFallsBack(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("blank level should fall back to info, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fall back to info, got %v", lvl)
	}
	if lvl := ParseLevel("warn"); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}
