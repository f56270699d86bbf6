package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("verify",
		"signing_secret", "s3cr3t",
		"x-signature", "abc=",
		"turnstile_token", "tok",
		"email", "a@b.co",
		"client_ip", "1.2.3.4",
		"path", "/api/contact",
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"signing_secret", "x-signature", "turnstile_token", "email"} {
		if entry[k] != Redacted {
			t.Errorf("%s not redacted: %v", k, entry[k])
		}
	}
	if entry["client_ip"] != "1.2.3.4" || entry["path"] != "/api/contact" {
		t.Errorf("non-sensitive fields altered: %v", entry)
	}
}

func TestRedaction_SignedLinks(t *testing.T) {
	cases := map[string]string{
		"https://makers.example/api/v1/callbacks/verify?email=a%40b.co&sig=abc&ts=1": "https://makers.example/api/v1/callbacks/verify?email=a%40b.co&sig=%5BREDACTED%5D&ts=1",
		"sig=abc&ts=1": "sig=%5BREDACTED%5D&ts=1",
		"no signature here": "no signature here",
	}
	for in, want := range cases {
		var buf bytes.Buffer
		New(Config{Output: &buf}).Info("link", "link", in)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if entry["link"] != want {
			t.Errorf("link %q logged as %v, want %q", in, entry["link"], want)
		}
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})

	ctx := context.WithValue(context.Background(), ContextKeyRequestID, "req-123")
	log.WithContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry["request_id"] != "req-123" {
		t.Errorf("request_id missing: %v", entry)
	}

	if log.WithContext(context.Background()) != log {
		t.Error("expected same logger for context without request id")
	}
}

func TestFromContext(t *testing.T) {
	log := NewNop()
	ctx := ToContext(context.Background(), log)
	if FromContext(ctx) != log {
		t.Error("expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Error("expected default logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARN": "WARN", "warning": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
