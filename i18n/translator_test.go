package i18n

import "testing"

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	if msg := T("format_error", nil); msg == "format_error" || msg == "" {
		t.Fatalf("expected a human message, got %q", msg)
	}

	SetLanguage("ja")
	if msg := T("format_error", nil); msg == "malformed input document" {
		t.Fatalf("expected japanese message, got %q", msg)
	}

	// unknown languages fall back to en
	SetLanguage("fr")
	if msg := T("format_error", nil); msg != "malformed input document" {
		t.Fatalf("expected english fallback, got %q", msg)
	}
	SetLanguage("en")
}

func TestTranslator_Placeholders(t *testing.T) {
	got := T("dropped_field", map[string]string{"key": "z", "row": "2", "count": "3"})
	if got != "field z first seen in row 2; 3 value(s) dropped" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := T("no_such_code", nil); got != "no_such_code" {
		t.Fatalf("unknown codes should echo, got %q", got)
	}
}

type upper struct{}

func (upper) Message(code string, _ map[string]string) string { return "X:" + code }

func TestSetTranslator(t *testing.T) {
	SetTranslator(upper{})
	if got := T("io_error", nil); got != "X:io_error" {
		t.Fatalf("custom translator not used: %q", got)
	}
	SetTranslator(nil)
	if got := T("io_error", nil); got != "input or output failure" {
		t.Fatalf("nil should restore the dictionary: %q", got)
	}
}
