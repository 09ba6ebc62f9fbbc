package stt

import "testing"

func TestParseBrabbleLineJSON(t *testing.T) {
	line := `{"event":"transcript","text":"hey nabaztag"}`
	tr, ok := parseBrabbleLine(line)
	if !ok {
		t.Fatalf("expected ok")
	}
	if tr.Text != "hey nabaztag" {
		t.Fatalf("expected text")
	}
	if !tr.Final {
		t.Fatalf("expected final")
	}
}

func TestParseBrabbleLinePayload(t *testing.T) {
	line := `{"event":"transcript","payload":{"transcript":"hello"}}`
	tr, ok := parseBrabbleLine(line)
	if !ok {
		t.Fatalf("expected ok")
	}
	if tr.Text != "hello" {
		t.Fatalf("expected payload text")
	}
}

func TestParseBrabbleLinePlain(t *testing.T) {
	line := "wiggle your ears"
	tr, ok := parseBrabbleLine(line)
	if !ok {
		t.Fatalf("expected ok")
	}
	if tr.Text != line {
		t.Fatalf("expected same line")
	}
}
