package protocol

import "testing"

func TestValidateSequenceRejectsEmpty(t *testing.T) {
	if err := ValidateSequence(nil); err == nil {
		t.Fatalf("expected error for empty sequence")
	}
}

func TestValidateSequenceRejectsEmptyItem(t *testing.T) {
	err := ValidateSequence([]CommandItem{{}})
	if err == nil {
		t.Fatalf("expected error for item with neither audio nor choreography")
	}
}

func TestValidateSequenceAccepts(t *testing.T) {
	err := ValidateSequence([]CommandItem{{Audio: []string{"a.wav"}}, {Choreography: "wiggle"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateColor(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"ff00aa", true},
		{"FF00AA", false}, // uppercase rejected, spec wants lowercase
		{"ff00a", false},
		{"ff00aag", false},
	}
	for _, c := range cases {
		err := ValidateColor(c.in)
		if (err == nil) != c.ok {
			t.Errorf("ValidateColor(%q): got err=%v, want ok=%v", c.in, err, c.ok)
		}
	}
}

func TestValidateEarPositionRange(t *testing.T) {
	for _, pos := range []int{-17, 0, 17} {
		if err := ValidateEarPosition(pos); err != nil {
			t.Errorf("ValidateEarPosition(%d): unexpected error %v", pos, err)
		}
	}
	for _, pos := range []int{-18, 18, 100} {
		if err := ValidateEarPosition(pos); err == nil {
			t.Errorf("ValidateEarPosition(%d): expected error", pos)
		}
	}
}

func TestParseExpirationNilMeansNone(t *testing.T) {
	_, has, err := ParseExpiration(nil)
	if err != nil || has {
		t.Fatalf("expected no expiration, got has=%v err=%v", has, err)
	}
}

func TestParseExpirationRejectsBadFormat(t *testing.T) {
	raw := "not-a-timestamp"
	if _, _, err := ParseExpiration(&raw); err == nil {
		t.Fatalf("expected error for malformed expiration")
	}
}

func TestParseExpirationParsesRFC3339(t *testing.T) {
	raw := "2026-08-03T10:00:00Z"
	ts, has, err := ParseExpiration(&raw)
	if err != nil || !has {
		t.Fatalf("expected valid expiration, got has=%v err=%v", has, err)
	}
	if ts.Year() != 2026 {
		t.Fatalf("unexpected year: %d", ts.Year())
	}
}

func TestParseModeValues(t *testing.T) {
	if _, err := ParseMode("idle"); err != nil {
		t.Errorf("idle should be valid: %v", err)
	}
	if _, err := ParseMode("interactive"); err != nil {
		t.Errorf("interactive should be valid: %v", err)
	}
	if _, err := ParseMode("bogus"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}

func TestParseShutdownModeDefaultsToHalt(t *testing.T) {
	mode, err := ParseShutdownMode("")
	if err != nil || mode != ShutdownHalt {
		t.Fatalf("expected default halt, got %v %v", mode, err)
	}
}

func TestParseShutdownModeRejectsUnknown(t *testing.T) {
	if _, err := ParseShutdownMode("restart"); err == nil {
		t.Fatalf("expected error for unknown shutdown mode")
	}
}

func TestParseTestTarget(t *testing.T) {
	if _, err := ParseTestTarget("ears"); err != nil {
		t.Errorf("ears should be valid: %v", err)
	}
	if _, err := ParseTestTarget("leds"); err != nil {
		t.Errorf("leds should be valid: %v", err)
	}
	if _, err := ParseTestTarget("tail"); err == nil {
		t.Errorf("expected error for unknown test target")
	}
}

func TestClassOfMapsSentinels(t *testing.T) {
	if got := ClassOf(ErrInvalidParameter); got != ClassInvalidParameter {
		t.Errorf("got %v", got)
	}
	if got := ClassOf(ErrQueueOverflow); got != ClassQueueOverflow {
		t.Errorf("got %v", got)
	}
}

func TestClassOfFallsBackToProtocolError(t *testing.T) {
	if got := ClassOf(errUnrelated); got != ClassProtocolError {
		t.Errorf("got %v, want ClassProtocolError", got)
	}
}

var errUnrelated = &customErr{"boom"}

type customErr struct{ msg string }

func (e *customErr) Error() string { return e.msg }
