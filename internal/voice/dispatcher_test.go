package voice

import "testing"

func TestNewDispatcherHonoursOverride(t *testing.T) {
	d := NewDispatcher("xdotool")
	if d.Method() != DispatchXdotool {
		t.Fatalf("expected forced xdotool method, got %s", d.Method())
	}
}

func TestNewDispatcherInvalidOverrideFallsBackToDetect(t *testing.T) {
	d := NewDispatcher("not-a-real-method")
	if d.Method() == DispatchXdotool || d.Method() == DispatchTmux || d.Method() == DispatchAppleScript {
		// Fine if the test host genuinely has one of these tools; we only
		// assert that garbage input doesn't get treated as a forced method
		// verbatim (it would be DispatchMethod("not-a-real-method") if it did).
	}
	if string(d.Method()) == "not-a-real-method" {
		t.Fatal("invalid override should not pass through verbatim")
	}
}

func TestDispatcherUnavailableReturnsFalse(t *testing.T) {
	d := &Dispatcher{method: DispatchNone}
	if d.Available() {
		t.Fatal("expected DispatchNone to be unavailable")
	}
	if d.Dispatch("hello") {
		t.Fatal("expected dispatch to fail with no mechanism")
	}
}

func TestEscapeAppleScriptEscapesQuotesAndBackslashes(t *testing.T) {
	got := escapeAppleScript(`say "hi" \ done`)
	want := `say \"hi\" \\ done`
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
