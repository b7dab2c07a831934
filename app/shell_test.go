package app

import (
	"strings"
	"testing"
)

func TestShellCommands(t *testing.T) {
	h := startSystem(t)
	h.waitOutput(t, "RTK Command Shell (dev)\r\n\n")
	h.waitPrompt(t, 1)

	h.typeString(t, "help\r")
	h.waitOutput(t, "  help,h,? - This help\r\n")
	h.waitPrompt(t, 2)
	out := h.term.String()
	for _, name := range []string{"exit", "time", "hello", "threads", "test"} {
		if !strings.Contains(out, "  "+name+" ") {
			t.Fatalf("expected %q in help output %q", name, out)
		}
	}

	h.typeString(t, "TIME\r")
	h.waitOutput(t, "Time: ")
	h.waitPrompt(t, 3)

	h.typeString(t, "foo\r")
	h.waitOutput(t, "foo\r\nfoo ?\r\n")
	h.typeString(t, "help me\r")
	h.waitOutput(t, "me ?\r\n")
	h.typeString(t, "'unterminated\r")
	h.waitOutput(t, "'unterminated ?\r\n")
	h.waitPrompt(t, 6)

	h.typeString(t, "exit\r")
	h.waitOutput(t, "\nlogout")
	h.waitLogout(t)
	h.waitLog(t, "Init: disconnection on COM1")
}

func TestShellLineEditing(t *testing.T) {
	h := startSystem(t)
	h.waitPrompt(t, 1)

	h.typeString(t, "tiem\b\x7fme\r\n")
	h.waitOutput(t, "Time: ")
	if out := h.term.String(); strings.Count(out, "\b \b") != 2 {
		t.Fatalf("expected two erased characters in %q", out)
	}
	h.waitPrompt(t, 2)

	// The \n of a \r\n pair is not an empty line.
	h.typeString(t, "\x01\r")
	h.waitPrompt(t, 3)
	if out := h.term.String(); strings.Count(out, "ch> ") != 3 {
		t.Fatalf("expected exactly three prompts in %q", out)
	}

	h.typeString(t, strings.Repeat("x", 100)+"\r")
	h.waitOutput(t, strings.Repeat("x", maxLine-1)+"\r\n"+strings.Repeat("x", maxLine-1)+" ?")
	h.waitPrompt(t, 4)

	h.typeString(t, "\x04")
	h.waitOutput(t, "^D\r\n\nlogout")
	h.waitLogout(t)
}

func TestShellHelloStopsOnCtrlC(t *testing.T) {
	h := startSystem(t)
	h.waitPrompt(t, 1)

	h.typeString(t, "hello\r")
	h.waitOutput(t, "Hello World\r\n")
	h.typeString(t, "\x03")
	h.waitOutput(t, "^C\r\n")
	h.waitPrompt(t, 2)

	h.typeString(t, "exit\r")
	h.waitLogout(t)
}

func TestShellThreadsListing(t *testing.T) {
	h := startSystem(t)
	h.waitPrompt(t, 1)

	h.typeString(t, "threads\r")
	h.waitOutput(t, "shell-COM1")
	h.waitPrompt(t, 2)
	out := h.term.String()
	for _, name := range []string{"watchdog", "console", "main", "running"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %q in listing %q", name, out)
		}
	}
}

func TestShellSelfTest(t *testing.T) {
	h := startSystem(t)
	h.waitPrompt(t, 1)

	h.typeString(t, "test\r")
	h.waitOutput(t, "Final result: ")
	h.waitPrompt(t, 2)
	out := h.term.String()
	if strings.Contains(out, "FAILURE") || !strings.Contains(out, "Final result: SUCCESS") {
		t.Fatalf("self test failed:\n%s", out)
	}
	for _, st := range selfTests {
		if !strings.Contains(out, "--- Test: "+st.name) {
			t.Fatalf("expected test %q in %q", st.name, out)
		}
	}
}

func TestShellLogsOutOnDisconnect(t *testing.T) {
	h := startSystem(t)
	h.waitPrompt(t, 1)

	h.term.w.Close()
	h.waitOutput(t, "\nlogout")
	h.waitLogout(t)
	h.waitLog(t, "Init: disconnection on COM1")
}
