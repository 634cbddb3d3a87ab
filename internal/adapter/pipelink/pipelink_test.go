package pipelink

import (
	"log/slog"
	"testing"

	"parkd/internal/domain"
)

func TestCommandFlow(t *testing.T) {
	ctrl, sup := New(slog.Default())

	if err := sup.Send(domain.CommandOpenEntry); err != nil {
		t.Fatalf("Send: %v", err)
	}
	line, ok := ctrl.ReadLine()
	if !ok || line != "OPEN_ENTRY" {
		t.Fatalf("ReadLine = (%q, %v), want (OPEN_ENTRY, true)", line, ok)
	}
}

func TestReadLineDoesNotBlock(t *testing.T) {
	ctrl, _ := New(slog.Default())
	if _, ok := ctrl.ReadLine(); ok {
		t.Fatal("empty pipe must yield nothing")
	}
}

func TestEventFlow(t *testing.T) {
	ctrl, sup := New(slog.Default())

	ctrl.WriteLine("ENTRY_DETECTED")
	select {
	case line := <-sup.Lines():
		if line != "ENTRY_DETECTED" {
			t.Fatalf("line = %q", line)
		}
	default:
		t.Fatal("event not delivered")
	}
}

func TestWriteLineDropsWhenFull(t *testing.T) {
	ctrl, sup := New(slog.Default())

	// Nobody drains: overfill the buffer. Must not block.
	for i := 0; i < eventDepth+10; i++ {
		ctrl.WriteLine("EXIT_DETECTED")
	}
	// The buffered portion is still delivered in order.
	for i := 0; i < eventDepth; i++ {
		select {
		case <-sup.Lines():
		default:
			t.Fatalf("expected %d buffered lines, drained %d", eventDepth, i)
		}
	}
}

func TestSendAfterClose(t *testing.T) {
	_, sup := New(slog.Default())
	sup.Close()
	if err := sup.Send(domain.CommandOpenExit); err == nil {
		t.Fatal("Send after Close must fail")
	}
}
