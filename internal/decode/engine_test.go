package decode

import (
	"errors"
	"testing"

	"github.com/glintmedia/glint/internal/clock"
)

func TestCommandsWithoutSessionAreSafe(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, clock.New())
	defer e.Close()

	if err := e.Play(); err != nil {
		t.Errorf("Play: %v", err)
	}
	if err := e.Pause(); err != nil {
		t.Errorf("Pause: %v", err)
	}
	if err := e.Seek(12); err != nil {
		t.Errorf("Seek: %v", err)
	}
	if err := e.SetVolume(2); err != nil {
		t.Errorf("SetVolume: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, clock.New())
	defer e.Close()

	if _, _, err := e.Load("testdata/does-not-exist.mkv", nil); err == nil {
		t.Fatal("Load of missing file: expected error")
	}
}

func TestCloseIsIdempotentAndFailsLaterCommands(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, clock.New())
	e.Close()
	e.Close()

	if err := e.Play(); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Play after Close: got %v, want ErrEngineClosed", err)
	}
	if _, _, err := e.Load("x", nil); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Load after Close: got %v, want ErrEngineClosed", err)
	}
}

func TestEventsChannelClosesOnShutdown(t *testing.T) {
	t.Parallel()

	e := NewEngine(nil, clock.New())
	e.Close()

	if _, ok := <-e.Events(); ok {
		t.Error("Events channel should be closed after Close")
	}
}
