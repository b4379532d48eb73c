package player

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/gridsynth/pkg/converter"
	"github.com/james-see/gridsynth/pkg/grid"
)

// recorder is a Sender that keeps every message
type recorder struct {
	mu   sync.Mutex
	msgs []midi.Message
	err  error
}

func (r *recorder) send(msg midi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) messages() []midi.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]midi.Message(nil), r.msgs...)
}

// writeFile writes events at 6000 bpm so a 100 tick note lasts about 2ms
func writeFile(t *testing.T, events []grid.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), converter.DefaultOutput)
	if err := converter.NewMIDIConverter().SetTempo(6000).WriteMIDIFile(events, path); err != nil {
		t.Fatalf("WriteMIDIFile() error = %v", err)
	}
	return path
}

func TestPlayFile(t *testing.T) {
	path := writeFile(t, []grid.Event{
		{Start: 0, End: 100, Pitch: 48},
		{Start: 100, End: 300, Pitch: 49},
	})

	rec := &recorder{}
	p := New(rec.send, WithPollInterval(time.Millisecond))

	if err := p.PlayFile(context.Background(), path); err != nil {
		t.Fatalf("PlayFile() error = %v", err)
	}
	if p.Busy() {
		t.Error("Busy() = true after PlayFile returned")
	}

	msgs := rec.messages()
	if len(msgs) != 4 {
		t.Fatalf("sent %d messages, want 4: %v", len(msgs), msgs)
	}

	var ch, key, vel uint8
	if !msgs[0].GetNoteStart(&ch, &key, &vel) || key != 48 {
		t.Errorf("first message = %v, want note on 48", msgs[0])
	}
	if !msgs[3].GetNoteEnd(&ch, &key) || key != 49 {
		t.Errorf("last message = %v, want note off 49", msgs[3])
	}
}

func TestPlayReusable(t *testing.T) {
	path := writeFile(t, []grid.Event{{Start: 0, End: 100, Pitch: 60}})

	rec := &recorder{}
	p := New(rec.send, WithPollInterval(time.Millisecond))

	for i := 0; i < 3; i++ {
		if err := p.PlayFile(context.Background(), path); err != nil {
			t.Fatalf("playback %d error = %v", i, err)
		}
	}
	if got := len(rec.messages()); got != 6 {
		t.Errorf("sent %d messages over three playbacks, want 6", got)
	}
}

func TestStopReleasesNotes(t *testing.T) {
	// about ten seconds long at 6000 bpm
	path := writeFile(t, []grid.Event{{Start: 0, End: 480 * 1000, Pitch: 64}})

	rec := &recorder{}
	p := New(rec.send)

	if err := p.Play(context.Background(), path); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(rec.messages()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("note on never sent")
		}
		time.Sleep(time.Millisecond)
	}
	if !p.Busy() {
		t.Fatal("Busy() = false during playback")
	}

	p.Stop()
	if p.Busy() {
		t.Error("Busy() = true after Stop")
	}

	msgs := rec.messages()
	var ch, key uint8
	if len(msgs) != 2 || !msgs[1].GetNoteEnd(&ch, &key) || key != 64 {
		t.Errorf("messages after Stop = %v, want note on then note off 64", msgs)
	}
}

func TestPlayContextCancel(t *testing.T) {
	path := writeFile(t, []grid.Event{{Start: 48000, End: 96000, Pitch: 64}})

	rec := &recorder{}
	p := New(rec.send, WithPollInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Play(ctx, path); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	cancel()

	if err := p.Wait(); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
	if got := rec.messages(); len(got) != 0 {
		t.Errorf("sent %v after cancel, want nothing", got)
	}
}

func TestPlaySendError(t *testing.T) {
	path := writeFile(t, []grid.Event{{Start: 0, End: 100, Pitch: 60}})

	boom := errors.New("port gone")
	rec := &recorder{err: boom}
	p := New(rec.send, WithPollInterval(time.Millisecond))

	err := p.PlayFile(context.Background(), path)
	if !errors.Is(err, boom) {
		t.Errorf("PlayFile() error = %v, want %v", err, boom)
	}
}

func TestPlayMissingFile(t *testing.T) {
	p := New((&recorder{}).send)
	if err := p.Play(context.Background(), filepath.Join(t.TempDir(), "missing.mid")); err == nil {
		t.Error("Play() should fail for a missing file")
	}
	if p.Busy() {
		t.Error("Busy() = true after failed Play")
	}
}

func TestCloseWithoutPort(t *testing.T) {
	p := New((&recorder{}).send)
	if err := p.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
