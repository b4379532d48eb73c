// Package player plays MIDI files to a MIDI output port
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/gridsynth/pkg/logging"
)

// DefaultPollInterval is how often Wait checks whether playback finished
const DefaultPollInterval = 100 * time.Millisecond

// ErrNoPort is returned when no MIDI output port is available
var ErrNoPort = errors.New("no MIDI output port")

// Sender delivers one MIDI message to an output, as returned by midi.SendTo
type Sender func(msg midi.Message) error

// Option configures a Player
type Option func(*Player)

// WithPollInterval sets the interval Wait polls at
func WithPollInterval(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.pollInterval = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(p *Player) { p.log = log }
}

type scheduled struct {
	at  time.Duration
	msg midi.Message
}

// Player sends the messages of a MIDI file in real time. A Player can be
// reused; starting a new playback stops the current one first.
type Player struct {
	send         Sender
	out          drivers.Out
	pollInterval time.Duration
	log          *logrus.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
	busy   atomic.Bool
}

// New creates a player that sends through send
func New(send Sender, opts ...Option) *Player {
	p := &Player{
		send:         send,
		pollInterval: DefaultPollInterval,
		log:          logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open creates a player on the named output port, or the first port when
// name is empty. A driver must be registered by the caller.
func Open(name string, opts ...Option) (*Player, error) {
	var (
		out drivers.Out
		err error
	)
	if name == "" {
		out, err = midi.OutPort(0)
	} else {
		out, err = midi.FindOutPort(name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPort, err)
	}

	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", out, err)
	}

	p := New(send, opts...)
	p.out = out
	p.log.WithField("port", out.String()).Debug("opened output port")
	return p, nil
}

// Ports lists the names of the available output ports
func Ports() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// load reads a MIDI file into a playback schedule
func load(path string) (sched []scheduled, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// gomidi can panic on truncated input
	defer func() {
		if r := recover(); r != nil {
			sched = nil
			err = fmt.Errorf("failed to parse %s: %v", path, r)
		}
	}()

	rd := smf.ReadTracksFrom(bytes.NewReader(data))
	rd.Do(func(ev smf.TrackEvent) {
		if ev.Message.IsMeta() {
			return
		}
		sched = append(sched, scheduled{
			at:  time.Duration(ev.AbsMicroSeconds) * time.Microsecond,
			msg: midi.Message(ev.Message),
		})
	})
	if err := rd.Error(); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	slices.SortStableFunc(sched, func(a, b scheduled) int {
		return int(a.at - b.at)
	})
	return sched, nil
}

// Play starts playing a file and returns once it is loaded. Use Busy or
// Wait to follow playback.
func (p *Player) Play(ctx context.Context, path string) error {
	sched, err := load(path)
	if err != nil {
		return err
	}

	p.Stop()

	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.err = nil
	p.busy.Store(true)

	p.log.WithFields(logrus.Fields{"path": path, "messages": len(sched)}).Debug("playback started")
	go p.run(ctx, sched, done)
	return nil
}

func (p *Player) run(ctx context.Context, sched []scheduled, done chan struct{}) {
	defer close(done)
	defer p.busy.Store(false)

	held := make(map[[2]uint8]bool)
	defer p.silence(held)

	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for _, s := range sched {
		if wait := s.at - time.Since(start); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				p.log.Debug("playback stopped")
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}

		if err := p.send(s.msg); err != nil {
			p.setErr(fmt.Errorf("send failed: %w", err))
			return
		}

		var ch, key, vel uint8
		switch {
		case s.msg.GetNoteStart(&ch, &key, &vel):
			held[[2]uint8{ch, key}] = true
		case s.msg.GetNoteEnd(&ch, &key):
			delete(held, [2]uint8{ch, key})
		}
	}
	p.log.Debug("playback finished")
}

// silence releases notes left sounding by a stopped playback
func (p *Player) silence(held map[[2]uint8]bool) {
	for k := range held {
		_ = p.send(midi.NoteOff(k[0], k[1]))
	}
}

func (p *Player) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.log.WithError(err).Warn("playback failed")
}

// Busy reports whether a playback is in progress
func (p *Player) Busy() bool {
	return p.busy.Load()
}

// Wait polls Busy until playback ends and returns its error, if any
func (p *Player) Wait() error {
	for p.Busy() {
		time.Sleep(p.pollInterval)
	}
	return p.Err()
}

// Err returns the error that ended the last playback
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop ends the current playback, if any, and waits for its notes to be
// released
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// PlayFile plays a file to the end
func (p *Player) PlayFile(ctx context.Context, path string) error {
	if err := p.Play(ctx, path); err != nil {
		return err
	}
	return p.Wait()
}

// Close stops playback and closes the output port
func (p *Player) Close() error {
	p.Stop()
	if p.out == nil {
		return nil
	}
	err := p.out.Close()
	midi.CloseDriver()
	return err
}
