// Package converter turns note events into Standard MIDI Files and back
package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/james-see/gridsynth/pkg/grid"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// DefaultOutput is the file the editor writes before playback
const DefaultOutput = "synth.mid"

// MIDIConverter handles MIDI file parsing and generation
type MIDIConverter struct {
	ticksPerQuarter uint16
	tempo           float64
	channel         uint8
	velocity        uint8
}

// NewMIDIConverter creates a new MIDI converter
func NewMIDIConverter() *MIDIConverter {
	return &MIDIConverter{
		ticksPerQuarter: 480,
		tempo:           120.0,
		channel:         0,
		velocity:        100,
	}
}

// SetTempo sets the tempo written to generated files
func (m *MIDIConverter) SetTempo(bpm float64) *MIDIConverter {
	if bpm > 0 {
		m.tempo = bpm
	}
	return m
}

// SetResolution sets ticks per quarter note
func (m *MIDIConverter) SetResolution(tpq uint16) *MIDIConverter {
	if tpq > 0 {
		m.ticksPerQuarter = tpq
	}
	return m
}

// Resolution returns ticks per quarter note
func (m *MIDIConverter) Resolution() uint16 {
	return m.ticksPerQuarter
}

type timedMessage struct {
	tick int
	off  bool
	key  uint8
}

// GenerateMIDI creates a single track MIDI file from note events. Event
// times are written as-is in ticks.
func (m *MIDIConverter) GenerateMIDI(events []grid.Event) ([]byte, error) {
	msgs := make([]timedMessage, 0, len(events)*2)
	for i, ev := range events {
		if ev.Pitch < 0 || ev.Pitch > 127 {
			return nil, fmt.Errorf("event %d: pitch %d out of MIDI range", i, ev.Pitch)
		}
		if ev.Start < 0 || ev.End <= ev.Start {
			return nil, fmt.Errorf("event %d: invalid span %d..%d", i, ev.Start, ev.End)
		}
		msgs = append(msgs,
			timedMessage{tick: ev.Start, key: uint8(ev.Pitch)},
			timedMessage{tick: ev.End, off: true, key: uint8(ev.Pitch)},
		)
	}

	// note-offs sort before note-ons on the same tick so repeated notes
	// on one key retrigger
	slices.SortStableFunc(msgs, func(a, b timedMessage) int {
		if a.tick != b.tick {
			return a.tick - b.tick
		}
		if a.off != b.off {
			if a.off {
				return -1
			}
			return 1
		}
		return int(a.key) - int(b.key)
	})

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var track smf.Track
	track.Add(0, smf.MetaTempo(m.tempo))
	track.Add(0, smf.MetaMeter(4, 4))

	var current int
	for _, msg := range msgs {
		delta := uint32(msg.tick - current)
		if msg.off {
			track.Add(delta, midi.NoteOff(m.channel, msg.key))
		} else {
			track.Add(delta, midi.NoteOn(m.channel, msg.key, m.velocity))
		}
		current = msg.tick
	}
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes note events to a MIDI file
func (m *MIDIConverter) WriteMIDIFile(events []grid.Event, filename string) error {
	if filename == "" {
		return ErrEmptyPath
	}
	data, err := m.GenerateMIDI(events)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// ParseMIDIFile reads a MIDI file and extracts note events
func (m *MIDIConverter) ParseMIDIFile(filename string) ([]grid.Event, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

// ParseMIDI extracts note events from MIDI data across all tracks and
// channels. Ticks are rescaled to the converter's resolution; notes still
// held at the end of a track are closed there.
func (m *MIDIConverter) ParseMIDI(data []byte) (events []grid.Event, err error) {
	// gomidi can panic on truncated input
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("failed to parse MIDI: %v", r)
		}
	}()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	resolution := m.ticksPerQuarter
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok && mt.Resolution() > 0 {
		resolution = mt.Resolution()
	}
	scale := func(tick int64) int {
		return int(tick * int64(m.ticksPerQuarter) / int64(resolution))
	}

	events = make([]grid.Event, 0)
	for _, track := range s.Tracks {
		held := make(map[[2]uint8]int64)
		var tick int64

		for _, ev := range track {
			tick += int64(ev.Delta)

			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				if _, ok := held[[2]uint8{ch, key}]; ok {
					continue
				}
				held[[2]uint8{ch, key}] = tick
			case msg.GetNoteEnd(&ch, &key):
				start, ok := held[[2]uint8{ch, key}]
				if !ok {
					continue
				}
				delete(held, [2]uint8{ch, key})
				events = append(events, grid.Event{Start: scale(start), End: scale(tick), Pitch: int(key)})
			}
		}

		for k, start := range held {
			events = append(events, grid.Event{Start: scale(start), End: scale(tick), Pitch: int(k[1])})
		}
	}

	slices.SortFunc(events, grid.Compare)
	return events, nil
}

// ErrEmptyPath is returned when no output path is given
var ErrEmptyPath = errors.New("empty output path")
