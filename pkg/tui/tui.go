// Package tui provides the interactive grid editor for gridsynth
package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/james-see/gridsynth/pkg/config"
	"github.com/james-see/gridsynth/pkg/converter"
	"github.com/james-see/gridsynth/pkg/grid"
	"github.com/james-see/gridsynth/pkg/logging"
	"github.com/james-see/gridsynth/pkg/pitch"
	"github.com/james-see/gridsynth/pkg/render"
)

// Acid-inspired color scheme
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	octaveLabelStyle = lipgloss.NewStyle().
				Foreground(acidYellow).
				Bold(true)

	paintedStyle = lipgloss.NewStyle().
			Background(acidGreen)

	emptyStyle = lipgloss.NewStyle().
			Foreground(darkGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	// gridTop is the screen row of grid row 0: title line plus a blank line
	gridTop = 2
	// labelWidth is the screen width of the pitch name gutter
	labelWidth = 4
	// cellWidth is the screen width of one grid column
	cellWidth = 2
	// snapshotFile is where "s" writes the grid image
	snapshotFile = "synth.png"
)

// State represents the current TUI state
type State int

const (
	StateEdit State = iota
	StateFilePicker
)

// Player plays a MIDI file; satisfied by *player.Player
type Player interface {
	Play(ctx context.Context, path string) error
	Wait() error
	Stop()
}

// Model is the editor. It owns the grid; all mutation happens in Update.
type Model struct {
	state      State
	grid       *grid.Grid
	cfg        *config.Config
	extractor  grid.Extractor
	conv       *converter.MIDIConverter
	player     Player
	log        *logrus.Logger
	filePicker filepicker.Model
	spinner    spinner.Model
	drag       tea.MouseButton
	playing    bool
	status     string
	err        error
}

// playDoneMsg signals the end of a playback
type playDoneMsg struct {
	err error
}

// Option configures a Model
type Option func(*Model)

// WithPlayer sets the player used by "p". Without one the editor only
// writes the MIDI file.
func WithPlayer(p Player) Option {
	return func(m *Model) { m.player = p }
}

// WithLogger sets the logger
func WithLogger(log *logrus.Logger) Option {
	return func(m *Model) { m.log = log }
}

// New creates an editor for an empty grid built from cfg
func New(cfg *config.Config, opts ...Option) (Model, error) {
	g, err := cfg.NewGrid()
	if err != nil {
		return Model{}, err
	}

	fp := filepicker.New()
	fp.AllowedTypes = []string{".mid", ".midi"}
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(acidGreen)

	m := Model{
		state:      StateEdit,
		grid:       g,
		cfg:        cfg,
		extractor:  cfg.Extractor(),
		conv:       cfg.Converter(),
		log:        logging.Discard(),
		filePicker: fp,
		spinner:    s,
		drag:       tea.MouseButtonNone,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m, nil
}

// Grid returns the grid being edited
func (m Model) Grid() *grid.Grid {
	return m.grid
}

// Init initializes the TUI model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// the file picker needs to receive all messages while open
	if m.state == StateFilePicker {
		return m.updateFilePicker(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.filePicker.SetHeight(msg.Height - 6)
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.MouseMsg:
		m.updateMouse(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.playing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case playDoneMsg:
		m.playing = false
		m.err = msg.err
		if msg.err == nil {
			m.status = "Playback finished"
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.player != nil {
			m.player.Stop()
		}
		return m, tea.Quit
	case "p":
		return m.play()
	case "c":
		m.grid.Clear()
		m.status = "Cleared"
		m.err = nil
		m.log.Debug("grid cleared")
	case "s":
		if err := render.SavePNG(m.grid, m.extractor.StartOctave, snapshotFile); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.status = "Saved " + snapshotFile
	case "o":
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	}
	return m, nil
}

// updateMouse paints with the left button and erases with the right, on
// press, drag and release
func (m *Model) updateMouse(msg tea.MouseMsg) {
	button := msg.Button
	switch msg.Action {
	case tea.MouseActionPress:
		m.drag = msg.Button
	case tea.MouseActionMotion:
		if button == tea.MouseButtonNone {
			button = m.drag
		}
	case tea.MouseActionRelease:
		button = m.drag
		m.drag = tea.MouseButtonNone
	}

	row, col := cellAt(msg.X, msg.Y)
	switch button {
	case tea.MouseButtonLeft:
		m.grid.Paint(row, col)
	case tea.MouseButtonRight:
		m.grid.Erase(row, col)
	}
}

// cellAt maps a screen position to a grid cell. Positions off the grid map
// to coordinates the grid ignores.
func cellAt(x, y int) (row, col int) {
	row = y - gridTop
	if x < labelWidth {
		return row, grid.LabelColumn
	}
	return row, (x-labelWidth)/cellWidth + 1
}

// play extracts the notes, writes them to the output file and starts the
// player. Playback is waited on in a command so the loop keeps running.
func (m Model) play() (tea.Model, tea.Cmd) {
	if m.playing {
		return m, nil
	}

	events := m.extractor.Extract(m.grid)
	out := m.cfg.Output
	if err := m.conv.WriteMIDIFile(events, out); err != nil {
		m.err = err
		m.log.WithError(err).Warn("failed to write MIDI file")
		return m, nil
	}
	m.err = nil
	m.log.WithFields(logrus.Fields{"path": out, "notes": len(events)}).Debug("wrote MIDI file")

	if m.player == nil {
		m.status = fmt.Sprintf("Wrote %d notes to %s (no output port)", len(events), out)
		return m, nil
	}

	m.playing = true
	m.status = fmt.Sprintf("Playing %d notes", len(events))
	p := m.player
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		if err := p.Play(context.Background(), out); err != nil {
			return playDoneMsg{err: err}
		}
		return playDoneMsg{err: p.Wait()}
	})
}

func (m Model) updateFilePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			m.state = StateEdit
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = StateEdit
		m.open(path)
		return m, nil
	}
	return m, cmd
}

// open replaces the grid contents with the notes of a MIDI file
func (m *Model) open(path string) {
	ok, err := converter.IsMIDIFile(path)
	if err != nil {
		m.err = err
		return
	}
	if !ok {
		m.err = fmt.Errorf("%s is not a Standard MIDI File", filepath.Base(path))
		return
	}

	events, err := m.conv.ParseMIDIFile(path)
	if err != nil {
		m.err = err
		return
	}

	m.grid.Clear()
	dropped := m.grid.Load(events, m.extractor)
	m.err = nil
	m.status = fmt.Sprintf("Loaded %d notes from %s", len(events)-dropped, filepath.Base(path))
	if dropped > 0 {
		m.status += fmt.Sprintf(", %d outside the grid", dropped)
	}
	m.log.WithFields(logrus.Fields{"path": path, "notes": len(events), "dropped": dropped}).Debug("loaded MIDI file")
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" GRIDSYNTH "))
	if m.state == StateEdit {
		s.WriteString(helpStyle.Render(fmt.Sprintf("  %d cells painted", m.grid.Painted())))
	}
	s.WriteString("\n\n")

	if m.state == StateFilePicker {
		s.WriteString(m.filePicker.View())
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("esc: back to grid"))
		return s.String()
	}

	s.WriteString(m.viewGrid())
	s.WriteString("\n")

	switch {
	case m.err != nil:
		s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
	case m.playing:
		s.WriteString(fmt.Sprintf("%s %s", m.spinner.View(), statusStyle.Render(m.status)))
	default:
		s.WriteString(statusStyle.Render(m.status))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("left: paint • right: erase • p: play • c: clear • o: open • s: snapshot • q: quit"))

	return s.String()
}

func (m Model) viewGrid() string {
	var s strings.Builder
	h := m.grid.Height()

	for row := 0; row < h; row++ {
		name := pitch.RowToName(row, h, m.extractor.StartOctave)
		if strings.HasPrefix(name, "C") && !strings.HasPrefix(name, "C#") {
			s.WriteString(octaveLabelStyle.Render(pitch.Label(name, labelWidth)))
		} else {
			s.WriteString(labelStyle.Render(pitch.Label(name, labelWidth)))
		}

		for col := grid.LabelColumn + 1; col < m.grid.Width(); col++ {
			if m.grid.Cell(row, col) {
				s.WriteString(paintedStyle.Render(strings.Repeat(" ", cellWidth)))
			} else {
				s.WriteString(emptyStyle.Render("· "))
			}
		}
		s.WriteString("\n")
	}
	return s.String()
}

// Run starts the editor
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
