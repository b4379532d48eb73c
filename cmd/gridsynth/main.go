// Package main is the entry point for the gridsynth CLI
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"github.com/james-see/gridsynth/pkg/api"
	"github.com/james-see/gridsynth/pkg/config"
	"github.com/james-see/gridsynth/pkg/converter"
	"github.com/james-see/gridsynth/pkg/logging"
	"github.com/james-see/gridsynth/pkg/player"
	"github.com/james-see/gridsynth/pkg/pitch"
	"github.com/james-see/gridsynth/pkg/render"
	"github.com/james-see/gridsynth/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configFile  string
	width       int
	height      int
	duration    int
	startOctave int
	tempo       float64
	outputFile  string
	portName    string
	serverPort  int
	debug       bool
	saveConfig  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "gridsynth",
	Short: "Paint notes on a grid and play them as MIDI",
	Long: `gridsynth is a small piano-roll sequencer for the terminal.

Paint cells with the left mouse button, erase with the right, press p to
play the grid through a MIDI output port and c to clear it.

Examples:
  gridsynth
  gridsynth --height 36 --port "FluidSynth"
  gridsynth play synth.mid
  gridsynth notes synth.mid
  gridsynth snapshot synth.mid -o synth.png
  gridsynth config --height 36 --save
  gridsynth serve --port 8080`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runEditor,
}

var playCmd = &cobra.Command{
	Use:   "play <file.mid>",
	Short: "Play a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var notesCmd = &cobra.Command{
	Use:   "notes <file.mid>",
	Short: "Print the note events of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotes,
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <file.mid>",
	Short: "Load a MIDI file onto a grid and save it as PNG",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnapshot,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI output ports",
	Args:  cobra.NoArgs,
	RunE:  runPorts,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after applying flags. With --save it is
written to the config file so later runs pick it up.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "Config file (default ~/.config/gridsynth/config.json)")
	pf.IntVar(&width, "width", 0, "Grid columns, including the label column")
	pf.IntVar(&height, "height", 0, "Grid rows (pitches)")
	pf.IntVar(&duration, "duration", 0, "Ticks per column")
	pf.IntVar(&startOctave, "octave", 0, "Octave of the bottom row")
	pf.Float64Var(&tempo, "tempo", 0, "Tempo in BPM")
	pf.StringVar(&portName, "midi-port", "", "MIDI output port name (default first port)")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "MIDI file written before playback")

	// snapshot command
	snapshotCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .png file path")

	// config command
	configCmd.Flags().BoolVar(&saveConfig, "save", false, "Write the configuration to the config file")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(notesCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(portsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the config file and applies flags set on the command line
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		cfg.Width = width
	}
	if flags.Changed("height") {
		cfg.Height = height
	}
	if flags.Changed("duration") {
		cfg.Duration = duration
	}
	if flags.Changed("octave") {
		cfg.StartOctave = startOctave
	}
	if flags.Changed("tempo") {
		cfg.Tempo = tempo
	}
	if flags.Changed("midi-port") {
		cfg.Port = portName
	}
	if cmd == rootCmd && flags.Changed("output") {
		cfg.Output = outputFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger() *logrus.Logger {
	return logging.New(os.Stderr, debug)
}

func runEditor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// the editor owns the terminal, so logs go to a file
	log := logging.Discard()
	if debug {
		dir, err := config.Dir()
		if err != nil {
			return err
		}
		var closer io.Closer
		log, closer, err = logging.ToFile(filepath.Join(dir, "debug.log"))
		if err != nil {
			return err
		}
		defer closer.Close()
	}

	opts := []tui.Option{tui.WithLogger(log)}
	p, err := player.Open(cfg.Port, player.WithLogger(log))
	if err != nil {
		log.WithError(err).Warn("playback disabled")
	} else {
		defer p.Close()
		opts = append(opts, tui.WithPlayer(p))
	}

	m, err := tui.New(cfg, opts...)
	if err != nil {
		return err
	}
	return tui.Run(m)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger()

	ok, err := converter.IsMIDIFile(args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a Standard MIDI File", args[0])
	}
	if converter.DetectFormat(args[0]) != converter.FormatMIDI {
		log.WithField("path", args[0]).Warn("file does not have a MIDI extension")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p, err := player.Open(cfg.Port, player.WithLogger(log))
	if err != nil {
		return err
	}
	defer p.Close()

	log.WithField("path", args[0]).Info("playing")
	return p.PlayFile(ctx, args[0])
}

func runNotes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	conv := cfg.Converter()
	events, err := conv.ParseMIDIFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %d notes, %d ticks per quarter\n", len(events), conv.Resolution())
	fmt.Fprintf(out, "%-8s %-8s %-5s %s\n", "START", "END", "PITCH", "NAME")
	for _, ev := range events {
		fmt.Fprintf(out, "%-8d %-8d %-5d %s\n", ev.Start, ev.End, ev.Pitch, pitch.NumberToName(ev.Pitch))
	}
	return nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger()

	input := args[0]
	output := outputFile
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
	}

	events, err := cfg.Converter().ParseMIDIFile(input)
	if err != nil {
		return err
	}
	g, err := cfg.NewGrid()
	if err != nil {
		return err
	}
	if dropped := g.Load(events, cfg.Extractor()); dropped > 0 {
		log.WithField("dropped", dropped).Warn("notes outside the grid")
	}

	if err := render.SavePNG(g, cfg.StartOctave, output); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"input": input, "output": output}).Info("snapshot saved")
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports := player.Ports()
	if len(ports) == 0 {
		return player.ErrNoPort
	}
	for i, name := range ports {
		fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i, name)
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if saveConfig {
		path := configFile
		if path == "" {
			if path, err = config.Path(); err != nil {
				return err
			}
		}
		if err := cfg.SaveFile(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
		return nil
	}

	data, err := cfg.JSON()
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger()

	log.WithField("port", serverPort).Info("starting API server")
	return api.StartServer(serverPort, cfg, log)
}
