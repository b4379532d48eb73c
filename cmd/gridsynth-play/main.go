// Package main plays the MIDI file named by its only argument. It exits
// with status 2 on bad usage and 1 when the file is not a readable MIDI
// file or no output port can be opened.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // autoregisters driver

	"github.com/james-see/gridsynth/pkg/config"
	"github.com/james-see/gridsynth/pkg/converter"
	"github.com/james-see/gridsynth/pkg/logging"
	"github.com/james-see/gridsynth/pkg/player"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: gridsynth-play <file.mid>")
		fmt.Fprintln(os.Stderr, "exit status: 2 bad usage, 1 no MIDI output port or unreadable file, 0 otherwise")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, false)

	if ok, err := converter.IsMIDIFile(os.Args[1]); err != nil || !ok {
		log.WithField("path", os.Args[1]).Error("not a readable Standard MIDI File")
		os.Exit(1)
	}

	p, err := player.Open(cfg.Port, player.WithLogger(log))
	if err != nil {
		log.WithError(err).Error("cannot open MIDI output")
		os.Exit(1)
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := p.PlayFile(ctx, os.Args[1]); err != nil {
		log.WithError(err).Error("playback failed")
	}
}
