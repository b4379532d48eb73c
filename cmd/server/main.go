// Package main is the entry point for the gridsynth API server
package main

import (
	"flag"
	"os"

	"github.com/james-see/gridsynth/pkg/api"
	"github.com/james-see/gridsynth/pkg/config"
	"github.com/james-see/gridsynth/pkg/logging"
)

func main() {
	port := flag.Int("port", 8080, "Server port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := logging.New(os.Stderr, *debug)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	log.WithField("port", *port).Info("starting gridsynth API server")
	log.Infof("Swagger docs available at http://localhost:%d/swagger/index.html", *port)

	if err := api.StartServer(*port, cfg, log); err != nil {
		log.WithError(err).Fatal("server error")
	}
}
