package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/Zelak312/fumkit/internal/flipbook/ui"
	"github.com/Zelak312/fumkit/internal/logging"
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging to stdout")
	flag.Parse()

	logFile := logging.Setup(logging.Options{
		LogPath:    ".",
		FileName:   "app.log",
		Debug:      *debug,
		Console:    *debug,
		ConsoleOut: os.Stdout,
	})
	defer logFile.Close()

	log.WithField("debug", *debug).Info("Starting flipbook viewer")
	ui.New().Run()
	log.Info("Flipbook viewer closed")
}
