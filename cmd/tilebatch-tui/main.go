package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/francegen/tilebatch/internal/config"
	"github.com/francegen/tilebatch/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file (JSON or YAML)")
	flag.Parse()

	settings := config.DefaultSettings()
	if *configFlag != "" {
		var err error
		settings, err = config.Load(*configFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(2)
		}
	}

	code, err := tui.Run(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}
