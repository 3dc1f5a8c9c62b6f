package main

import (
	"flag"

	"github.com/danmuck/mkvroute/internal/config"
	"github.com/danmuck/mkvroute/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	output := flag.String("output", config.DefaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", config.DefaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	logging.ConfigureRuntime("")

	if *validate {
		if _, err := config.LoadProbeConfig(*input); err != nil {
			log.Fatal().Err(err).Msg("config invalid")
		}
		log.Info().Str("path", *input).Msg("validated mkvprobe config")
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal().Err(err).Msg("write template failed")
	}
	log.Info().Str("path", *output).Msg("wrote mkvprobe config template")
}
