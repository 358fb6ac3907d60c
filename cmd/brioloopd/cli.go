package main

import "flag"

var (
	flagHost    string
	flagPort    int
	flagKey     string
	flagTimeout int
	flagLevel   string
)

func cliInit() {
	flag.StringVar(&flagHost, "host", "0.0.0.0", "Address to bind the instruction loop listener to")
	flag.IntVar(&flagPort, "port", 8888, "Port to bind the instruction loop listener to")
	flag.StringVar(&flagKey, "key", "", "Expected auth key for incoming connections (required)")
	flag.IntVar(&flagTimeout, "timeout", 10, "Accept timeout in seconds, applies only to the initial accept")
	flag.StringVar(&flagLevel, "level", "warn", "Log verbosity: warn, info, or debug")
	flag.Parse()
}
