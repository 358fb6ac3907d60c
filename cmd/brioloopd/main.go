// Command brioloopd runs a standalone BRIO instruction-loop server
// (spec.md §4.5/§6.3): it accepts a single connection, authenticates it
// against a configured key, then services def/exec/eval instructions
// until the peer disconnects, and exits.
//
// brioloopd wires loop.NoopEvaluator as its host evaluator, since
// interpreting exec/eval source strings is an opaque external concern
// (spec.md §2) that this binary does not implement; embedders link
// package loop directly with their own Evaluator instead of running this
// command.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/arloliu/brio/loop"
	"github.com/op/go-logging"
)

func main() {
	cliInit()

	if flagKey == "" {
		fmt.Fprintln(os.Stderr, "brioloopd: --key is required")
		os.Exit(1)
	}

	log := setupLogging(flagLevel)

	addr := fmt.Sprintf("%s:%d", flagHost, flagPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("listen on ", addr, ": ", err.Error())
		os.Exit(1)
	}
	defer listener.Close()
	log.Info("listening on ", addr)

	srv := loop.NewServer(listener, flagKey, time.Duration(flagTimeout)*time.Second, loop.NoopEvaluator{}, log)
	if err := srv.Serve(context.Background()); err != nil {
		log.Error("serve: ", err.Error())
		os.Exit(1)
	}
}

var logFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} ▶ %{message}`,
)

// setupLogging wires op/go-logging with a leveled backend over stderr,
// grounded on kryptco-kr's SetupLogging (logging.go): a single module
// logger, one formatter, level set by name rather than by numeric flag.
func setupLogging(levelName string) *logging.Logger {
	log := logging.MustGetLogger("brioloopd")
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(backend, logFormat)
	leveled := logging.AddModuleLevel(formatted)

	var level logging.Level
	switch levelName {
	case "debug":
		level = logging.DEBUG
	case "info":
		level = logging.INFO
	case "warn", "":
		level = logging.WARNING
	default:
		level = logging.WARNING
	}
	leveled.SetLevel(level, "brioloopd")

	logging.SetBackend(leveled)
	return log
}
