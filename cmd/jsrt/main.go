// Command jsrt runs a single JavaScript module to completion. CLI
// surface is deliberately minimal (§6.4 is explicit that command-line
// ergonomics are out of scope): a module path, an optional config file,
// and the rest of argv passed through to process.argv.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"jsrt"
	"jsrt/internal/core"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("jsrt", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to a TOML config file")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: jsrt [-config path] [-verbose] <module> [args...]")
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) < 1 {
		fs.Usage()
		return 2
	}
	entry := rest[0]
	argv := append([]string{entry}, rest[1:]...)

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jsrt:", err)
		return 1
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := core.SlogLogger{L: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}

	rt, err := jsrt.New(jsrt.WithConfig(cfg), jsrt.WithLogger(logger), jsrt.WithArgv(argv))
	if err != nil {
		fmt.Fprintln(os.Stderr, "jsrt:", err)
		return 1
	}
	defer rt.Close()

	if err := rt.Run(entry); err != nil {
		fmt.Fprintln(os.Stderr, "jsrt:", err)
		return 1
	}
	return 0
}
