package main

import (
	"context"
	"fmt"
	"os"

	"github.com/enzyme/urlbot/internal/app"
)

// runGet resolves each URL argument and prints the reply line the bot would
// send, without consulting history.
func runGet(args []string) int {
	cfg, flags := loadConfig(args)
	shutdown := setupObservability(cfg)
	defer flushTelemetry(shutdown)

	urls := flags.Args()
	if len(urls) == 0 {
		fmt.Fprintln(os.Stderr, "usage: urlbot get [flags] <url>...")
		return 2
	}

	resolver := app.NewResolver(cfg)
	formatter := app.NewFormatter(cfg)

	status := 0
	for _, u := range urls {
		s := resolver.Resolve(context.Background(), u)
		fmt.Println(formatter.Format(s, nil))
		if !s.OK() {
			status = 1
		}
	}
	return status
}
