package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/enzyme/urlbot/internal/app"
)

type messageHandler interface {
	OnMessage(ctx context.Context, channel, nick, text string) []string
}

// runConsole reads "<channel> <nick> <text>" lines from stdin and writes each
// reply to stdout as "<channel> <reply>". A chat bridge can pipe through it.
func runConsole(args []string) int {
	cfg, shutdownTelemetry := setup(args)
	defer flushTelemetry(shutdownTelemetry)

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("error creating application", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := application.Start(ctx); err != nil {
			slog.Error("relay error", "error", err)
		}
	}()

	err = consoleLoop(ctx, os.Stdin, os.Stdout, application.Pipeline)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := application.Shutdown(shutdownCtx); serr != nil {
		slog.Error("error during shutdown", "error", serr)
	}

	if err != nil {
		slog.Error("reading input", "error", err)
		return 1
	}
	return 0
}

func consoleLoop(ctx context.Context, r io.Reader, w io.Writer, h messageHandler) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 64<<10)

	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		channel, nick, text, ok := parseLine(sc.Text())
		if !ok {
			if strings.TrimSpace(sc.Text()) != "" {
				slog.Warn("ignoring malformed line; want <channel> <nick> <text>")
			}
			continue
		}
		for _, reply := range h.OnMessage(ctx, channel, nick, text) {
			if _, err := fmt.Fprintf(w, "%s %s\n", channel, reply); err != nil {
				return err
			}
		}
	}
	return sc.Err()
}

func parseLine(line string) (channel, nick, text string, ok bool) {
	fields := strings.SplitN(strings.TrimSpace(line), " ", 3)
	if len(fields) < 3 {
		return "", "", "", false
	}
	channel, nick = fields[0], fields[1]
	text = strings.TrimSpace(fields[2])
	if channel == "" || nick == "" || text == "" {
		return "", "", "", false
	}
	return channel, nick, text, true
}

