// Command glint is a headless driver for the playback engine: it loads a
// media file, drains the video outlet, and maps simple stdin transport
// commands onto the player API. Pixel presentation belongs to a real
// display surface; here frames are counted and dropped.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/glintmedia/glint/media"
	"github.com/glintmedia/glint/player"
)

var version = "dev"

func main() {
	var (
		file   = pflag.String("file", envOr("GLINT_FILE", ""), "media file to load and play on startup")
		volume = pflag.Float64("volume", 0.8, "initial volume in [0,1]")
		debug  = pflag.Bool("debug", os.Getenv("DEBUG") != "", "enable debug logging")
	)
	pflag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("glint starting", "version", version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	p := player.New(player.WithLogger(slog.Default()))
	defer p.Close()

	videoCh := make(chan media.VideoFrame, media.VideoBufferSize)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return drainVideo(ctx, videoCh)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-p.Events():
				if ev.Kind == player.EventEndOfStream {
					slog.Info("end of stream", "status", p.Status())
				}
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		return repl(ctx, p, videoCh)
	})

	if _, err := p.SetVolume(float32(*volume)); err != nil {
		slog.Error("set volume", "error", err)
		os.Exit(1)
	}

	if *file != "" {
		st, err := p.Load(*file, videoCh)
		if err != nil {
			slog.Error("load", "path", *file, "error", err)
			os.Exit(1)
		}
		slog.Info("loaded", "path", st.Path, "duration", st.Duration,
			"has_audio", st.HasAudio, "has_video", st.HasVideo)
		if err := p.Play(); err != nil {
			slog.Error("play", "error", err)
			os.Exit(1)
		}
	}

	if err := g.Wait(); err != nil {
		slog.Error("driver error", "error", err)
		os.Exit(1)
	}
}

// drainVideo consumes the video outlet the way a display surface would,
// logging cadence instead of presenting pixels.
func drainVideo(ctx context.Context, frames <-chan media.VideoFrame) error {
	var n int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			n++
			if n%100 == 1 {
				slog.Debug("video frame",
					"count", n,
					"timestamp", f.Timestamp,
					"size", fmt.Sprintf("%dx%d", f.Width, f.Height),
				)
			}
		}
	}
}

// repl maps stdin lines onto transport commands until EOF or quit.
func repl(ctx context.Context, p *player.Player, videoCh chan media.VideoFrame) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
		var err error
		switch cmd {
		case "":
		case "load":
			var st player.Status
			if st, err = p.Load(arg, videoCh); err == nil {
				slog.Info("loaded", "path", st.Path, "duration", st.Duration)
			}
		case "play":
			err = p.Play()
		case "pause":
			err = p.Pause()
		case "toggle":
			var playing bool
			if playing, err = p.Toggle(); err == nil {
				slog.Info("toggled", "playing", playing)
			}
		case "stop":
			err = p.Stop()
		case "seek":
			var t, applied float64
			if t, err = strconv.ParseFloat(arg, 64); err == nil {
				if applied, err = p.Seek(t); err == nil {
					slog.Info("seeked", "position", applied)
				}
			}
		case "vol":
			var v float64
			var applied float32
			if v, err = strconv.ParseFloat(arg, 64); err == nil {
				if applied, err = p.SetVolume(float32(v)); err == nil {
					slog.Info("volume set", "level", applied)
				}
			}
		case "status":
			var out []byte
			if out, err = json.Marshal(p.Status()); err == nil {
				fmt.Println(string(out))
			}
		case "quit", "exit":
			return nil
		default:
			fmt.Println("commands: load <path> | play | pause | toggle | stop | seek <s> | vol <v> | status | quit")
		}
		if err != nil {
			slog.Error("command failed", "command", cmd, "error", err)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
