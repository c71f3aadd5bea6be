// SPDX-License-Identifier: EPL-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/ik5/mixpreview/preview"
	"github.com/ik5/mixpreview/swap"
)

// playback is the part of the live player the shell drives.
type playback interface {
	Play() error
	Pause()
	Paused() bool
	Position() time.Duration
	Duration() time.Duration
}

type shell struct {
	orch  *preview.Orchestrator
	sched *swap.Scheduler
	live  playback
	out   io.Writer
}

func newShell(orch *preview.Orchestrator, sched *swap.Scheduler, live playback, out io.Writer) *shell {
	return &shell{orch: orch, sched: sched, live: live, out: out}
}

// handle runs one command line. It returns false when the shell should exit.
func (s *shell) handle(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "load":
		err = s.load(ctx, args)
	case "vol":
		err = s.volume(ctx, args)
	case "tracks":
		s.tracks()
	case "play":
		err = s.live.Play()
	case "pause":
		s.live.Pause()
	case "status":
		s.status()
	case "export":
		err = s.export(ctx, args)
	case "reset":
		s.orch.Reset()
		s.printf("cleared\n")
	case "help":
		s.help()
	case "quit", "exit":
		return false
	default:
		s.printf("unknown command %q, try help\n", cmd)
	}

	if err != nil {
		s.printf("error: %v\n", err)
	}
	return true
}

func (s *shell) printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *shell) help() {
	s.printf(`Commands:
  load <files...>       Load a new batch of wav, mp3 or ogg files
  vol <n> <0-100>       Set the volume of track n
  tracks                List loaded tracks
  play | pause          Control playback of the live mix
  status                Show playback and swap state
  export <out.wav>      Write the current mix to a file
  reset                 Unload everything
  quit                  Leave
`)
}

func (s *shell) load(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return fmt.Errorf("usage: load <files...>")
	}

	uploads := make([]preview.Upload, 0, len(paths))
	for _, p := range paths {
		up, err := s.readFile(p)
		if err != nil {
			return err
		}
		uploads = append(uploads, up)
	}

	if err := s.orch.Select(ctx, uploads); err != nil {
		return err
	}
	s.tracks()
	return nil
}

// readFile reads path with a progress bar. The MIME type is left empty so
// the format follows the file extension.
func (s *shell) readFile(path string) (preview.Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return preview.Upload{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return preview.Upload{}, err
	}

	bar := progressbar.NewOptions64(info.Size(),
		progressbar.OptionSetWriter(s.out),
		progressbar.OptionSetDescription(filepath.Base(path)),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)

	var buf bytes.Buffer
	buf.Grow(int(info.Size()))
	if _, err := io.Copy(io.MultiWriter(&buf, bar), f); err != nil {
		return preview.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	_ = bar.Finish()

	return preview.Upload{
		Name: filepath.Base(path),
		Size: info.Size(),
		Data: buf.Bytes(),
	}, nil
}

func (s *shell) volume(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: vol <n> <0-100>")
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("track number %q: %w", args[0], err)
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("volume %q: %w", args[1], err)
	}

	tracks := s.orch.Tracks()
	if n < 1 || n > len(tracks) {
		return fmt.Errorf("%w: track %d of %d", preview.ErrUnknownTrack, n, len(tracks))
	}

	return s.orch.SetVolume(ctx, tracks[n-1].ID, v)
}

func (s *shell) tracks() {
	tracks := s.orch.Tracks()
	if len(tracks) == 0 {
		s.printf("no tracks loaded\n")
		return
	}

	w := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tDURATION\tVOLUME\tTITLE\tARTIST")
	for i, t := range tracks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n", i+1, t.Name, t.Duration, t.Volume, t.Title, t.Artist)
	}
	_ = w.Flush()
}

func (s *shell) status() {
	state := "paused"
	if !s.live.Paused() {
		state = "playing"
	}

	ref := "-"
	if res := s.sched.Live(); res != nil {
		ref = res.Ref()
	}

	st := s.sched.Stats()
	mix := s.orch.Stats()
	s.printf("%s %s / %s  live=%s  scheduler=%s\n",
		state, s.live.Position().Round(time.Millisecond), s.live.Duration().Round(time.Millisecond), ref, s.sched.State())
	s.printf("swaps=%d coalesced=%d dropped=%d recombines=%d skipped=%d mix_errors=%d\n",
		st.Swaps, st.Coalesced, st.Dropped, mix.Recombines, mix.Skipped, mix.MixErrors)
}

func (s *shell) export(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <out.wav>")
	}

	enc, err := s.orch.Mixdown(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[0], enc.Data, 0o644); err != nil {
		return err
	}

	s.printf("wrote %s (%d bytes)\n", args[0], len(enc.Data))
	return nil
}
