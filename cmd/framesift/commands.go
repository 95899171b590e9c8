package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framesift/pkg/adapters/contactsheet"
	"github.com/user/framesift/pkg/adapters/framesink"
	"github.com/user/framesift/pkg/analysis"
	"github.com/user/framesift/pkg/extract"
	"github.com/user/framesift/pkg/ports"
	"github.com/user/framesift/pkg/report"
	"github.com/user/framesift/pkg/selection"
)

var errNoInput = errors.New("input video argument is required")

// Extraction modes accepted by --mode.
const (
	modeSequential = "sequential"
	modeParallel   = "parallel"
	modeStream     = "stream"
	modeIterate    = "iterate"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "pixel-format",
			Usage:    l10n.T("Output pixel format (rgb24, rgba, gray)"),
			Category: l10n.T("Output"),
		},
		&cli.IntFlag{
			Name:     "width",
			Aliases:  []string{"W"},
			Usage:    l10n.T("Output width in pixels (0 = source)"),
			Category: l10n.T("Output"),
		},
		&cli.IntFlag{
			Name:     "height",
			Aliases:  []string{"H"},
			Usage:    l10n.T("Output height in pixels (0 = source)"),
			Category: l10n.T("Output"),
		},
		&cli.BoolFlag{
			Name:     "no-keep-aspect",
			Usage:    l10n.T("Keep the source size for the dimension that was not given"),
			Category: l10n.T("Output"),
		},
		&cli.BoolFlag{
			Name:     "progress",
			Aliases:  []string{"p"},
			Usage:    l10n.T("Log progress while decoding"),
			Category: l10n.T("Logging"),
		},
		&cli.IntFlag{
			Name:     "progress-batch",
			Usage:    l10n.T("Frames between progress reports"),
			Category: l10n.T("Logging"),
		},
	}
}

func extractCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.Int64SliceFlag{
			Name:     "frame",
			Aliases:  []string{"f"},
			Usage:    l10n.T("Frame index to extract (repeatable)"),
			Category: l10n.T("Selection"),
		},
		&cli.StringFlag{
			Name:     "range",
			Usage:    l10n.T("Inclusive frame range, e.g. 100-200"),
			Category: l10n.T("Selection"),
		},
		&cli.Int64Flag{
			Name:     "interval",
			Usage:    l10n.T("Every N-th frame from frame 0"),
			Category: l10n.T("Selection"),
		},
		&cli.StringFlag{
			Name:     "time-range",
			Usage:    l10n.T("Inclusive time range, e.g. 1.5s-3s or 00:01..00:03"),
			Category: l10n.T("Selection"),
		},
		&cli.StringFlag{
			Name:     "every",
			Usage:    l10n.T("Time step between frames, e.g. 500ms"),
			Category: l10n.T("Selection"),
		},
		&cli.StringFlag{
			Name:     "start",
			Usage:    l10n.T("Start time for --every"),
			Category: l10n.T("Selection"),
		},
		&cli.StringFlag{
			Name:     "segments",
			Usage:    l10n.T("Comma separated time ranges, e.g. 0s-1s,5s-6s"),
			Category: l10n.T("Selection"),
		},
		&cli.BoolFlag{
			Name:     "keyframes",
			Aliases:  []string{"k"},
			Usage:    l10n.T("Extract keyframes only"),
			Category: l10n.T("Selection"),
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Output directory (required)"),
			Required: true,
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "image-format",
			Usage:    l10n.T("Image format (png, jpg)"),
			Category: l10n.T("Output"),
		},
		&cli.IntFlag{
			Name:     "quality",
			Aliases:  []string{"q"},
			Usage:    l10n.T("JPEG quality (1-100)"),
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "report",
			Usage:    l10n.T("Write an extraction report (.md, .yaml or .txt)"),
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "mode",
			Aliases:  []string{"m"},
			Value:    modeSequential,
			Usage:    l10n.T("Execution mode (sequential, parallel, stream, iterate)"),
			Category: l10n.T("Decoding"),
		},
	}
	return &cli.Command{
		Name:      "extract",
		Usage:     l10n.T("Extract selected frames to image files"),
		ArgsUsage: "<video>",
		Flags:     append(flags, outputFlags()...),
		Action:    runExtract,
	}
}

func runExtract(c *cli.Context) error {
	if c.NArg() != 1 {
		return errNoInput
	}
	sel := selectionFlags{
		Frames:    c.Int64Slice("frame"),
		Range:     c.String("range"),
		Interval:  c.Int64("interval"),
		TimeRange: c.String("time-range"),
		Every:     c.String("every"),
		Start:     c.String("start"),
		Segments:  c.String("segments"),
		Keyframes: c.Bool("keyframes"),
	}
	spec, err := sel.spec()
	if err != nil {
		return err
	}

	sess, err := newSession(c)
	if err != nil {
		return err
	}
	defer sess.close()
	ctx, cancel := sess.signalContext()
	defer cancel()

	input := c.Args().First()
	m, err := sess.open(input, c.Bool("progress"))
	if err != nil {
		return err
	}
	defer m.Close()

	format, err := framesink.ParseImageFormat(sess.cfg.ImageFormat)
	if err != nil {
		return err
	}
	out := c.String("output")
	sink := framesink.New(out, sess.fs, format, sess.cfg.JPEGQuality)

	mode := c.String("mode")
	start := time.Now()
	if err := extractFrames(ctx, m, spec, mode, sess.cfg.Workers, sink); err != nil {
		return err
	}
	elapsed := time.Since(start)
	if _, err := sink.SaveManifest(); err != nil {
		return err
	}
	n := len(sink.Entries())
	sess.log.Info("Saved %d frames to %s", n, out)

	if path := c.String("report"); path != "" {
		rep := report.NewBuilder(input, m.Info()).
			WithExtraction(report.Extraction{
				Selection: spec.String(),
				Mode:      mode,
				Frames:    n,
				Elapsed:   elapsed,
				OutputDir: out,
			}).
			Build()
		if err := report.NewWriter(formatterForPath(path), sess.fs).Write(path, rep); err != nil {
			sess.log.Warn("Failed to write report: %s", err)
		} else {
			sess.log.Info("Report saved to %s", path)
		}
	}
	return nil
}

// extractFrames drives one execution mode and saves every frame to sink.
func extractFrames(ctx context.Context, m *extract.MediaFile, spec selection.Spec, mode string, workers int, sink *framesink.Sink) error {
	switch mode {
	case modeSequential:
		return m.ForEach(ctx, spec, sink.Consume)

	case modeParallel:
		frames, err := m.Parallel(ctx, spec, workers)
		if err != nil {
			return err
		}
		for _, f := range frames {
			if err := sink.Consume(f); err != nil {
				return err
			}
		}
		return nil

	case modeStream:
		s, err := m.Stream(ctx, spec)
		if err != nil {
			return err
		}
		for f := range s.All() {
			if err := sink.Consume(f); err != nil {
				s.Cancel()
				return err
			}
		}
		return s.Err()

	case modeIterate:
		for f, err := range m.All(ctx, spec) {
			if err != nil {
				return err
			}
			if err := sink.Consume(f); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown mode %q", mode)
}

func formatterForPath(path string) report.Formatter {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return report.NewMarkdownFormatter()
	case ".yaml", ".yml":
		return report.NewYAMLFormatter()
	}
	return report.NewTextFormatter()
}

func thumbnailsCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Output PNG file (required)"),
			Required: true,
			Category: l10n.T("Output"),
		},
		&cli.IntFlag{
			Name:     "columns",
			Usage:    l10n.T("Grid columns"),
			Category: l10n.T("Layout"),
		},
		&cli.IntFlag{
			Name:     "rows",
			Usage:    l10n.T("Grid rows"),
			Category: l10n.T("Layout"),
		},
		&cli.IntFlag{
			Name:     "thumb-width",
			Usage:    l10n.T("Thumbnail width in pixels"),
			Category: l10n.T("Layout"),
		},
		&cli.BoolFlag{
			Name:     "no-labels",
			Usage:    l10n.T("Do not print frame labels"),
			Category: l10n.T("Layout"),
		},
		&cli.StringFlag{
			Name:     "font",
			Usage:    l10n.T("TrueType font for labels"),
			Category: l10n.T("Layout"),
		},
	}
	return &cli.Command{
		Name:      "thumbnails",
		Usage:     l10n.T("Render evenly spaced frames as a contact sheet"),
		ArgsUsage: "<video>",
		Flags:     flags,
		Action:    runThumbnails,
	}
}

func runThumbnails(c *cli.Context) error {
	if c.NArg() != 1 {
		return errNoInput
	}
	sess, err := newSession(c)
	if err != nil {
		return err
	}
	defer sess.close()
	ctx, cancel := sess.signalContext()
	defer cancel()

	tc := sess.cfg.Thumbnail
	if c.IsSet("columns") {
		tc.Columns = c.Int("columns")
	}
	if c.IsSet("rows") {
		tc.Rows = c.Int("rows")
	}
	if c.IsSet("thumb-width") {
		tc.Width = c.Int("thumb-width")
	}
	if tc.Columns <= 0 || tc.Rows <= 0 || tc.Width <= 0 {
		return fmt.Errorf("invalid grid %dx%d at %dpx", tc.Columns, tc.Rows, tc.Width)
	}

	m, err := sess.open(c.Args().First(), false)
	if err != nil {
		return err
	}
	defer m.Close()

	frames, err := m.Thumbnails(ctx, tc.Columns*tc.Rows, tc.Width)
	if err != nil {
		return err
	}

	opts := contactsheet.DefaultOptions()
	opts.Columns = tc.Columns
	opts.CellWidth = tc.Width
	opts.Gap = tc.Gap
	opts.Labels = !c.Bool("no-labels")
	opts.FontPath = c.String("font")
	data, err := contactsheet.EncodePNG(frames, opts)
	if err != nil {
		return err
	}
	out := c.String("output")
	if err := sess.fs.WriteFile(out, data); err != nil {
		return err
	}
	sess.log.Info("Contact sheet with %d frames saved to %s", len(frames), out)
	return nil
}

func reportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "format",
			Value:    "text",
			Usage:    l10n.T("Report format (text, markdown, yaml)"),
			Category: l10n.T("Output"),
		},
		&cli.StringFlag{
			Name:     "output",
			Aliases:  []string{"o"},
			Usage:    l10n.T("Write the report to a file instead of stdout"),
			Category: l10n.T("Output"),
		},
	}
}

// analyzeCommand builds a command that scans packets and prints a report.
func analyzeCommand(name, usage string, extra []cli.Flag, build func(ctx context.Context, c *cli.Context, m *extract.MediaFile, b *report.Builder) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<video>",
		Flags:     append(reportFlags(), extra...),
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errNoInput
			}
			formatter, err := report.FormatterFor(c.String("format"))
			if err != nil {
				return err
			}
			sess, err := newSession(c)
			if err != nil {
				return err
			}
			defer sess.close()
			ctx, cancel := sess.signalContext()
			defer cancel()

			input := c.Args().First()
			m, err := sess.open(input, false)
			if err != nil {
				return err
			}
			defer m.Close()

			b := report.NewBuilder(input, m.Info())
			if err := build(ctx, c, m, b); err != nil {
				return err
			}
			rep := b.Build()
			if out := c.String("output"); out != "" {
				if err := report.NewWriter(formatter, sess.fs).Write(out, rep); err != nil {
					return err
				}
				sess.log.Info("Report saved to %s", out)
				return nil
			}
			_, err = fmt.Fprint(c.App.Writer, formatter.Format(rep))
			return err
		},
	}
}

func keyframesCommand() *cli.Command {
	return analyzeCommand("keyframes", l10n.T("List keyframes and GOP statistics"), nil,
		func(ctx context.Context, _ *cli.Context, m *extract.MediaFile, b *report.Builder) error {
			g, err := m.Keyframes(ctx)
			if err != nil {
				return err
			}
			b.WithGop(g)
			return nil
		})
}

func vfrCommand() *cli.Command {
	return analyzeCommand("vfr", l10n.T("Detect variable frame rate"), nil,
		func(ctx context.Context, _ *cli.Context, m *extract.MediaFile, b *report.Builder) error {
			v, err := m.VFR(ctx)
			if err != nil {
				return err
			}
			b.WithVFR(v)
			return nil
		})
}

func infoCommand() *cli.Command {
	analyze := &cli.BoolFlag{
		Name:     "analyze",
		Aliases:  []string{"a"},
		Usage:    l10n.T("Include keyframe and frame rate analysis"),
		Category: l10n.T("Output"),
	}
	return analyzeCommand("info", l10n.T("Show stream information"), []cli.Flag{analyze},
		func(ctx context.Context, c *cli.Context, m *extract.MediaFile, b *report.Builder) error {
			if !c.Bool("analyze") {
				return nil
			}
			g, err := m.Keyframes(ctx)
			if err != nil {
				return err
			}
			v, err := m.VFR(ctx)
			if err != nil {
				return err
			}
			b.WithGop(g).WithVFR(v)
			return nil
		})
}

func validateCommand() *cli.Command {
	return analyzeCommand("validate", l10n.T("Check the file for structural problems"), nil,
		func(_ context.Context, _ *cli.Context, m *extract.MediaFile, b *report.Builder) error {
			b.WithValidation(m.Validate())
			return nil
		})
}

func scenesCommand() *cli.Command {
	threshold := &cli.Float64Flag{
		Name:     "threshold",
		Aliases:  []string{"t"},
		Value:    analysis.DefaultSceneThreshold,
		Usage:    l10n.T("Minimum scene change score (0-100)"),
		Category: l10n.T("Selection"),
	}
	return analyzeCommand("scenes", l10n.T("Detect scene changes"), []cli.Flag{threshold},
		func(ctx context.Context, c *cli.Context, m *extract.MediaFile, b *report.Builder) error {
			th := c.Float64("threshold")
			scenes, err := m.Scenes(ctx, th)
			if err != nil {
				return err
			}
			b.WithScenes(th, scenes)
			return nil
		})
}

func audioCommand() *cli.Command {
	return &cli.Command{
		Name:      "audio",
		Usage:     l10n.T("Extract the audio track as a WAV file"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    l10n.T("Output WAV file (required)"),
				Required: true,
				Category: l10n.T("Output"),
			},
			&cli.StringFlag{
				Name:     "start",
				Usage:    l10n.T("Start time, e.g. 1.5s or 00:01"),
				Category: l10n.T("Selection"),
			},
			&cli.StringFlag{
				Name:     "end",
				Usage:    l10n.T("End time (default: end of track)"),
				Category: l10n.T("Selection"),
			},
			&cli.IntFlag{
				Name:     "sample-rate",
				Usage:    l10n.T("Output sample rate in Hz (0 = source)"),
				Category: l10n.T("Output"),
			},
			&cli.IntFlag{
				Name:     "channels",
				Usage:    l10n.T("Output channel count (0 = source)"),
				Category: l10n.T("Output"),
			},
		},
		Action: runAudio,
	}
}

func runAudio(c *cli.Context) error {
	if c.NArg() != 1 {
		return errNoInput
	}
	req := ports.AudioRequest{
		SampleRate: c.Int("sample-rate"),
		Channels:   c.Int("channels"),
	}
	var err error
	if v := c.String("start"); v != "" {
		if req.Start, err = parseTimestamp(v); err != nil {
			return err
		}
	}
	if v := c.String("end"); v != "" {
		if req.End, err = parseTimestamp(v); err != nil {
			return err
		}
	}

	sess, err := newSession(c)
	if err != nil {
		return err
	}
	defer sess.close()
	ctx, cancel := sess.signalContext()
	defer cancel()

	m, err := sess.open(c.Args().First(), false)
	if err != nil {
		return err
	}
	defer m.Close()

	var buf bytes.Buffer
	if _, err := m.WriteWAV(ctx, &buf, req); err != nil {
		return err
	}
	out := c.String("output")
	if err := sess.fs.WriteFile(out, buf.Bytes()); err != nil {
		return err
	}
	sess.log.Info("Audio saved to %s", out)
	return nil
}

func packetsCommand() *cli.Command {
	return &cli.Command{
		Name:      "packets",
		Usage:     l10n.T("List compressed packets in decode order"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: l10n.T("Stop after this many packets (0 = all)"),
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errNoInput
			}
			sess, err := newSession(c)
			if err != nil {
				return err
			}
			defer sess.close()
			ctx, cancel := sess.signalContext()
			defer cancel()

			m, err := sess.open(c.Args().First(), false)
			if err != nil {
				return err
			}
			defer m.Close()

			limit := c.Int("limit")
			w := c.App.Writer
			fmt.Fprintf(w, "%8s %12s %12s %12s %4s %8s\n", "#", "pts", "dts", "time", "type", "size")
			for p, err := range m.Packets(ctx) {
				if err != nil {
					return err
				}
				if limit > 0 && p.Ordinal >= int64(limit) {
					break
				}
				kind := p.PictureType.String()
				if p.Keyframe {
					kind += "*"
				}
				fmt.Fprintf(w, "%8d %12d %12d %12s %4s %8d\n", p.Ordinal, p.PTS, p.DTS, p.Timestamp.Round(time.Millisecond), kind, p.Size)
			}
			return nil
		},
	}
}
