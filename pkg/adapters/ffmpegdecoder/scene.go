package ffmpegdecoder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/user/framesift/pkg/mediaerr"
	"github.com/user/framesift/pkg/ports"
)

const sceneScoreKey = "lavfi.scd.score"

// DetectScenes runs the scdet filter over the primary video stream and
// returns every frame whose score reaches threshold.
func (s *Source) DetectScenes(ctx context.Context, threshold float64) ([]ports.SceneCut, error) {
	dir, err := os.MkdirTemp("", "framesift-scenes-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "scores.txt")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpeg, sceneArgs(s.path, threshold, out)...)
	cmd.Stderr = &stderr
	s.logger.Debug("Detecting scenes with threshold %.1f", threshold)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", mediaerr.ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg scene detection failed: %w\nstderr: %s", err, stderr.String())
	}

	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("open scene scores: %w", err)
	}
	defer f.Close()
	return parseSceneScores(f, threshold)
}

// sceneArgs scores every frame and prints the score metadata to path. The
// detection threshold is applied when parsing so the first frame always
// anchors the time origin.
func sceneArgs(input string, threshold float64, path string) []string {
	filter := fmt.Sprintf("scdet=threshold=%s,metadata=mode=print:key=%s:file='%s'",
		strconv.FormatFloat(threshold, 'f', -1, 64), sceneScoreKey, escapeFilterPath(path))
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", input,
		"-map", "0:v:0",
		"-an", "-sn", "-dn",
		"-vf", filter,
		"-f", "null", "-",
	}
}

// escapeFilterPath makes path safe inside a single-quoted filter option.
func escapeFilterPath(path string) string {
	path = filepath.ToSlash(path)
	return strings.ReplaceAll(path, "'", `'\''`)
}

// parseSceneScores reads the metadata filter output:
//
//	frame:12   pts:6144    pts_time:0.4
//	lavfi.scd.score=42.17
//
// Timestamps are made relative to the first printed frame.
func parseSceneScores(r io.Reader, threshold float64) ([]ports.SceneCut, error) {
	var (
		cuts   []ports.SceneCut
		at     time.Duration
		origin time.Duration
		seen   bool
		valid  bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "frame:"):
			valid = false
			for _, field := range strings.Fields(line) {
				v, ok := strings.CutPrefix(field, "pts_time:")
				if !ok {
					continue
				}
				sec, err := strconv.ParseFloat(v, 64)
				if err != nil {
					break
				}
				at = time.Duration(math.Round(sec * float64(time.Second)))
				if !seen {
					origin, seen = at, true
				}
				valid = true
			}
		case strings.HasPrefix(line, sceneScoreKey+"="):
			if !valid {
				continue
			}
			score, err := strconv.ParseFloat(strings.TrimPrefix(line, sceneScoreKey+"="), 64)
			if err != nil {
				return nil, fmt.Errorf("parse scene score %q: %w", line, err)
			}
			if score >= threshold {
				cuts = append(cuts, ports.SceneCut{Timestamp: at - origin, Score: score})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read scene scores: %w", err)
	}
	return cuts, nil
}

var _ ports.SceneDetector = (*Source)(nil)
