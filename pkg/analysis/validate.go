package analysis

import (
	"fmt"
	"strings"

	"github.com/user/framesift/pkg/ports"
)

// maxPlausibleFPS is the frame rate above which a stream is flagged.
const maxPlausibleFPS = 240

// ValidationReport collects findings about a file's structure. Errors make
// the file unusable for extraction; warnings flag results that may be
// unreliable.
type ValidationReport struct {
	Info     []string
	Warnings []string
	Errors   []string
}

// IsValid reports whether no errors were found.
func (r ValidationReport) IsValid() bool { return len(r.Errors) == 0 }

// IssueCount is the number of warnings and errors.
func (r ValidationReport) IssueCount() int { return len(r.Warnings) + len(r.Errors) }

func (r ValidationReport) String() string {
	var b strings.Builder
	for _, s := range r.Info {
		fmt.Fprintf(&b, "[INFO] %s\n", s)
	}
	for _, s := range r.Warnings {
		fmt.Fprintf(&b, "[WARN] %s\n", s)
	}
	for _, s := range r.Errors {
		fmt.Fprintf(&b, "[ERROR] %s\n", s)
	}
	if r.IssueCount() == 0 {
		b.WriteString("No issues found.\n")
	}
	return b.String()
}

func (r *ValidationReport) info(format string, args ...any) {
	r.Info = append(r.Info, fmt.Sprintf(format, args...))
}

func (r *ValidationReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *ValidationReport) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// Validate inspects the primary video stream and the container's track list.
// A zero StreamInfo means the file has no decodable video.
func Validate(info ports.StreamInfo, tracks []ports.TrackInfo) ValidationReport {
	var rep ValidationReport
	hasVideo := info.Codec != "" || info.Width > 0 || info.Height > 0 || info.FrameCount > 0

	var audio, subtitles []ports.TrackInfo
	for _, t := range tracks {
		switch t.Kind {
		case ports.TrackAudio:
			audio = append(audio, t)
		case ports.TrackSubtitle:
			subtitles = append(subtitles, t)
		}
	}

	switch {
	case !hasVideo && len(audio) == 0:
		rep.fail("File contains neither video nor audio streams")
	case !hasVideo:
		rep.info("No video stream found")
	case len(audio) == 0:
		rep.info("No audio stream found")
	}

	if info.Duration <= 0 {
		rep.warn("Media duration is zero; frame and time based extraction may fail")
	}

	if hasVideo {
		if info.Width <= 0 || info.Height <= 0 {
			rep.fail("Invalid video dimensions: %dx%d", info.Width, info.Height)
		}
		fps := 0.0
		if info.FrameRate.Valid() {
			fps = info.FrameRate.Float64()
		}
		switch {
		case fps <= 0:
			rep.warn("Video frame rate is zero or negative; frame counting will be unreliable")
		case fps > maxPlausibleFPS:
			rep.warn("Unusually high frame rate (%.1f fps); extraction may be slow", fps)
		}
		if info.FrameCount == 0 && info.Duration > 0 {
			rep.warn("Estimated frame count is zero despite non-zero duration")
		}
		rep.info("Video: %s %dx%d @ %.2f fps, ~%d frames", info.Codec, info.Width, info.Height, fps, info.FrameCount)
	}

	for _, a := range audio {
		rep.info("Audio: %s %dHz %dch", a.Codec, a.SampleRate, a.Channels)
		// Parameters of unrecognized sample entries are unknown, not zero.
		if !a.Supported {
			continue
		}
		if a.SampleRate <= 0 {
			rep.fail("Audio track %d sample rate is zero", a.ID)
		}
		if a.Channels <= 0 {
			rep.fail("Audio track %d channel count is zero", a.ID)
		}
	}
	if len(audio) > 1 {
		rep.info("%d audio tracks available", len(audio))
	}

	for _, s := range subtitles {
		lang := s.Language
		if lang == "" || lang == "und" {
			lang = "unknown language"
		}
		rep.info("Subtitle: %s (%s)", s.Codec, lang)
	}
	if len(subtitles) > 1 {
		rep.info("%d subtitle tracks available", len(subtitles))
	}

	for _, t := range tracks {
		if !t.Supported && t.Kind != ports.TrackSubtitle {
			rep.warn("Track %d (%s, %s) is not supported and will be ignored", t.ID, t.Kind, t.Codec)
		}
	}
	return rep
}
