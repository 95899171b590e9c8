package report

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Formatter converts a Report to text.
type Formatter interface {
	Format(r *Report) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(r *Report) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(r *Report) string {
	return f(r)
}

// maxListedKeyframes bounds the keyframe table in Markdown output.
const maxListedKeyframes = 50

// NewMarkdownFormatter returns a Formatter producing GitHub flavoured
// Markdown.
func NewMarkdownFormatter() Formatter {
	return FormatFunc(formatMarkdown)
}

// NewTextFormatter returns a Formatter producing aligned plain text for
// terminals.
func NewTextFormatter() Formatter {
	return FormatFunc(formatText)
}

// NewYAMLFormatter returns a Formatter producing machine readable YAML.
func NewYAMLFormatter() Formatter {
	return FormatFunc(formatYAML)
}

// FormatterFor maps markdown, text and yaml to a Formatter.
func FormatterFor(name string) (Formatter, error) {
	switch strings.ToLower(name) {
	case "md", "markdown":
		return NewMarkdownFormatter(), nil
	case "", "text", "txt":
		return NewTextFormatter(), nil
	case "yaml", "yml":
		return NewYAMLFormatter(), nil
	}
	return nil, fmt.Errorf("unknown report format: %q", name)
}

func formatMarkdown(r *Report) string {
	var b strings.Builder
	s := r.Stream

	b.WriteString("# Stream Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))
	if r.Source != "" {
		fmt.Fprintf(&b, "Source: `%s`\n\n", r.Source)
	}

	b.WriteString("## Stream\n\n")
	b.WriteString("| Property | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Codec | %s |\n", s.Codec)
	fmt.Fprintf(&b, "| Resolution | %dx%d |\n", s.Width, s.Height)
	fmt.Fprintf(&b, "| Frame rate | %.3f fps (%s) |\n", s.FrameRate.Float64(), s.FrameRate)
	fmt.Fprintf(&b, "| Time base | %s |\n", s.TimeBase)
	fmt.Fprintf(&b, "| Frames | %d |\n", s.FrameCount)
	fmt.Fprintf(&b, "| Duration | %s |\n", formatDuration(s.Duration))

	if g := r.Gop; g != nil {
		b.WriteString("\n## Keyframes\n\n")
		b.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Keyframes | %d |\n", len(g.Keyframes))
		fmt.Fprintf(&b, "| Packets | %d |\n", g.TotalPackets)
		fmt.Fprintf(&b, "| Average GOP | %.2f |\n", g.AverageGopSize)
		fmt.Fprintf(&b, "| Min / Max GOP | %d / %d |\n", g.MinGopSize, g.MaxGopSize)

		if len(g.Keyframes) > 0 {
			b.WriteString("\n| # | Frame | Time | Size |\n|---|---|---|---|\n")
			for i, k := range g.Keyframes {
				if i == maxListedKeyframes {
					fmt.Fprintf(&b, "\n_%d more keyframes omitted._\n", len(g.Keyframes)-i)
					break
				}
				fmt.Fprintf(&b, "| %d | %d | %s | %s |\n", k.Ordinal, k.FrameIndex, formatDuration(k.Timestamp), formatBytes(int64(k.Size)))
			}
		}
	}

	if v := r.VFR; v != nil {
		b.WriteString("\n## Frame Rate\n\n")
		b.WriteString("| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Variable | %s |\n", yesNo(v.IsVariable))
		fmt.Fprintf(&b, "| Nominal | %.3f fps |\n", v.NominalFPS)
		fmt.Fprintf(&b, "| Mean | %.3f fps |\n", v.MeanFPS)
		fmt.Fprintf(&b, "| Min / Max | %.3f / %.3f fps |\n", v.MinFPS, v.MaxFPS)
		fmt.Fprintf(&b, "| Frame duration | %.3f ms (σ %.3f ms) |\n", v.MeanFrameDuration*1000, v.StdDevDuration*1000)
		fmt.Fprintf(&b, "| Deviates from nominal | %s |\n", yesNo(v.DeviatesFromNominal))
	}

	if v := r.Validation; v != nil {
		b.WriteString("\n## Validation\n\n")
		fmt.Fprintf(&b, "Valid: **%s**, %d issue(s)\n\n", yesNo(v.IsValid()), v.IssueCount())
		for _, e := range v.Errors {
			fmt.Fprintf(&b, "- **Error:** %s\n", e)
		}
		for _, w := range v.Warnings {
			fmt.Fprintf(&b, "- **Warning:** %s\n", w)
		}
		for _, i := range v.Info {
			fmt.Fprintf(&b, "- %s\n", i)
		}
	}

	if sc := r.Scenes; sc != nil {
		b.WriteString("\n## Scene Changes\n\n")
		fmt.Fprintf(&b, "%d cut(s) at threshold %.1f\n", len(sc.Changes), sc.Threshold)
		if len(sc.Changes) > 0 {
			b.WriteString("\n| Frame | Time | Score |\n|---|---|---|\n")
			for _, c := range sc.Changes {
				fmt.Fprintf(&b, "| %d | %s | %.2f |\n", c.FrameNumber, formatDuration(c.Timestamp), c.Score)
			}
		}
	}

	if e := r.Extraction; e != nil {
		b.WriteString("\n## Extraction\n\n")
		b.WriteString("| Property | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Selection | %s |\n", e.Selection)
		fmt.Fprintf(&b, "| Mode | %s |\n", e.Mode)
		fmt.Fprintf(&b, "| Frames | %d |\n", e.Frames)
		fmt.Fprintf(&b, "| Elapsed | %s |\n", e.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(&b, "| Throughput | %.1f frames/s |\n", e.FramesPerSecond())
		if e.OutputDir != "" {
			fmt.Fprintf(&b, "| Output | `%s` |\n", e.OutputDir)
		}
	}
	return b.String()
}

func formatText(r *Report) string {
	var b strings.Builder
	s := r.Stream
	line := func(k, format string, args ...any) {
		fmt.Fprintf(&b, "%-16s %s\n", k+":", fmt.Sprintf(format, args...))
	}

	if r.Source != "" {
		line("Source", "%s", r.Source)
	}
	line("Codec", "%s", s.Codec)
	line("Resolution", "%dx%d", s.Width, s.Height)
	line("Frame rate", "%.3f fps", s.FrameRate.Float64())
	line("Time base", "%s", s.TimeBase)
	line("Frames", "%d", s.FrameCount)
	line("Duration", "%s", formatDuration(s.Duration))
	if g := r.Gop; g != nil {
		line("Keyframes", "%d", len(g.Keyframes))
		line("GOP", "avg %.2f, min %d, max %d", g.AverageGopSize, g.MinGopSize, g.MaxGopSize)
	}
	if v := r.VFR; v != nil {
		line("Variable rate", "%s", yesNo(v.IsVariable))
		line("FPS", "mean %.3f, min %.3f, max %.3f", v.MeanFPS, v.MinFPS, v.MaxFPS)
	}
	if v := r.Validation; v != nil {
		line("Valid", "%s (%d issues)", yesNo(v.IsValid()), v.IssueCount())
		b.WriteString(v.String())
	}
	if sc := r.Scenes; sc != nil {
		line("Scene changes", "%d at threshold %.1f", len(sc.Changes), sc.Threshold)
		for _, c := range sc.Changes {
			fmt.Fprintf(&b, "  frame %-8d %s  score %.2f\n", c.FrameNumber, formatDuration(c.Timestamp), c.Score)
		}
	}
	if e := r.Extraction; e != nil {
		line("Extracted", "%d frames (%s, %s) in %s", e.Frames, e.Selection, e.Mode, e.Elapsed.Round(time.Millisecond))
	}
	return b.String()
}

type yamlReport struct {
	GeneratedAt time.Time       `yaml:"generated_at"`
	Source      string          `yaml:"source,omitempty"`
	Stream      yamlStream      `yaml:"stream"`
	Keyframes   *yamlKeyframes  `yaml:"keyframes,omitempty"`
	FrameRate   *yamlFrameRate  `yaml:"frame_rate,omitempty"`
	Validation  *yamlValidation `yaml:"validation,omitempty"`
	Scenes      *yamlScenes     `yaml:"scenes,omitempty"`
	Extraction  *yamlExtraction `yaml:"extraction,omitempty"`
}

type yamlValidation struct {
	Valid    bool     `yaml:"valid"`
	Info     []string `yaml:"info,omitempty"`
	Warnings []string `yaml:"warnings,omitempty"`
	Errors   []string `yaml:"errors,omitempty"`
}

type yamlScenes struct {
	Threshold float64     `yaml:"threshold"`
	Changes   []yamlScene `yaml:"changes"`
}

type yamlScene struct {
	Frame  int64   `yaml:"frame"`
	TimeMs int64   `yaml:"time_ms"`
	Score  float64 `yaml:"score"`
}

type yamlStream struct {
	Codec      string  `yaml:"codec"`
	Width      int     `yaml:"width"`
	Height     int     `yaml:"height"`
	FrameRate  string  `yaml:"frame_rate"`
	FPS        float64 `yaml:"fps"`
	TimeBase   string  `yaml:"time_base"`
	Frames     int64   `yaml:"frames"`
	DurationMs int64   `yaml:"duration_ms"`
}

type yamlKeyframes struct {
	Count   int     `yaml:"count"`
	Frames  []int64 `yaml:"frames,flow"`
	Average float64 `yaml:"average_gop"`
	Min     int64   `yaml:"min_gop"`
	Max     int64   `yaml:"max_gop"`
}

type yamlFrameRate struct {
	Variable bool    `yaml:"variable"`
	Nominal  float64 `yaml:"nominal_fps"`
	Mean     float64 `yaml:"mean_fps"`
	Min      float64 `yaml:"min_fps"`
	Max      float64 `yaml:"max_fps"`
}

type yamlExtraction struct {
	Selection string  `yaml:"selection"`
	Mode      string  `yaml:"mode"`
	Frames    int     `yaml:"frames"`
	ElapsedMs int64   `yaml:"elapsed_ms"`
	Rate      float64 `yaml:"frames_per_second"`
	Output    string  `yaml:"output,omitempty"`
}

func formatYAML(r *Report) string {
	s := r.Stream
	out := yamlReport{
		GeneratedAt: r.GeneratedAt.UTC(),
		Source:      r.Source,
		Stream: yamlStream{
			Codec:      s.Codec,
			Width:      s.Width,
			Height:     s.Height,
			FrameRate:  s.FrameRate.String(),
			FPS:        s.FrameRate.Float64(),
			TimeBase:   s.TimeBase.String(),
			Frames:     s.FrameCount,
			DurationMs: s.Duration.Milliseconds(),
		},
	}
	if g := r.Gop; g != nil {
		out.Keyframes = &yamlKeyframes{
			Count:   len(g.Keyframes),
			Frames:  g.FrameIndices(),
			Average: g.AverageGopSize,
			Min:     g.MinGopSize,
			Max:     g.MaxGopSize,
		}
	}
	if v := r.VFR; v != nil {
		out.FrameRate = &yamlFrameRate{
			Variable: v.IsVariable,
			Nominal:  v.NominalFPS,
			Mean:     v.MeanFPS,
			Min:      v.MinFPS,
			Max:      v.MaxFPS,
		}
	}
	if v := r.Validation; v != nil {
		out.Validation = &yamlValidation{
			Valid:    v.IsValid(),
			Info:     v.Info,
			Warnings: v.Warnings,
			Errors:   v.Errors,
		}
	}
	if sc := r.Scenes; sc != nil {
		out.Scenes = &yamlScenes{Threshold: sc.Threshold, Changes: []yamlScene{}}
		for _, c := range sc.Changes {
			out.Scenes.Changes = append(out.Scenes.Changes, yamlScene{
				Frame:  c.FrameNumber,
				TimeMs: c.Timestamp.Milliseconds(),
				Score:  c.Score,
			})
		}
	}
	if e := r.Extraction; e != nil {
		out.Extraction = &yamlExtraction{
			Selection: e.Selection,
			Mode:      e.Mode,
			Frames:    e.Frames,
			ElapsedMs: e.Elapsed.Milliseconds(),
			Rate:      e.FramesPerSecond(),
			Output:    e.OutputDir,
		}
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Sprintf("# error: %v\n", err)
	}
	return string(data)
}

func formatDuration(d time.Duration) string {
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	ms := (d % time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
