package acquisition

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/nguyentantai21042004/vidscribe/pkg/executor"
)

var (
	durationPattern = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	timePattern     = regexp.MustCompile(`time=\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// Converter normalizes media files to mono 16 kHz PCM wav using ffmpeg.
type Converter struct {
	ffmpegPath string
	runner     executor.Executor
}

// ConverterOption is a functional option for configuring Converter
type ConverterOption func(*Converter)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) ConverterOption {
	return func(c *Converter) {
		if path != "" {
			c.ffmpegPath = path
		}
	}
}

// WithExecutor sets the command executor (for testing)
func WithExecutor(exec executor.Executor) ConverterOption {
	return func(c *Converter) {
		c.runner = exec
	}
}

// NewConverter creates a new ffmpeg-based converter
func NewConverter(opts ...ConverterOption) *Converter {
	c := &Converter{
		ffmpegPath: "ffmpeg",
		runner:     executor.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Args builds the ffmpeg argument list for a conversion.
func (c *Converter) Args(input, output string, tr *TimeRange) []string {
	args := []string{"-y", "-i", input}
	if tr != nil {
		args = append(args, "-ss", tr.StartArg(), "-to", tr.EndArg())
	}
	return append(args,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		output,
	)
}

// Convert runs ffmpeg. onPercent, if set, receives 0..100 as ffmpeg reports
// its position against the input (or clip) duration.
func (c *Converter) Convert(ctx context.Context, input, output string, tr *TimeRange, onPercent func(int)) error {
	var total float64
	if tr != nil {
		total = tr.Duration().Seconds()
	}
	last := -1
	onLine := func(line string) {
		if total == 0 {
			if m := durationPattern.FindStringSubmatch(line); m != nil {
				total = hmsSeconds(m[1], m[2], m[3])
			}
			return
		}
		m := timePattern.FindStringSubmatch(line)
		if m == nil || onPercent == nil {
			return
		}
		percent := int(hmsSeconds(m[1], m[2], m[3]) * 100 / total)
		if percent > 100 {
			percent = 100
		}
		if percent > last {
			last = percent
			onPercent(percent)
		}
	}

	if _, err := c.runner.Stream(ctx, onLine, c.ffmpegPath, c.Args(input, output, tr)...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrConversion, err)
	}

	info, err := os.Stat(output)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("%w: ffmpeg produced no output", ErrConversion)
	}
	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (c *Converter) VerifyInstalled(ctx context.Context) error {
	if _, err := c.runner.Execute(ctx, c.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

func hmsSeconds(h, m, s string) float64 {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.ParseFloat(s, 64)
	return float64(hh*3600+mm*60) + ss
}
