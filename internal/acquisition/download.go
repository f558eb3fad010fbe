package acquisition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const copyChunkSize = 1 << 20

var youtubeHosts = map[string]bool{
	"youtu.be":        true,
	"youtube.com":     true,
	"www.youtube.com": true,
	"m.youtube.com":   true,
}

var ytdlpPercent = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)

// ValidateSourceURL accepts only absolute http and https URLs.
func ValidateSourceURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}

// IsYouTube reports whether raw points at a YouTube page.
func IsYouTube(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return youtubeHosts[strings.ToLower(u.Hostname())]
}

func (p *implPipeline) download(ctx context.Context, sourceURL, workDir string, report ProgressFunc) (string, error) {
	if err := ValidateSourceURL(sourceURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if IsYouTube(sourceURL) {
		return p.downloadYouTube(ctx, sourceURL, workDir, report)
	}
	return p.downloadDirect(ctx, sourceURL, workDir, report)
}

func (p *implPipeline) downloadDirect(ctx context.Context, sourceURL, workDir string, report ProgressFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: unexpected status %s", ErrDownload, resp.Status)
	}

	total := resp.ContentLength
	if p.maxBytes > 0 && total > p.maxBytes {
		return "", fmt.Errorf("%w: content length %d exceeds limit %d", ErrDownload, total, p.maxBytes)
	}

	target := filepath.Join(workDir, "input"+mediaSuffix(sourceURL))
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	defer out.Close()

	buf := make([]byte, copyChunkSize)
	var written int64
	lastPercent := -1
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("write download file: %w", err)
			}
			written += int64(n)
			if p.maxBytes > 0 && written > p.maxBytes {
				return "", fmt.Errorf("%w: download exceeds limit %d bytes", ErrDownload, p.maxBytes)
			}
			if total > 0 {
				percent := int(written * 100 / total)
				if percent != lastPercent {
					lastPercent = percent
					report(downloadProgress(percent), fmt.Sprintf("downloading %d%%", percent))
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("%w: %v", ErrDownload, readErr)
		}
	}

	if written == 0 {
		return "", fmt.Errorf("%w: empty response body", ErrDownload)
	}

	p.logger.Debug(ctx, "Downloaded %d bytes from %s", written, sourceURL)
	return target, nil
}

func (p *implPipeline) downloadYouTube(ctx context.Context, sourceURL, workDir string, report ProgressFunc) (string, error) {
	args := []string{
		"--no-playlist",
		"--newline",
		"--force-ipv4",
		"--socket-timeout", "30",
		"--retries", "10",
		"--fragment-retries", "10",
		"-f", "bestaudio/best",
		"-o", filepath.Join(workDir, "source.%(ext)s"),
		"--print", "after_move:filepath",
		// --print implies --quiet; keep the [download] lines coming.
		"--progress",
	}
	if strings.ContainsRune(p.ffmpeg, os.PathSeparator) {
		args = append(args, "--ffmpeg-location", p.ffmpeg)
	}
	args = append(args, sourceURL)

	onLine := func(line string) {
		m := ytdlpPercent.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			return
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return
		}
		report(downloadProgress(int(f)), fmt.Sprintf("downloading %d%%", int(f)))
	}

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			report(ProgressDownloadStart+2, fmt.Sprintf("retrying download (%d/%d)", attempt, p.attempts))
			if err := sleepCtx(ctx, time.Duration(attempt-1)*p.backoff); err != nil {
				return "", err
			}
		}

		stdout, err := p.executor.Stream(ctx, onLine, p.ytdlpPath, args...)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			p.logger.Warn(ctx, "yt-dlp attempt %d/%d failed: %v", attempt, p.attempts, err)
			continue
		}

		if file := downloadedFile(stdout, workDir); file != "" {
			return file, nil
		}
		lastErr = errors.New("yt-dlp finished but produced no file")
	}

	return "", fmt.Errorf("%w: youtube download: %v", ErrDownload, lastErr)
}

func (p *implPipeline) ResolveDirectURL(ctx context.Context, sourceURL string) (string, error) {
	if err := ValidateSourceURL(sourceURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if !IsYouTube(sourceURL) {
		return sourceURL, nil
	}

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if attempt > 1 {
			if err := sleepCtx(ctx, time.Duration(attempt-1)*p.backoff); err != nil {
				return "", err
			}
		}

		stdout, err := p.executor.Execute(ctx, p.ytdlpPath, "-g", "-f", "bestaudio/best", "--no-playlist", sourceURL)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			continue
		}
		if direct := firstLine(stdout); direct != "" {
			return direct, nil
		}
		lastErr = errors.New("yt-dlp returned no direct url")
	}

	return "", fmt.Errorf("%w: resolve direct url: %v", ErrDownload, lastErr)
}

// downloadedFile picks the path printed by yt-dlp, falling back to whatever
// source.* file landed in workDir.
func downloadedFile(stdout, workDir string) string {
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(lines[i])
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		break
	}
	matches, _ := filepath.Glob(filepath.Join(workDir, "source.*"))
	for _, m := range matches {
		if !strings.HasSuffix(m, ".part") {
			return m
		}
	}
	return ""
}

func downloadProgress(percent int) int {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return ProgressDownloadStart + percent*(ProgressDownloadEnd-ProgressDownloadStart)/100
}

func mediaSuffix(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".mp4"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	if ext == "" || len(ext) > 10 {
		return ".mp4"
	}
	return ext
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
