package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// waitDelay bounds how long Wait keeps output pipes open after yt-dlp
// exits or is cancelled
const waitDelay = 2 * time.Second

// progressPrefix marks lines produced by the progress template below
const progressPrefix = "vgprogress\t"

// yt-dlp fills this template for every progress hook call
const progressTemplate = "download:" + progressPrefix +
	"%(progress.status)s\t%(progress._percent_str)s\t%(progress._speed_str)s\t%(progress._eta_str)s\t%(progress.filename)s"

// YTDLP drives the yt-dlp binary as a subprocess
type YTDLP struct {
	Binary string
}

// NewYTDLP returns an engine using the given binary name or path
func NewYTDLP(binary string) *YTDLP {
	if strings.TrimSpace(binary) == "" {
		binary = "yt-dlp"
	}
	return &YTDLP{Binary: binary}
}

// CheckBinary reports the resolved binary path, or an error when it is not on PATH
func (y *YTDLP) CheckBinary() (string, error) {
	path, err := exec.LookPath(y.Binary)
	if err != nil {
		return "", fmt.Errorf("missing dependency: %s is not installed or not on PATH", y.Binary)
	}
	return path, nil
}

// Probe runs a metadata-only lookup and decodes yt-dlp's JSON dump
func (y *YTDLP) Probe(ctx context.Context, query string, opts ProbeOptions) (map[string]any, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query is required")
	}

	cmd := y.command(ctx, probeArgs(query, opts))
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}

	var info map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}
	return info, nil
}

// Fetch downloads url according to opts, forwarding progress lines as events
func (y *YTDLP) Fetch(ctx context.Context, url string, opts FetchOptions) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("url is required")
	}
	if strings.TrimSpace(opts.OutputTemplate) == "" {
		return fmt.Errorf("output template is required")
	}

	cmd := y.command(ctx, fetchArgs(url, opts))

	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start yt-dlp: %w", err)
	}

	var errTail tailBuffer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		scanLines(stdoutR, func(line string) {
			if ev, ok := ParseProgressLine(line); ok && opts.Progress != nil {
				opts.Progress(ev)
			}
		})
	}()
	go func() {
		defer wg.Done()
		scanLines(stderrR, errTail.add)
	}()

	waitErr := cmd.Wait()
	_ = stdoutW.Close()
	_ = stderrW.Close()
	wg.Wait()

	if waitErr != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("yt-dlp interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("yt-dlp failed: %w: %s", waitErr, errTail.String())
	}
	return nil
}

// command builds a yt-dlp invocation whose whole process tree is
// killed when ctx is done
func (y *YTDLP) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, y.Binary, args...)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)
	return cmd
}

// ParseProgressLine decodes a line emitted through the progress template
func ParseProgressLine(line string) (ProgressEvent, bool) {
	line = strings.TrimRight(line, "\r\n")
	idx := strings.Index(line, progressPrefix)
	if idx < 0 {
		return ProgressEvent{}, false
	}
	fields := strings.SplitN(line[idx+len(progressPrefix):], "\t", 5)
	for len(fields) < 5 {
		fields = append(fields, "")
	}

	ev := ProgressEvent{
		Status:   strings.TrimSpace(fields[0]),
		Percent:  cleanField(fields[1]),
		Speed:    cleanField(fields[2]),
		ETA:      cleanField(fields[3]),
		Filename: cleanField(fields[4]),
	}
	if ev.Status == "" {
		return ProgressEvent{}, false
	}
	return ev, true
}

// cleanField drops yt-dlp's placeholder for missing values
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == "NA" || s == "Unknown" {
		return ""
	}
	return s
}

func probeArgs(query string, opts ProbeOptions) []string {
	args := []string{"-J", "--no-playlist"}
	if opts.Quiet {
		args = append(args, "--quiet")
	}
	if opts.NoWarnings {
		args = append(args, "--no-warnings")
	}
	if opts.RestrictFilename {
		args = append(args, "--restrict-filenames")
	}
	if opts.DefaultSearch != "" {
		args = append(args, "--default-search", opts.DefaultSearch)
	}
	return append(args, "--", query)
}

func fetchArgs(url string, opts FetchOptions) []string {
	args := []string{
		"--newline",
		"--no-colors",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"--progress",
		"--progress-template", progressTemplate,
		"-o", opts.OutputTemplate,
	}
	if opts.RestrictFilename {
		args = append(args, "--restrict-filenames")
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	// yt-dlp rejects audio containers here; -x picks the output extension
	if opts.MergeFormat != "" && opts.ExtractAudio == nil {
		args = append(args, "--merge-output-format", opts.MergeFormat)
	}
	if opts.MaxFilesizeMB > 0 {
		args = append(args, "--max-filesize", strconv.Itoa(opts.MaxFilesizeMB)+"M")
	}
	if opts.ExtractAudio != nil {
		args = append(args, "-x")
		if opts.ExtractAudio.Codec != "" {
			args = append(args, "--audio-format", opts.ExtractAudio.Codec)
		}
		if opts.ExtractAudio.Quality != "" {
			args = append(args, "--audio-quality", opts.ExtractAudio.Quality+"K")
		}
	}
	if opts.Section != nil {
		end := "inf"
		if opts.Section.End != nil {
			end = strconv.Itoa(*opts.Section.End)
		}
		args = append(args, "--download-sections", fmt.Sprintf("*%d-%s", opts.Section.Start, end))
	}
	return append(args, "--", url)
}

func scanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	scanner.Split(splitByNewlineOrCR)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	// drain so the process never blocks on a full pipe
	_, _ = io.Copy(io.Discard, r)
}

func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last few KiB of stderr for error messages
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	size  int
}

const maxTail = 4096

func (t *tailBuffer) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	t.size += len(line) + 1
	for t.size > maxTail && len(t.lines) > 1 {
		t.size -= len(t.lines[0]) + 1
		t.lines = t.lines[1:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
