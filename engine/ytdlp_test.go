package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinary writes an executable shell script standing in for yt-dlp
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestParseProgressLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want ProgressEvent
		ok   bool
	}{
		{
			name: "downloading",
			line: "vgprogress\tdownloading\t 42.3%\t1.50MiB/s\t00:12\t/tmp/abc_Title.f137.mp4",
			want: ProgressEvent{Status: "downloading", Percent: "42.3%", Speed: "1.50MiB/s", ETA: "00:12", Filename: "/tmp/abc_Title.f137.mp4"},
			ok:   true,
		},
		{
			name: "finished with placeholders",
			line: "vgprogress\tfinished\t100%\tNA\tUnknown\t/tmp/abc_Title.mp4\r\n",
			want: ProgressEvent{Status: "finished", Percent: "100%", Filename: "/tmp/abc_Title.mp4"},
			ok:   true,
		},
		{
			name: "filename containing tabs is kept whole",
			line: "vgprogress\tfinished\t100%\t\t\t/tmp/a\tb.mp4",
			want: ProgressEvent{Status: "finished", Percent: "100%", Filename: "/tmp/a\tb.mp4"},
			ok:   true,
		},
		{
			name: "truncated line pads missing fields",
			line: "vgprogress\tdownloading\t5.0%",
			want: ProgressEvent{Status: "downloading", Percent: "5.0%"},
			ok:   true,
		},
		{
			name: "plain output is ignored",
			line: "[youtube] abc: Downloading webpage",
		},
		{
			name: "empty status is ignored",
			line: "vgprogress\t\t1%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProgressLine(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProbeArgs(t *testing.T) {
	args := probeArgs("ytsearch:lofi", ProbeOptions{Quiet: true, NoWarnings: true, RestrictFilename: true, DefaultSearch: "ytsearch"})
	assert.Equal(t, []string{
		"-J", "--no-playlist", "--quiet", "--no-warnings", "--restrict-filenames",
		"--default-search", "ytsearch", "--", "ytsearch:lofi",
	}, args)

	assert.Equal(t, []string{"-J", "--no-playlist", "--", "https://youtu.be/x"}, probeArgs("https://youtu.be/x", ProbeOptions{}))
}

func TestFetchArgs(t *testing.T) {
	end := 90
	args := fetchArgs("https://youtu.be/x", FetchOptions{
		Format:           "bestvideo+bestaudio",
		OutputTemplate:   "/data/id_%(title)s.%(ext)s",
		MergeFormat:      "mp4",
		MaxFilesizeMB:    500,
		Section:          &Section{Start: 30, End: &end},
		RestrictFilename: true,
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "--newline")
	assert.Contains(t, joined, "--progress-template "+progressTemplate)
	assert.Contains(t, joined, "-o /data/id_%(title)s.%(ext)s")
	assert.Contains(t, joined, "--restrict-filenames")
	assert.Contains(t, joined, "-f bestvideo+bestaudio")
	assert.Contains(t, joined, "--merge-output-format mp4")
	assert.Contains(t, joined, "--max-filesize 500M")
	assert.NotContains(t, joined, " -x")
	assert.Contains(t, joined, "--download-sections *30-90")
	assert.Equal(t, []string{"--", "https://youtu.be/x"}, args[len(args)-2:])
}

func TestFetchArgsAudioExtractionSkipsMergeFormat(t *testing.T) {
	args := fetchArgs("https://youtu.be/x", FetchOptions{
		Format:         "bestaudio/best",
		OutputTemplate: "/data/id_%(title)s.%(ext)s",
		MergeFormat:    "mp3",
		ExtractAudio:   &AudioExtraction{Codec: "mp3", Quality: "192"},
	})

	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-x --audio-format mp3 --audio-quality 192K")
	assert.NotContains(t, joined, "--merge-output-format")
}

func TestFetchArgsOptionalFlags(t *testing.T) {
	args := fetchArgs("https://youtu.be/x", FetchOptions{
		OutputTemplate: "/data/id_%(title)s.%(ext)s",
		Section:        &Section{Start: 5},
	})

	joined := strings.Join(args, " ")
	assert.NotContains(t, joined, "--max-filesize")
	assert.NotContains(t, joined, " -x")
	assert.NotContains(t, joined, " -f ")
	assert.Contains(t, joined, "--download-sections *5-inf")
}

func TestSplitByNewlineOrCR(t *testing.T) {
	var lines []string
	scanLines(strings.NewReader("one\rtwo\r\nthree\n\nfour"), func(s string) {
		lines = append(lines, s)
	})
	assert.Equal(t, []string{"one", "two", "three", "four"}, lines)
}

func TestTailBufferKeepsNewestLines(t *testing.T) {
	var tail tailBuffer
	long := strings.Repeat("x", 1000)
	for i := 0; i < 10; i++ {
		tail.add(long)
	}
	tail.add("ERROR: final line")
	tail.add("   ")

	s := tail.String()
	assert.LessOrEqual(t, len(s), maxTail)
	assert.True(t, strings.HasSuffix(s, "ERROR: final line"))
}

func TestYTDLPProbe(t *testing.T) {
	bin := fakeBinary(t, `echo '{"title":"Fake","duration":61,"formats":[{"format_id":"18","height":360}]}'`)

	info, err := NewYTDLP(bin).Probe(context.Background(), "https://youtu.be/x", ProbeOptions{Quiet: true})
	require.NoError(t, err)
	assert.Equal(t, "Fake", info["title"])
	assert.Equal(t, float64(61), info["duration"])
}

func TestYTDLPProbeFailure(t *testing.T) {
	bin := fakeBinary(t, `echo "ERROR: [youtube] x: Video unavailable" >&2
exit 1`)

	_, err := NewYTDLP(bin).Probe(context.Background(), "https://youtu.be/x", ProbeOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Video unavailable")
}

func TestYTDLPProbeEmptyOutput(t *testing.T) {
	bin := fakeBinary(t, "exit 0")

	_, err := NewYTDLP(bin).Probe(context.Background(), "https://youtu.be/x", ProbeOptions{})
	assert.ErrorContains(t, err, "empty output")
}

func TestYTDLPFetchReportsProgress(t *testing.T) {
	bin := fakeBinary(t, `printf '[youtube] x: Downloading webpage\n'
printf 'vgprogress\tdownloading\t 10.0%%\t1.00MiB/s\t00:09\t/tmp/x.mp4\n'
printf 'vgprogress\tdownloading\t 90.0%%\t1.00MiB/s\t00:01\t/tmp/x.mp4\r'
printf 'vgprogress\tfinished\t100%%\tNA\tNA\t/tmp/x.mp4\n'
`)

	var events []ProgressEvent
	err := NewYTDLP(bin).Fetch(context.Background(), "https://youtu.be/x", FetchOptions{
		OutputTemplate: "/tmp/id_%(title)s.%(ext)s",
		Progress:       func(ev ProgressEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "10.0%", events[0].Percent)
	assert.Equal(t, "90.0%", events[1].Percent)
	assert.Equal(t, StatusFinished, events[2].Status)
	assert.Equal(t, "/tmp/x.mp4", events[2].Filename)
}

func TestYTDLPFetchFailureIncludesStderr(t *testing.T) {
	bin := fakeBinary(t, `echo "WARNING: something odd" >&2
echo "ERROR: unable to download video data: HTTP Error 403: Forbidden" >&2
exit 1`)

	err := NewYTDLP(bin).Fetch(context.Background(), "https://youtu.be/x", FetchOptions{OutputTemplate: "/tmp/%(title)s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP Error 403")
}

func TestYTDLPFetchCancelKillsChildProcesses(t *testing.T) {
	bin := fakeBinary(t, `sleep 30 &
sleep 30
`)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewYTDLP(bin).Fetch(ctx, "https://youtu.be/x", FetchOptions{OutputTemplate: "/tmp/%(title)s"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interrupted")
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestYTDLPFetchValidation(t *testing.T) {
	y := NewYTDLP("")
	assert.Equal(t, "yt-dlp", y.Binary)
	assert.Error(t, y.Fetch(context.Background(), "", FetchOptions{OutputTemplate: "x"}))
	assert.Error(t, y.Fetch(context.Background(), "https://youtu.be/x", FetchOptions{}))
}

func TestCheckBinary(t *testing.T) {
	_, err := NewYTDLP("definitely-not-a-real-binary-vidgrab").CheckBinary()
	assert.ErrorContains(t, err, "not installed")

	bin := fakeBinary(t, "exit 0")
	path, err := NewYTDLP(bin).CheckBinary()
	require.NoError(t, err)
	assert.Equal(t, bin, path)
}
