package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
)

// CommandRunner runs an external binary and returns its stdout. It lets
// tests replace yt-dlp with canned output.
type CommandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s error: %v | %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// --- yt-dlp ---

type ytdlpFormat struct {
	FormatID string  `json:"format_id"`
	ACodec   string  `json:"acodec"`
	VCodec   string  `json:"vcodec"`
	Ext      string  `json:"ext"`
	Protocol string  `json:"protocol"`
	URL      string  `json:"url"`
	ABR      float64 `json:"abr"`
	TBR      float64 `json:"tbr"`
}

type ytdlpInfo struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Uploader string        `json:"uploader"`
	Duration float64       `json:"duration"`
	Formats  []ytdlpFormat `json:"formats"`
}

func fetchYTDLPInfo(ctx context.Context, runner CommandRunner, ytdlpPath, videoURL string) (ytdlpInfo, error) {
	out, err := runner.Output(ctx, ytdlpPath, "-J", "--no-warnings", "--skip-download", videoURL)
	if err != nil {
		return ytdlpInfo{}, err
	}
	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return ytdlpInfo{}, fmt.Errorf("yt-dlp metadata parse error: %v", err)
	}
	return info, nil
}

// bestAudioFormat prefers audio-only formats and falls back to anything
// carrying audio, ranked by scoreFormat.
func bestAudioFormat(formats []ytdlpFormat) (ytdlpFormat, error) {
	candidates := make([]ytdlpFormat, 0, len(formats))
	for _, f := range formats {
		if f.URL == "" {
			continue
		}
		isAudioOnly := (f.VCodec == "none" || f.VCodec == "") && f.ACodec != "none"
		if isAudioOnly {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) == 0 {
		for _, f := range formats {
			if f.URL == "" {
				continue
			}
			if f.ACodec != "none" {
				candidates = append(candidates, f)
			}
		}
	}
	if len(candidates) == 0 {
		return ytdlpFormat{}, fmt.Errorf("no usable audio formats found")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si := scoreFormat(candidates[i])
		sj := scoreFormat(candidates[j])
		if si == sj {
			return candidates[i].ABR > candidates[j].ABR
		}
		return si > sj
	})
	return candidates[0], nil
}

func scoreFormat(f ytdlpFormat) int {
	score := 0
	switch strings.ToLower(f.Ext) {
	case "m4a":
		score += 100
	case "webm":
		score += 90
	case "ogg", "opus":
		score += 85
	case "mp4":
		score += 70
	default:
		score += 60
	}
	p := strings.ToLower(f.Protocol)
	if strings.HasPrefix(p, "https") {
		score += 30
	} else if strings.HasPrefix(p, "http") {
		score += 25
	} else if strings.Contains(p, "m3u8") || strings.Contains(p, "hls") {
		score += 20
	} else if strings.Contains(p, "dash") {
		score += 15
	}
	if f.ABR > 0 {
		score += int(f.ABR)
	} else if f.TBR > 0 {
		score += int(f.TBR / 2)
	}
	return score
}

// --- ffmpeg ---

// AudioStream is the input of a transcode: either a body to pipe into
// ffmpeg's stdin or a URL ffmpeg reads itself.
type AudioStream struct {
	Body io.ReadCloser
	URL  string
}

func (s AudioStream) Close() error {
	if s.Body == nil {
		return nil
	}
	return s.Body.Close()
}

// Transcoder encodes an audio stream into an MP3 file at dst.
type Transcoder interface {
	Transcode(ctx context.Context, src AudioStream, dst string) error
}

type ffmpegTranscoder struct {
	path    string
	bitrate string
}

func newFFmpegTranscoder(path, bitrate string) *ffmpegTranscoder {
	return &ffmpegTranscoder{path: path, bitrate: bitrate}
}

// ffmpegArgs builds a constant-bitrate libmp3lame encode. The container is
// forced because dst is a temp name without the .mp3 extension.
func ffmpegArgs(input, dst, bitrate string) []string {
	return []string{
		"-y",
		"-loglevel", "error",
		"-i", input,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", "44100",
		"-b:a", bitrate,
		"-f", "mp3",
		dst,
	}
}

func (t *ffmpegTranscoder) Transcode(ctx context.Context, src AudioStream, dst string) error {
	input := src.URL
	if src.Body != nil {
		input = "pipe:0"
	}
	if input == "" {
		return fmt.Errorf("empty audio stream")
	}

	cmd := exec.CommandContext(ctx, t.path, ffmpegArgs(input, dst, t.bitrate)...)
	if src.Body != nil {
		cmd.Stdin = src.Body
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg error: %v | %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
