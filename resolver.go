package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kkdai/youtube/v2"
)

// StreamResolver fetches video metadata and opens the best audio-only stream.
type StreamResolver interface {
	Metadata(ctx context.Context, videoID string) (AudioMeta, error)
	Open(ctx context.Context, meta AudioMeta) (AudioStream, error)
}

func newStreamResolver(cfg Config, client *http.Client) StreamResolver {
	if cfg.StreamResolver == ResolverYTDLP {
		return &ytdlpResolver{path: cfg.YTDLPPath, runner: execRunner{}}
	}
	return &youtubeResolver{client: &youtube.Client{HTTPClient: client}}
}

func watchURL(videoID string) string {
	return WatchBaseURL + videoID
}

// --- youtube client ---

type youtubeResolver struct {
	client *youtube.Client
}

func (r *youtubeResolver) Metadata(ctx context.Context, videoID string) (AudioMeta, error) {
	video, err := r.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return AudioMeta{}, &UpstreamError{Stage: StageMetadata, Err: err}
	}
	return AudioMeta{
		ID:              video.ID,
		Title:           video.Title,
		Author:          video.Author,
		DurationSeconds: int(video.Duration.Seconds()),
	}, nil
}

func (r *youtubeResolver) Open(ctx context.Context, meta AudioMeta) (AudioStream, error) {
	video, err := r.client.GetVideoContext(ctx, meta.ID)
	if err != nil {
		return AudioStream{}, &UpstreamError{Stage: StageStream, Err: err}
	}
	format := highestAudioFormat(video.Formats.Type("audio"))
	if format == nil {
		return AudioStream{}, &UpstreamError{Stage: StageStream, Err: fmt.Errorf("no audio format available")}
	}
	body, _, err := r.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return AudioStream{}, &UpstreamError{Stage: StageStream, Err: err}
	}
	return AudioStream{Body: body}, nil
}

// highestAudioFormat picks the format with the highest reported bitrate.
func highestAudioFormat(formats youtube.FormatList) *youtube.Format {
	var best *youtube.Format
	for i := range formats {
		f := &formats[i]
		if best == nil || bitrateForFormat(f) > bitrateForFormat(best) {
			best = f
		}
	}
	return best
}

func bitrateForFormat(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	if f.AverageBitrate > 0 {
		return f.AverageBitrate
	}
	return 0
}

// --- yt-dlp ---

// ytdlpResolver resolves the stream URL during Metadata; ffmpeg then reads
// the URL directly.
type ytdlpResolver struct {
	path   string
	runner CommandRunner
}

func (r *ytdlpResolver) Metadata(ctx context.Context, videoID string) (AudioMeta, error) {
	info, err := fetchYTDLPInfo(ctx, r.runner, r.path, watchURL(videoID))
	if err != nil {
		return AudioMeta{}, &UpstreamError{Stage: StageMetadata, Err: err}
	}
	meta := AudioMeta{
		ID:              videoID,
		Title:           info.Title,
		Author:          info.Uploader,
		DurationSeconds: int(info.Duration),
	}
	if best, err := bestAudioFormat(info.Formats); err == nil {
		meta.StreamURL = best.URL
		meta.Ext = best.Ext
		meta.Abr = int(best.ABR)
	}
	return meta, nil
}

func (r *ytdlpResolver) Open(ctx context.Context, meta AudioMeta) (AudioStream, error) {
	if meta.StreamURL != "" {
		return AudioStream{URL: meta.StreamURL}, nil
	}
	info, err := fetchYTDLPInfo(ctx, r.runner, r.path, watchURL(meta.ID))
	if err != nil {
		return AudioStream{}, &UpstreamError{Stage: StageStream, Err: err}
	}
	best, err := bestAudioFormat(info.Formats)
	if err != nil {
		return AudioStream{}, &UpstreamError{Stage: StageStream, Err: err}
	}
	return AudioStream{URL: best.URL}, nil
}
