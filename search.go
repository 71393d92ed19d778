package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Searcher maps a validated query to the provider's best-ranked video.
type Searcher interface {
	Search(ctx context.Context, query string) (Candidate, error)
}

func newSearcher(cfg Config, client *http.Client) Searcher {
	if cfg.SearchProvider == SearchProviderYTDLP {
		return &ytdlpSearcher{path: cfg.YTDLPPath, runner: execRunner{}}
	}
	return &webSearcher{baseURL: SearchBaseURL, client: client}
}

// --- web ---

// webSearcher reads the result list the search page embeds as ytInitialData.
type webSearcher struct {
	baseURL string
	client  *http.Client
}

func (s *webSearcher) Search(ctx context.Context, query string) (Candidate, error) {
	u := s.baseURL + "?" + url.Values{"search_query": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Candidate{}, &UpstreamError{Stage: StageSearch, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return Candidate{}, &UpstreamError{Stage: StageSearch, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Candidate{}, &UpstreamError{Stage: StageSearch, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	items, err := parseSearchPage(resp.Body)
	if err != nil {
		return Candidate{}, &UpstreamError{Stage: StageSearch, Err: err}
	}
	if len(items) == 0 {
		return Candidate{}, ErrNoResults
	}
	return items[0], nil
}

var initialDataMarkers = []string{
	"var ytInitialData = ",
	`window["ytInitialData"] = `,
}

// parseSearchPage extracts video results, in page order, from a search page.
func parseSearchPage(r io.Reader) ([]Candidate, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var raw string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		for _, marker := range initialDataMarkers {
			if i := strings.Index(text, marker); i >= 0 {
				raw = text[i+len(marker):]
				return false
			}
		}
		return true
	})
	if raw == "" {
		return nil, fmt.Errorf("ytInitialData not found")
	}

	var data ytInitialData
	dec := json.NewDecoder(strings.NewReader(raw))
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode ytInitialData: %w", err)
	}

	var out []Candidate
	for _, section := range data.Contents.TwoColumnSearchResultsRenderer.PrimaryContents.SectionListRenderer.Contents {
		for _, item := range section.ItemSectionRenderer.Contents {
			v := item.VideoRenderer
			if v == nil || v.VideoID == "" {
				continue
			}
			out = append(out, Candidate{
				ID:              v.VideoID,
				Title:           v.Title.text(),
				DurationSeconds: parseLengthText(v.LengthText.SimpleText),
			})
		}
	}
	return out, nil
}

type ytText struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (t ytText) text() string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	var b strings.Builder
	for _, r := range t.Runs {
		b.WriteString(r.Text)
	}
	return b.String()
}

type ytVideoRenderer struct {
	VideoID    string `json:"videoId"`
	Title      ytText `json:"title"`
	LengthText ytText `json:"lengthText"`
}

type ytInitialData struct {
	Contents struct {
		TwoColumnSearchResultsRenderer struct {
			PrimaryContents struct {
				SectionListRenderer struct {
					Contents []struct {
						ItemSectionRenderer struct {
							Contents []struct {
								VideoRenderer *ytVideoRenderer `json:"videoRenderer"`
							} `json:"contents"`
						} `json:"itemSectionRenderer"`
					} `json:"contents"`
				} `json:"sectionListRenderer"`
			} `json:"primaryContents"`
		} `json:"twoColumnSearchResultsRenderer"`
	} `json:"contents"`
}

// parseLengthText converts "h:mm:ss" / "m:ss" into seconds; unknown input is 0.
func parseLengthText(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	total := 0
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// --- yt-dlp ---

type ytdlpSearcher struct {
	path   string
	runner CommandRunner
}

type ytdlpSearchResult struct {
	Entries []struct {
		ID       string  `json:"id"`
		Title    string  `json:"title"`
		Duration float64 `json:"duration"`
	} `json:"entries"`
}

func (s *ytdlpSearcher) Search(ctx context.Context, query string) (Candidate, error) {
	out, err := s.runner.Output(ctx, s.path, "ytsearch1:"+query, "--flat-playlist", "-J", "--no-warnings")
	if err != nil {
		return Candidate{}, &UpstreamError{Stage: StageSearch, Err: err}
	}
	var res ytdlpSearchResult
	if err := json.Unmarshal(out, &res); err != nil {
		return Candidate{}, &UpstreamError{Stage: StageSearch, Err: fmt.Errorf("yt-dlp search parse error: %v", err)}
	}
	for _, e := range res.Entries {
		if e.ID == "" {
			continue
		}
		return Candidate{ID: e.ID, Title: e.Title, DurationSeconds: int(e.Duration)}, nil
	}
	return Candidate{}, ErrNoResults
}
