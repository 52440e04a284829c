package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tunecache/internal/jobs"
	"tunecache/internal/services"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Video is the subset of yt-dlp's info JSON used by tunecache.
type Video struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Duration       *float64 `json:"duration"`
	DurationString string   `json:"duration_string"`
	Thumbnail      string   `json:"thumbnail"`
	Uploader       string   `json:"uploader"`
	Channel        string   `json:"channel"`
	ViewCount      *int64   `json:"view_count"`
	WebpageURL     string   `json:"webpage_url"`
	ExtractorKey   string   `json:"extractor_key"`
}

type infoJSON struct {
	Video
	Type    string  `json:"_type"`
	Entries []Video `json:"entries"`
}

// Identity converts the video into a content identity.
func (v Video) Identity() jobs.Identity {
	channel := v.Uploader
	if channel == "" {
		channel = v.Channel
	}
	views := int64(-1)
	if v.ViewCount != nil {
		views = *v.ViewCount
	}
	return jobs.Identity{
		ContentID: v.ID,
		Metadata: jobs.Metadata{
			Title:        v.Title,
			ThumbnailURL: v.Thumbnail,
			Channel:      channel,
			Duration:     v.durationText(),
		},
		Views:     views,
		SourceURL: v.WebpageURL,
	}
}

func (v Video) durationText() string {
	if v.DurationString != "" {
		return v.DurationString
	}
	if v.Duration == nil || *v.Duration <= 0 {
		return ""
	}
	total := int(math.Round(*v.Duration))
	hours, minutes, seconds := total/3600, (total%3600)/60, total%60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// target describes what yt-dlp should look up for a query.
type target struct {
	arg     string
	search  bool
	shortID bool
}

func classifyQuery(query string) target {
	lower := strings.ToLower(query)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return target{arg: query}
	case strings.HasPrefix(lower, "www.youtube.com/"), strings.HasPrefix(lower, "youtube.com/"),
		strings.HasPrefix(lower, "m.youtube.com/"), strings.HasPrefix(lower, "youtu.be/"),
		strings.HasPrefix(lower, "music.youtube.com/"):
		return target{arg: "https://" + query}
	case videoIDPattern.MatchString(query):
		return target{arg: WatchURL(query), shortID: true}
	default:
		return target{arg: "ytsearch1:" + query, search: true}
	}
}

// WatchURL returns the canonical page for a content id.
func WatchURL(contentID string) string {
	return "https://www.youtube.com/watch?v=" + contentID
}

// Resolve maps a link or free-text query to a content identity. Free text
// takes the top search result. A bare token that merely looks like an id
// falls back to a search when it does not resolve as one.
func (c *Client) Resolve(ctx context.Context, query string) (jobs.Identity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return jobs.Identity{}, &ResolutionError{
			Query: query,
			Err:   services.Wrap(services.ErrValidation, "resolve", "query", "query is required", nil),
		}
	}

	t := classifyQuery(query)
	video, err := c.lookup(ctx, t)
	if err != nil && t.shortID && errors.Is(err, services.ErrNotFound) {
		video, err = c.lookup(ctx, target{arg: "ytsearch1:" + query, search: true})
		t.search = true
	}
	if err != nil {
		return jobs.Identity{}, &ResolutionError{Query: query, Err: err}
	}

	identity := video.Identity()
	if identity.Metadata.Title == "" && t.search {
		identity.Metadata.Title = cases.Title(language.Und).String(query)
	}
	return identity, nil
}

func (c *Client) lookup(ctx context.Context, t target) (Video, error) {
	runCtx := ctx
	if c.resolveTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.resolveTimeout)
		defer cancel()
	}

	args := []string{"-J", "--no-playlist", "--no-check-formats", "--no-warnings"}
	args = append(args, c.cookieArgs()...)
	args = append(args, t.arg)

	stdout, stderr, err := c.exec.Output(runCtx, c.binary, args)
	if err != nil {
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			return Video{}, services.Wrap(services.ErrTimeout, "resolve", "yt-dlp", "lookup timed out", err)
		case ctx.Err() != nil:
			return Video{}, ctx.Err()
		case isUnavailable(stderr):
			return Video{}, services.Wrap(services.ErrNotFound, "resolve", "yt-dlp", lastErrorLine(stderr), err)
		default:
			return Video{}, services.Wrap(services.ErrExternalTool, "resolve", "yt-dlp", lastErrorLine(stderr), err)
		}
	}
	return parseInfo(stdout)
}

func parseInfo(payload []byte) (Video, error) {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return Video{}, services.Wrap(services.ErrValidation, "resolve", "parse", "yt-dlp returned empty output", nil)
	}
	var info infoJSON
	if err := json.Unmarshal(payload, &info); err != nil {
		return Video{}, services.Wrap(services.ErrValidation, "resolve", "parse", "decode yt-dlp json", err)
	}
	video := info.Video
	if info.Type == "playlist" || info.Entries != nil {
		if len(info.Entries) == 0 {
			return Video{}, services.Wrap(services.ErrNotFound, "resolve", "search", "no results", nil)
		}
		video = info.Entries[0]
	}
	if strings.TrimSpace(video.ID) == "" {
		return Video{}, services.Wrap(services.ErrValidation, "resolve", "parse", "yt-dlp output has no id", nil)
	}
	if err := checkSupported(video); err != nil {
		return Video{}, err
	}
	return video, nil
}

// checkSupported rejects results production cannot download: Produce fetches
// WatchURL(id), so only YouTube extractors with canonical ids qualify.
func checkSupported(v Video) error {
	key := strings.ToLower(strings.TrimSpace(v.ExtractorKey))
	if key != "" && !strings.HasPrefix(key, "youtube") {
		return services.Wrap(services.ErrValidation, "resolve", "source", fmt.Sprintf("unsupported source %q", v.ExtractorKey), nil)
	}
	if !videoIDPattern.MatchString(v.ID) {
		return services.Wrap(services.ErrValidation, "resolve", "source", fmt.Sprintf("unsupported content id %q", v.ID), nil)
	}
	return nil
}
