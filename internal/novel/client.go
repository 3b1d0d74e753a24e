package novel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// API is the backend surface used by the UI and the CLI.
// This interface is implemented by *Client and can be used for testing.
type API interface {
	ListNovels(ctx context.Context) ([]string, error)
	ListChapters(ctx context.Context, novel string, query ChapterQuery) (ChapterPage, error)
	FetchChapterStatuses(ctx context.Context, novel string, chapters []string) ([]Chapter, error)
	ParseChapter(ctx context.Context, novel, chapter, model string) error
	FetchChapterText(ctx context.Context, novel, chapter string) (string, error)
	FetchAudioManifest(ctx context.Context, novel, chapter string) (AudioManifest, error)
	FetchLogs(ctx context.Context, filter LogFilter) (string, error)
	ExportLogs(ctx context.Context, filter LogFilter, w io.Writer) (int64, error)
	FetchLogStats(ctx context.Context) (LogStats, error)
}

// Ensure Client implements API at compile time.
var _ API = (*Client)(nil)

// Client talks to the novel backend HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

const (
	DefaultAPIBase   = "http://127.0.0.1:8888/api"
	defaultUserAgent = "quill/0.1"
	requestTimeout   = 10 * time.Second
	errorBodyLimit   = 512
)

// APIError is returned when the backend answers with a non-2xx status.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// NewClient builds a Client rooted at apiBase (for example
// "http://127.0.0.1:8888/api"). A zero timeout uses the default.
func NewClient(apiBase string, timeout time.Duration) (*Client, error) {
	base, err := parseBaseURL(apiBase)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = requestTimeout
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: timeout,
		},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns a copy of the API root.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

// ResolveURL returns the absolute URL for a path relative to the API root,
// as used for audio sources listed in an AudioManifest.
func (c *Client) ResolveURL(path string) string {
	path = strings.TrimSpace(path)
	if strings.Contains(path, "://") {
		return path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	return u.String()
}

// ListNovels retrieves the novel names known to the backend.
func (c *Client) ListNovels(ctx context.Context) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var names []string
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("novels"), nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// ChapterQuery configures /novels/{novel}/chapters requests. Zero values
// request the full list.
type ChapterQuery struct {
	Page     int
	PageSize int
}

// ListChapters retrieves chapters of a novel, optionally one page at a time.
func (c *Client) ListChapters(ctx context.Context, novel string, query ChapterQuery) (ChapterPage, error) {
	if c == nil {
		return ChapterPage{}, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(novel) == "" {
		return ChapterPage{}, fmt.Errorf("novel name required")
	}
	u := c.endpoint("novels", novel, "chapters")
	values := url.Values{}
	if query.Page > 0 {
		values.Set("page", strconv.Itoa(query.Page))
	}
	if query.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(query.PageSize))
	}
	u.RawQuery = values.Encode()

	var page ChapterPage
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &page); err != nil {
		return ChapterPage{}, err
	}
	return page, nil
}

// FetchChapterStatuses retrieves the current status of the named chapters.
// The backend answers one record per requested chapter in request order; a
// count mismatch is reported as a malformed payload.
func (c *Client) FetchChapterStatuses(ctx context.Context, novel string, chapters []string) ([]Chapter, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(novel) == "" {
		return nil, fmt.Errorf("novel name required")
	}
	names := make([]string, len(chapters))
	for i, name := range chapters {
		names[i] = norm.NFC.String(name)
	}
	var records []Chapter
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("novels", novel, "chapters", "statuses"), names, &records); err != nil {
		return nil, err
	}
	if len(records) != len(names) {
		return nil, fmt.Errorf("decode response: got %d statuses for %d chapters", len(records), len(names))
	}
	return records, nil
}

// ParseChapter asks the backend to parse a chapter with the given model.
func (c *Client) ParseChapter(ctx context.Context, novel, chapter, model string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(novel) == "" || strings.TrimSpace(chapter) == "" {
		return fmt.Errorf("novel and chapter required")
	}
	u := c.endpoint("novels", novel, "chapters", chapter, "parse")
	values := url.Values{}
	if model = strings.TrimSpace(model); model != "" {
		values.Set("model", model)
	}
	u.RawQuery = values.Encode()
	return c.doJSON(ctx, http.MethodPost, u, nil, nil)
}

// FetchChapterText retrieves the raw chapter text.
func (c *Client) FetchChapterText(ctx context.Context, novel, chapter string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	return c.fetchText(ctx, c.endpoint("novels", novel, "chapters", chapter, "view"))
}

// FetchAudioManifest retrieves the audio listing for a chapter.
func (c *Client) FetchAudioManifest(ctx context.Context, novel, chapter string) (AudioManifest, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("novels", novel, "chapters", chapter, "audio_list_with_text"), nil, &raw); err != nil {
		return nil, err
	}
	return AudioManifest(raw), nil
}

// LogFilter configures /logs and /logs/export requests.
type LogFilter struct {
	Level  LogLevel
	TaskID string
	Limit  int
	Offset int
	Format ExportFormat // export only
}

func (f LogFilter) values(export bool) url.Values {
	values := url.Values{}
	if level := strings.ToLower(strings.TrimSpace(string(f.Level))); level != "" && level != string(LevelAll) {
		values.Set("level", level)
	}
	if task := strings.TrimSpace(f.TaskID); task != "" {
		values.Set("task_id", task)
	}
	if export {
		if format := strings.TrimSpace(string(f.Format)); format != "" {
			values.Set("format", format)
		}
		return values
	}
	if f.Limit > 0 {
		values.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		values.Set("offset", strconv.Itoa(f.Offset))
	}
	return values
}

// FetchLogs retrieves backend logs as raw text.
func (c *Client) FetchLogs(ctx context.Context, filter LogFilter) (string, error) {
	if c == nil {
		return "", fmt.Errorf("client is nil")
	}
	u := c.endpoint("logs")
	u.RawQuery = filter.values(false).Encode()
	return c.fetchText(ctx, u)
}

// ExportLogs streams the /logs/export body into w and returns the byte count.
func (c *Client) ExportLogs(ctx context.Context, filter LogFilter, w io.Writer) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("client is nil")
	}
	u := c.endpoint("logs", "export")
	u.RawQuery = filter.values(true).Encode()
	body, err := c.open(ctx, http.MethodGet, u, nil, "*/*")
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()
	n, err := io.Copy(w, body)
	if err != nil {
		return n, fmt.Errorf("copy export: %w", err)
	}
	return n, nil
}

// FetchLogStats retrieves log counters and the most recent entries.
func (c *Client) FetchLogStats(ctx context.Context) (LogStats, error) {
	if c == nil {
		return LogStats{}, fmt.Errorf("client is nil")
	}
	var stats LogStats
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("logs", "stats"), nil, &stats); err != nil {
		return LogStats{}, err
	}
	return stats, nil
}

// endpoint joins path segments onto the API root. Each segment is escaped on
// its own so chapter names containing '/' or '?' stay a single segment.
func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.baseURL
	plain := make([]string, len(segments))
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		seg = norm.NFC.String(seg)
		plain[i] = seg
		escaped[i] = url.PathEscape(seg)
	}
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + "/" + strings.Join(plain, "/")
	u.RawPath = strings.TrimRight(c.baseURL.EscapedPath(), "/") + "/" + strings.Join(escaped, "/")
	return &u
}

func (c *Client) fetchText(ctx context.Context, u *url.URL) (string, error) {
	body, err := c.open(ctx, http.MethodGet, u, nil, "text/plain, */*")
	if err != nil {
		return "", err
	}
	defer func() { _ = body.Close() }()
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(data), nil
}

func (c *Client) doJSON(ctx context.Context, method string, u *url.URL, payload, dest any) error {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	body, err := c.open(ctx, method, u, reqBody, "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if dest == nil {
		_, _ = io.Copy(io.Discard, body)
		return nil
	}
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// open executes a request and returns the body of a 2xx response. The caller
// closes it.
func (c *Client) open(ctx context.Context, method string, u *url.URL, body io.Reader, accept string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer func() { _ = resp.Body.Close() }()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &APIError{
			Method:     method,
			Path:       u.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	return resp.Body, nil
}

func parseBaseURL(apiBase string) (*url.URL, error) {
	trimmed := strings.TrimSpace(apiBase)
	if trimmed == "" {
		trimmed = DefaultAPIBase
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse api_base %q: %w", apiBase, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse api_base %q: missing host", apiBase)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
