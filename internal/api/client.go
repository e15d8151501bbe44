package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"memorylens/internal/model"
)

const (
	DefaultBaseURL       = "http://localhost:8000/api"
	defaultTimeout       = 30 * time.Second
	DefaultUploadTimeout = 10 * time.Minute
	maxErrorBody         = 4 << 10
)

// Client talks to the image backend REST API.
type Client struct {
	baseURL string
	http    *http.Client
	// upload shares the transport of http but has its own deadline, since a
	// large file on a slow link legitimately outlives the API timeout.
	upload        *http.Client
	uploadTimeout time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every call except Upload.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithUploadTimeout bounds a whole upload. Zero leaves uploads bounded only by
// the caller's context.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.uploadTimeout = d
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: defaultTimeout},
		uploadTimeout: DefaultUploadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	uc := *c.http
	uc.Timeout = c.uploadTimeout
	c.upload = &uc
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// RequestOption adjusts a single outgoing request.
type RequestOption func(*http.Request)

// Bearer attaches an Authorization header. An empty token sends the request
// anonymously.
func Bearer(token string) RequestOption {
	return func(r *http.Request) {
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

type listResponse struct {
	Images []model.Image `json:"images"`
}

type searchResponse struct {
	Results []model.Image `json:"results"`
}

type tagsResponse struct {
	Tags []model.Tag `json:"tags"`
}

// Upload streams file as multipart field "file" and returns the created record.
func (c *Client) Upload(ctx context.Context, file model.File, onProgress ProgressFunc, opts ...RequestOption) (model.Image, error) {
	src, err := file.Open()
	if err != nil {
		return model.Image{}, fmt.Errorf("open %s: %w", file.Name(), err)
	}
	defer src.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	done := make(chan struct{})
	go func() {
		defer close(done)
		part, err := mw.CreatePart(filePartHeader(file))
		if err == nil {
			_, err = io.Copy(part, newProgressReader(src, file.Size(), onProgress))
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	defer func() {
		pr.Close()
		<-done
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/images/upload", nil, pr)
	if err != nil {
		return model.Image{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var img model.Image
	if err := c.send(c.upload, req, &img, opts); err != nil {
		return model.Image{}, err
	}
	return img, nil
}

// List returns all images matching the optional filter parameters.
func (c *Client) List(ctx context.Context, filters url.Values, opts ...RequestOption) ([]model.Image, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/images", filters, nil)
	if err != nil {
		return nil, err
	}
	var out listResponse
	if err := c.do(req, &out, opts); err != nil {
		return nil, err
	}
	return nonNil(out.Images), nil
}

func (c *Client) Get(ctx context.Context, id string, opts ...RequestOption) (model.Image, error) {
	if id == "" {
		return model.Image{}, ErrEmptyID
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/images/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return model.Image{}, err
	}
	var img model.Image
	if err := c.do(req, &img, opts); err != nil {
		return model.Image{}, err
	}
	return img, nil
}

func (c *Client) Delete(ctx context.Context, id string, opts ...RequestOption) error {
	if id == "" {
		return ErrEmptyID
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/images/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil, opts)
}

// Search sends query together with filters and returns matches in server order.
func (c *Client) Search(ctx context.Context, query string, filters url.Values, opts ...RequestOption) ([]model.Image, error) {
	params := url.Values{}
	for k, v := range filters {
		params[k] = append([]string(nil), v...)
	}
	params.Set("query", query)

	req, err := c.newRequest(ctx, http.MethodGet, "/search", params, nil)
	if err != nil {
		return nil, err
	}
	var out searchResponse
	if err := c.do(req, &out, opts); err != nil {
		return nil, err
	}
	return nonNil(out.Results), nil
}

func (c *Client) Tags(ctx context.Context, opts ...RequestOption) ([]model.Tag, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/tags", nil, nil)
	if err != nil {
		return nil, err
	}
	var out tagsResponse
	if err := c.do(req, &out, opts); err != nil {
		return nil, err
	}
	if out.Tags == nil {
		out.Tags = []model.Tag{}
	}
	return out.Tags, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any, opts []RequestOption) error {
	return c.send(c.http, req, out, opts)
}

func (c *Client) send(hc *http.Client, req *http.Request, out any, opts []RequestOption) error {
	for _, opt := range opts {
		opt(req)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode == http.StatusUnauthorized {
			log.Printf("api_unauthorized method=%s path=%s", req.Method, req.URL.Path)
		}
		return &StatusError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(file model.File) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(file.Name())))
	ct := file.ContentType()
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	return h
}

func nonNil(images []model.Image) []model.Image {
	if images == nil {
		return []model.Image{}
	}
	return images
}
