package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"clipmato/internal/api"
	"clipmato/internal/progress"
)

// ErrUnavailable reports that no daemon API is reachable.
var ErrUnavailable = errors.New("daemon API unavailable")

// Error is a non-2xx response from the daemon.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("daemon returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the daemon HTTP API.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient returns a client for the daemon bound at bind. Wildcard hosts
// are dialed on loopback. An empty bind yields a nil client.
func NewClient(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	switch base.Hostname() {
	case "", "0.0.0.0", "::":
		base.Host = net.JoinHostPort("127.0.0.1", base.Port())
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		// Uploads stream large files, so only the dial is bounded.
		http: &http.Client{Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 3 * time.Second}).DialContext,
			ResponseHeaderTimeout: 2 * time.Minute,
		}},
	}, nil
}

// Status returns the daemon status report.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, "", &status)
	return status, err
}

// Progress returns the live status of job id.
func (c *Client) Progress(ctx context.Context, id string) (progress.Status, error) {
	var status progress.Status
	err := c.do(ctx, http.MethodGet, "/api/progress/"+url.PathEscape(id), nil, "", &status)
	return status, err
}

// AutoSchedule asks the daemon to schedule every unscheduled record.
func (c *Client) AutoSchedule(ctx context.Context, req api.AutoScheduleRequest) (api.AutoScheduleResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return api.AutoScheduleResponse{}, err
	}
	var resp api.AutoScheduleResponse
	err = c.do(ctx, http.MethodPost, "/api/schedule/auto", bytes.NewReader(body), "application/json", &resp)
	return resp, err
}

// Upload streams the file at path to the daemon. The part type is sniffed
// from the file content.
func (c *Client) Upload(ctx context.Context, path string, removeSilence bool) (api.UploadResponse, error) {
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return api.UploadResponse{}, fmt.Errorf("detect media type: %w", err)
	}
	file, err := os.Open(path)
	if err != nil {
		return api.UploadResponse{}, err
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeUpload(writer, file, filepath.Base(path), detected.String(), removeSilence))
	}()

	var resp api.UploadResponse
	err = c.do(ctx, http.MethodPost, "/api/upload", pr, writer.FormDataContentType(), &resp)
	_ = pr.Close()
	return resp, err
}

func writeUpload(writer *multipart.Writer, r io.Reader, filename, contentType string, removeSilence bool) error {
	if err := writer.WriteField("remove_silence", strconv.FormatBool(removeSilence)); err != nil {
		return err
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return writer.Close()
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, dst any) error {
	if c == nil {
		return ErrUnavailable
	}
	endpoint := c.base.ResolveReference(&url.URL{Path: path})
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &Error{StatusCode: resp.StatusCode, Message: payload.Error}
	}
	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// IsUnavailable reports whether err means the daemon could not be reached.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrUnavailable) || errors.As(err, &opErr)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
