// Package httpclient is the HTTP client the end-to-end runner talks to the
// service under test with. It is configured from a resolved runner project.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adamkirk/panoptes/internal/runnerconfig"
)

const (
	MethodGET  = "GET"
	MethodPOST = "POST"
)

type Request struct {
	Method  string
	Path    string
	Body    map[string]interface{}
	Headers map[string]string
}

func (r *Request) ToHTTPRequest(ctx context.Context, baseURL string, defaultHeaders map[string]string) (*http.Request, error) {
	var bodyReader io.Reader
	if r.Body != nil {
		jsonBody, err := json.Marshal(r.Body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	method := r.Method
	if method == "" {
		method = MethodGET
	}

	request, err := http.NewRequestWithContext(ctx, method, joinURL(baseURL, r.Path), bodyReader)
	if err != nil {
		return nil, err
	}
	for k, v := range defaultHeaders {
		request.Header.Set(k, v)
	}
	for k, v := range r.Headers {
		request.Header.Set(k, v)
	}
	return request, nil
}

type Response struct {
	StatusCode int
	Header     http.Header
	RawBody    []byte
	// Body is the decoded JSON object, nil when the body is empty or not a
	// JSON object.
	Body map[string]interface{}
}

func (r *Response) FromHTTPResponse(resp *http.Response) error {
	r.StatusCode = resp.StatusCode
	r.Header = resp.Header
	if resp.Body == nil {
		return nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	r.RawBody = raw
	if len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, &r.Body)
	}
	return nil
}

type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
	Get(ctx context.Context, path string) (Response, error)
}

type client struct {
	client  *http.Client
	baseURL string
	headers map[string]string
}

func (c *client) Do(ctx context.Context, req Request) (Response, error) {
	httpReq, err := req.ToHTTPRequest(ctx, c.baseURL, c.headers)
	if err != nil {
		return Response{}, err
	}
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	resp := Response{}
	if err := resp.FromHTTPResponse(httpResp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (c *client) Get(ctx context.Context, path string) (Response, error) {
	return c.Do(ctx, Request{Method: MethodGET, Path: path})
}

// New builds a client for the project. Certificate verification follows
// cfg.TLSInsecure.
func New(cfg *runnerconfig.Config, project runnerconfig.RunnerProject) Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLSInsecure(project) {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // opted into by runner config
		}
	}

	httpClient := &http.Client{Transport: transport}
	if project.Use.TimeoutSeconds > 0 {
		httpClient.Timeout = time.Duration(project.Use.TimeoutSeconds) * time.Second
	}

	return &client{
		client:  httpClient,
		baseURL: project.Use.BaseURL,
		headers: project.Use.ExtraHTTPHeaders,
	}
}

func joinURL(baseURL, path string) string {
	if path == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
