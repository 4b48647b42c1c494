package omdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

const DefaultBaseURL = "https://www.omdbapi.com/"

// maxErrorBodyLength bounds the upstream body quoted in an HTTPStatusError, in characters.
const maxErrorBodyLength = 200

// ErrMalformedResponse means the body could not be decoded as a JSON object.
var ErrMalformedResponse = errors.New("malformed OMDb response")

// APIError is a logical failure: OMDb answered but rejected the identifier
// (Response=False). Retrying will not help.
type APIError struct {
	ID      string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("OMDb error for %s: %s", e.ID, e.Message)
}

// HTTPStatusError is returned for non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := []rune(strings.TrimSpace(strings.ToValidUTF8(e.Body, "\uFFFD")))
	if len(body) > maxErrorBodyLength {
		body = body[:maxErrorBodyLength]
	}
	if len(body) == 0 {
		return fmt.Sprintf("OMDb http %d", e.StatusCode)
	}
	return fmt.Sprintf("OMDb http %d: %s", e.StatusCode, string(body))
}

/*
	res: {
		"Title": "The Shawshank Redemption", "Year": "1994", "Rated": "R",
		"Released": "14 Oct 1994", "Runtime": "142 min", "Genre": "Drama",
		"Director": "Frank Darabont", "Actors": "Tim Robbins, Morgan Freeman, Bob Gunton",
		"imdbRating": "9.3", "imdbVotes": "2,500,000", "imdbID": "tt0111161",
		"BoxOffice": "$28,699,976", "Response": "True", ...
	}

	err: {"Response":"False","Error":"Incorrect IMDb ID."}
*/

// RawMovie is one OMDb payload exactly as received.
type RawMovie struct {
	Body   json.RawMessage
	Fields map[string]any
}

// NewRawMovie decodes body into a RawMovie. Numbers are kept as json.Number.
// The body must be exactly one UTF-8 JSON object; it is stored verbatim.
func NewRawMovie(body []byte) (*RawMovie, error) {
	if !utf8.Valid(body) {
		return nil, fmt.Errorf("%w: body is not valid UTF-8", ErrMalformedResponse)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: null body", ErrMalformedResponse)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}

	return &RawMovie{Body: json.RawMessage(bytes.TrimSpace(body)), Fields: fields}, nil
}

// Get returns the raw value stored under key, or nil.
func (m *RawMovie) Get(key string) any {
	if m == nil || m.Fields == nil {
		return nil
	}
	return m.Fields[key]
}

type Client struct {
	key     string
	baseURL string
	client  *http.Client
}

func New(apiKey, baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		key:     apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// UseDefaultClient routes requests through http.DefaultClient, which tests
// replace with a mock transport.
func (c *Client) UseDefaultClient() {
	c.client = http.DefaultClient
}

// Fetch performs a single request for imdbID. It does not retry: an *APIError
// is a logical rejection, anything else is a transient transport or decode
// failure.
// https://www.omdbapi.com/#parameters
func (c *Client) Fetch(ctx context.Context, imdbID string) (*RawMovie, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid OMDb base URL %q: %w", c.baseURL, err)
	}
	q := u.Query()
	q.Set("apikey", c.key)
	q.Set("i", imdbID)
	q.Set("plot", "short")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Keep the API key out of error messages, they end up in etl_runs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			q.Del("apikey")
			u.RawQuery = q.Encode()
			urlErr.URL = u.String()
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	movie, err := NewRawMovie(body)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(fmt.Sprint(movie.Get("Response")), "false") {
		msg := "Unknown error"
		if v, ok := movie.Get("Error").(string); ok && strings.TrimSpace(v) != "" {
			msg = v
		}
		return nil, &APIError{ID: imdbID, Message: msg}
	}

	return movie, nil
}
