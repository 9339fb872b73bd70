package classify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/gowqm/pkg/sample"
)

const (
	// DefaultTimeout bounds a single classifier request.
	DefaultTimeout = 10 * time.Second
	// maxBodySize caps how much of a response body is read.
	maxBodySize = 1024
)

// Link reports whether the network association is up.
type Link interface {
	Up() bool
}

// Client issues classification requests against a fixed endpoint.
type Client struct {
	endpoint string
	link     Link
	http     *http.Client

	// OnRequest, when set, is called after every attempted request.
	OnRequest func(label Label, elapsed time.Duration)
}

// New creates a Client. A zero timeout uses DefaultTimeout.
func New(endpoint string, timeout time.Duration, link Link) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		endpoint: endpoint,
		link:     link,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Classify sends the reading and returns the verdict. It makes a single
// attempt; on failure the returned label is the matching error substitute.
func (c *Client) Classify(ctx context.Context, r sample.Reading) (Label, error) {
	if c.link == nil || !c.link.Up() {
		return NoNetwork, ErrNoNetwork
	}

	start := time.Now()
	label, err := c.do(ctx, BuildURL(c.endpoint, r))
	if c.OnRequest != nil {
		c.OnRequest(label, time.Since(start))
	}
	return label, err
}

func (c *Client) do(ctx context.Context, target string) (Label, error) {
	log.Printf("GET %s", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return TransportFailure, &TransportError{Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return TransportFailure, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return TransportFailure, &TransportError{Err: fmt.Errorf("failed to read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return HTTPStatusError, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	label := ParseLabel(string(body))
	if label == Unrecognized {
		log.Printf("Unrecognized classifier response: %q", body)
	}
	return label, nil
}

// BuildURL appends the four readings to endpoint as decimal query parameters,
// in the order chlorine, turbidity, conductivity, ph.
func BuildURL(endpoint string, r sample.Reading) string {
	var b strings.Builder
	b.WriteString(endpoint)
	if strings.Contains(endpoint, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}

	params := [...]struct {
		name  string
		value float32
	}{
		{"chlorine", r.Chlorine},
		{"turbidity", r.Turbidity},
		{"conductivity", r.Conductivity},
		{"ph", r.PH},
	}
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.name)
		b.WriteByte('=')
		b.WriteString(FormatValue(p.value))
	}

	return b.String()
}

// FormatValue formats a reading value with two decimals.
func FormatValue(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', 2, 32)
}
