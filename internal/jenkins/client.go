// Package jenkins reads job and view colors from the Jenkins JSON API.
package jenkins

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/dokzlo13/buildlight/internal/status"
)

// ErrJobNotFound is returned when Jenkins does not know a job.
var ErrJobNotFound = errors.New("jenkins job not found")

// Options configures a Client.
type Options struct {
	Host      string
	View      string // view aggregated by ViewColor; empty means all jobs
	User      string
	Token     string
	StrictSSL bool
	Timeout   time.Duration
}

// Client provides read access to Jenkins build colors.
type Client struct {
	host       string
	view       string
	user       string
	token      string
	httpClient *http.Client
}

// NewClient creates a new Jenkins client
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.StrictSSL {
		// Self-signed Jenkins certificates
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		host:  strings.TrimRight(opts.Host, "/"),
		view:  opts.View,
		user:  opts.User,
		token: opts.Token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// Close closes the client
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Host returns the Jenkins base URL
func (c *Client) Host() string {
	return c.host
}

// JobColor returns the color of a job.
func (c *Client) JobColor(ctx context.Context, jobName string) (status.BuildColor, error) {
	body, err := c.get(ctx, jobPath(jobName), "color")
	if err != nil {
		if errors.Is(err, errNotFound) {
			return "", fmt.Errorf("%w: %s", ErrJobNotFound, jobName)
		}
		return "", fmt.Errorf("failed to get color of job %s: %w", jobName, err)
	}

	color := gjson.GetBytes(body, "color")
	if !color.Exists() {
		return "", fmt.Errorf("no color in response for job %s", jobName)
	}

	return status.BuildColor(color.String()), nil
}

// ViewColor returns the aggregated color of all jobs in the configured view.
func (c *Client) ViewColor(ctx context.Context) (status.BuildColor, error) {
	path := ""
	if c.view != "" {
		path = "view/" + url.PathEscape(c.view)
	}

	body, err := c.get(ctx, path, "jobs[name,color]")
	if err != nil {
		return "", fmt.Errorf("failed to get colors of view %q: %w", c.view, err)
	}

	jobs := gjson.GetBytes(body, "jobs")
	if !jobs.Exists() {
		return "", fmt.Errorf("no jobs in response for view %q", c.view)
	}

	var colors []status.BuildColor
	jobs.ForEach(func(_, job gjson.Result) bool {
		colors = append(colors, status.BuildColor(job.Get("color").String()))
		return true
	})

	color := AggregateColors(colors)
	log.Debug().Str("view", c.view).Int("jobs", len(colors)).Str("color", string(color)).Msg("Aggregated view color")
	return color, nil
}

// AggregateColors folds job colors into one view color: red if any job is red,
// otherwise yellow if any is yellow, otherwise blue if any passed, otherwise
// notbuilt. The result is animated when any job is building.
func AggregateColors(colors []status.BuildColor) status.BuildColor {
	result := status.ColorNotBuilt
	rank := 0
	building := false

	for _, color := range colors {
		if color.Animated() {
			building = true
		}
		var r int
		switch color.Base() {
		case status.ColorRed:
			r = 3
		case status.ColorYellow:
			r = 2
		case status.ColorBlue, status.ColorGreen:
			r = 1
		}
		if r > rank {
			rank = r
			switch r {
			case 3:
				result = status.ColorRed
			case 2:
				result = status.ColorYellow
			case 1:
				result = status.ColorBlue
			}
		}
	}

	if building {
		return result.WithAnimation()
	}
	return result
}

// errNotFound marks a 404 from Jenkins.
var errNotFound = errors.New("not found")

func jobPath(jobName string) string {
	// Folder jobs are addressed as a/b/c -> job/a/job/b/job/c
	parts := strings.Split(strings.Trim(jobName, "/"), "/")
	for i, p := range parts {
		parts[i] = "job/" + url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func (c *Client) get(ctx context.Context, path, tree string) ([]byte, error) {
	u := c.host + "/"
	if path != "" {
		u += path + "/"
	}
	u += "api/json?tree=" + url.QueryEscape(tree)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON response from %s", u)
	}
	return body, nil
}
