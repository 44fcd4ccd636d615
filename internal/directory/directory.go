// Package directory fetches the remotely defined instance list.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/quasar/mclaunch/internal/api"
	"github.com/quasar/mclaunch/internal/core"
)

// ErrMalformed is returned when the directory answers with something that
// is not a JSON array or object.
var ErrMalformed = errors.New("malformed instance directory")

// maxBody caps the directory document size.
const maxBody = 8 << 20

// Source provides the live instance list.
type Source interface {
	Instances(ctx context.Context) ([]core.Instance, error)
}

// Client fetches the instance list over HTTP.
type Client struct {
	url    string
	client *retryablehttp.Client
	logger *slog.Logger
}

// NewClient creates a client for the directory at url.
func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{url: url, client: api.NewRetryClient(logger), logger: logger}
}

// Instances fetches and parses the directory. Any failure is returned; the
// caller decides how to treat a missing list.
func (c *Client) Instances(ctx context.Context) ([]core.Instance, error) {
	if c.url == "" {
		return nil, fmt.Errorf("instance directory: no URL configured")
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching instance directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching instance directory: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading instance directory: %w", err)
	}
	instances, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched instance directory", "instances", len(instances))
	return instances, nil
}

// Parse decodes a directory document. Both a JSON array of instances and an
// object keyed by instance name are accepted; document order is kept.
// Entries that are not objects are skipped, as are array entries without a
// name; in the keyed form the key names the instance. A whitelist that is
// absent or not an array counts as empty.
func Parse(data []byte) ([]core.Instance, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() && !root.IsObject() {
		return nil, ErrMalformed
	}

	keyed := root.IsObject()
	instances := []core.Instance{}
	root.ForEach(func(key, value gjson.Result) bool {
		fallback := ""
		if keyed {
			fallback = key.String()
		}
		if inst, ok := parseInstance(fallback, value); ok {
			instances = append(instances, inst)
		}
		return true
	})
	return instances, nil
}

// parseInstance decodes one entry. fallback names the instance when the
// entry has no name of its own.
func parseInstance(fallback string, v gjson.Result) (core.Instance, bool) {
	if !v.IsObject() {
		return core.Instance{}, false
	}
	name := v.Get("name").String()
	if name == "" {
		name = fallback
	}
	if name == "" {
		return core.Instance{}, false
	}

	inst := core.Instance{
		Name:            name,
		WhitelistActive: v.Get("whitelistActive").Type == gjson.True,
		Whitelist:       stringArray(v.Get("whitelist")),
		Status:          v.Get("status").String(),
		URL:             v.Get("url").String(),
		Verify:          v.Get("verify").Bool(),
		Ignored:         stringArray(v.Get("ignored")),
		Background:      v.Get("background").String(),
		Avatar:          v.Get("avatar").String(),
	}
	if l := v.Get("loadder"); l.Exists() && l.Type != gjson.Null {
		inst.Loader = json.RawMessage(l.Raw)
	}
	return inst, true
}

// stringArray keeps only the string entries of an array.
func stringArray(v gjson.Result) []string {
	if !v.IsArray() {
		return nil
	}
	var out []string
	v.ForEach(func(_, e gjson.Result) bool {
		if e.Type == gjson.String {
			out = append(out, e.String())
		}
		return true
	})
	return out
}

// Static is a fixed Source.
type Static []core.Instance

func (s Static) Instances(context.Context) ([]core.Instance, error) {
	return append([]core.Instance(nil), s...), nil
}
