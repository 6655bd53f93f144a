package check

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tidwall/gjson"
)

const (
	defaultKodiURL      = "http://localhost:8080/jsonrpc"
	defaultKodiIdleTime = 120 // seconds
)

func kodiRequestURL(opts Options, rpc string) Options {
	base := opts.String("url", defaultKodiURL)

	// the fetcher validates the resulting URL
	patched := Options{}
	for k, v := range opts {
		patched[k] = v
	}
	patched["url"] = base + "?request=" + url.QueryEscape(rpc)

	return patched
}

// Kodi reports activity while a Kodi instance is playing media.
type Kodi struct {
	name               string
	fetcher            *fetcher
	suspendWhilePaused bool
}

func NewKodi(name string, opts Options) (Activity, error) {
	suspendWhilePaused, err := opts.Bool("suspend_while_paused", false)
	if err != nil {
		return nil, err
	}

	rpc := `{"jsonrpc": "2.0", "id": 1, "method": "Player.GetActivePlayers"}`
	if suspendWhilePaused {
		rpc = `{"jsonrpc": "2.0", "id": 1, "method": "XBMC.GetInfoBooleans", "params": {"booleans": ["Player.Playing"]}}`
	}

	f, err := newFetcher(kodiRequestURL(opts, rpc))
	if err != nil {
		return nil, err
	}

	return &Kodi{name: name, fetcher: f, suspendWhilePaused: suspendWhilePaused}, nil
}

func (c *Kodi) Name() string { return c.name }

func (c *Kodi) Check(ctx context.Context) (string, error) {
	body, err := c.fetcher.fetch(ctx)
	if err != nil {
		return "", err
	}

	if !gjson.ValidBytes(body) {
		return "", Temporary("unable to parse Kodi response", nil)
	}

	result := gjson.GetBytes(body, "result")
	if !result.Exists() {
		return "", Temporary("no result in Kodi response", nil)
	}

	if c.suspendWhilePaused {
		if result.Get("Player\\.Playing").Bool() {
			return "Kodi actively playing media", nil
		}

		return "", nil
	}

	if result.IsArray() && len(result.Array()) > 0 {
		return "Kodi currently playing", nil
	}

	return "", nil
}

// KodiIdleTime reports activity when someone has interacted with Kodi
// within the configured idle time.
type KodiIdleTime struct {
	name     string
	fetcher  *fetcher
	idleTime int
}

func NewKodiIdleTime(name string, opts Options) (Activity, error) {
	idleTime, err := opts.Int("idle_time", defaultKodiIdleTime)
	if err != nil {
		return nil, err
	}

	rpc := fmt.Sprintf(
		`{"jsonrpc": "2.0", "id": 1, "method": "XBMC.GetInfoBooleans", "params": {"booleans": ["System.IdleTime(%d)"]}}`,
		idleTime)

	f, err := newFetcher(kodiRequestURL(opts, rpc))
	if err != nil {
		return nil, err
	}

	return &KodiIdleTime{name: name, fetcher: f, idleTime: idleTime}, nil
}

func (c *KodiIdleTime) Name() string { return c.name }

func (c *KodiIdleTime) Check(ctx context.Context) (string, error) {
	body, err := c.fetcher.fetch(ctx)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("System\\.IdleTime(%d)", c.idleTime)
	idle := gjson.GetBytes(body, "result."+key)
	if !idle.Exists() {
		return "", Temporary("unable to get or parse Kodi state", nil)
	}

	if !idle.Bool() {
		return "someone interacts with Kodi", nil
	}

	return "", nil
}
