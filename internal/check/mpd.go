package check

import (
	"context"
	"fmt"

	"github.com/fhs/gompd/v2/mpd"
)

const (
	defaultMpdHost = "localhost"
	defaultMpdPort = 6600
)

// Mpd reports activity while the configured MPD server is playing.
type Mpd struct {
	name    string
	address string
}

func NewMpd(name string, opts Options) (Activity, error) {
	host := opts.String("host", defaultMpdHost)
	port, err := opts.Int("port", defaultMpdPort)
	if err != nil {
		return nil, err
	}

	return &Mpd{
		name:    name,
		address: fmt.Sprintf("%s:%d", host, port),
	}, nil
}

func (c *Mpd) Name() string { return c.name }

func (c *Mpd) Check(_ context.Context) (string, error) {
	client, err := mpd.DialAuthenticated("tcp", c.address, "")
	if err != nil {
		return "", Temporary("unable to connect to MPD at "+c.address, err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return "", Temporary("unable to get the current MPD state", err)
	}

	if status["state"] == "play" {
		return "MPD currently playing", nil
	}

	return "", nil
}
