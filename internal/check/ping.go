package check

import (
	"context"
	"os/exec"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

// Ping reports activity while any of the configured hosts answers an
// ICMP echo. Shells out to ping(1) so no raw-socket capability is
// needed.
type Ping struct {
	name  string
	hosts []string
}

func NewPing(name string, opts Options) (Activity, error) {
	hosts := opts.StringSlice("hosts")
	if len(hosts) == 0 {
		return nil, errFactory.WithMessage(ErrMissingOption, "unable to determine hosts to ping").WithData("hosts")
	}

	return &Ping{name: name, hosts: hosts}, nil
}

func (c *Ping) Name() string { return c.name }

func (c *Ping) Check(ctx context.Context) (string, error) {
	for _, host := range c.hosts {
		cmd := exec.CommandContext(ctx, "ping", "-q", "-c", "1", host)
		if err := cmd.Run(); err != nil {
			var execErr *exec.Error
			if errors.As(err, &execErr) {
				return "", Severe("ping binary cannot be found", err)
			}
			continue
		}

		logger.Debug().Str("check", c.name).Str("host", host).Msg("Host appears to be up")

		return "host " + host + " is up", nil
	}

	return "", nil
}
