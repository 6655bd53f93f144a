package check

import (
	"context"
	"os/exec"
	"strings"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

// Smb reports activity while smbstatus lists connected clients.
type Smb struct {
	name string
}

func NewSmb(name string, _ Options) (Activity, error) {
	return &Smb{name: name}, nil
}

func (c *Smb) Name() string { return c.name }

func (c *Smb) Check(ctx context.Context) (string, error) {
	output, err := exec.CommandContext(ctx, "smbstatus", "-b").Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return "", Severe("smbstatus binary not found", err)
		}

		return "", Temporary("unable to execute smbstatus", err)
	}

	logger.Debug().Str("check", c.name).Str("output", string(output)).Msg("Received smbstatus output")

	// connections are listed below a dashed separator line
	var connections []string
	startSeen := false
	for _, line := range strings.Split(string(output), "\n") {
		switch {
		case startSeen && strings.TrimSpace(line) != "":
			connections = append(connections, line)
		case strings.HasPrefix(line, "----"):
			startSeen = true
		}
	}

	if len(connections) > 0 {
		return "SMB clients are connected:\n" + strings.Join(connections, "\n"), nil
	}

	return "", nil
}
