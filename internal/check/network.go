package check

import (
	"context"
	"fmt"
	"strings"
	"time"

	gopsnet "github.com/shirou/gopsutil/v3/net"
)

const (
	defaultBandwidthThreshold = 100 // bytes per second

	connectionEstablished = "ESTABLISHED"
)

// ActiveConnection reports activity while an established client
// connection exists on one of the configured local ports.
type ActiveConnection struct {
	name  string
	ports map[uint32]bool
}

func NewActiveConnection(name string, opts Options) (Activity, error) {
	configured := opts.StringSlice("ports")
	if len(configured) == 0 {
		return nil, errFactory.WithMessage(ErrMissingOption, "missing option ports").WithData("ports")
	}

	ports := make(map[uint32]bool, len(configured))
	for _, p := range configured {
		var port uint32
		if _, err := fmt.Sscanf(p, "%d", &port); err != nil {
			return nil, errFactory.WithMessage(ErrInvalidOptions, "ports must be integers").WithData(p)
		}
		ports[port] = true
	}

	return &ActiveConnection{name: name, ports: ports}, nil
}

func (c *ActiveConnection) Name() string { return c.name }

func (c *ActiveConnection) Check(ctx context.Context) (string, error) {
	interfaces, err := gopsnet.InterfacesWithContext(ctx)
	if err != nil {
		return "", Temporary("unable to list network interfaces", err)
	}

	ownAddresses := make(map[string]bool)
	for _, iface := range interfaces {
		for _, addr := range iface.Addrs {
			ip, _, _ := strings.Cut(addr.Addr, "/")
			// strip IPv6 zone identifiers
			ip, _, _ = strings.Cut(ip, "%")
			ownAddresses[ip] = true
		}
	}

	connections, err := gopsnet.ConnectionsWithContext(ctx, "tcp")
	if err != nil {
		return "", Temporary("unable to list connections", err)
	}

	for i := range connections {
		conn := &connections[i]
		if conn.Status != connectionEstablished || !c.ports[conn.Laddr.Port] {
			continue
		}
		if ownAddresses[conn.Laddr.IP] {
			return fmt.Sprintf("port %d is connected", conn.Laddr.Port), nil
		}
	}

	return "", nil
}

// NetworkBandwidth reports activity when the send or receive rate on one
// of the configured interfaces exceeds its threshold. Rates are computed
// against the counter sample of the previous call.
type NetworkBandwidth struct {
	name             string
	interfaces       []string
	thresholdSend    float64
	thresholdReceive float64

	previous     map[string]gopsnet.IOCountersStat
	previousTime time.Time
}

func NewNetworkBandwidth(name string, opts Options) (Activity, error) {
	interfaces := opts.StringSlice("interfaces")
	if len(interfaces) == 0 {
		return nil, errFactory.WithMessage(ErrMissingOption, "no interfaces configured").WithData("interfaces")
	}

	thresholdSend, err := opts.Float("threshold_send", defaultBandwidthThreshold)
	if err != nil {
		return nil, err
	}
	thresholdReceive, err := opts.Float("threshold_receive", defaultBandwidthThreshold)
	if err != nil {
		return nil, err
	}

	counters, err := ioCountersByInterface(context.Background())
	if err != nil {
		return nil, errFactory.Wrap(ErrInvalidOptions, err)
	}
	for _, iface := range interfaces {
		if _, ok := counters[iface]; !ok {
			return nil, errFactory.WithMessage(ErrInvalidOptions, "network interface does not exist").WithData(iface)
		}
	}

	return &NetworkBandwidth{
		name:             name,
		interfaces:       interfaces,
		thresholdSend:    thresholdSend,
		thresholdReceive: thresholdReceive,
		previous:         counters,
		previousTime:     time.Now(),
	}, nil
}

func (c *NetworkBandwidth) Name() string { return c.name }

func (c *NetworkBandwidth) Check(ctx context.Context) (string, error) {
	oldValues := c.previous
	oldTime := c.previousTime

	newValues, err := ioCountersByInterface(ctx)
	if err != nil {
		return "", Temporary("unable to read interface counters", err)
	}

	newTime := time.Now()
	if !newTime.After(oldTime) {
		return "", Temporary("called too fast, no time between calls", nil)
	}

	c.previous = newValues
	c.previousTime = newTime

	elapsed := newTime.Sub(oldTime).Seconds()
	for _, iface := range c.interfaces {
		newStat, okNew := newValues[iface]
		oldStat, okOld := oldValues[iface]
		if !okNew || !okOld {
			return "", Temporary("interface is missing: "+iface, nil)
		}

		rateSend := float64(newStat.BytesSent-oldStat.BytesSent) / elapsed
		if rateSend > c.thresholdSend {
			return fmt.Sprintf("interface %s sending rate %.1f byte/s higher than threshold %.1f",
				iface, rateSend, c.thresholdSend), nil
		}

		rateReceive := float64(newStat.BytesRecv-oldStat.BytesRecv) / elapsed
		if rateReceive > c.thresholdReceive {
			return fmt.Sprintf("interface %s receive rate %.1f byte/s higher than threshold %.1f",
				iface, rateReceive, c.thresholdReceive), nil
		}
	}

	return "", nil
}

func ioCountersByInterface(ctx context.Context) (map[string]gopsnet.IOCountersStat, error) {
	counters, err := gopsnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}

	byInterface := make(map[string]gopsnet.IOCountersStat, len(counters))
	for i := range counters {
		byInterface[counters[i].Name] = counters[i]
	}

	return byInterface, nil
}
