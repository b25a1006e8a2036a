package net

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service relays advertise themselves under.
const ServiceType = "_collabboard._tcp"

// DefaultBrowseTimeout bounds a discovery query.
const DefaultBrowseTimeout = 3 * time.Second

// Relay is a relay found on the local network.
type Relay struct {
	Instance string
	Host     string
	Addr     string // host:port, ready for ShareLink or RelayURL
	Info     []string
}

// Advertise publishes a relay listening on port over mDNS. An empty
// instance name falls back to the hostname. Call Shutdown on the returned
// server to withdraw the advertisement.
func Advertise(instance string, port int) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	var ips []net.IP
	if ip, err := GetOutgoingIP(); err == nil {
		if parsed := net.ParseIP(ip); parsed != nil {
			ips = []net.IP{parsed}
		}
	}

	service, err := mdns.NewMDNSService(
		instance,
		ServiceType,
		"",
		"",
		port,
		ips,
		[]string{"CollabBoard", "path=/"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse queries the local network for relays and calls found for each
// one, returning once timeout has passed.
func Browse(timeout time.Duration, found func(Relay)) error {
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := map[string]bool{}
		for e := range entries {
			r, ok := relayFromEntry(e)
			if !ok || seen[r.Addr] {
				continue
			}
			seen[r.Addr] = true
			found(r)
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	if err != nil {
		return fmt.Errorf("mDNS query failed: %w", err)
	}
	return nil
}

// relayFromEntry keeps IPv4 answers for our service type only.
func relayFromEntry(e *mdns.ServiceEntry) (Relay, bool) {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return Relay{}, false
	}
	if !strings.Contains(e.Name, ServiceType) {
		return Relay{}, false
	}
	instance := strings.TrimSuffix(e.Name, "."+ServiceType+".local.")
	return Relay{
		Instance: instance,
		Host:     strings.TrimSuffix(e.Host, "."),
		Addr:     net.JoinHostPort(e.AddrV4.String(), fmt.Sprint(e.Port)),
		Info:     e.InfoFields,
	}, true
}
