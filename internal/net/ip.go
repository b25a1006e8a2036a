package net

import (
	"log/slog"
	"net"
)

// GetOutgoingIP finds the preferred local IP address for the relay to share.
func GetOutgoingIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		// No route out, so look at the interfaces instead.
		return firstIPv4().String(), nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// firstIPv4 returns the first IPv4 address of an interface that is up and
// not a loopback, or 127.0.0.1 if there is none.
func firstIPv4() net.IP {
	ifaces, _ := net.Interfaces()
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, _ := iface.Addrs()
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.To4()
			}
		}
	}
	slog.Warn("no suitable local IP found, share links will use loopback")
	return net.IPv4(127, 0, 0, 1)
}
