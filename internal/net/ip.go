package net

import (
	"fmt"
	"log/slog"
	"net"
)

// ShareURL is the address other machines on the LAN can reach the server
// at.
func ShareURL(port int) string {
	return fmt.Sprintf("http://%s:%d", outgoingIP(), port)
}

func outgoingIP() string {
	// No packets are sent; dialing UDP only selects the outbound interface.
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err == nil {
		defer conn.Close()
		return conn.LocalAddr().(*net.UDPAddr).IP.String()
	}

	addrs, err := net.InterfaceAddrs()
	if err == nil {
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok && !ipnet.IP.IsLoopback() && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	slog.Warn("no LAN address found, share URL uses loopback")
	return "127.0.0.1"
}
