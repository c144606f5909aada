package net

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

const serviceType = "_drawoverlay._tcp"

// Service is an upload server found on the local network.
type Service struct {
	Instance string
	Addr     string
	Endpoint string
}

// Advertise announces the server on the local network. The TXT record
// carries the upload path so clients can build the endpoint URL.
func Advertise(instance string, port int, uploadPath string) (*mdns.Server, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("could not get hostname: %w", err)
		}
		instance = host
	}

	info := []string{"path=" + uploadPath}
	service, err := mdns.NewMDNSService(instance, serviceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}
	return server, nil
}

// Browse collects advertised servers until timeout or ctx expires.
func Browse(ctx context.Context, timeout time.Duration) ([]Service, error) {
	entries := make(chan *mdns.ServiceEntry, 16)
	found := make(chan []Service, 1)

	go func() {
		var out []Service
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			out = append(out, serviceFromEntry(e.Name, e.AddrV4.String(), e.Port, e.InfoFields))
		}
		found <- out
	}()

	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}
	err := mdns.Query(&mdns.QueryParam{
		Service:     serviceType,
		Domain:      "local",
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	})
	close(entries)
	services := <-found
	if err != nil {
		return services, fmt.Errorf("mdns browse: %w", err)
	}
	return services, nil
}

func serviceFromEntry(name, ip string, port int, fields []string) Service {
	path := "/api/save_img"
	for _, f := range fields {
		if v, ok := strings.CutPrefix(f, "path="); ok && v != "" {
			path = v
		}
	}
	addr := fmt.Sprintf("%s:%d", ip, port)
	return Service{
		Instance: strings.TrimSuffix(name, "."+serviceType+".local."),
		Addr:     addr,
		Endpoint: "http://" + addr + path,
	}
}
