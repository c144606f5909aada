package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"drawoverlay/internal/config"
	"drawoverlay/internal/net"
	"drawoverlay/internal/ui"

	"github.com/gogpu/gg"
	"github.com/tdewolff/argp"
)

// Draw opens the desktop drawing window.
type Draw struct {
	Config   string `short:"c" desc:"TOML configuration file"`
	Image    string `short:"i" desc:"Background image path or URL"`
	Endpoint string `short:"e" desc:"Upload endpoint URL, discovered on the LAN when empty"`
	Mirror   string `short:"m" desc:"Mirror hub websocket URL"`
}

type Serve struct {
	Config      string `short:"c" desc:"TOML configuration file"`
	Addr        string `short:"a" desc:"Listen address"`
	Public      string `short:"p" desc:"Directory saved drawings are written to and served from"`
	NoAdvertise bool   `desc:"Do not advertise the server over mDNS"`
}

type Discover struct {
	Config string `short:"c" desc:"TOML configuration file"`
}

func main() {
	root := argp.NewCmd(&Draw{}, "Sketch over an image and upload the result")
	root.AddCmd(&Serve{}, "serve", "Run the upload server")
	root.AddCmd(&Compose{}, "compose", "Render recorded segments over an image without a window")
	root.AddCmd(&Discover{}, "discover", "List upload servers on the local network")
	root.Parse()
	root.PrintHelp()
}

// loadConfig reads the configuration and installs the logger it asks for.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	gg.SetLogger(logger.With("component", "gg"))
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func (cmd *Draw) Run() error {
	cfg, err := loadConfig(cmd.Config)
	if err != nil {
		return err
	}
	if cmd.Image != "" {
		cfg.Client.Image = cmd.Image
	}
	if cmd.Endpoint != "" {
		cfg.Client.Endpoint = cmd.Endpoint
	}
	if cmd.Mirror != "" {
		cfg.Client.Mirror = cmd.Mirror
	}
	if cfg.Client.Image == "" {
		return argp.ShowUsage
	}

	ctx, cancel := signalContext()
	defer cancel()
	return ui.RunApp(ctx, cfg)
}

func (cmd *Serve) Run() error {
	cfg, err := loadConfig(cmd.Config)
	if err != nil {
		return err
	}
	if cmd.Addr != "" {
		cfg.Server.Addr = cmd.Addr
	}
	if cmd.Public != "" {
		cfg.Server.PublicDir = cmd.Public
	}
	if cmd.NoAdvertise {
		cfg.Server.Advertise = false
	}

	srv, err := net.NewServer(cfg.Server)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return srv.Run(ctx)
}

func (cmd *Discover) Run() error {
	cfg, err := loadConfig(cmd.Config)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	services, err := net.Browse(ctx, cfg.Client.DiscoverTimeout.Duration)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		fmt.Println("no servers found")
		return nil
	}
	for _, s := range services {
		fmt.Printf("%s\t%s\t%s\n", s.Instance, s.Addr, s.Endpoint)
	}
	return nil
}
