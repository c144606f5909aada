// Package config loads drawoverlay settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"drawoverlay/internal/state"

	"github.com/BurntSushi/toml"
)

type Config struct {
	LogLevel string `toml:"log_level"`
	Server   Server `toml:"server"`
	Client   Client `toml:"client"`
	Brush    Brush  `toml:"brush"`
}

type Server struct {
	Addr           string `toml:"addr"`
	PublicDir      string `toml:"public_dir"`
	UploadPath     string `toml:"upload_path"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
	Advertise      bool   `toml:"advertise"`
	Instance       string `toml:"instance"`
}

type Client struct {
	Endpoint        string   `toml:"endpoint"`
	Mirror          string   `toml:"mirror"`
	Image           string   `toml:"image"`
	MaxWidth        int      `toml:"max_width"`
	MaxHeight       int      `toml:"max_height"`
	Margin          int      `toml:"margin"`
	DiscoverTimeout Duration `toml:"discover_timeout"`
}

type Brush struct {
	Mode  string  `toml:"mode"`
	Color string  `toml:"color"`
	Width float64 `toml:"width"`
}

// Duration reads TOML strings such as "2s".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func Default() Config {
	return Config{
		LogLevel: "info",
		Server: Server{
			Addr:           ":8888",
			PublicDir:      "public",
			UploadPath:     "/api/save_img",
			MaxUploadBytes: 32 << 20,
			Advertise:      true,
			Instance:       "drawoverlay",
		},
		Client: Client{
			MaxWidth:        1280,
			MaxHeight:       720,
			Margin:          200,
			DiscoverTimeout: Duration{2 * time.Second},
		},
		Brush: Brush{Mode: "pen", Color: "white", Width: 3},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		slog.Warn("unknown config keys ignored", "path", path, "keys", undec)
	}
	return cfg, cfg.Validate()
}

var ErrInvalid = errors.New("invalid config")

func (c Config) Validate() error {
	var errs []error
	if _, err := c.Brush.Settings(); err != nil {
		errs = append(errs, err)
	}
	if c.Client.MaxWidth <= 0 || c.Client.MaxHeight <= 0 {
		errs = append(errs, fmt.Errorf("client viewport must be positive, got %dx%d", c.Client.MaxWidth, c.Client.MaxHeight))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server max_upload_bytes must be positive"))
	}
	if !strings.HasPrefix(c.Server.UploadPath, "/") {
		errs = append(errs, fmt.Errorf("server upload_path must start with /"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Settings converts the configured brush into render settings.
func (b Brush) Settings() (state.BrushSettings, error) {
	c, err := state.ParseColor(b.Color)
	if err != nil {
		return state.BrushSettings{}, err
	}
	s := state.BrushSettings{Mode: state.ParseDrawMode(b.Mode), Color: c, Width: b.Width}
	return s, s.Validate()
}

// Viewport is the largest area the drawing may occupy on screen.
func (c Client) Viewport() state.Size {
	return state.Size{W: c.MaxWidth, H: c.MaxHeight}
}

func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}
