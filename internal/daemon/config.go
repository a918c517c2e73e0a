package daemon

import (
	"bytes"
	"encoding"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"libdb.so/ledfx"
	"libdb.so/ledfx/internal/ledvis"
	"libdb.so/ledfx/led"
)

// Config is the configuration for the ledfx daemon.
type Config struct {
	// LEDs is the number of LEDs on the strip. If zero, it is derived from
	// the segments.
	LEDs int `toml:"leds" yaml:"leds"`
	// Rate is the number of times per second the engine is updated and a
	// frame is pushed to the outputs.
	Rate int `toml:"rate" yaml:"rate"`
	// Tick overrides Rate with an explicit tick interval.
	Tick TOMLDuration `toml:"tick" yaml:"tick"`
	// Brightness is the output brightness from 1 to 255. Zero means 255.
	Brightness int `toml:"brightness" yaml:"brightness"`
	// Gate is either "speed" or "hint".
	Gate string `toml:"gate" yaml:"gate"`
	// Seed seeds the effects' random source. Zero picks a random seed.
	Seed uint64 `toml:"seed" yaml:"seed"`
	// Segments is the list of segments, in drawing order.
	Segments []SegmentConfig `toml:"segment" yaml:"segment"`

	// Serial, if set, drives a controller board over a serial port.
	Serial *ledvis.SerialConfig `toml:"serial,omitempty" yaml:"serial,omitempty"`
	// WebSocket, if set, serves frames to WebSocket clients.
	WebSocket *ledvis.WebSocketConfig `toml:"websocket,omitempty" yaml:"websocket,omitempty"`
}

// SegmentConfig is the configuration for a range of LEDs.
type SegmentConfig struct {
	Name string `toml:"name" yaml:"name"`
	// Range is the inclusive range of LEDs the segment covers.
	Range [2]int `toml:"range" yaml:"range"`
	// Mode is the name or number of the effect.
	Mode string `toml:"mode" yaml:"mode"`
	// Colors are the segment's colors in #rrggbb notation. The first is
	// the foreground and the second the background.
	Colors []string `toml:"colors" yaml:"colors"`
	// Speed is the segment's speed in milliseconds.
	Speed int `toml:"speed" yaml:"speed"`
	// Reverse reverses the direction of the effect.
	Reverse bool `toml:"reverse" yaml:"reverse"`
}

const (
	defaultRate  = 30
	defaultBaud  = 115200
	defaultSpeed = 1000
	maxRate      = 1000
)

// DefaultConfig returns the configuration used for values missing from a
// configuration file.
func DefaultConfig() Config {
	return Config{
		Rate:       defaultRate,
		Brightness: 255,
		Gate:       ledfx.SpeedGate.String(),
	}
}

// setDefaults fills in zero values with their defaults.
func (c *Config) setDefaults() {
	def := DefaultConfig()
	if c.Rate == 0 {
		c.Rate = def.Rate
	}
	if c.Brightness == 0 {
		c.Brightness = def.Brightness
	}
	if c.Gate == "" {
		c.Gate = def.Gate
	}
	for i := range c.Segments {
		if c.Segments[i].Mode == "" {
			c.Segments[i].Mode = ledfx.Static.String()
		}
		if c.Segments[i].Speed == 0 {
			c.Segments[i].Speed = defaultSpeed
		}
	}
	if c.Serial != nil && c.Serial.Baud == 0 {
		c.Serial.Baud = defaultBaud
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Segments) == 0 {
		return errors.New("no segments configured")
	}
	if c.NumLEDs() < 1 {
		return errors.New("no LEDs configured")
	}
	if c.Tick == 0 && (c.Rate < 1 || c.Rate > maxRate) {
		return errors.Errorf("rate %d must be between 1 and %d", c.Rate, maxRate)
	}
	if c.Tick < 0 {
		return errors.Errorf("tick %s must be positive", time.Duration(c.Tick))
	}
	if c.Brightness < 0 || c.Brightness > 255 {
		return errors.Errorf("brightness %d must be between 0 and 255", c.Brightness)
	}

	if _, err := c.GatePolicy(); err != nil {
		return err
	}

	for i, seg := range c.Segments {
		if err := seg.Validate(); err != nil {
			return errors.Wrapf(err, "segment %d (%q)", i, seg.Name)
		}
	}

	if c.Serial != nil {
		if c.Serial.Device == "" {
			return errors.New("serial device must not be empty")
		}
		if n := c.NumLEDs(); n > math.MaxUint16 {
			return errors.Errorf("%d LEDs exceed the serial limit of %d", n, math.MaxUint16)
		}
	}

	return nil
}

// Validate validates the segment configuration.
func (c SegmentConfig) Validate() error {
	if _, err := ledfx.ParseMode(c.Mode); err != nil {
		return err
	}
	if _, err := c.ParseColors(); err != nil {
		return err
	}
	if c.Speed < 0 {
		return errors.Errorf("speed %d must not be negative", c.Speed)
	}
	return nil
}

// ParseColors parses the segment's colors.
func (c SegmentConfig) ParseColors() ([]led.RGBColor, error) {
	colors := make([]led.RGBColor, len(c.Colors))
	for i, s := range c.Colors {
		color, err := led.ParseRGB(s)
		if err != nil {
			return nil, errors.Wrapf(err, "color %d", i)
		}
		colors[i] = color
	}
	return colors, nil
}

// EngineConfig converts the segment configuration for the engine.
func (c SegmentConfig) EngineConfig() (ledfx.SegmentConfig, error) {
	mode, err := ledfx.ParseMode(c.Mode)
	if err != nil {
		return ledfx.SegmentConfig{}, err
	}
	colors, err := c.ParseColors()
	if err != nil {
		return ledfx.SegmentConfig{}, err
	}
	return ledfx.SegmentConfig{
		Name:    c.Name,
		Start:   c.Range[0],
		Stop:    c.Range[1],
		Mode:    mode,
		Colors:  colors,
		Speed:   c.Speed,
		Reverse: c.Reverse,
	}, nil
}

// NumLEDs returns the number of LEDs configured. If LEDs is not set, it is
// one past the highest LED covered by a segment.
func (c *Config) NumLEDs() int {
	if c.LEDs > 0 {
		return c.LEDs
	}
	var numLEDs int
	for _, seg := range c.Segments {
		numLEDs = max(numLEDs, seg.Range[0]+1, seg.Range[1]+1)
	}
	return numLEDs
}

// GatePolicy parses Gate.
func (c *Config) GatePolicy() (ledfx.GatePolicy, error) {
	var gate ledfx.GatePolicy
	err := gate.UnmarshalText([]byte(c.Gate))
	return gate, err
}

// TickInterval returns the interval between two engine updates.
func (c *Config) TickInterval() time.Duration {
	if c.Tick > 0 {
		return time.Duration(c.Tick)
	}
	return time.Second / time.Duration(max(c.Rate, 1))
}

// TOMLDuration is a duration that can be parsed from text.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a TOML configuration from a reader.
func ParseConfig(r io.Reader) (*Config, error) {
	var config Config
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode TOML config")
	}
	config.setDefaults()
	return &config, nil
}

// ParseYAML parses a YAML configuration from a reader. Unknown keys are
// rejected.
func ParseYAML(r io.Reader) (*Config, error) {
	var config Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode YAML config")
	}

	config.setDefaults()
	return &config, nil
}

// legacyConfig is the segments.json layout written by the desktop bar editor.
type legacyConfig struct {
	NumLEDs  *int `json:"num_leds"`
	Segments []struct {
		Segment legacySegment   `json:"segment"`
		Signal  json.RawMessage `json:"signal"`
	} `json:"segments"`
}

type legacySegment struct {
	Start   int     `json:"start"`
	End     int     `json:"end"`
	Color   *string `json:"color"`
	Mode    *string `json:"mode"`
	Speed   *int    `json:"speed"`
	Reverse bool    `json:"reverse"`
	Name    string  `json:"name"`
}

const (
	legacyNumLEDs    = 16
	legacyMaxNumLEDs = 10000
	legacyColor      = "#ff0000"
)

// ParseLegacyJSON parses the segments.json layout of the desktop bar editor.
// Values that layout would replace with a default are replaced the same
// way.
func ParseLegacyJSON(r io.Reader) (*Config, error) {
	var legacy legacyConfig
	if err := json.NewDecoder(r).Decode(&legacy); err != nil {
		return nil, errors.Wrap(err, "failed to decode JSON config")
	}

	config := DefaultConfig()
	config.LEDs = legacyNumLEDs
	if legacy.NumLEDs != nil && *legacy.NumLEDs >= 1 && *legacy.NumLEDs <= legacyMaxNumLEDs {
		config.LEDs = *legacy.NumLEDs
	}

	for _, s := range legacy.Segments {
		seg := s.Segment

		start := max(seg.Start, 0)
		end := max(seg.End, start)

		color := legacyColor
		if seg.Color != nil {
			if _, err := led.ParseRGB(*seg.Color); err == nil {
				color = *seg.Color
			}
		}

		mode := ledfx.Static.String()
		if seg.Mode != nil {
			mode = *seg.Mode
		}

		speed := defaultSpeed
		if seg.Speed != nil && *seg.Speed >= 0 {
			speed = max(*seg.Speed, 1)
		}

		config.Segments = append(config.Segments, SegmentConfig{
			Name:    seg.Name,
			Range:   [2]int{start, end},
			Mode:    mode,
			Colors:  []string{color},
			Speed:   speed,
			Reverse: seg.Reverse,
		})
	}

	config.setDefaults()
	return &config, nil
}

// ParseConfigFile reads a configuration file. The format is picked from the
// file extension: .yaml and .yml are YAML, .json is the legacy JSON layout,
// anything else is TOML.
func ParseConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	r := bytes.NewReader(b)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(r)
	case ".json":
		return ParseLegacyJSON(r)
	default:
		return ParseConfig(r)
	}
}
