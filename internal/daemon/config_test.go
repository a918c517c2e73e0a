package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"libdb.so/ledfx"
	"libdb.so/ledfx/internal/ledvis"
	"libdb.so/ledfx/led"
)

const tomlConfig = `
rate = 60
gate = "hint"
seed = 42

[[segment]]
name = "base"
range = [0, 15]
mode = "rainbow_cycle"
colors = ["#ff0000", "#000000"]
speed = 500

[[segment]]
name = "accent"
range = [10, 15]
mode = "TWINKLE"
reverse = true

[serial]
device = "/dev/ttyUSB0"

[websocket]
listen = ":8080"
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig(strings.NewReader(tomlConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 60, cfg.Rate)
	assert.Equal(t, 255, cfg.Brightness)
	assert.Equal(t, "hint", cfg.Gate)
	assert.Equal(t, uint64(42), cfg.Seed)
	assert.Equal(t, 16, cfg.NumLEDs())

	require.Len(t, cfg.Segments, 2)
	assert.Equal(t, SegmentConfig{
		Name:   "base",
		Range:  [2]int{0, 15},
		Mode:   "rainbow_cycle",
		Colors: []string{"#ff0000", "#000000"},
		Speed:  500,
	}, cfg.Segments[0])
	assert.Equal(t, defaultSpeed, cfg.Segments[1].Speed)
	assert.True(t, cfg.Segments[1].Reverse)

	require.NotNil(t, cfg.Serial)
	assert.Equal(t, ledvis.SerialConfig{Device: "/dev/ttyUSB0", Baud: defaultBaud}, *cfg.Serial)
	require.NotNil(t, cfg.WebSocket)
	assert.Equal(t, ":8080", cfg.WebSocket.Listen)

	gate, err := cfg.GatePolicy()
	require.NoError(t, err)
	assert.Equal(t, ledfx.HintGate, gate)
	assert.Equal(t, time.Second/60, cfg.TickInterval())
}

const yamlConfig = `
leds: 30
tick: 20ms
brightness: 128
segment:
  - name: wipe
    range: [0, 29]
    mode: color_wipe
    colors: ["#00ff00"]
    speed: 100
`

func TestParseYAML(t *testing.T) {
	cfg, err := ParseYAML(strings.NewReader(yamlConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 30, cfg.NumLEDs())
	assert.Equal(t, 128, cfg.Brightness)
	assert.Equal(t, "speed", cfg.Gate)
	assert.Equal(t, 20*time.Millisecond, cfg.TickInterval())
	assert.Nil(t, cfg.Serial)

	require.Len(t, cfg.Segments, 1)
	assert.Equal(t, [2]int{0, 29}, cfg.Segments[0].Range)
	assert.Equal(t, 100, cfg.Segments[0].Speed)
}

func TestParseYAMLUnknownField(t *testing.T) {
	_, err := ParseYAML(strings.NewReader("segments: []\n"))
	assert.Error(t, err)
}

const legacyJSON = `{
	"num_leds": 20,
	"segments": [
		{
			"segment": {
				"start": 0,
				"end": 9,
				"color": "#00ff00",
				"mode": "blink",
				"speed": 250,
				"reverse": true,
				"name": "left"
			},
			"signal": {}
		},
		{
			"segment": {"start": -3, "end": -5, "speed": -1},
			"signal": {}
		}
	]
}`

func TestParseLegacyJSON(t *testing.T) {
	cfg, err := ParseLegacyJSON(strings.NewReader(legacyJSON))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.NumLEDs())
	require.Len(t, cfg.Segments, 2)

	assert.Equal(t, SegmentConfig{
		Name:    "left",
		Range:   [2]int{0, 9},
		Mode:    "blink",
		Colors:  []string{"#00ff00"},
		Speed:   250,
		Reverse: true,
	}, cfg.Segments[0])

	assert.Equal(t, SegmentConfig{
		Range:  [2]int{0, 0},
		Mode:   "static",
		Colors: []string{"#ff0000"},
		Speed:  1000,
	}, cfg.Segments[1])
}

func TestParseLegacyJSONBadNumLEDs(t *testing.T) {
	cfg, err := ParseLegacyJSON(strings.NewReader(`{"num_leds": 0, "segments": []}`))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.NumLEDs())
}

func TestParseLegacyJSONBadColor(t *testing.T) {
	cfg, err := ParseLegacyJSON(strings.NewReader(`{
		"num_leds": 8,
		"segments": [{"segment": {"start": 0, "end": 7, "color": "reddish"}, "signal": {}}]
	}`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Len(t, cfg.Segments, 1)
	assert.Equal(t, []string{"#ff0000"}, cfg.Segments[0].Colors)
}

func TestParseConfigFile(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"ledfx.toml": tomlConfig,
		"ledfx.yml":  yamlConfig,
		"ledfx.json": legacyJSON,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

			cfg, err := ParseConfigFile(path)
			require.NoError(t, err)
			assert.NoError(t, cfg.Validate())
		})
	}

	_, err := ParseConfigFile(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Rate:       30,
			Brightness: 255,
			Gate:       "speed",
			Segments: []SegmentConfig{{
				Range:  [2]int{0, 9},
				Mode:   "static",
				Colors: []string{"#ffffff"},
				Speed:  1000,
			}},
		}
	}

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"no segments", func(c *Config) { c.Segments = nil }, "no segments"},
		{"bad rate", func(c *Config) { c.Rate = 0 }, "rate"},
		{"bad brightness", func(c *Config) { c.Brightness = 300 }, "brightness"},
		{"bad gate", func(c *Config) { c.Gate = "sometimes" }, "gate policy"},
		{"unknown mode", func(c *Config) { c.Segments[0].Mode = "disco" }, "segment 0"},
		{"bad color", func(c *Config) { c.Segments[0].Colors = []string{"red"} }, "color 0"},
		{"negative speed", func(c *Config) { c.Segments[0].Speed = -5 }, "speed"},
		{"empty serial device", func(c *Config) { c.Serial = &ledvis.SerialConfig{} }, "serial device"},
		{"too many serial LEDs", func(c *Config) {
			c.LEDs = 70000
			c.Serial = &ledvis.SerialConfig{Device: "/dev/ttyUSB0"}
		}, "serial limit"},
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.modify(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errMsg)
		})
	}
}

func TestSegmentEngineConfig(t *testing.T) {
	seg := SegmentConfig{
		Name:    "x",
		Range:   [2]int{3, 7},
		Mode:    "12",
		Colors:  []string{"#010203"},
		Speed:   10,
		Reverse: true,
	}

	got, err := seg.EngineConfig()
	require.NoError(t, err)
	assert.Equal(t, ledfx.SegmentConfig{
		Name:    "x",
		Start:   3,
		Stop:    7,
		Mode:    ledfx.Mode(12),
		Colors:  []led.RGBColor{{1, 2, 3}},
		Speed:   10,
		Reverse: true,
	}, got)
}
