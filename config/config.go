// Package config loads the application configuration. Files use a kind/def envelope:
//
//	kind: pathgrid
//	def:
//	  grid:
//	    columns: 20
//	    rows: 20
//	  server:
//	    port: "8080"
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"pathgrid/grid_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Kind is the only envelope kind FromYaml accepts.
const Kind = "pathgrid"

var (
	ErrWrongKind     = errors.New("config: unexpected kind")
	ErrInvalidConfig = errors.New("config: invalid value")
)

type outerConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// AppConfig is everything the app reads from its config file.
type AppConfig struct {
	Grid   GridConfig   `yaml:"grid"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

// GridConfig sizes the grid created at startup.
type GridConfig struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`
}

// Viper lowercases keys, so multi-word fields are tagged in lower case; files may use any case.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	// Codec is the default codec of the /events endpoint: "json" or "msgpack".
	Codec string `yaml:"codec"`
	// PublishResolution is the minimum interval between page updates sent to a browser.
	PublishResolution time.Duration `yaml:"publishresolution"`
	// ClientBuffer is how many outbound events may queue per client before new ones are dropped.
	ClientBuffer int `yaml:"clientbuffer"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	return &AppConfig{
		Grid: GridConfig{Columns: 20, Rows: 20},
		Server: ServerConfig{
			Port:              "8080",
			Codec:             "json",
			PublishResolution: 20 * time.Millisecond,
			ClientBuffer:      256,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Addr is the listen address.
func (cfg *AppConfig) Addr() string {
	return cfg.Server.Host + ":" + cfg.Server.Port
}

// Validate rejects values the app cannot start with.
func (cfg *AppConfig) Validate() error {
	switch {
	case !grid_world.ValidDimension(cfg.Grid.Columns) || !grid_world.ValidDimension(cfg.Grid.Rows):
		return fmt.Errorf("grid %dx%d: %w", cfg.Grid.Columns, cfg.Grid.Rows, ErrInvalidConfig)
	case cfg.Server.ClientBuffer < 0:
		return fmt.Errorf("clientBuffer %d: %w", cfg.Server.ClientBuffer, ErrInvalidConfig)
	case cfg.Server.PublishResolution < 0:
		return fmt.Errorf("publishResolution %s: %w", cfg.Server.PublishResolution, ErrInvalidConfig)
	}
	return nil
}

// FromYaml reads the config at path over the defaults. A missing file yields the defaults.
// Viper reads the envelope; the def section is re-marshalled and decoded by yaml, so values
// the file leaves out keep their defaults.
func FromYaml(path string) (*AppConfig, error) {
	cfg := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	outer := &outerConfig{}
	if err = vp.Unmarshal(outer); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if outer.Kind != Kind {
		return nil, fmt.Errorf("%s: kind %q: %w", path, outer.Kind, ErrWrongKind)
	}

	var spec []byte
	if spec, err = yaml.Marshal(outer.Def); err != nil {
		return nil, err
	}
	if err = yaml.Unmarshal(spec, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
