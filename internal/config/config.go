// Package config loads the smartcache command's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"

	smartcache "github.com/probablyarth/smartcache-go"
)

// EnvPath names the environment variable that points at the config file.
const EnvPath = "SMARTCACHE_CFG"

// Server defaults.
const (
	DefaultListen  = ":8080"
	DefaultLatency = 250 * time.Millisecond
)

// File is the parsed config file.
type File struct {
	// Source is the path the file was read from, empty when none was found.
	Source string            `yaml:"-"`
	Cache  smartcache.Config `yaml:"cache"`
	Server Server            `yaml:"server"`
}

// Server configures the demo HTTP server and its simulated backend.
type Server struct {
	Listen string `yaml:"listen"`
	// Latency is how long each backend fetch takes.
	Latency time.Duration `yaml:"latency"`
	// FailPrefix makes fetches for keys with this prefix fail.
	FailPrefix string `yaml:"fail_prefix"`
}

// Path returns the config file location: SMARTCACHE_CFG if set, otherwise
// $HOME/.config/smartcache/smartcache.yaml. The second value reports whether
// a file exists there.
func Path() (string, bool) {
	path, ok := os.LookupEnv(EnvPath)
	if !ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		path = filepath.Join(home, ".config", "smartcache", "smartcache.yaml")
	}
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	return path, true
}

// Load reads the config file at path, or at Path() when path is empty.
// A missing default file yields the defaults; a missing explicit file is an
// error. The result is validated.
func Load(path string) (File, error) {
	explicit := path != ""
	if !explicit {
		path, _ = Path()
	}

	f := File{}
	bytes, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(bytes, &f); err != nil {
			return File{}, fmt.Errorf("parse %s: %w", path, err)
		}
		f.Source = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		log.WithField("path", path).Debug("no config file, using defaults")
	default:
		return File{}, err
	}

	f = f.withDefaults()
	if err := f.Cache.Validate(); err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	if f.Server.Latency < 0 {
		return File{}, fmt.Errorf("%s: server.latency must not be negative, got %s", path, f.Server.Latency)
	}
	return f, nil
}

func (f File) withDefaults() File {
	f.Cache = f.Cache.WithDefaults()
	if f.Server.Listen == "" {
		f.Server.Listen = DefaultListen
	}
	if f.Server.Latency == 0 {
		f.Server.Latency = DefaultLatency
	}
	return f
}
