package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
)

// File is the optional repo-local settings file (drover.toml). Its values
// act as defaults; explicit flags and environment variables win.
type File struct {
	Trunk        string `toml:"trunk"`
	Remote       string `toml:"remote"`
	Build        string `toml:"build"`
	PollInterval string `toml:"poll_interval"`
	Timeout      string `toml:"timeout"`
	BodyFile     string `toml:"body_file"`
}

// LoadFile reads the settings file at path. A missing file is not an error.
func LoadFile(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to read settings file", goerr.V("path", path))
	}

	var f File
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, goerr.Wrap(err, "failed to parse settings file", goerr.V("path", path))
	}
	return &f, nil
}

// ApplyFile fills unset release settings from the file, then applies the
// built-in defaults to whatever is still empty.
func (c *Release) ApplyFile(f *File) error {
	if f != nil {
		if c.Trunk == "" {
			c.Trunk = f.Trunk
		}
		if c.Remote == "" {
			c.Remote = f.Remote
		}
		if c.BuildCommand == "" {
			c.BuildCommand = f.Build
		}
		if c.BodyFile == "" {
			c.BodyFile = f.BodyFile
		}
		if c.PollInterval == 0 && f.PollInterval != "" {
			d, err := time.ParseDuration(f.PollInterval)
			if err != nil {
				return goerr.Wrap(err, "invalid poll_interval in settings file",
					goerr.V("value", f.PollInterval),
				)
			}
			c.PollInterval = d
		}
		if c.Timeout == 0 && f.Timeout != "" {
			d, err := time.ParseDuration(f.Timeout)
			if err != nil {
				return goerr.Wrap(err, "invalid timeout in settings file",
					goerr.V("value", f.Timeout),
				)
			}
			c.Timeout = d
		}
	}

	if c.Trunk == "" {
		c.Trunk = "main"
	}
	if c.Remote == "" {
		c.Remote = "origin"
	}
	if c.PollInterval == 0 {
		c.PollInterval = 30 * time.Second
	}
	return nil
}
