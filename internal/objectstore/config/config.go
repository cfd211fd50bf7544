// Package config loads ObjectStore peer configuration from a YAML file,
// following the same github.com/viant/afs + gopkg.in/yaml.v3 load idiom as
// genai/executor/bootstrap.go ("fs.DownloadWithURL then yaml.Unmarshal")
// rather than a bespoke file-reading path.
package config

import (
	"context"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/viant/remoteobj/internal/objectstore/store"
	"github.com/viant/remoteobj/internal/objectstore/wire"
)

// Peer describes one side of a connection: how to reach it and which
// Store options to apply.
type Peer struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"` // ws://host:port or unix:///path, transport-specific
	Options Options `yaml:"options"`
}

// Options mirrors store.Options in YAML-friendly form (string durations,
// string policy names) so a config file doesn't need Go type knowledge.
type Options struct {
	RemoteObjectPrototype string `yaml:"remoteObjectPrototype"` // "full" | "keysOnly" | "none"
	RemoteError           string `yaml:"remoteError"`           // "value" | "newError"
	NoToString            bool   `yaml:"noToString"`
	DoNotSyncGC           bool   `yaml:"doNotSyncGC"`
	ScheduleGCAfterTime   string `yaml:"scheduleGCAfterTime"`   // e.g. "5s"
	ScheduleGCAfterObjectCount int `yaml:"scheduleGCAfterObjectCount"`
	RequestLatency        string `yaml:"requestLatency"`
}

// Config is the top-level document: a list of named peers this process may
// connect as or accept connections from.
type Config struct {
	Peers []Peer `yaml:"peers"`
}

// Load fetches and parses a YAML config document from url (any scheme
// github.com/viant/afs supports: file://, s3://, gs://, or a plain path).
func Load(ctx context.Context, url string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Find returns the peer entry named name, if present.
func (c *Config) Find(name string) (*Peer, bool) {
	for i := range c.Peers {
		if c.Peers[i].Name == name {
			return &c.Peers[i], true
		}
	}
	return nil, false
}

// StoreOptions translates the YAML-friendly Options into the functional
// options store.New expects.
func (o Options) StoreOptions() ([]store.Option, error) {
	var opts []store.Option

	switch o.RemoteObjectPrototype {
	case "keysOnly":
		opts = append(opts, store.WithPrototypePolicy(wire.PrototypeKeysOnly))
	case "none":
		opts = append(opts, store.WithPrototypePolicy(wire.PrototypeNone))
	case "", "full":
		opts = append(opts, store.WithPrototypePolicy(wire.PrototypeFull))
	}

	if o.RemoteError != "" {
		opts = append(opts, store.WithRemoteError(o.RemoteError))
	}
	opts = append(opts, store.WithNoToString(o.NoToString))
	opts = append(opts, store.WithDoNotSyncGC(o.DoNotSyncGC))
	opts = append(opts, store.WithScheduleGCAfterObjectCount(o.ScheduleGCAfterObjectCount))

	if o.ScheduleGCAfterTime != "" {
		d, err := time.ParseDuration(o.ScheduleGCAfterTime)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithScheduleGCAfterTime(d))
	}
	if o.RequestLatency != "" {
		d, err := time.ParseDuration(o.RequestLatency)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithRequestLatency(d))
	}
	return opts, nil
}
