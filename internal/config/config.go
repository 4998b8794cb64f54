package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/tfgraph/internal/tf"
)

// DefaultConfigPath is the path to the canonical session config file.
const DefaultConfigPath = "config/tfgraph.defaults.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// LinkConfig is a fixed structural link, such as a sensor mount, applied
// at the start of every session.
type LinkConfig struct {
	Parent      string     `json:"parent" yaml:"parent"`
	Child       string     `json:"child" yaml:"child"`
	Translation [3]float64 `json:"translation" yaml:"translation"`
	// Rotation is a quaternion in x, y, z, w order. Omitted means identity.
	Rotation *[4]float64 `json:"rotation,omitempty" yaml:"rotation,omitempty"`
}

// Link converts the config entry into a tf.Link.
func (l LinkConfig) Link() tf.Link {
	q := [4]float64{0, 0, 0, 1}
	if l.Rotation != nil {
		q = *l.Rotation
	}
	return tf.Link{
		Parent: l.Parent,
		Child:  l.Child,
		Pose:   tf.NewPose(l.Translation[0], l.Translation[1], l.Translation[2], q[0], q[1], q[2], q[3]),
	}
}

// SessionConfig is the root configuration for a transform session. Pointer
// fields distinguish "unset" from zero; Get* methods supply defaults.
type SessionConfig struct {
	// Retention is a duration string like "30s". Empty keeps every sample.
	Retention          *string `json:"retention,omitempty" yaml:"retention,omitempty"`
	MaxSamplesPerFrame *int    `json:"max_samples_per_frame,omitempty" yaml:"max_samples_per_frame,omitempty"`
	FixedFrame         *string `json:"fixed_frame,omitempty" yaml:"fixed_frame,omitempty"`

	StaticLinks []LinkConfig `json:"static_links,omitempty" yaml:"static_links,omitempty"`

	GRPCListen *string `json:"grpc_listen,omitempty" yaml:"grpc_listen,omitempty"`
	HTTPListen *string `json:"http_listen,omitempty" yaml:"http_listen,omitempty"`
	DBPath     *string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptySessionConfig returns a SessionConfig with every field unset.
func EmptySessionConfig() *SessionConfig {
	return &SessionConfig{}
}

// Load reads a SessionConfig from a .json, .yaml or .yml file.
// Fields omitted from the file keep their defaults, so partial configs are
// safe.
func Load(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySessionConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", ext, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *SessionConfig) Validate() error {
	if c.Retention != nil && *c.Retention != "" {
		d, err := time.ParseDuration(*c.Retention)
		if err != nil {
			return fmt.Errorf("invalid retention '%s': %w", *c.Retention, err)
		}
		if d < 0 {
			return fmt.Errorf("retention must be non-negative, got %s", d)
		}
	}

	if c.MaxSamplesPerFrame != nil && *c.MaxSamplesPerFrame < 0 {
		return fmt.Errorf("max_samples_per_frame must be non-negative, got %d", *c.MaxSamplesPerFrame)
	}

	if c.FixedFrame != nil && *c.FixedFrame == "" {
		return fmt.Errorf("fixed_frame must not be empty when set")
	}

	for i, l := range c.StaticLinks {
		if l.Parent == "" || l.Child == "" {
			return fmt.Errorf("static_links[%d]: parent and child are required", i)
		}
		if tf.CanonicalFrameID(l.Parent) == tf.CanonicalFrameID(l.Child) {
			return fmt.Errorf("static_links[%d]: frame %q cannot be its own parent", i, l.Child)
		}
		if l.Rotation != nil {
			q := *l.Rotation
			norm := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
			if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
				return fmt.Errorf("static_links[%d]: rotation must be a non-zero finite quaternion", i)
			}
		}
	}
	return nil
}

// GetRetention parses and returns Retention. Zero means unbounded.
func (c *SessionConfig) GetRetention() time.Duration {
	if c.Retention == nil || *c.Retention == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.Retention)
	if err != nil {
		return 0
	}
	return d
}

// GetMaxSamplesPerFrame returns max_samples_per_frame or 0 (unbounded).
func (c *SessionConfig) GetMaxSamplesPerFrame() int {
	if c.MaxSamplesPerFrame == nil {
		return 0
	}
	return *c.MaxSamplesPerFrame
}

// GetFixedFrame returns fixed_frame or "map".
func (c *SessionConfig) GetFixedFrame() string {
	if c.FixedFrame == nil {
		return "map"
	}
	return *c.FixedFrame
}

// GetGRPCListen returns grpc_listen or ":50061".
func (c *SessionConfig) GetGRPCListen() string {
	if c.GRPCListen == nil {
		return ":50061"
	}
	return *c.GRPCListen
}

// GetHTTPListen returns http_listen or ":8089".
func (c *SessionConfig) GetHTTPListen() string {
	if c.HTTPListen == nil {
		return ":8089"
	}
	return *c.HTTPListen
}

// GetDBPath returns db_path or "" (no persistence).
func (c *SessionConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// Links returns the static links as tf.Links.
func (c *SessionConfig) Links() []tf.Link {
	out := make([]tf.Link, 0, len(c.StaticLinks))
	for _, l := range c.StaticLinks {
		out = append(out, l.Link())
	}
	return out
}
