package config

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/spektr-org/usagesim/generator"
)

// runNamespace scopes run ids to this tool.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/spektr-org/usagesim/run"))

// Manifest records what a generate run produced.
type Manifest struct {
	RunID    string           `yaml:"run_id"`
	Seed     uint64           `yaml:"seed"`
	Users    int              `yaml:"users"`
	Sessions int              `yaml:"sessions"`
	Events   int              `yaml:"events"`
	Files    []string         `yaml:"files,omitempty"`
	Config   generator.Config `yaml:"config"`
}

// RunID derives a stable id from the generator config: the same config
// always names the same run.
func RunID(cfg generator.Config) (uuid.UUID, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal generator config: %w", err)
	}
	return uuid.NewSHA1(runNamespace, data), nil
}

// NewManifest describes ds as generated from cfg.
func NewManifest(cfg generator.Config, ds *generator.Dataset, files ...string) (*Manifest, error) {
	id, err := RunID(cfg)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		RunID:    id.String(),
		Seed:     cfg.Seed,
		Users:    len(ds.Users),
		Sessions: len(ds.Sessions),
		Events:   len(ds.Events),
		Files:    files,
		Config:   cfg,
	}, nil
}

// Write saves m as YAML at path.
func (m *Manifest) Write(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by Write.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
