package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the data locations and options shared by every pipeline.
type Config struct {
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
	Files    Files  `yaml:"files"`
	Skills   Skills `yaml:"skills"`
}

// Files names the JSON tables each pipeline reads and writes. Relative
// names resolve under DataDir.
type Files struct {
	SkinTemplate  string `yaml:"skin_template"`
	ShipSkins     string `yaml:"ship_skins"`
	Ships         string `yaml:"ships"`
	ShipTemplate  string `yaml:"ship_template"`
	ShipsUpdated  string `yaml:"ships_updated"`
	SkillIcons    string `yaml:"skill_icons"`
	SkillTemplate string `yaml:"skill_template"`
	Skills        string `yaml:"skills"`
	NameCodes     string `yaml:"name_codes"`
	SkillsMerged  string `yaml:"skills_merged"`
}

type Skills struct {
	// LenientFields lets filter-skills accept skills that lack some of the
	// working fields it strips.
	LenientFields bool `yaml:"lenient_fields"`
}

// DefaultConfig returns a Config with the front-end's public/ layout.
func DefaultConfig() *Config {
	return &Config{
		DataDir:  "public",
		LogLevel: "info",
		Files: Files{
			SkinTemplate:  "ship_skin_template.json",
			ShipSkins:     "ship_skin.json",
			Ships:         "ship_kr.json",
			ShipTemplate:  "ship_data_template.json",
			ShipsUpdated:  "ship_kr_updated.json",
			SkillIcons:    "skill_icon.json",
			SkillTemplate: "skill_data_template.json",
			Skills:        "skill_data.json",
			NameCodes:     "name_code.json",
			SkillsMerged:  "skill_data_modified.json",
		},
	}
}

// Load reads a YAML config file on top of the defaults. Unknown keys are
// rejected so a typo does not silently fall back to a default path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["data-dir"] {
		cfg.DataDir = fromFile.DataDir
	}
	if !explicitFlags["log-level"] {
		cfg.LogLevel = fromFile.LogLevel
	}
	if !explicitFlags["lenient-fields"] {
		cfg.Skills.LenientFields = fromFile.Skills.LenientFields
	}
	cfg.Files = fromFile.Files
}

// Path resolves a file name from Files against DataDir.
func (c *Config) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
