package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
	"gopkg.in/yaml.v3"
)

// BatchConfig is a per-directory rules file: defaults applied to every
// image, plus overrides picked by exact path or glob pattern.
type BatchConfig struct {
	Defaults BatchRule         `yaml:"defaults,omitempty"`
	Files    []BatchFileConfig `yaml:"files,omitempty"`
}

type BatchRule struct {
	Profile  string                `yaml:"profile,omitempty"`
	Size     *processor.SizeConfig `yaml:"size,omitempty"`
	Layout   *Layout               `yaml:"layout,omitempty"`
	Font     *processor.FontConfig `yaml:"font,omitempty"`
	KeepExif *bool                 `yaml:"keep_exif,omitempty"`
	Format   string                `yaml:"format,omitempty"`
}

type BatchFileConfig struct {
	Pattern   string `yaml:"pattern,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Skip      bool   `yaml:"skip,omitempty"`
	BatchRule `yaml:",inline"`
}

func LoadBatchConfig(path string) (*BatchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &BatchConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// GetFileConfig returns the first override matching filename by path or
// by a glob on the base name.
func (bc *BatchConfig) GetFileConfig(filename string) *BatchFileConfig {
	baseName := filepath.Base(filename)

	for i := range bc.Files {
		fc := &bc.Files[i]
		if fc.Path != "" && (fc.Path == filename || fc.Path == baseName) {
			return fc
		}

		if fc.Pattern != "" {
			matched, err := filepath.Match(fc.Pattern, baseName)
			if err == nil && matched {
				return fc
			}
		}
	}

	return nil
}

func (bc *BatchConfig) ShouldSkip(filename string) bool {
	fc := bc.GetFileConfig(filename)
	return fc != nil && fc.Skip
}

// Resolve builds the profile for filename. Layers apply in order: the
// base profile, the named profile of the defaults or override, the
// defaults' fields, then the override's fields.
func (bc *BatchConfig) Resolve(cfg *Config, filename string, base Profile) (Profile, error) {
	rules := []BatchRule{bc.Defaults}
	if fc := bc.GetFileConfig(filename); fc != nil {
		rules = append(rules, fc.BatchRule)
	}

	p := base
	for _, r := range rules {
		if r.Profile != "" {
			named, ok := cfg.Profile(r.Profile)
			if !ok {
				return Profile{}, fmt.Errorf("%w: unknown profile %q", processor.ErrInvalidConfig, r.Profile)
			}
			p = named
		}
	}
	for _, r := range rules {
		p = r.apply(p)
	}

	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("%s: %w", filename, err)
	}
	return p, nil
}

// OutputExt returns the extension the output of filename should use.
func (bc *BatchConfig) OutputExt(filename string) string {
	format := bc.Defaults.Format
	if fc := bc.GetFileConfig(filename); fc != nil && fc.Format != "" {
		format = fc.Format
	}
	if format == "" {
		ext := filepath.Ext(filename)
		if strings.EqualFold(ext, ".webp") {
			// webp decodes but has no encoder
			return ".png"
		}
		return ext
	}
	return "." + strings.TrimPrefix(strings.ToLower(format), ".")
}

func (r BatchRule) apply(p Profile) Profile {
	if r.Size != nil {
		p.Size, p.Layout = r.Size, nil
	}
	if r.Layout != nil {
		p.Layout, p.Size = r.Layout, nil
	}
	if r.Font != nil {
		p.Font = r.Font
	}
	if r.KeepExif != nil {
		p.KeepExif = *r.KeepExif
	}
	return p
}

// IsImageFile reports whether filename has an extension the engine
// decodes.
func IsImageFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}
