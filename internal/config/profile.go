package config

import (
	"fmt"
	"sort"

	"github.com/abdul-hamid-achik/photomark/internal/processor"
)

// Layout sizes an image by its orientation: the long side of the output
// follows the long side of the source.
type Layout struct {
	Long  int `yaml:"long" json:"long"`
	Short int `yaml:"short" json:"short"`
}

func (l Layout) Size(width, height int) processor.SizeConfig {
	w, h := processor.OutputDimensions(l.Long, l.Short, width, height)
	return processor.SizeConfig{Width: w, Height: h}
}

// Profile is a named set of pipeline options. Size and Layout are
// exclusive; Layout needs the source dimensions to resolve.
type Profile struct {
	Size     *processor.SizeConfig `yaml:"size,omitempty" json:"size,omitempty"`
	Layout   *Layout               `yaml:"layout,omitempty" json:"layout,omitempty"`
	Font     *processor.FontConfig `yaml:"font,omitempty" json:"font,omitempty"`
	KeepExif bool                  `yaml:"keep_exif" json:"keep_exif"`
}

var BuiltinProfiles = map[string]Profile{
	"web": {
		Layout: &Layout{Long: 1920, Short: 1280},
	},
	"social": {
		Layout: &Layout{Long: 1200, Short: 800},
	},
	"thumbnail": {
		Layout: &Layout{Long: 320, Short: 240},
	},
	"archive": {
		KeepExif: true,
	},
	// Exact social card sizes; these ignore the source aspect ratio.
	"og":              {Size: &processor.SizeConfig{Width: 1200, Height: 630}},
	"twitter":         {Size: &processor.SizeConfig{Width: 1200, Height: 675}},
	"instagram":       {Size: &processor.SizeConfig{Width: 1080, Height: 1080}},
	"instagram_story": {Size: &processor.SizeConfig{Width: 1080, Height: 1920}},
}

func (p Profile) Validate() error {
	if p.Size != nil && p.Layout != nil {
		return fmt.Errorf("%w: size and layout are mutually exclusive", processor.ErrInvalidConfig)
	}
	if p.Size != nil {
		if err := p.Size.Validate(); err != nil {
			return err
		}
	}
	if p.Layout != nil && (p.Layout.Long <= 0 || p.Layout.Short <= 0) {
		return fmt.Errorf("%w: layout sides must be positive", processor.ErrInvalidConfig)
	}
	if p.Font != nil {
		if err := p.Font.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// NeedsSize reports whether Options requires the source dimensions.
func (p Profile) NeedsSize() bool {
	return p.Layout != nil
}

// Options resolves the profile for a source of the given size.
func (p Profile) Options(width, height int, orientation processor.Orientation) processor.Options {
	opts := processor.Options{
		KeepExif:    p.KeepExif,
		Orientation: orientation,
	}
	switch {
	case p.Layout != nil:
		size := p.Layout.Size(width, height)
		opts.Size = &size
	case p.Size != nil:
		size := *p.Size
		opts.Size = &size
	}
	if p.Font != nil {
		font := *p.Font
		opts.Font = &font
	}
	return opts
}

// Profile looks up a user profile, then a builtin one.
func (c *Config) Profile(name string) (Profile, bool) {
	if p, ok := c.Profiles[name]; ok {
		return p, true
	}
	if p, ok := BuiltinProfiles[name]; ok {
		return p, true
	}
	return Profile{}, false
}

// ProfileNames lists every resolvable profile name, sorted.
func (c *Config) ProfileNames() []string {
	seen := make(map[string]bool)
	for name := range BuiltinProfiles {
		seen[name] = true
	}
	for name := range c.Profiles {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
