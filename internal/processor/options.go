package processor

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validatorV10 "github.com/go-playground/validator/v10"
)

type Gravity string

const (
	GravityNorthWest Gravity = "NorthWest"
	GravityNorth     Gravity = "North"
	GravityNorthEast Gravity = "NorthEast"
	GravityWest      Gravity = "West"
	GravityCenter    Gravity = "Center"
	GravityEast      Gravity = "East"
	GravitySouthWest Gravity = "SouthWest"
	GravitySouth     Gravity = "South"
	GravitySouthEast Gravity = "SouthEast"
)

var Gravities = []Gravity{
	GravityNorthWest, GravityNorth, GravityNorthEast,
	GravityWest, GravityCenter, GravityEast,
	GravitySouthWest, GravitySouth, GravitySouthEast,
}

func (g Gravity) Valid() bool {
	for _, v := range Gravities {
		if g == v {
			return true
		}
	}
	return false
}

// ParseGravity accepts any casing, e.g. "southeast" or "SouthEast".
func ParseGravity(s string) (Gravity, error) {
	for _, g := range Gravities {
		if strings.EqualFold(string(g), strings.TrimSpace(s)) {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: unknown gravity %q", ErrInvalidConfig, s)
}

// Orientation is the EXIF orientation label of a source image.
type Orientation string

const (
	OrientationUnknown     Orientation = "Unknown"
	OrientationTopLeft     Orientation = "TopLeft"
	OrientationTopRight    Orientation = "TopRight"
	OrientationBottomRight Orientation = "BottomRight"
	OrientationBottomLeft  Orientation = "BottomLeft"
	OrientationLeftTop     Orientation = "LeftTop"
	OrientationRightTop    Orientation = "RightTop"
	OrientationRightBottom Orientation = "RightBottom"
	OrientationLeftBottom  Orientation = "LeftBottom"
)

var exifOrientations = map[int]Orientation{
	1: OrientationTopLeft,
	2: OrientationTopRight,
	3: OrientationBottomRight,
	4: OrientationBottomLeft,
	5: OrientationLeftTop,
	6: OrientationRightTop,
	7: OrientationRightBottom,
	8: OrientationLeftBottom,
}

// OrientationFromEXIF maps the numeric EXIF tag (1..8) to its label.
func OrientationFromEXIF(v int) Orientation {
	if o, ok := exifOrientations[v]; ok {
		return o
	}
	return OrientationUnknown
}

// ParseOrientation accepts an orientation label in any casing. "Normal"
// is an alias for TopLeft and "Undefined" for Unknown. Any other value is
// an ErrInvalidConfig.
func ParseOrientation(s string) (Orientation, error) {
	t := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(t, "normal"):
		return OrientationTopLeft, nil
	case strings.EqualFold(t, string(OrientationUnknown)), strings.EqualFold(t, "undefined"):
		return OrientationUnknown, nil
	}
	for _, o := range exifOrientations {
		if strings.EqualFold(string(o), t) {
			return o, nil
		}
	}
	return OrientationUnknown, fmt.Errorf("%w: unknown orientation %q", ErrInvalidConfig, s)
}

// NeedsRotation reports whether stripping the profile would lose a
// rotation the viewer was expected to apply.
func (o Orientation) NeedsRotation() bool {
	return o == OrientationLeftBottom
}

type SizeConfig struct {
	Width  int `yaml:"width" json:"width" validate:"gt=0"`
	Height int `yaml:"height" json:"height" validate:"gt=0"`
}

// FontConfig describes a text watermark. Every field is mandatory; the
// text and numeric offsets are pointers so that an explicit empty string
// or zero is not mistaken for a missing value.
type FontConfig struct {
	Font        string   `yaml:"font" json:"font" validate:"required"`
	Text        *string  `yaml:"text" json:"text" validate:"required"`
	Size        float64  `yaml:"size" json:"size" validate:"required,gt=0"`
	X           *float64 `yaml:"x" json:"x" validate:"required"`
	Y           *float64 `yaml:"y" json:"y" validate:"required"`
	Gravity     Gravity  `yaml:"gravity" json:"gravity" validate:"required,gravity"`
	StrokeWidth *float64 `yaml:"stroke_width" json:"stroke_width" validate:"required,gte=0"`
	StrokeColor string   `yaml:"stroke_color" json:"stroke_color" validate:"required"`
	FillColor   string   `yaml:"fill_color" json:"fill_color" validate:"required"`
}

// Options selects which stages run. A nil Size or Font skips that stage;
// KeepExif false strips the profile.
type Options struct {
	Size        *SizeConfig `yaml:"size,omitempty" json:"size,omitempty"`
	Font        *FontConfig `yaml:"font,omitempty" json:"font,omitempty"`
	KeepExif    bool        `yaml:"keep_exif" json:"keep_exif"`
	Orientation Orientation `yaml:"orientation,omitempty" json:"orientation,omitempty"`
}

func Float(v float64) *float64 {
	return &v
}

func String(v string) *string {
	return &v
}

var validator *validatorV10.Validate

func init() {
	validator = validatorV10.New()
	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = validator.RegisterValidation("gravity", func(fl validatorV10.FieldLevel) bool {
		return Gravity(fl.Field().String()).Valid()
	})
}

// FieldError is one failed field of a FontConfig or SizeConfig.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every failing field. It wraps ErrInvalidConfig.
type ValidationError struct {
	Subject string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Message)
	}
	return fmt.Sprintf("%s is invalid: %s", e.Subject, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Missing returns the names of fields that were absent.
func (e *ValidationError) Missing() []string {
	var names []string
	for _, f := range e.Fields {
		if f.Message == "is required" {
			names = append(names, f.Field)
		}
	}
	return names
}

func (c *FontConfig) Validate() error {
	if c == nil {
		return &ValidationError{Subject: "font config", Fields: []FieldError{{Field: "font config", Message: "is required"}}}
	}
	return validateStruct("font config", c)
}

func (c *SizeConfig) Validate() error {
	if c == nil {
		return &ValidationError{Subject: "size config", Fields: []FieldError{{Field: "size config", Message: "is required"}}}
	}
	return validateStruct("size config", c)
}

// Validate checks the optional sub-configs that are present.
func (o *Options) Validate() error {
	if o.Size != nil {
		if err := o.Size.Validate(); err != nil {
			return err
		}
	}
	if o.Font != nil {
		if err := o.Font.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func validateStruct(subject string, v any) error {
	err := validator.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrors validatorV10.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	ve := &ValidationError{Subject: subject}
	for _, fe := range validationErrors {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return ve
}

func validationMessage(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "gravity":
		return "must be one of NorthWest|North|NorthEast|West|Center|East|SouthWest|South|SouthEast"
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}
