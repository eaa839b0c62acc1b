package render

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/dgallion1/mindmapper/internal/apperr"
)

// PaletteSource says where the palette of a render came from.
type PaletteSource string

const (
	SourceTheme  PaletteSource = "theme"
	SourceCustom PaletteSource = "custom"
	SourceMixed  PaletteSource = "mixed"
)

// MaxColors caps a caller-supplied palette.
const MaxColors = 32

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Decision is the validated outcome of a theme/colors request.
type Decision struct {
	Theme   Theme
	Palette []string
	Source  PaletteSource
}

// Decide validates theme and colors and picks the palette. Explicit colors
// always win over the theme palette; the theme still supplies layout and
// background. No theme and no colors means the default theme.
func Decide(theme string, colors []string) (Decision, error) {
	name := strings.TrimSpace(theme)
	if name == "" {
		name = DefaultTheme
	}
	t, ok := LookupTheme(name)
	if !ok {
		return Decision{}, apperr.Validation("INVALID_THEME",
			fmt.Sprintf("unknown theme %q (expected one of %s)", theme, strings.Join(ThemeNames(), ", ")))
	}
	if err := ValidateColors(colors); err != nil {
		return Decision{}, err
	}

	d := Decision{Theme: t, Palette: t.Palette, Source: SourceTheme}
	if len(colors) > 0 {
		d.Palette = append([]string(nil), colors...)
		d.Source = SourceCustom
		if strings.TrimSpace(theme) != "" {
			d.Source = SourceMixed
		}
	}
	return d, nil
}

// ValidateColors checks every color is #RRGGBB and the palette is not too long.
func ValidateColors(colors []string) error {
	req := struct {
		Colors []string `json:"colors"`
	}{colors}
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Colors,
			validation.Length(0, MaxColors),
			validation.Each(validation.Required, validation.Match(hexColor).Error("must be a #RRGGBB hex color")),
		),
	)
	if err != nil {
		return apperr.FromValidation(err, "INVALID_COLOR", "invalid colors")
	}
	return nil
}
