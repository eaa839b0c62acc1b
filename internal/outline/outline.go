// Package outline turns caller-supplied (text, level) items into heading-only
// Markdown that the extractor reads back into the same hierarchy.
package outline

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/doctree"
)

const (
	MinLevel = 1
	MaxLevel = 6
)

// Compile validates every item, then emits one ATX heading per item in the
// given order. Items are never reordered, merged or deduplicated.
func Compile(items []doctree.OutlineItem) (string, error) {
	if err := Validate(items); err != nil {
		return "", err
	}

	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, strings.Repeat("#", it.Level)+" "+flatten(it.Text))
	}
	return strings.Join(lines, "\n\n") + "\n", nil
}

// Validate reports every invalid item at once.
func Validate(items []doctree.OutlineItem) error {
	if len(items) == 0 {
		return apperr.Validation("INVALID_OUTLINE", "outline must contain at least one item")
	}

	errs := validation.Errors{}
	for i, it := range items {
		err := validation.ValidateStruct(&it,
			validation.Field(&it.Text, validation.Required, validation.By(notBlank)),
			validation.Field(&it.Level, validation.Required, validation.Min(MinLevel), validation.Max(MaxLevel)),
		)
		fieldErrs, ok := err.(validation.Errors)
		if !ok {
			continue
		}
		for field, fe := range fieldErrs {
			errs[fmt.Sprintf("items[%d].%s", i, field)] = fe
		}
	}
	if len(errs) > 0 {
		return apperr.FromValidation(errs, "INVALID_OUTLINE", "outline is invalid")
	}
	return nil
}

func notBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "cannot be blank")
	}
	return nil
}

// markup escapes the punctuation that would open inline markup or close the
// heading, so the extractor reads back the literal text.
var markup = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	">", `\>`,
	"#", `\#`,
	"&", `\&`,
	"~", `\~`,
)

// flatten keeps one item on one heading line.
func flatten(s string) string {
	return markup.Replace(strings.Join(strings.Fields(s), " "))
}
