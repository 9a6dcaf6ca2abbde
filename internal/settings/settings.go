// Package settings edits the exclusion rules and list bound of the recent
// files store from free-text fields.
package settings

import (
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recentfiles/internal/apperr"
	"github.com/starford/recentfiles/internal/models"
)

// Target is the store surface the editor drives.
type Target interface {
	SetOmittedPaths(patterns []string)
	SetOmittedTags(tags []string)
	SetMaxLength(n *int)
	ApplyExclusionRules()
	ApplyBound()
}

// View is the current state of the editable fields.
type View struct {
	OmittedPaths     []string `json:"omitted_paths"`
	OmittedTags      []string `json:"omitted_tags"`
	MaxLength        *int     `json:"max_length"`
	DefaultMaxLength int      `json:"default_max_length"`
	MaxAllowedLength int      `json:"max_allowed_length"`
	InvalidPatterns  []string `json:"invalid_patterns"`
}

// NewView builds a View from the stored document.
func NewView(d models.Data, invalid []string) View {
	if invalid == nil {
		invalid = []string{}
	}
	return View{
		OmittedPaths:     d.OmittedPaths,
		OmittedTags:      d.OmittedTags,
		MaxLength:        d.MaxLength,
		DefaultMaxLength: models.DefaultMaxLength,
		MaxAllowedLength: models.MaxAllowedLength,
		InvalidPatterns:  invalid,
	}
}

// Update carries the edited fields; nil fields are left unchanged.
// Patterns and tags are newline-separated; MaxLength is the raw text of
// the bound field, empty meaning "use the default".
type Update struct {
	OmittedPaths *string `json:"omitted_paths,omitempty"`
	OmittedTags  *string `json:"omitted_tags,omitempty"`
	MaxLength    *string `json:"max_length,omitempty"`
}

// Validate checks that the bound field parses.
func (u Update) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.MaxLength, validation.By(func(v any) error {
			s, _ := v.(*string)
			if s == nil {
				return nil
			}
			_, err := ParseBound(*s)
			return err
		})),
	)
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.OmittedPaths == nil && u.OmittedTags == nil && u.MaxLength == nil
}

// Apply validates u and applies each present field to t, pruning the list
// after every rule change.
func Apply(t Target, u Update) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidSettings, err)
	}

	rulesChanged := false
	if u.OmittedPaths != nil {
		t.SetOmittedPaths(ParseLines(*u.OmittedPaths))
		rulesChanged = true
	}
	if u.OmittedTags != nil {
		t.SetOmittedTags(ParseLines(*u.OmittedTags))
		rulesChanged = true
	}
	if rulesChanged {
		t.ApplyExclusionRules()
		t.ApplyBound()
	}

	if u.MaxLength != nil {
		n, _ := ParseBound(*u.MaxLength)
		t.SetMaxLength(n)
		t.ApplyBound()
	}
	return nil
}

// ParseLines splits newline-separated text into trimmed, non-blank lines.
func ParseLines(text string) []string {
	return models.CleanLines(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}

// JoinLines is the inverse of ParseLines for display.
func JoinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

// ParseBound reads the bound field. Empty text or zero select the default
// (nil); the characters e, E, '.' and '-' are ignored so that the field only
// ever yields a positive integer; values above models.MaxAllowedLength are
// clamped. Text with no leading digits is rejected.
func ParseBound(text string) (*int, error) {
	s := strings.TrimSpace(text)
	s = strings.Map(func(r rune) rune {
		switch r {
		case 'e', 'E', '.', '-':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, nil
	}

	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil, fmt.Errorf("%w: list length %q is not a number", apperr.ErrInvalidSettings, text)
	}

	digits := strings.TrimLeft(s[:end], "0")
	if digits == "" {
		return nil, nil
	}
	if len(digits) > 4 {
		n := models.MaxAllowedLength
		return &n, nil
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidSettings, err)
	}
	n = min(n, models.MaxAllowedLength)
	return &n, nil
}
