package settings

import (
	"errors"
	"slices"
	"testing"

	"github.com/starford/recentfiles/internal/apperr"
	"github.com/starford/recentfiles/internal/models"
)

func TestParseLines(t *testing.T) {
	got := ParseLines("^daily/\r\n  \n\\.png$ \n\nfoo.*bar")
	want := []string{"^daily/", `\.png$`, "foo.*bar"}
	if !slices.Equal(got, want) {
		t.Errorf("lines = %q, want %q", got, want)
	}
	if len(ParseLines("")) != 0 {
		t.Error("empty text should give no lines")
	}
}

func TestParseBound(t *testing.T) {
	cases := []struct {
		in   string
		want int // 0 means nil
	}{
		{"", 0},
		{"  ", 0},
		{"0", 0},
		{"000", 0},
		{"25", 25},
		{" 25 ", 25},
		{"1e3", 13},
		{"-5", 5},
		{"2.5", 25},
		{"1000", 1000},
		{"1001", 1000},
		{"999999999999", 1000},
		{"12abc", 12},
	}
	for _, tc := range cases {
		got, err := ParseBound(tc.in)
		if err != nil {
			t.Errorf("ParseBound(%q) error: %v", tc.in, err)
			continue
		}
		switch {
		case tc.want == 0 && got != nil:
			t.Errorf("ParseBound(%q) = %d, want nil", tc.in, *got)
		case tc.want != 0 && (got == nil || *got != tc.want):
			t.Errorf("ParseBound(%q) = %v, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseBound_Invalid(t *testing.T) {
	_, err := ParseBound("abc")
	if !errors.Is(err, apperr.ErrInvalidSettings) {
		t.Errorf("err = %v, want ErrInvalidSettings", err)
	}
}

type fakeTarget struct {
	calls     []string
	paths     []string
	tags      []string
	maxLength *int
}

func (f *fakeTarget) SetOmittedPaths(p []string) { f.calls = append(f.calls, "paths"); f.paths = p }
func (f *fakeTarget) SetOmittedTags(t []string)  { f.calls = append(f.calls, "tags"); f.tags = t }
func (f *fakeTarget) SetMaxLength(n *int)        { f.calls = append(f.calls, "max"); f.maxLength = n }
func (f *fakeTarget) ApplyExclusionRules()       { f.calls = append(f.calls, "exclude") }
func (f *fakeTarget) ApplyBound()                { f.calls = append(f.calls, "bound") }

func strPtr(s string) *string { return &s }

func TestApply_AllFields(t *testing.T) {
	ft := &fakeTarget{}
	err := Apply(ft, Update{
		OmittedPaths: strPtr("^daily/\n"),
		OmittedTags:  strPtr("private\n#draft"),
		MaxLength:    strPtr("20"),
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCalls := []string{"paths", "tags", "exclude", "bound", "max", "bound"}
	if !slices.Equal(ft.calls, wantCalls) {
		t.Errorf("calls = %v, want %v", ft.calls, wantCalls)
	}
	if !slices.Equal(ft.paths, []string{"^daily/"}) || len(ft.tags) != 2 {
		t.Errorf("paths = %v tags = %v", ft.paths, ft.tags)
	}
	if ft.maxLength == nil || *ft.maxLength != 20 {
		t.Errorf("maxLength = %v", ft.maxLength)
	}
}

func TestApply_EmptyBoundResetsToDefault(t *testing.T) {
	ft := &fakeTarget{maxLength: new(int)}
	if err := Apply(ft, Update{MaxLength: strPtr("")}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if ft.maxLength != nil {
		t.Errorf("maxLength = %v, want nil", *ft.maxLength)
	}
	if !slices.Equal(ft.calls, []string{"max", "bound"}) {
		t.Errorf("calls = %v", ft.calls)
	}
}

func TestApply_InvalidLeavesTargetUntouched(t *testing.T) {
	ft := &fakeTarget{}
	err := Apply(ft, Update{OmittedPaths: strPtr("x"), MaxLength: strPtr("lots")})
	if !errors.Is(err, apperr.ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}
	if len(ft.calls) != 0 {
		t.Errorf("calls = %v, want none", ft.calls)
	}
}

func TestNewView(t *testing.T) {
	d := models.DefaultData()
	v := NewView(d, nil)
	if v.DefaultMaxLength != models.DefaultMaxLength || v.MaxAllowedLength != models.MaxAllowedLength {
		t.Errorf("view = %+v", v)
	}
	if v.InvalidPatterns == nil {
		t.Error("invalid patterns should be an empty slice")
	}
}
