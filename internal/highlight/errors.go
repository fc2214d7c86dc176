package highlight

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedLanguage    = errors.New("unsupported language")
	ErrHighlightConfiguration = errors.New("highlight configuration error")
	ErrParseFailure           = errors.New("parse failure")
)

// UnsupportedLanguageError is returned when no grammar is registered for the
// requested language.
type UnsupportedLanguageError struct {
	Language string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language: %q", e.Language)
}

func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage
}

// ConfigurationError is returned when the highlight configuration for a
// language cannot be compiled, e.g. a category name maps to no token class.
type ConfigurationError struct {
	Language string
	Name     string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("highlight configuration for %s: category %q: %s", e.Language, e.Name, e.Reason)
	}
	return fmt.Sprintf("highlight configuration for %s: %s", e.Language, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrHighlightConfiguration
}

// ParseError is returned when the parser produced no artifact.
type ParseError struct {
	Language string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing %s: %v", e.Language, e.Err)
	}
	return fmt.Sprintf("parsing %s: no artifact produced", e.Language)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParseFailure
}

var ErrThemeParse = errors.New("theme parse failure")

// ThemeParseError describes a theme document that could not be decoded.
// Theme parsing degrades to an empty theme, so this is logged and never
// returned from a highlight request.
type ThemeParseError struct {
	Err error
}

func (e *ThemeParseError) Error() string {
	return fmt.Sprintf("parsing theme: %v", e.Err)
}

func (e *ThemeParseError) Unwrap() error {
	return e.Err
}

func (e *ThemeParseError) Is(target error) bool {
	return target == ErrThemeParse
}
