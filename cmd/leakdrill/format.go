package main

import (
	"fmt"

	"github.com/spf13/pflag"
)

// OutputFormat selects how listings are printed.
type OutputFormat string

// Set implements pflag.Value.
func (f *OutputFormat) Set(v string) error {
	switch v {
	case string(FormatText):
		*f = FormatText
	case string(FormatYAML):
		*f = FormatYAML
	default:
		return fmt.Errorf("invalid value %q, valid values are %q or %q", v, FormatText, FormatYAML)
	}
	return nil
}

// String implements pflag.Value.
func (f *OutputFormat) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// Type implements pflag.Value.
func (f *OutputFormat) Type() string {
	return "OutputFormat"
}

// SortFlag orders stats listings by rating.
type SortFlag string

// Set implements pflag.Value.
func (s *SortFlag) Set(v string) error {
	switch v {
	case string(SortDescending):
		*s = SortDescending
	case string(SortAscending):
		*s = SortAscending
	default:
		return fmt.Errorf("invalid value %q, valid values are %q or %q", v, SortDescending, SortAscending)
	}
	return nil
}

// String implements pflag.Value.
func (s *SortFlag) String() string {
	if s == nil {
		return ""
	}
	return string(*s)
}

// Type implements pflag.Value.
func (s *SortFlag) Type() string {
	return "SortFlag"
}

var (
	_ pflag.Value = (*OutputFormat)(nil)
	_ pflag.Value = (*SortFlag)(nil)
)

const (
	FormatText OutputFormat = "text"
	FormatYAML OutputFormat = "yaml"

	SortDescending SortFlag = "desc"
	SortAscending  SortFlag = "asc"
)
