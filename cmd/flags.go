package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/pflag"
)

// enumValue is a string flag restricted to a fixed set of choices
type enumValue struct {
	value   string
	choices []string
}

var _ pflag.Value = (*enumValue)(nil)

func newEnum(def string, choices ...string) *enumValue {
	return &enumValue{value: def, choices: choices}
}

func (e *enumValue) String() string { return e.value }

func (e *enumValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(e.choices, s) {
		return fmt.Errorf("must be one of %s", strings.Join(e.choices, ", "))
	}
	e.value = s
	return nil
}

func (e *enumValue) Type() string { return "string" }

// addEnumFlag registers an enum flag and lists its choices in the usage text
func addEnumFlag(fs *pflag.FlagSet, name, short string, value *enumValue, usage string) {
	fs.VarP(value, name, short, fmt.Sprintf("%s (%s)", usage, strings.Join(value.choices, "|")))
}

func toStrings[T ~string](vals []T) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = string(v)
	}
	return out
}
