package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

type EnumChoice struct {
	Name string
	Help string
}

// EnumValue is a string flag (or argument) restricted to an ordered set of choices
type EnumValue struct {
	value   string
	choices []EnumChoice
}

// NewEnumValue returns an EnumValue set to defaultVal, which may be empty
func NewEnumValue(defaultVal string, choices []EnumChoice) *EnumValue {
	e := &EnumValue{value: defaultVal, choices: choices}
	if defaultVal != "" && !e.allowed(defaultVal) {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	return e
}

// EnumChoices builds help-less choices from names
func EnumChoices(names ...string) []EnumChoice {
	choices := make([]EnumChoice, len(names))
	for i, name := range names {
		choices[i] = EnumChoice{Name: name}
	}
	return choices
}

func (e *EnumValue) String() string     { return e.value }
func (e *EnumValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumValue) Type() string       { return "enum" }
func (e *EnumValue) Value() string      { return e.value }

func (e *EnumValue) allowed(v string) bool {
	return slices.ContainsFunc(e.choices, func(c EnumChoice) bool { return c.Name == v })
}

func (e *EnumValue) Set(v string) error {
	if e.allowed(v) {
		e.value = v
		return nil
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
}

// AllowedKeys returns the choices in declaration order
func (e *EnumValue) AllowedKeys() []string {
	keys := make([]string, len(e.choices))
	for i, c := range e.choices {
		keys[i] = c.Name
	}
	return keys
}

func (e *EnumValue) CompletionFunc() cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		items := make([]cobra.Completion, 0, len(e.choices))
		for _, c := range e.choices {
			if c.Help != "" {
				items = append(items, cobra.CompletionWithDesc(c.Name, c.Help))
			} else {
				items = append(items, c.Name)
			}
		}
		return items, cobra.ShellCompDirectiveNoFileComp
	}
}

// usageArgs reports positional argument errors as usage errors
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err}
		}
		return nil
	}
}
