package registry

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
)

// Environment variables holding the GMP and MPFR paths
const (
	EnvGMPLib  = "GMP_LIB"
	EnvGMPInc  = "GMP_INC"
	EnvMPFRLib = "MPFR_LIB"
	EnvMPFRInc = "MPFR_INC"
)

// NumericVars lists the variables read by LookupNumeric, in lookup order
var NumericVars = []string{EnvGMPLib, EnvGMPInc, EnvMPFRLib, EnvMPFRInc}

// MissingEnvError reports a required environment variable that is not set
type MissingEnvError struct {
	Name string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("environment variable %s is not set", e.Name)
}

// Paths locates one numeric library
type Paths struct {
	Lib string `expr:"lib"`
	Inc string `expr:"inc"`
}

// Numeric holds the resolved GMP and MPFR paths
type Numeric struct {
	GMP  Paths
	MPFR Paths
}

// LookupNumeric resolves the four numeric library variables through lookup,
// usually os.LookupEnv. The first unset variable is reported as a
// *MissingEnvError.
func LookupNumeric(lookup func(string) (string, bool)) (Numeric, error) {
	values := make(map[string]string, len(NumericVars))
	for _, name := range NumericVars {
		v, ok := lookup(name)
		if !ok {
			return Numeric{}, &MissingEnvError{Name: name}
		}
		values[name] = v
	}
	return Numeric{
		GMP:  Paths{Lib: values[EnvGMPLib], Inc: values[EnvGMPInc]},
		MPFR: Paths{Lib: values[EnvMPFRLib], Inc: values[EnvMPFRInc]},
	}, nil
}

// FlagEnv is what {{ }} expressions in flag values are evaluated against
type FlagEnv struct {
	TargetOS   string `expr:"target_os"`
	TargetArch string `expr:"target_arch"`
	GMP        Paths  `expr:"gmp"`
	MPFR       Paths  `expr:"mpfr"`
	numeric    bool
}

func NewFlagEnv(goos, goarch string) FlagEnv {
	return FlagEnv{TargetOS: goos, TargetArch: goarch}
}

// WithNumeric returns a copy of env carrying the numeric library paths
func (env FlagEnv) WithNumeric(n Numeric) FlagEnv {
	env.GMP, env.MPFR = n.GMP, n.MPFR
	env.numeric = true
	return env
}

var exprRegex = regexp.MustCompile(`\{\{(.+?)\}\}`)

// evaluateString finds and evaluates all {{...}} expressions in a string
func evaluateString(s string, env FlagEnv) (string, error) {
	matches := exprRegex.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var sb strings.Builder
	lastIndex := 0

	for _, m := range matches {
		sb.WriteString(s[lastIndex:m[0]])

		expression := strings.TrimSpace(s[m[2]:m[3]])
		program, err := expr.Compile(expression, expr.Env(env))
		if err != nil {
			return "", fmt.Errorf("failed to compile expression %q: %w", expression, err)
		}

		result, err := expr.Run(program, env)
		if err != nil {
			return "", fmt.Errorf("failed to run expression %q: %w", expression, err)
		}

		fmt.Fprintf(&sb, "%v", result)
		lastIndex = m[1]
	}

	sb.WriteString(s[lastIndex:])

	return sb.String(), nil
}
