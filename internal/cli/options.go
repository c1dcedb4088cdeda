package cli

import (
	"errors"
	"flag"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report fields by their argument name, not the Go field name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("arg"); name != "" {
			return name
		}
		return strings.ToLower(f.Name)
	})
	return v
}

// UsageError marks a problem with the command line itself.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// newFlagSet returns a flag set that prints cmd's usage on -h.
func newFlagSet(env *Env, cmd string) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() {
		c, _ := Lookup(cmd)
		fmt.Fprintf(env.Stderr, "usage: %s\n\n%s\n", c.Usage(), c.Summary)
		if hasFlags(fs) {
			fmt.Fprintln(env.Stderr, "\nflags:")
			fs.PrintDefaults()
		}
	}
	return fs
}

func hasFlags(fs *flag.FlagSet) bool {
	n := 0
	fs.VisitAll(func(*flag.Flag) { n++ })
	return n > 0
}

// parseArgs parses flags that may appear anywhere among the positional
// arguments and returns the positional ones.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		// "-5" is a value, not a flag
		if len(args) > 0 && isNegativeNumber(args[0]) {
			positional = append(positional, args[0])
			args = args[1:]
			continue
		}
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, err
			}
			return nil, &UsageError{Err: err}
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func isNegativeNumber(s string) bool {
	if !strings.HasPrefix(s, "-") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// wantArgs checks the positional argument count.
func wantArgs(args []string, min, max int) error {
	switch {
	case len(args) < min:
		return usageErrorf("expected at least %d arguments, got %d", min, len(args))
	case max >= 0 && len(args) > max:
		return usageErrorf("expected at most %d arguments, got %d", max, len(args))
	}
	return nil
}

// intArg parses a positional integer argument.
func intArg(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, usageErrorf("%s must be an integer, got %q", name, value)
	}
	return n, nil
}

// check validates an options struct against its tags.
func check(opts any) error {
	err := validate.Struct(opts)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = formatFieldError(fe)
	}
	return &UsageError{Err: errors.New(strings.Join(msgs, "; "))}
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "nefield":
		return fmt.Sprintf("%s must differ from %s", e.Field(), fieldArgName(e))
	case "min":
		return fmt.Sprintf("%s needs at least %s entries", e.Field(), e.Param())
	case "dive":
		return fmt.Sprintf("%s contains invalid values", e.Field())
	default:
		return fmt.Sprintf("%s is invalid", e.Field())
	}
}

// fieldArgName turns a nefield parameter (a Go field name) into the
// argument name used in messages.
func fieldArgName(e validator.FieldError) string {
	return argNames[e.Param()]
}

// argNames maps option field names compared with nefield to their argument names.
var argNames = map[string]string{
	"Input":  "input",
	"Output": "output",
	"Other":  "other",
}
