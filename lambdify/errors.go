package lambdify

import (
	"fmt"
	"strings"
)

// ArgCountError reports a call with more positional arguments than
// variables.
type ArgCountError struct {
	Want, Got int
}

func (e *ArgCountError) Error() string {
	return fmt.Sprintf("the function cannot take %d arguments, it has %d variables", e.Got, e.Want)
}

// NameError reports a named argument matching no variable.
type NameError struct {
	Name  string
	Valid []string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("unknown argument %q, valid names are {%s}", e.Name, strings.Join(e.Valid, ", "))
}
