package lambdify

import (
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"

	"github.com/njchilds90/golambdify/symbol"
)

// StateVersion is the version of the serialized form written by State.
// FromState accepts any state with the same major version.
const StateVersion = "v1.0.0"

// State is everything needed to rebuild a Lambdify. Compiled backends are
// never part of it.
type State struct {
	Version    string
	Variables  []string
	Expression symbol.Expr
}

type stateJSON struct {
	Version    string         `json:"version"`
	Variables  []string       `json:"variables"`
	Expression map[string]any `json:"expression"`
}

// MarshalJSON implements json.Marshaler.
func (s State) MarshalJSON() ([]byte, error) {
	if s.Expression == nil {
		return nil, errors.New("state without expression")
	}
	return json.Marshal(stateJSON{
		Version:    s.Version,
		Variables:  s.Variables,
		Expression: symbol.ToMap(s.Expression),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decoding state")
	}
	if raw.Expression == nil {
		return errors.New("state without expression")
	}
	e, err := symbol.FromJSON(raw.Expression)
	if err != nil {
		return errors.Wrap(err, "decoding state expression")
	}
	*s = State{Version: raw.Version, Variables: raw.Variables, Expression: e}
	return nil
}

// State returns the variables and the stored expression of l.
func (l *Lambdify) State() State {
	return State{Version: StateVersion, Variables: l.Variables(), Expression: l.expr}
}

// FromState rebuilds a Lambdify from a state. The expression is already
// simplified, so it is compiled as is.
func FromState(s State, opts ...Option) (*Lambdify, error) {
	if !semver.IsValid(s.Version) {
		return nil, errors.Errorf("invalid state version %q", s.Version)
	}
	if semver.Major(s.Version) != semver.Major(StateVersion) {
		return nil, errors.Errorf("state version %s is incompatible with %s", s.Version, StateVersion)
	}
	if s.Expression == nil {
		return nil, errors.New("state without expression")
	}
	return New(s.Variables, s.Expression, append(opts, WithoutSimplify())...)
}

// MarshalJSON implements json.Marshaler.
func (l *Lambdify) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.State())
}

// UnmarshalJSON implements json.Unmarshaler, recompiling every backend.
func (l *Lambdify) UnmarshalJSON(data []byte) error {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	restored, err := FromState(s)
	if err != nil {
		return err
	}
	*l = *restored
	return nil
}
