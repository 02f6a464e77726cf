package symbol

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/njchilds90/golambdify/symbol/bigmath"
)

// ============================================================
// JSON Serialization
// ============================================================

// ToMap returns the JSON object form of e.
func ToMap(e Expr) map[string]any { return e.toJSON() }

// ToJSON returns the JSON text of e.
func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// Unmarshal reads an expression from JSON text.
func Unmarshal(data []byte) (Expr, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decoding expression")
	}
	return FromJSON(m)
}

// Decode converts a decoded JSON value to an expression: objects are read
// with FromJSON, strings are parsed and numbers converted.
func Decode(v any) (Expr, error) {
	switch x := v.(type) {
	case map[string]any:
		return FromJSON(x)
	case nil:
		return nil, errors.New("expression is null")
	}
	return Sympify(v)
}

// FromJSON builds an expression from its JSON object form.
func FromJSON(data map[string]any) (Expr, error) {
	if data == nil {
		return nil, errors.New("expression must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, errors.New("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, errors.New("field 'type' must be a non-empty string")
	}

	subObj := func(field string) (Expr, error) {
		v, ok := data[field]
		if !ok {
			return nil, errors.Errorf("%s: missing %q", typ, field)
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, errors.Errorf("%s: %q must be an object", typ, field)
		}
		e, err := FromJSON(m)
		return e, errors.Wrapf(err, "%s: %s", typ, field)
	}

	subObjArray := func(field string) ([]Expr, error) {
		v, ok := data[field]
		if !ok {
			return nil, errors.Errorf("%s: missing %q", typ, field)
		}
		raw, ok := v.([]any)
		if !ok {
			return nil, errors.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]Expr, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]any)
			if !ok {
				return nil, errors.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			e, err := FromJSON(m)
			if err != nil {
				return nil, errors.Wrapf(err, "%s: %s[%d]", typ, field, i)
			}
			out[i] = e
		}
		return out, nil
	}

	subString := func(field string) (string, error) {
		v, ok := data[field]
		if !ok {
			return "", errors.Errorf("%s: missing %q", typ, field)
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return "", errors.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	switch typ {
	case "num":
		val, err := subString("value")
		if err != nil {
			return nil, err
		}
		r, ok := new(big.Rat).SetString(val)
		if !ok {
			return nil, errors.Errorf("invalid num value: %s", val)
		}
		return &Num{val: r}, nil

	case "float":
		val, err := subString("value")
		if err != nil {
			return nil, err
		}
		digits := 15
		if d, ok := data["digits"].(float64); ok && d >= 1 {
			digits = int(d)
		}
		f, ok := new(big.Float).SetPrec(bigmath.Digits(digits)).SetString(val)
		if !ok {
			return nil, errors.Errorf("invalid float value: %s", val)
		}
		return NewFloat(f, digits), nil

	case "sym":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil

	case "const":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		switch name {
		case "pi":
			return Pi, nil
		case "E":
			return E, nil
		}
		return nil, errors.Errorf("unknown constant: %s", name)

	case "add":
		terms, err := subObjArray("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil

	case "mul":
		factors, err := subObjArray("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil

	case "pow":
		base, err := subObj("base")
		if err != nil {
			return nil, err
		}
		exp, err := subObj("exp")
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil

	case "func":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		args, err := subObjArray("args")
		if err != nil {
			return nil, err
		}
		if want, ok := Arity[name]; !ok || want != len(args) {
			return nil, errUnknownFunc(name, len(args))
		}
		return FuncOf(name, args...), nil
	}
	return nil, errors.Errorf("unknown expression type: %s", typ)
}
