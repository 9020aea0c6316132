package vm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/funvibe/refssa/internal/typesystem"
)

// ParseValue reads a command line argument of the given type. Scalars use
// their usual spelling; arrays and slices are written [a, b, c].
func ParseValue(typ typesystem.Type, text string) (Value, error) {
	text = strings.TrimSpace(text)
	switch t := typ.(type) {
	case typesystem.TBool:
		switch text {
		case "true":
			return BoolVal(true), nil
		case "false":
			return BoolVal(false), nil
		}
		return Value{}, fmt.Errorf("invalid bool %q", text)

	case typesystem.TField:
		n, ok := new(big.Int).SetString(text, 0)
		if !ok {
			return Value{}, fmt.Errorf("invalid field element %q", text)
		}
		return FieldVal(n), nil

	case typesystem.TInt:
		n, ok := new(big.Int).SetString(text, 0)
		if !ok {
			return Value{}, fmt.Errorf("invalid %s %q", t, text)
		}
		if !inRange(n, t) {
			return Value{}, fmt.Errorf("%s out of range for %s", text, t)
		}
		return IntVal(n), nil

	case typesystem.TArray, typesystem.TSlice:
		elem, _ := typesystem.ElemType(t)
		items, err := splitList(text)
		if err != nil {
			return Value{}, err
		}
		if arr, ok := t.(typesystem.TArray); ok && len(items) != arr.Len {
			return Value{}, fmt.Errorf("%s needs %d elements, got %d", arr, arr.Len, len(items))
		}
		elems := make([]Value, len(items))
		for i, item := range items {
			v, err := ParseValue(elem, item)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = v
		}
		return ArrayVal(elems...), nil
	}
	return Value{}, fmt.Errorf("cannot pass a %s on the command line", typ)
}

// splitList splits "[a, [b, c], d]" into its top-level items.
func splitList(text string) ([]string, error) {
	if !strings.HasPrefix(text, "[") || !strings.HasSuffix(text, "]") {
		return nil, fmt.Errorf("expected [...], got %q", text)
	}
	body := strings.TrimSpace(text[1 : len(text)-1])
	if body == "" {
		return nil, nil
	}
	var items []string
	depth, start := 0, 0
	for i, r := range body {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced brackets in %q", text)
			}
		case ',':
			if depth == 0 {
				items = append(items, body[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced brackets in %q", text)
	}
	return append(items, body[start:]), nil
}
