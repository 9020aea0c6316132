package typesystem

import "fmt"

// MismatchError describes two types that were expected to agree.
type MismatchError struct {
	Expected Type
	Found    Type
	Context  string
}

func (e *MismatchError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)
	}
	return fmt.Sprintf("%s: expected %s, found %s", e.Context, e.Expected, e.Found)
}

// Expect returns a MismatchError when found is not equal to expected.
func Expect(expected, found Type, context string) error {
	if expected.Equal(found) {
		return nil
	}
	return &MismatchError{Expected: expected, Found: found, Context: context}
}
