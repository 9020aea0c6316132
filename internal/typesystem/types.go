package typesystem

import (
	"fmt"
	"strings"
)

// Type is the interface for all static types seen by the lowering core.
type Type interface {
	String() string
	// Equal reports structural equality. Structs compare by name.
	Equal(other Type) bool
}

// TField is the native prime field element.
type TField struct{}

func (TField) String() string { return "Field" }
func (TField) Equal(o Type) bool {
	_, ok := o.(TField)
	return ok
}

// TInt is a fixed-width integer.
type TInt struct {
	Bits   int
	Signed bool
}

func (t TInt) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Bits)
	}
	return fmt.Sprintf("u%d", t.Bits)
}

func (t TInt) Equal(o Type) bool {
	other, ok := o.(TInt)
	return ok && other.Bits == t.Bits && other.Signed == t.Signed
}

// TBool is the boolean type.
type TBool struct{}

func (TBool) String() string { return "bool" }
func (TBool) Equal(o Type) bool {
	_, ok := o.(TBool)
	return ok
}

// TUnit is the type of expressions that produce no value.
type TUnit struct{}

func (TUnit) String() string { return "()" }
func (TUnit) Equal(o Type) bool {
	_, ok := o.(TUnit)
	return ok
}

// TArray is a fixed-length array. Its length is known at compile time.
type TArray struct {
	Elem Type
	Len  int
}

func (t TArray) String() string { return fmt.Sprintf("[%s; %d]", t.Elem, t.Len) }
func (t TArray) Equal(o Type) bool {
	other, ok := o.(TArray)
	return ok && other.Len == t.Len && other.Elem.Equal(t.Elem)
}

// TSlice is a runtime-length sequence.
type TSlice struct {
	Elem Type
}

func (t TSlice) String() string { return fmt.Sprintf("[%s]", t.Elem) }
func (t TSlice) Equal(o Type) bool {
	other, ok := o.(TSlice)
	return ok && other.Elem.Equal(t.Elem)
}

// StructField is one named member of a struct.
type StructField struct {
	Name string
	Type Type
}

// TStruct is a named aggregate. Field order is declaration order.
type TStruct struct {
	Name   string
	Fields []StructField
}

func (t TStruct) String() string { return t.Name }
func (t TStruct) Equal(o Type) bool {
	other, ok := o.(TStruct)
	return ok && other.Name == t.Name && len(other.Fields) == len(t.Fields)
}

// FieldIndex returns the position of the named field, or -1.
func (t TStruct) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Describe renders the struct with its fields, for diagnostics.
func (t TStruct) Describe() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.Name + ": " + f.Type.String()
	}
	return fmt.Sprintf("%s { %s }", t.Name, strings.Join(parts, ", "))
}

// TTuple is an anonymous aggregate.
type TTuple struct {
	Elems []Type
}

func (t TTuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t TTuple) Equal(o Type) bool {
	other, ok := o.(TTuple)
	if !ok || len(other.Elems) != len(t.Elems) {
		return false
	}
	for i := range t.Elems {
		if !t.Elems[i].Equal(other.Elems[i]) {
			return false
		}
	}
	return true
}

// TRef is a mutable reference to a memory cell holding Elem.
type TRef struct {
	Elem Type
}

func (t TRef) String() string { return "&mut " + t.Elem.String() }
func (t TRef) Equal(o Type) bool {
	other, ok := o.(TRef)
	return ok && other.Elem.Equal(t.Elem)
}

// TFunc is the type of function references and closures alike.
type TFunc struct {
	Params []Type
	Return Type
}

func (t TFunc) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return fmt.Sprintf("fn(%s) -> %s", strings.Join(parts, ", "), t.Return)
}

func (t TFunc) Equal(o Type) bool {
	other, ok := o.(TFunc)
	if !ok || len(other.Params) != len(t.Params) {
		return false
	}
	for i := range t.Params {
		if !t.Params[i].Equal(other.Params[i]) {
			return false
		}
	}
	return t.Return.Equal(other.Return)
}

// Common types.
var (
	Field = TField{}
	Bool  = TBool{}
	Unit  = TUnit{}
	U8    = TInt{Bits: 8}
	U32   = TInt{Bits: 32}
	U64   = TInt{Bits: 64}
	I32   = TInt{Bits: 32, Signed: true}
	I64   = TInt{Bits: 64, Signed: true}
)

// IsNumeric reports whether arithmetic is defined on t.
func IsNumeric(t Type) bool {
	switch t.(type) {
	case TField, TInt:
		return true
	}
	return false
}

// IsOrdered reports whether t has a total order usable by < and sort.
func IsOrdered(t Type) bool {
	return IsNumeric(t)
}

// ElemType returns the element type of an array or slice.
func ElemType(t Type) (Type, bool) {
	switch typ := t.(type) {
	case TArray:
		return typ.Elem, true
	case TSlice:
		return typ.Elem, true
	}
	return nil, false
}

// IsSequence reports whether t is an array or a slice.
func IsSequence(t Type) bool {
	_, ok := ElemType(t)
	return ok
}

// IsReference reports whether t is a mutable reference.
func IsReference(t Type) bool {
	_, ok := t.(TRef)
	return ok
}

// Deref strips every reference layer from t, returning the number stripped.
func Deref(t Type) (Type, int) {
	depth := 0
	for {
		ref, ok := t.(TRef)
		if !ok {
			return t, depth
		}
		t = ref.Elem
		depth++
	}
}

// Comparable reports whether == is defined on t. References and functions
// have no value equality.
func Comparable(t Type) bool {
	switch typ := t.(type) {
	case TRef, TFunc:
		return false
	case TArray:
		return Comparable(typ.Elem)
	case TSlice:
		return Comparable(typ.Elem)
	case TTuple:
		for _, e := range typ.Elems {
			if !Comparable(e) {
				return false
			}
		}
	case TStruct:
		for _, f := range typ.Fields {
			if !Comparable(f.Type) {
				return false
			}
		}
	}
	return true
}
