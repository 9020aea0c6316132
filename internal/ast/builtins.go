package ast

import "github.com/funvibe/refssa/internal/config"

// Builtin is the stable tag the front end attaches to a resolved builtin call.
type Builtin int

const (
	BuiltinInvalid Builtin = iota
	BuiltinLen
	BuiltinPushBack
	BuiltinPushFront
	BuiltinPopBack
	BuiltinPopFront
	BuiltinInsert
	BuiltinRemove
	BuiltinSort
	BuiltinSortVia
	BuiltinMap
	BuiltinFold
	BuiltinReduce
	BuiltinAll
	BuiltinAny
)

var builtinNames = map[Builtin]string{
	BuiltinLen:       config.LenFuncName,
	BuiltinPushBack:  config.PushBackFuncName,
	BuiltinPushFront: config.PushFrontFuncName,
	BuiltinPopBack:   config.PopBackFuncName,
	BuiltinPopFront:  config.PopFrontFuncName,
	BuiltinInsert:    config.InsertFuncName,
	BuiltinRemove:    config.RemoveFuncName,
	BuiltinSort:      config.SortFuncName,
	BuiltinSortVia:   config.SortViaFuncName,
	BuiltinMap:       config.MapFuncName,
	BuiltinFold:      config.FoldFuncName,
	BuiltinReduce:    config.ReduceFuncName,
	BuiltinAll:       config.AllFuncName,
	BuiltinAny:       config.AnyFuncName,
}

func (b Builtin) String() string {
	if name, ok := builtinNames[b]; ok {
		return name
	}
	return "<invalid builtin>"
}

// Arity is the number of arguments the builtin takes besides its receiver.
func (b Builtin) Arity() int {
	switch b {
	case BuiltinLen, BuiltinPopBack, BuiltinPopFront, BuiltinSort:
		return 0
	case BuiltinInsert, BuiltinFold:
		return 2
	case BuiltinInvalid:
		return -1
	}
	return 1
}

// LookupBuiltin maps a builtin name to its tag.
func LookupBuiltin(name string) (Builtin, bool) {
	for b, n := range builtinNames {
		if n == name {
			return b, true
		}
	}
	return BuiltinInvalid, false
}
