package config

// ConfigFileName is the options file looked up from the working directory upwards.
const ConfigFileName = "refssa.yaml"

// ConfigFileNames are all recognized options file names, in lookup order.
var ConfigFileNames = []string{"refssa.yaml", "refssa.yml"}

// ManifestFileName is the package manifest file name.
const ManifestFileName = "Refssa.toml"

// ModuleFileExt is the extension of encoded SSA modules.
const ModuleFileExt = ".rssa"

// DefaultTargetDir is where `build` writes encoded modules, relative to the package.
const DefaultTargetDir = "target"

// EntryFuncName is the function a program starts from unless the manifest says otherwise.
const EntryFuncName = "main"

// Built-in slice/array function names
const (
	LenFuncName       = "len"
	PushBackFuncName  = "push_back"
	PushFrontFuncName = "push_front"
	PopBackFuncName   = "pop_back"
	PopFrontFuncName  = "pop_front"
	InsertFuncName    = "insert"
	RemoveFuncName    = "remove"
	SortFuncName      = "sort"
	SortViaFuncName   = "sort_via"
	MapFuncName       = "map"
	FoldFuncName      = "fold"
	ReduceFuncName    = "reduce"
	AllFuncName       = "all"
	AnyFuncName       = "any"
)

// Intrinsic names as they appear in printed SSA
const (
	IntrinsicPushBack  = "slice_push_back"
	IntrinsicPushFront = "slice_push_front"
	IntrinsicPopBack   = "slice_pop_back"
	IntrinsicPopFront  = "slice_pop_front"
	IntrinsicInsert    = "slice_insert"
	IntrinsicRemove    = "slice_remove"
)

// Default limits
const (
	DefaultStepLimit    = 1_000_000
	DefaultMaxCallDepth = 256
	DefaultCachePath    = ".refssa/cache.db"
	DefaultLogLevel     = "info"
	DefaultColorMode    = "auto"
)
