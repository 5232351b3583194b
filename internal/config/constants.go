package config

// Settings file names, in lookup order.
var SettingsFileNames = []string{"sqrat.yaml", "sqrat.yml", "sqrat.toml"}

// DefaultMaxArity is the largest overload arity accepted at bind time.
const DefaultMaxArity = 14

// MaxArityLimit bounds vm.max_arity in settings files.
const MaxArityLimit = 64

// Primitive parameter tag names, as they appear in type mismatch diagnostics.
const (
	BoolTagName     = "bool"
	IntegerTagName  = "integer"
	FloatTagName    = "float"
	StringTagName   = "string"
	ArrayTagName    = "array"
	FunctionTagName = "closure"
	TableTagName    = "table"
	UnknownTagName  = "unknown"
)

// Single-character signature codes used when rendering key tuples.
const (
	BoolCode     = "b"
	IntegerCode  = "i"
	FloatCode    = "f"
	StringCode   = "s"
	ArrayCode    = "a"
	FunctionCode = "c"
	TableCode    = "t"
	ClassCodePre = "@"
)

// Call convention: slot 1 holds the receiver (root table or instance) and the
// last slot holds the function name free variable of an overload trampoline.
const (
	ReceiverSlot     = 1
	FirstArgSlot     = 2
	TrampolineExtras = 2
)

// Log levels accepted in settings.
var LogLevels = []string{"debug", "info", "warn", "error"}

const (
	DefaultLogLevel     = "info"
	DefaultCatalogPath  = "overloads.db"
	DefaultHistoryFile  = ".sqrat_history"
	DefaultErrorHandles = true
)
