package internal

// Template delimiters. Fixed by the grammar, shared by both flavors.
const (
	DelimOutputOpen  = "{{"
	DelimOutputClose = "}}"
	DelimTagOpen     = "{%"
	DelimTagClose    = "%}"
)

// Flavor names. The internal package works with plain strings so the
// public package can own the Flavor type.
const (
	FlavorLiquid = "liquid"
	FlavorJekyll = "jekyll"
)

// Built-in tag names
const (
	TagNameAssign  = "assign"
	TagNameCapture = "capture"
	TagNameCase    = "case"
	TagNameComment = "comment"
	TagNameCycle   = "cycle"
	TagNameElse    = "else"
	TagNameElsif   = "elsif"
	TagNameFor     = "for"
	TagNameIf      = "if"
	TagNameInclude = "include"
	TagNameRaw     = "raw"
	TagNameUnless  = "unless"
	TagNameWhen    = "when"
)

// End-tag prefix: "{% endif %}", "{% endfor %}", ...
const EndTagPrefix = "end"

// CST symbol names for non-tag constructs
const (
	SymbolRoot   = "ROOT"
	SymbolText   = "TEXT"
	SymbolOutput = "OUTPUT"
)

// Registry kind labels, used in log fields and unknown-handler errors
const (
	HandlerKindTag    = "tag"
	HandlerKindFilter = "filter"
)

// Default limits
const (
	DefaultMaxIterations = 10000 // per for loop
	DefaultMaxBuildDepth = 100   // nested include depth
)

// Loop metadata variable exposed inside for blocks
const (
	ForloopVarName   = "forloop"
	ForloopKeyIndex  = "index"
	ForloopKeyIndex0 = "index0"
	ForloopKeyRIndex = "rindex"
	ForloopKeyFirst  = "first"
	ForloopKeyLast   = "last"
	ForloopKeyLength = "length"
)

// Error message constants
const (
	ErrMsgUnterminatedOutput  = "unterminated output expression"
	ErrMsgUnterminatedTag     = "unterminated tag"
	ErrMsgUnterminatedBlock   = "unterminated block tag"
	ErrMsgUnterminatedRaw     = "unterminated raw block"
	ErrMsgEmptyTag            = "tag name cannot be empty"
	ErrMsgUnexpectedEndTag    = "unexpected end tag"
	ErrMsgMismatchedEndTag    = "mismatched end tag"
	ErrMsgOrphanBranchTag     = "branch tag outside its block"
	ErrMsgEmptyExpression     = "empty expression"
	ErrMsgUnexpectedToken     = "unexpected token in expression"
	ErrMsgUnterminatedString  = "unterminated string literal"
	ErrMsgUnterminatedIndex   = "unterminated index expression"
	ErrMsgEmptyFilterName     = "filter name cannot be empty"
	ErrMsgBadForMarkup        = "malformed for tag, expected 'item in collection'"
	ErrMsgBadAssignMarkup     = "malformed assign tag, expected 'name = value'"
	ErrMsgBadCaptureMarkup    = "malformed capture tag, expected a variable name"
	ErrMsgBadIncludeMarkup    = "malformed include tag, expected a partial name"
	ErrMsgBareIncludeName     = "unquoted partial names require the jekyll flavor"
	ErrMsgPartialNotFound     = "included partial not found"
	ErrMsgIncludeDepth        = "maximum include depth exceeded"
	ErrMsgCycleNoValues       = "cycle tag requires at least one value"
	ErrMsgNonIterable         = "value is not iterable"
	ErrMsgDivisionByZero      = "division by zero"
	ErrMsgNotComparable       = "values are not comparable"
	ErrMsgFilterArgCount      = "wrong number of filter arguments"
	ErrMsgFilterNumericInput  = "filter requires a numeric input"
	ErrMsgFilterNumericArg    = "filter requires a numeric argument"
	ErrMsgUnknownConstruct    = "unknown syntax construct"
)

// Log message constants
const (
	LogMsgLexerStart        = "lexer started"
	LogMsgLexerEnd          = "lexer finished"
	LogMsgParserStart       = "parser started"
	LogMsgParserEnd         = "parser finished"
	LogMsgRegistryCreated   = "registry created"
	LogMsgHandlerRegistered = "handler registered"
	LogMsgHandlerReplaced   = "handler replaced"
	LogMsgBuildStart        = "graph build started"
	LogMsgBuildEnd          = "graph build finished"
)

// Log field constants
const (
	LogFieldKind   = "kind"
	LogFieldName   = "name"
	LogFieldSource = "source_bytes"
	LogFieldTokens = "tokens"
	LogFieldNodes  = "nodes"
)
