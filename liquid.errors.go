package liquid

import (
	"fmt"
	"strconv"
	"time"

	"github.com/itsatony/go-cuserr"

	"github.com/itsatony/go-liquid/internal"
)

// Error message constants - ALL error messages must be constants (NO MAGIC STRINGS)
const (
	// Parse errors
	ErrMsgParseFailed  = "template parsing failed"
	ErrMsgSourceUnread = "template source could not be read"
	ErrMsgBadFlavor    = "unknown template flavor"

	// Build errors
	ErrMsgBuildFailed   = "node graph build failed"
	ErrMsgUnknownTag    = "no handler registered for tag"
	ErrMsgUnknownFilter = "no handler registered for filter"

	// Bind errors
	ErrMsgMalformedInput = "variable payload is not a valid mapping document"
	ErrMsgInvalidKey     = "variable key is not a string"

	// Protection errors
	ErrMsgSizeExceeded   = "template exceeds the configured size limit"
	ErrMsgTimeout        = "render exceeded the configured time limit"
	ErrMsgAbandonedLimit = "too many abandoned evaluations outstanding"
	ErrMsgRenderCanceled = "render canceled by caller"

	// Render errors
	ErrMsgEvalFailed = "template evaluation failed"
	ErrMsgEvalPanic  = "template evaluation panicked"
)

// Error code constants for categorization
const (
	ErrCodeParse   = "LIQUID_PARSE"
	ErrCodeBuild   = "LIQUID_BUILD"
	ErrCodeBind    = "LIQUID_BIND"
	ErrCodeProtect = "LIQUID_PROTECT"
	ErrCodeRender  = "LIQUID_RENDER"
)

// Position represents a location in the source template
type Position struct {
	Offset int // Byte offset from start
	Line   int // 1-indexed line number
	Column int // 1-indexed column number
}

// String returns a human-readable position string
func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

func positionOf(pos internal.Position) Position {
	return Position{Offset: pos.Offset, Line: pos.Line, Column: pos.Column}
}

func withPosition(err *cuserr.CustomError, pos Position) *cuserr.CustomError {
	return err.
		WithMetadata(MetaKeyLine, strconv.Itoa(pos.Line)).
		WithMetadata(MetaKeyColumn, strconv.Itoa(pos.Column)).
		WithMetadata(MetaKeyOffset, strconv.Itoa(pos.Offset))
}

// NewParseError creates a parse error with position context.
func NewParseError(msg string, pos Position, cause error) error {
	var err *cuserr.CustomError
	if cause != nil {
		err = cuserr.WrapStdError(cause, ErrCodeParse, msg)
	} else {
		err = cuserr.NewValidationError(ErrCodeParse, msg)
	}
	return withPosition(err, pos)
}

// NewUnknownTagError reports a tag name with no registered handler.
func NewUnknownTagError(name string, pos Position) error {
	return withPosition(
		cuserr.NewNotFoundError(MetaKeyTag, ErrMsgUnknownTag), pos).
		WithMetadata(MetaKeyName, name)
}

// NewUnknownFilterError reports a filter name with no registered handler.
func NewUnknownFilterError(name string, pos Position) error {
	return withPosition(
		cuserr.NewNotFoundError(MetaKeyFilter, ErrMsgUnknownFilter), pos).
		WithMetadata(MetaKeyName, name)
}

// NewBuildError wraps any other graph-build failure.
func NewBuildError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeBuild, ErrMsgBuildFailed)
}

// NewMalformedInputError reports an undecodable variable payload.
func NewMalformedInputError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeBind, ErrMsgMalformedInput)
}

// NewInvalidKeyError reports a non-string key in a key/value argument list.
func NewInvalidKeyError(index int, value any) error {
	return cuserr.NewValidationError(ErrCodeBind, ErrMsgInvalidKey).
		WithMetadata(MetaKeyIndex, strconv.Itoa(index)).
		WithMetadata(MetaKeyValue, fmt.Sprintf("%v", value))
}

// NewSizeExceededError reports a template above the size limit.
func NewSizeExceededError(size, limit int64) error {
	return cuserr.NewValidationError(ErrCodeProtect, ErrMsgSizeExceeded).
		WithMetadata(MetaKeySize, strconv.FormatInt(size, 10)).
		WithMetadata(MetaKeyLimit, strconv.FormatInt(limit, 10))
}

// NewTimeoutError reports a render that exceeded the time limit. The
// underlying evaluation may still be running; it is not preempted.
func NewTimeoutError(limit time.Duration) error {
	return cuserr.NewValidationError(ErrCodeProtect, ErrMsgTimeout).
		WithMetadata(MetaKeyDuration, limit.String())
}

// NewAbandonedLimitError reports that the cap on concurrently
// outstanding abandoned evaluations was reached.
func NewAbandonedLimitError(limit int64) error {
	return cuserr.NewValidationError(ErrCodeProtect, ErrMsgAbandonedLimit).
		WithMetadata(MetaKeyLimit, strconv.FormatInt(limit, 10))
}

// NewRenderCanceledError reports caller-side context cancellation.
func NewRenderCanceledError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeProtect, ErrMsgRenderCanceled)
}

// NewEvalError wraps a failure raised inside evaluation, including
// failures of third-party tag and filter handlers.
func NewEvalError(cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeRender, ErrMsgEvalFailed)
}

// NewEvalPanicError reports a recovered panic from an evaluation handler.
func NewEvalPanicError(recovered any) error {
	return cuserr.NewValidationError(ErrCodeRender, ErrMsgEvalPanic).
		WithMetadata(MetaKeyValue, fmt.Sprintf("%v", recovered))
}

// NewBadFlavorError reports an unknown flavor selector.
func NewBadFlavorError(flavor Flavor) error {
	return cuserr.NewValidationError(ErrCodeParse, ErrMsgBadFlavor).
		WithMetadata(MetaKeyFlavor, flavor.String())
}

// NewSourceReadError reports an unreadable template source file.
func NewSourceReadError(path string, cause error) error {
	return cuserr.WrapStdError(cause, ErrCodeParse, ErrMsgSourceUnread).
		WithMetadata(MetaKeyPath, path)
}
