package liquid

import (
	"math"
	"time"
)

// Protection defaults. Both limits default to "effectively unbounded" so
// that guards never fail a render unless the owner opts in to limits.
const (
	DefaultMaxTemplateSizeBytes int64         = math.MaxInt64
	DefaultMaxRenderDuration    time.Duration = math.MaxInt64
)

// DefaultMaxAbandonedEvaluations caps how many timed-out render
// goroutines may still be running in the background before further
// renders fail fast.
const DefaultMaxAbandonedEvaluations int64 = 64

// Metadata keys for cuserr.WithMetadata
const (
	MetaKeyLine     = "line"
	MetaKeyColumn   = "column"
	MetaKeyOffset   = "offset"
	MetaKeyTag      = "tag"
	MetaKeyFilter   = "filter"
	MetaKeyName     = "name"
	MetaKeyFlavor   = "flavor"
	MetaKeySize     = "size_bytes"
	MetaKeyLimit    = "limit"
	MetaKeyDuration = "duration"
	MetaKeyKey      = "key"
	MetaKeyIndex    = "index"
	MetaKeyValue    = "value"
	MetaKeyPath     = "path"
)

// Log message constants
const (
	LogMsgEngineCreated       = "engine created"
	LogMsgTemplateParsed      = "template parsed"
	LogMsgRenderStart         = "render started"
	LogMsgRenderEnd           = "render finished"
	LogMsgRenderFailed        = "render failed"
	LogMsgEvaluationAbandoned = "evaluation abandoned after deadline"
	LogMsgAbandonedFinished   = "abandoned evaluation finished"
	LogMsgPartialRegistered   = "partial registered"
)

// Log field constants
const (
	LogFieldFlavor    = "flavor"
	LogFieldSource    = "source_bytes"
	LogFieldDuration  = "duration"
	LogFieldOutput    = "output_bytes"
	LogFieldPartial   = "partial"
	LogFieldAbandoned = "abandoned"
)
