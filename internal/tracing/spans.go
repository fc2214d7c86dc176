package tracing

// Span names.
const (
	SpanHighlightRequest = "highlight.request"
	SpanParse            = "highlight.parse"
	SpanClassify         = "highlight.classify"
)

// Span attribute keys.
const (
	AttrLanguage    = "highlight.language"
	AttrDecision    = "highlight.decision"
	AttrVersion     = "highlight.version"
	AttrTextBytes   = "highlight.text_bytes"
	AttrRanges      = "highlight.ranges"
	AttrRatio       = "highlight.ratio"
	AttrRequestID   = "request.id"
	AttrArtifactHit = "cache.artifact_hit"

	AttrErrorType = "error.type"
)
