// Package pipeline implements the media description core: the group
// aggregator that buckets album events behind a debounce window, the
// dispatcher that turns a bucket into one describe call, and the response
// chunker that splits long results for delivery.
package pipeline

import (
	"context"
	"fmt"
)

// Kind identifies the media type of an inbound event.
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
	KindVoice Kind = "voice"
)

// MIMEType returns the MIME type handed to the describer for this kind.
func (k Kind) MIMEType() string {
	switch k {
	case KindPhoto:
		return "image/jpeg"
	case KindVideo:
		return "video/mp4"
	case KindVoice:
		return "audio/ogg"
	}
	return "application/octet-stream"
}

// MediaEvent is one inbound media unit. Immutable once created; consumed
// exactly once by the pipeline that processes its group (or itself, when
// ungrouped).
type MediaEvent struct {
	ChatID  int64  // owning chat
	GroupID string // media group id, empty for ungrouped events
	Seq     int    // message id; buckets are ordered by this, not arrival order
	Kind    Kind
	FileRef string // opaque platform file reference
}

// ResolvedMedia is the downloaded form of a MediaEvent, owned by the
// dispatcher for the duration of one describe call.
type ResolvedMedia struct {
	Data []byte
	MIME string
	Kind Kind
}

// DescribeRequest is one unit of work for the describer: an ordered,
// non-empty set of resolved media.
type DescribeRequest struct {
	Media []ResolvedMedia
}

// Resolver turns a file reference into downloadable bytes. Implementations
// do not retry; transient failures surface to the dispatcher, which fails
// the whole bucket.
type Resolver interface {
	Resolve(ctx context.Context, ref string, kind Kind) (ResolvedMedia, error)
}

// Describer sends a describe request to the external AI service and returns
// text. An empty or whitespace-only result is a valid success ("nothing to
// say"), not an error. Retries are internal to the implementation.
type Describer interface {
	Describe(ctx context.Context, req DescribeRequest) (string, error)
}

// Delivery is the outbound side of a chat platform. SendPresence is
// best-effort; callers swallow its errors.
type Delivery interface {
	SendPresence(ctx context.Context, chatID int64, kind Kind) error
	SendText(ctx context.Context, chatID int64, replyTo int, text string) error
}

// Activations is the per-chat on/off flag consulted before any work is
// dispatched. The pipeline queries it but never mutates it.
type Activations interface {
	IsActive(ctx context.Context, chatID int64) bool
}

// ResolutionError reports that bytes could not be obtained for one media
// item. Any resolution failure fails the whole bucket.
type ResolutionError struct {
	Ref string
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve media %s: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }
