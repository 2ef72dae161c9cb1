package stream

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

// Handlers is the set of callbacks a stream consumer supplies, one per event
// kind. Every field is optional; events without a handler are dropped.
type Handlers struct {
	OnMetadata    func(Metadata)
	OnToken       func(token string)
	OnReportToken func(token string)
	OnDone        func(Done)
	OnCompleted   func(Completed)
	OnError       func(ErrorPayload)

	// OnDecodeError receives frames that could not be decoded. Decoding
	// continues with the next frame either way.
	OnDecodeError func(*DecodeError)
}

// Stats summarizes one dispatched stream.
type Stats struct {
	Frames       int
	DecodeErrors int
	Events       map[Kind]int
}

func (s *Stats) count(kind Kind) {
	if s.Events == nil {
		s.Events = make(map[Kind]int)
	}
	s.Events[kind]++
}

// Dispatch routes ev to the matching handler. Unknown kinds are ignored.
func (h Handlers) Dispatch(ev Event) {
	switch ev.Kind {
	case KindMetadata:
		if h.OnMetadata != nil && ev.Metadata != nil {
			h.OnMetadata(*ev.Metadata)
		}
	case KindToken:
		if h.OnToken != nil {
			h.OnToken(ev.Token)
		}
	case KindReportToken:
		if h.OnReportToken != nil {
			h.OnReportToken(ev.Token)
		}
	case KindDone:
		if h.OnDone != nil && ev.Done != nil {
			h.OnDone(*ev.Done)
		}
	case KindCompleted:
		if h.OnCompleted != nil && ev.Completed != nil {
			h.OnCompleted(*ev.Completed)
		}
	case KindError:
		if h.OnError != nil && ev.Error != nil {
			h.OnError(*ev.Error)
		}
	}
}

// DispatchFrame decodes one frame payload and dispatches it. Decode failures
// are logged and reported to OnDecodeError.
func (h Handlers) DispatchFrame(frame string, log *zap.Logger) (Kind, error) {
	ev, err := ParseEvent(frame)
	if err != nil {
		if log != nil {
			log.Warn("skipping malformed stream frame", zap.Error(err), zap.Int("frame_len", len(frame)))
		}
		var de *DecodeError
		if h.OnDecodeError != nil && errors.As(err, &de) {
			h.OnDecodeError(de)
		}
		return "", err
	}
	h.Dispatch(ev)
	return ev.Kind, nil
}

// Run decodes r frame by frame and dispatches every event on the calling
// goroutine, in arrival order, until the reader is exhausted. The returned
// error is a transport failure (or ctx.Err()); decode errors never end Run.
func Run(ctx context.Context, r io.Reader, h Handlers, log *zap.Logger) (Stats, error) {
	var stats Stats
	for frame, err := range Frames(ctx, r) {
		if err != nil {
			return stats, err
		}
		stats.Frames++
		kind, derr := h.DispatchFrame(frame, log)
		if derr != nil {
			stats.DecodeErrors++
			continue
		}
		stats.count(kind)
	}
	return stats, nil
}
