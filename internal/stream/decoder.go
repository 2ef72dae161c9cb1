package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"strings"
)

// FramePrefix marks the lines of a stream that carry an event.
const FramePrefix = "data: "

// defaultChunkSize is the read size used by Frames.
const defaultChunkSize = 4096

// Decoder splits arbitrarily chunked stream text into frames. Chunk
// boundaries need not align with line boundaries: an unterminated trailing
// line is held back and prepended to the next chunk.
//
// The zero value is ready to use.
type Decoder struct {
	partial strings.Builder
}

// Feed consumes one chunk and returns the payloads of all frames completed by
// it, in order, with FramePrefix removed.
func (d *Decoder) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.partial.Write(chunk)

	// Only the new chunk can hold the newline that completes lines.
	cut := bytes.LastIndexByte(chunk, '\n')
	if cut < 0 {
		return nil
	}
	text := d.partial.String()
	last := len(text) - len(chunk) + cut
	complete, rest := text[:last], text[last+1:]
	d.partial.Reset()
	d.partial.WriteString(rest)

	var frames []string
	for _, line := range strings.Split(complete, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if payload, ok := strings.CutPrefix(line, FramePrefix); ok {
			frames = append(frames, payload)
		}
	}
	return frames
}

// Pending reports whether an unterminated line is buffered.
func (d *Decoder) Pending() bool {
	return d.partial.Len() > 0
}

// Reset discards any buffered partial line. It is called at end of stream:
// a line that never saw its newline is not a frame.
func (d *Decoder) Reset() {
	d.partial.Reset()
}

// Frames lazily decodes r into frame payloads. A read failure other than EOF
// is yielded once with an empty frame and ends the sequence. Cancelling ctx
// ends the sequence with ctx.Err() at the next chunk boundary.
func Frames(ctx context.Context, r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var dec Decoder
		defer dec.Reset()

		buf := make([]byte, defaultChunkSize)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			n, err := r.Read(buf)
			if n > 0 {
				for _, frame := range dec.Feed(buf[:n]) {
					if !yield(frame, nil) {
						return
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					err = ctxErr
				}
				yield("", err)
				return
			}
		}
	}
}
