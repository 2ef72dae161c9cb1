package stream

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleStream = "data: {\"type\":\"metadata\",\"data\":{\"id\":7,\"order\":1,\"task_type\":\"conflict\",\"time_limit_minutes\":5}}\n\n" +
	": keep-alive comment\n" +
	"data: {\"type\":\"token\",\"data\":{\"token\":\"Привет, \"}}\n\n" +
	"event: ignored\n" +
	"data: {\"kind\":\"token\",\"token\":\"мир\"}\r\n\r\n" +
	"data: {\"type\":\"done\",\"data\":{\"full_text\":\"Привет, мир\",\"task_id\":7}}\n\n"

// chunkReader returns its chunks one Read at a time.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	if n < len(r.chunks[0]) {
		r.chunks[0] = r.chunks[0][n:]
	} else {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func collectFrames(t *testing.T, r io.Reader) []string {
	t.Helper()
	var frames []string
	for frame, err := range Frames(context.Background(), r) {
		require.NoError(t, err)
		frames = append(frames, frame)
	}
	return frames
}

func TestDecoder_IgnoresNonDataLines(t *testing.T) {
	frames := collectFrames(t, strings.NewReader(sampleStream))
	require.Len(t, frames, 4)
	assert.Equal(t, `{"kind":"token","token":"мир"}`, frames[2])
}

func TestDecoder_ReassemblesEverySingleSplit(t *testing.T) {
	want := collectFrames(t, strings.NewReader(sampleStream))

	for i := 1; i < len(sampleStream); i++ {
		r := &chunkReader{chunks: []string{sampleStream[:i], sampleStream[i:]}}
		got := collectFrames(t, r)
		require.Equal(t, want, got, "split at byte %d", i)
	}
}

func TestDecoder_ReassemblesRandomChunking(t *testing.T) {
	want := collectFrames(t, strings.NewReader(sampleStream))
	rng := rand.New(rand.NewPCG(1, 2))

	for round := 0; round < 200; round++ {
		var chunks []string
		rest := sampleStream
		for len(rest) > 0 {
			n := 1 + rng.IntN(12)
			if n > len(rest) {
				n = len(rest)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		got := collectFrames(t, &chunkReader{chunks: chunks})
		require.Equal(t, want, got, "round %d", round)
	}
}

func TestDecoder_DiscardsTrailingPartialLine(t *testing.T) {
	var dec Decoder
	frames := dec.Feed([]byte("data: {\"kind\":\"token\",\"token\":\"a\"}\ndata: {\"kind\":\"tok"))
	assert.Equal(t, []string{`{"kind":"token","token":"a"}`}, frames)
	assert.True(t, dec.Pending())

	dec.Reset()
	assert.False(t, dec.Pending())

	// A complete-looking frame without its newline is never produced.
	got := collectFrames(t, strings.NewReader("data: {\"kind\":\"done\",\"full_text\":\"x\"}"))
	assert.Empty(t, got)
}

func TestFrames_YieldsTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{chunks: []string{"data: {\"kind\":\"token\",\"token\":\"a\"}\n"}, err: boom}

	var frames []string
	var gotErr error
	for frame, err := range Frames(context.Background(), r) {
		if err != nil {
			gotErr = err
			break
		}
		frames = append(frames, frame)
	}
	assert.Len(t, frames, 1)
	assert.ErrorIs(t, gotErr, boom)
}

func TestFrames_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range Frames(ctx, strings.NewReader(sampleStream)) {
		gotErr = err
	}
	assert.ErrorIs(t, gotErr, context.Canceled)
}

func TestDecoder_LongLineFedByteByByte(t *testing.T) {
	payload := strings.Repeat("x", 64*1024)
	line := FramePrefix + payload + "\ndata: tail"

	var d Decoder
	var got []string
	for i := 0; i < len(line); i++ {
		got = append(got, d.Feed([]byte{line[i]})...)
	}

	require.Len(t, got, 1)
	assert.Equal(t, payload, got[0])
	assert.True(t, d.Pending())
	assert.Equal(t, []string{"tail"}, d.Feed([]byte("\n")))
}
