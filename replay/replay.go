// Package replay emits an already-complete answer in small, time-paced
// chunks so that it reads as if it were being generated live.
//
// Chunks are cut after a boundary character (whitespace, punctuation, dash)
// whenever one sits far enough into the window, so markdown and LaTeX tokens
// are rarely split across two chunks. All lengths and indices count runes.
package replay

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultChunkSize  = 18
	DefaultDelay      = 22 * time.Millisecond
	DefaultBoundaries = " \n\t.,;:)]}—–"
	DefaultMinCut     = 3
)

// FallbackText is replayed in place of an answer when the answer could not
// be fetched.
const FallbackText = "Sorry, I encountered an error. Please try again."

// Options tunes the chunking and pacing of a replay.
type Options struct {
	// ChunkSize is the maximum number of runes per chunk.
	ChunkSize int
	// Delay is the pause after every emitted chunk.
	Delay time.Duration
	// Boundaries lists the runes after which a chunk may be cut.
	Boundaries string
	// MinCut is the window index a boundary must exceed to be used as a cut.
	MinCut int
}

// DefaultOptions returns the pacing used by the chat client.
func DefaultOptions() Options {
	return Options{
		ChunkSize:  DefaultChunkSize,
		Delay:      DefaultDelay,
		Boundaries: DefaultBoundaries,
		MinCut:     DefaultMinCut,
	}
}

// Validate reports whether the options can drive a replay.
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return errors.New("replay: chunk size must be positive")
	}
	if o.Delay < 0 {
		return errors.New("replay: delay must not be negative")
	}
	if o.MinCut < 0 {
		return errors.New("replay: min cut must not be negative")
	}
	return nil
}

// Cut returns the end index of the chunk starting at cursor.
//
// The final window always runs to the end of text. Any other window is
// scanned backward for the last boundary rune; a boundary at window index
// i > MinCut ends the chunk right after it, otherwise the full window is used.
func Cut(text []rune, cursor int, opts Options) int {
	end := min(cursor+opts.ChunkSize, len(text))
	if end >= len(text) {
		return len(text)
	}
	window := text[cursor:end]
	for i := len(window) - 1; i >= 0; i-- {
		if strings.ContainsRune(opts.Boundaries, window[i]) {
			if i > opts.MinCut {
				return cursor + i + 1
			}
			break
		}
	}
	return end
}

// Split returns every chunk of text without pacing.
func Split(text string, opts Options) []string {
	s := New(text, opts)
	var chunks []string
	for {
		chunk, ok := s.Next()
		if !ok {
			return chunks
		}
		chunks = append(chunks, chunk)
	}
}

// Session is a single replay of one text. It is not restartable.
type Session struct {
	text    []rune
	opts    Options
	cursor  int
	stopped atomic.Bool
}

// New creates a replay session over text. A non-positive chunk size or an
// empty boundary set falls back to the default.
func New(text string, opts Options) *Session {
	def := DefaultOptions()
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = def.ChunkSize
	}
	if opts.Boundaries == "" {
		opts.Boundaries = def.Boundaries
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.MinCut < 0 {
		opts.MinCut = def.MinCut
	}
	return &Session{text: []rune(text), opts: opts}
}

// Stop asks the session to emit no further chunks. It takes effect at the
// start of the next step and never interrupts a pending delay.
func (s *Session) Stop() { s.stopped.Store(true) }

// Stopped reports whether Stop has been called.
func (s *Session) Stopped() bool { return s.stopped.Load() }

// Cursor returns the number of runes emitted so far. It must be read from
// the goroutine driving the session.
func (s *Session) Cursor() int { return s.cursor }

// Len returns the length of the source text in runes.
func (s *Session) Len() int { return len(s.text) }

// Done reports whether the session will emit no more chunks.
func (s *Session) Done() bool {
	return s.Stopped() || s.cursor >= len(s.text)
}

// Next emits the next chunk synchronously. It returns false once the text is
// exhausted or the session was stopped.
func (s *Session) Next() (string, bool) {
	if s.Done() {
		return "", false
	}
	end := Cut(s.text, s.cursor, s.opts)
	chunk := string(s.text[s.cursor:end])
	s.cursor = end
	return chunk, true
}

// Run emits chunks to onChunk, pausing Delay after each one, until the text
// is exhausted or the session is stopped. Cancelling ctx also interrupts the
// pending delay; Run then returns ctx.Err().
func (s *Session) Run(ctx context.Context, onChunk func(string)) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, ok := s.Next()
		if !ok {
			return nil
		}
		onChunk(chunk)

		if s.opts.Delay <= 0 {
			continue
		}
		if timer == nil {
			timer = time.NewTimer(s.opts.Delay)
		} else {
			timer.Reset(s.opts.Delay)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Replay runs a fresh session over text.
func Replay(ctx context.Context, text string, onChunk func(string), opts Options) error {
	return New(text, opts).Run(ctx, onChunk)
}
