package replay

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func opts(size int) Options {
	o := DefaultOptions()
	o.ChunkSize = size
	o.Delay = 0
	return o
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{
			name: "empty input",
			text: "",
			size: 18,
			want: nil,
		},
		{
			name: "cut after last space in window",
			text: "I can help you with that!",
			size: 18,
			want: []string{"I can help you ", "with that!"},
		},
		{
			name: "boundary preference",
			text: "hello world, this is fine",
			size: 10,
			want: []string{"hello ", "world, ", "this is ", "fine"},
		},
		{
			name: "exact chunk size without boundary",
			text: "abcdefghij",
			size: 10,
			want: []string{"abcdefghij"},
		},
		{
			name: "no boundary emits full windows",
			text: "abcdefghijklmnopqrstuvwxy",
			size: 10,
			want: []string{"abcdefghij", "klmnopqrst", "uvwxy"},
		},
		{
			name: "boundary too close to window start",
			text: "abc defghijklmnop",
			size: 10,
			want: []string{"abc defghi", "jklmnop"},
		},
		{
			name: "boundary at index four is used",
			text: "abcd efghijklmnop",
			size: 10,
			want: []string{"abcd ", "efghijklmn", "op"},
		},
		{
			name: "last chunk never trimmed",
			text: "0123456789 tail, end",
			size: 10,
			want: []string{"0123456789", " tail, end"},
		},
		{
			name: "dashes and brackets are boundaries",
			text: "alpha(beta)gamma—delta",
			size: 12,
			want: []string{"alpha(beta)", "gamma—delta"},
		},
		{
			name: "multi-byte runes are never split",
			text: "การประมวลผลภาพ คืออะไร",
			size: 8,
			want: []string{"การประมว", "ลผลภาพ ", "คืออะไร"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, opts(tt.size))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitProperties(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"Here is a list of things I can do:\n\n1. Simulate streaming text.\n2. maintain chat history in memory.\n3. Look good while doing it.",
		"Based on my calculations (which are fake), the answer is 42.",
		strings.Repeat("x", 100),
		"$$\\sum_{i=0}^{n} x_i$$ and `code` — with [links](http://example.com).",
		"นิยามการประมวลผลข้อมูลภาพ หรือ การประมวลผลภาพ (Image Processing) หมายถึงอะไร",
	}

	for _, size := range []int{1, 2, 5, 10, 18, 64} {
		for _, in := range inputs {
			chunks := Split(in, opts(size))

			assert.Equal(t, in, strings.Join(chunks, ""), "reconstruction, size %d", size)
			if in == "" {
				assert.Empty(t, chunks)
			}

			prev := 0
			for _, c := range chunks {
				n := len([]rune(c))
				require.Positive(t, n, "empty chunk, size %d", size)
				assert.LessOrEqual(t, n, max(size, 1), "oversized chunk %q", c)
				prev += n
			}
			assert.Equal(t, len([]rune(in)), prev)
		}
	}
}

func TestCutMonotonic(t *testing.T) {
	text := []rune("That's an interesting perspective. Could you elaborate more on what you're trying to achieve?")
	o := opts(18)

	cursor := 0
	for cursor < len(text) {
		next := Cut(text, cursor, o)
		require.Greater(t, next, cursor)
		require.LessOrEqual(t, next, len(text))
		cursor = next
	}
	assert.Equal(t, len(text), cursor)
}

func TestCutMinCut(t *testing.T) {
	text := []rune("ab cdefghijklmnop")
	o := opts(10)

	o.MinCut = 3
	assert.Equal(t, 10, Cut(text, 0, o))

	o.MinCut = 1
	assert.Equal(t, 3, Cut(text, 0, o))
}

func TestSessionStopBeforeFirstChunk(t *testing.T) {
	s := New("I can help you with that!", opts(18))
	s.Stop()

	var chunks []string
	err := s.Run(context.Background(), func(c string) { chunks = append(chunks, c) })
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.True(t, s.Done())
	assert.Equal(t, 0, s.Cursor())
}

func TestSessionStopMidway(t *testing.T) {
	s := New("one two three four five six seven eight nine ten", opts(8))

	var chunks []string
	err := s.Run(context.Background(), func(c string) {
		chunks = append(chunks, c)
		if len(chunks) == 2 {
			s.Stop()
		}
	})
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.True(t, s.Stopped())
	assert.Less(t, s.Cursor(), s.Len())
}

func TestSessionsAreIndependent(t *testing.T) {
	first := New("first answer text that is long enough", opts(8))
	second := New("second answer text that is long enough", opts(8))

	first.Stop()

	_, ok := first.Next()
	assert.False(t, ok)

	chunk, ok := second.Next()
	assert.True(t, ok)
	assert.NotEmpty(t, chunk)
}

func TestRunPacesChunks(t *testing.T) {
	o := opts(5)
	o.Delay = 5 * time.Millisecond

	var chunks []string
	start := time.Now()
	err := Replay(context.Background(), "aaaaabbbbbccccc", func(c string) { chunks = append(chunks, c) }, o)
	require.NoError(t, err)

	assert.Equal(t, []string{"aaaaa", "bbbbb", "ccccc"}, chunks)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestRunContextCancel(t *testing.T) {
	o := opts(5)
	o.Delay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	var chunks []string
	done := make(chan error, 1)
	go func() {
		done <- Replay(ctx, "aaaaabbbbbccccc", func(c string) { chunks = append(chunks, c) }, o)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("replay did not observe cancellation")
	}
	assert.Equal(t, []string{"aaaaa"}, chunks)
}

func TestFallbackTextUsesSameChunking(t *testing.T) {
	chunks := Split(FallbackText, DefaultOptions())
	assert.Equal(t, FallbackText, strings.Join(chunks, ""))
	assert.Equal(t, "Sorry, I ", chunks[0])
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	o := DefaultOptions()
	o.ChunkSize = 0
	assert.Error(t, o.Validate())

	o = DefaultOptions()
	o.Delay = -time.Millisecond
	assert.Error(t, o.Validate())

	o = DefaultOptions()
	o.MinCut = -1
	assert.Error(t, o.Validate())
}
