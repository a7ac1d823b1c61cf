package transcript

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddInOrder(t *testing.T) {
	a := NewAssembler()

	require.Equal(t, 1, a.Add(Result{Seq: 0, Text: "hello"}))
	require.Equal(t, 1, a.Add(Result{Seq: 1, Text: "world"}))
	require.Equal(t, "hello world", a.Text())
	require.Equal(t, 2, a.Emitted())
}

func TestOutOfOrderCompletionNeverReordersOutput(t *testing.T) {
	a := NewAssembler()

	require.Equal(t, 0, a.Add(Result{Seq: 2, Text: "three"}))
	require.Equal(t, 0, a.Add(Result{Seq: 1, Text: "two"}))
	require.Equal(t, 3, a.Add(Result{Seq: 0, Text: "one"}))
	require.Equal(t, "one two three", a.Text())
}

func TestOutOfOrderRandomizedProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 25; trial++ {
		n := 1 + rng.Intn(12)
		var want []string
		results := make([]Result, n)
		for i := 0; i < n; i++ {
			text := "w" + strconv.Itoa(i)
			results[i] = Result{Seq: i, Text: text}
			want = append(want, text)
		}
		rng.Shuffle(n, func(i, j int) { results[i], results[j] = results[j], results[i] })

		a := NewAssembler()
		total := 0
		for _, r := range results {
			total += a.Add(r)
		}
		require.Equal(t, n, total)
		require.Equal(t, Join(want), a.Text())
	}
}

func TestFailedChunkRendersGapMarker(t *testing.T) {
	a := NewAssembler()

	a.Add(Result{Seq: 0, Text: "before"})
	a.Add(Result{Seq: 1, Failed: true})
	a.Add(Result{Seq: 2, Text: "after"})

	require.Equal(t, "before "+GapMarker+" after", a.Text())
	require.Equal(t, 1, a.FailedChunks())
}

func TestFailedChunkDoesNotBlockLaterResults(t *testing.T) {
	a := NewAssembler()

	// seq 1 completes first; nothing emits until seq 0 resolves as failed.
	require.Equal(t, 0, a.Add(Result{Seq: 1, Text: "tail"}))
	require.Equal(t, 2, a.Add(Result{Seq: 0, Failed: true}))
	require.Equal(t, GapMarker+" tail", a.Text())
}

func TestEmptyTextSkippedWithoutGap(t *testing.T) {
	a := NewAssembler()

	a.Add(Result{Seq: 0, Text: "  "})
	a.Add(Result{Seq: 1, Text: "kept"})
	require.Equal(t, "kept", a.Text())
	require.Equal(t, 2, a.Emitted())
	require.Equal(t, 0, a.FailedChunks())
}

func TestReset(t *testing.T) {
	a := NewAssembler()
	a.Add(Result{Seq: 0, Text: "gone"})
	a.Add(Result{Seq: 5, Text: "held"})

	a.Reset()
	require.Equal(t, "", a.Text())
	require.Equal(t, 0, a.Emitted())

	require.Equal(t, 1, a.Add(Result{Seq: 0, Text: "fresh"}))
	require.Equal(t, "fresh", a.Text())
}

func TestJoinNormalizesWhitespace(t *testing.T) {
	require.Equal(t, "a b c", Join([]string{" a ", "b\n", " c"}))
	require.Equal(t, "", Join(nil))
}
