// Package transcript orders per-chunk recognition results and assembles the
// final session transcript.
package transcript

import "strings"

// GapMarker replaces the text of a chunk whose transcription failed, so
// data loss is visible to the operator instead of silently omitted.
const GapMarker = "[inaudible]"

// Result is one chunk's recognition outcome.
type Result struct {
	Seq    int
	Text   string
	Failed bool
}

// Assembler holds out-of-order results and releases them strictly by seq.
// It is owned by the control loop and needs no locking.
type Assembler struct {
	next    int
	waiting map[int]Result
	parts   []string
	failed  int
}

func NewAssembler() *Assembler {
	return &Assembler{waiting: make(map[int]Result)}
}

// Add accepts one result and returns how many results it appended to the
// transcript: zero when seq arrived ahead of the cursor, one or more when
// it filled the next expected slot and unblocked already-buffered slots.
func (a *Assembler) Add(r Result) int {
	a.waiting[r.Seq] = r

	appended := 0
	for {
		next, ok := a.waiting[a.next]
		if !ok {
			return appended
		}
		delete(a.waiting, a.next)

		if next.Failed {
			a.parts = append(a.parts, GapMarker)
			a.failed++
		} else if text := strings.TrimSpace(next.Text); text != "" {
			a.parts = append(a.parts, text)
		}
		a.next++
		appended++
	}
}

// Emitted returns how many results have been released into the transcript.
func (a *Assembler) Emitted() int {
	return a.next
}

// FailedChunks returns how many gap markers the transcript contains.
func (a *Assembler) FailedChunks() int {
	return a.failed
}

// Text assembles the ordered transcript accumulated so far.
func (a *Assembler) Text() string {
	return Join(a.parts)
}

// Reset discards all held results and accumulated text.
func (a *Assembler) Reset() {
	a.next = 0
	a.waiting = make(map[int]Result)
	a.parts = nil
	a.failed = 0
}

// Join concatenates transcript parts with normalized whitespace.
func Join(parts []string) string {
	joined := strings.Join(parts, " ")
	return strings.Join(strings.Fields(joined), " ")
}
