package engine

import (
	stderrors "errors"
	"strings"
)

// BufferMode selects what an OutputBuffer discards once MaxSize is hit.
type BufferMode int

const (
	// Unlimited retains everything until Take.
	Unlimited BufferMode = iota
	// Capped enforces MaxSize as a hard output budget: a print that
	// would exceed it is refused instead of silently dropped.
	Capped
	// TruncateOldest drops the oldest retained lines to make room.
	TruncateOldest
	// TruncateNewest discards incoming lines once the buffer is full.
	TruncateNewest
)

// ErrBufferFull is reported by Push when a Capped buffer's budget
// would be exceeded.
var ErrBufferFull = stderrors.New("output buffer budget exceeded")

// BufferPolicy governs what print output is retained between reads.
// MaxSize is a byte budget over the formatted lines including their
// trailing newlines; it is ignored in Unlimited mode.
type BufferPolicy struct {
	Mode    BufferMode
	MaxSize int
}

// OutputBuffer accumulates one entry per script print statement.
// It implements the root package's Sink interface.
type OutputBuffer struct {
	policy BufferPolicy
	lines  []string
	size   int
}

// NewOutputBuffer creates a buffer with the given policy.
func NewOutputBuffer(policy BufferPolicy) *OutputBuffer {
	return &OutputBuffer{policy: policy}
}

// Print appends one formatted print line (no trailing newline).
// Capped overflow is dropped here; use Push to observe it.
func (b *OutputBuffer) Print(line string) {
	_ = b.Push(line)
}

// Push appends one formatted print line (no trailing newline). It
// returns ErrBufferFull when a Capped buffer cannot take the line.
func (b *OutputBuffer) Push(line string) error {
	cost := len(line) + 1

	switch b.policy.Mode {
	case Capped:
		if b.policy.MaxSize > 0 && b.size+cost > b.policy.MaxSize {
			return ErrBufferFull
		}
	case TruncateNewest:
		if b.policy.MaxSize > 0 && b.size+cost > b.policy.MaxSize {
			return nil
		}
	case TruncateOldest:
		if b.policy.MaxSize > 0 {
			for len(b.lines) > 0 && b.size+cost > b.policy.MaxSize {
				b.size -= len(b.lines[0]) + 1
				b.lines = b.lines[1:]
			}
			if b.size+cost > b.policy.MaxSize {
				// A single line larger than the whole budget.
				return nil
			}
		}
	}

	b.lines = append(b.lines, line)
	b.size += cost
	return nil
}

// Take drains the buffer, returning the retained output with one
// newline per print.
func (b *OutputBuffer) Take() string {
	if len(b.lines) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(b.size)
	for _, l := range b.lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
	b.lines = b.lines[:0]
	b.size = 0
	return sb.String()
}

// Len returns the retained size in bytes.
func (b *OutputBuffer) Len() int {
	return b.size
}
