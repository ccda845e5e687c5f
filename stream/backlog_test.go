package stream

import (
	"errors"
	"testing"
)

func frame(seq uint64) *Frame {
	return &Frame{Seq: seq, Payload: []byte("a\n1\n")}
}

func TestBacklogOrderedDrain(t *testing.T) {
	b := NewBacklog(10)

	for _, seq := range []uint64{5, 1, 3, 2, 4} {
		if err := b.Add(frame(seq)); err != nil {
			t.Fatalf("Add(%d) failed: %v", seq, err)
		}
	}

	frames := b.PopBatch(5)
	if len(frames) != 5 {
		t.Fatalf("Expected 5 frames, got %d", len(frames))
	}
	for i, f := range frames {
		if f.Seq != uint64(i+1) {
			t.Errorf("Position %d: expected seq %d, got %d", i, i+1, f.Seq)
		}
	}
}

func TestBacklogBounded(t *testing.T) {
	b := NewBacklog(2)

	if err := b.Add(frame(1)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add(frame(2)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add(frame(3)); !errors.Is(err, ErrBacklogFull) {
		t.Errorf("Expected ErrBacklogFull, got %v", err)
	}

	b.PopBatch(1)
	if err := b.Add(frame(3)); err != nil {
		t.Errorf("Expected Add to succeed after drain, got %v", err)
	}
}

func TestBacklogDuplicateSeq(t *testing.T) {
	b := NewBacklog(10)

	if err := b.Add(frame(7)); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := b.Add(frame(7)); !errors.Is(err, ErrDuplicateSeq) {
		t.Errorf("Expected ErrDuplicateSeq, got %v", err)
	}
}

func TestBacklogEmptyFrame(t *testing.T) {
	b := NewBacklog(10)

	if err := b.Add(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Expected ErrEmptyFrame for nil, got %v", err)
	}
	if err := b.Add(&Frame{Seq: 1}); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("Expected ErrEmptyFrame for empty payload, got %v", err)
	}
}

func TestBacklogPopBatchPartial(t *testing.T) {
	b := NewBacklog(10)

	b.Add(frame(1))
	b.Add(frame(2))

	frames := b.PopBatch(5)
	if len(frames) != 2 {
		t.Errorf("Expected 2 frames, got %d", len(frames))
	}
	if b.Len() != 0 {
		t.Errorf("Expected empty backlog, got %d", b.Len())
	}
}
