package buffer

import "testing"

func TestRetainReleaseConservation(t *testing.T) {
	b := Acquire(4)
	copy(b.Bytes(), []byte{1, 2, 3, 4})

	const subscribers = 3
	handles := make([]*Buffer, subscribers)
	for i := range handles {
		handles[i] = b.Retain()
	}
	if got := b.RefCount(); got != subscribers+1 {
		t.Fatalf("refcount after %d retains = %d, want %d", subscribers, got, subscribers+1)
	}

	for _, h := range handles {
		h.Release()
	}
	if got := b.RefCount(); got != 1 {
		t.Fatalf("refcount after releasing retains = %d, want 1", got)
	}

	b.Release()
	if got := b.RefCount(); got != 0 {
		t.Fatalf("refcount after final release = %d, want 0", got)
	}
}

func TestDuplicateIsIndependent(t *testing.T) {
	b := Acquire(3)
	copy(b.Bytes(), []byte{9, 9, 9})

	dup := b.Duplicate()
	dup.Bytes()[0] = 1

	if b.Bytes()[0] != 9 {
		t.Errorf("original mutated by duplicate write: got %d, want 9", b.Bytes()[0])
	}
	if dup.RefCount() != 1 {
		t.Errorf("duplicate refcount = %d, want 1", dup.RefCount())
	}

	b.Release()
	dup.Release()
}

func TestWrapDoesNotPool(t *testing.T) {
	b := Wrap([]byte{1, 2, 3})
	if b.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", b.Len())
	}
	if b.pooled {
		t.Fatalf("Wrap buffer is marked pooled, want unpooled")
	}
	b.Release()
}
