package messaging

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func msgAt(partition int, offset int64) kafka.Message {
	return kafka.Message{Topic: "t", Partition: partition, Offset: offset}
}

func TestOffsetTracker_CommitsContiguousPrefix(t *testing.T) {
	t.Parallel()

	tr := newOffsetTracker()
	for _, off := range []int64{10, 11, 12} {
		tr.track(msgAt(0, off))
	}
	tr.track(msgAt(1, 5))

	if _, ok := tr.done(msgAt(0, 11)); ok {
		t.Fatalf("expected no commit while offset 10 is pending")
	}
	if _, ok := tr.done(msgAt(0, 12)); ok {
		t.Fatalf("expected no commit while offset 10 is pending")
	}

	commit, ok := tr.done(msgAt(0, 10))
	if !ok {
		t.Fatalf("expected commit once the gap closed")
	}
	if commit.Offset != 12 {
		t.Fatalf("expected commit at offset 12, got %d", commit.Offset)
	}

	commit, ok = tr.done(msgAt(1, 5))
	if !ok || commit.Partition != 1 || commit.Offset != 5 {
		t.Fatalf("expected partition 1 commit at 5, got %+v ok=%v", commit, ok)
	}
}

func TestOffsetTracker_UntrackedMessage(t *testing.T) {
	t.Parallel()

	tr := newOffsetTracker()
	if _, ok := tr.done(msgAt(3, 1)); ok {
		t.Fatalf("expected untracked partition to yield no commit")
	}
}
