package messaging

import (
	"sync"

	"github.com/segmentio/kafka-go"
)

type partitionKey struct {
	topic     string
	partition int
}

type partitionLog struct {
	offsets []int64
	done    map[int64]kafka.Message
}

// offsetTracker hands out a commit only once every earlier fetched offset of
// the same partition has completed, so lanes finishing out of order never
// commit past unfinished work.
type offsetTracker struct {
	mu    sync.Mutex
	parts map[partitionKey]*partitionLog
}

func newOffsetTracker() *offsetTracker {
	return &offsetTracker{parts: make(map[partitionKey]*partitionLog)}
}

func (t *offsetTracker) track(msg kafka.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := partitionKey{topic: msg.Topic, partition: msg.Partition}
	p, ok := t.parts[k]
	if !ok {
		p = &partitionLog{done: make(map[int64]kafka.Message)}
		t.parts[k] = p
	}
	p.offsets = append(p.offsets, msg.Offset)
}

// done marks msg complete and returns the highest message that can now be
// committed, if the contiguous prefix advanced.
func (t *offsetTracker) done(msg kafka.Message) (kafka.Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, ok := t.parts[partitionKey{topic: msg.Topic, partition: msg.Partition}]
	if !ok {
		return kafka.Message{}, false
	}
	p.done[msg.Offset] = msg

	var last kafka.Message
	advanced := false
	for len(p.offsets) > 0 {
		m, ok := p.done[p.offsets[0]]
		if !ok {
			break
		}
		delete(p.done, p.offsets[0])
		p.offsets = p.offsets[1:]
		last, advanced = m, true
	}
	return last, advanced
}
