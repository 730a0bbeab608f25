package queue

// store is the ordered bounded sequence of buffered messages. It is not
// safe for concurrent use; the owning Queue serialises access through its
// mutex.
type store struct {
	items    []*QueuedMessage
	priority bool
}

func newStore(capacity int, priority bool) *store {
	initial := capacity
	if initial > 1024 {
		initial = 1024
	}
	return &store{
		items:    make([]*QueuedMessage, 0, initial),
		priority: priority,
	}
}

func (s *store) size() int {
	return len(s.items)
}

// insert places msg according to the ordering mode and returns its position.
// With priority ordering the message lands immediately before the first
// message of a strictly lower class, so FIFO order inside each class is never
// disturbed. Without it the store is strict FIFO.
func (s *store) insert(msg *QueuedMessage) int {
	if !s.priority {
		s.items = append(s.items, msg)
		return len(s.items) - 1
	}

	pos := len(s.items)
	for i, existing := range s.items {
		if existing.Priority < msg.Priority {
			pos = i
			break
		}
	}

	s.items = append(s.items, nil)
	copy(s.items[pos+1:], s.items[pos:])
	s.items[pos] = msg
	return pos
}

// dequeueBatch removes and returns up to n messages from the head.
func (s *store) dequeueBatch(n int) []*QueuedMessage {
	if n <= 0 || len(s.items) == 0 {
		return nil
	}
	if n > len(s.items) {
		n = len(s.items)
	}

	batch := make([]*QueuedMessage, n)
	copy(batch, s.items[:n])

	remaining := copy(s.items, s.items[n:])
	for i := remaining; i < len(s.items); i++ {
		s.items[i] = nil
	}
	s.items = s.items[:remaining]
	return batch
}

// peek returns the head message without removing it.
func (s *store) peek() (*QueuedMessage, bool) {
	if len(s.items) == 0 {
		return nil, false
	}
	return s.items[0], true
}

// evictOldest removes the message with the lowest EnqueuedAt, ties broken by
// store order. With FIFO ordering that is simply the head; with priority
// ordering an older low-priority message may sit behind newer high-priority
// ones, so the whole store is scanned.
func (s *store) evictOldest() *QueuedMessage {
	if len(s.items) == 0 {
		return nil
	}

	oldest := 0
	if s.priority {
		for i := 1; i < len(s.items); i++ {
			if s.items[i].EnqueuedAt.Before(s.items[oldest].EnqueuedAt) {
				oldest = i
			}
		}
	}

	evicted := s.items[oldest]
	copy(s.items[oldest:], s.items[oldest+1:])
	s.items[len(s.items)-1] = nil
	s.items = s.items[:len(s.items)-1]
	return evicted
}

// clear removes every buffered message and returns how many were removed.
func (s *store) clear() int {
	removed := len(s.items)
	for i := range s.items {
		s.items[i] = nil
	}
	s.items = s.items[:0]
	return removed
}

// snapshot returns copies of every buffered message in store order.
func (s *store) snapshot() []QueuedMessage {
	out := make([]QueuedMessage, len(s.items))
	for i, msg := range s.items {
		out[i] = *msg
		out[i].Metadata = msg.Metadata.Clone()
	}
	return out
}
