package memory

import (
	"container/list"
	"encoding"
	"sync"
)

func NewQueue() *Queue {
	return &Queue{
		buffer: list.New(),
	}
}

// Queue keeps records in process memory. It never fails, and it never
// survives a restart; the relay uses it as the fallback when disk is not
// available.
type Queue struct {
	buffer *list.List
	mx     sync.Mutex
}

func (q *Queue) Eject(limit int) (records []interface{}, err error) {
	q.mx.Lock()
	defer q.mx.Unlock()

	if limit > q.buffer.Len() {
		limit = q.buffer.Len()
	}

	if limit < 0 {
		limit = q.buffer.Len()
	}

	if limit == 0 {
		return nil, nil
	}

	records = make([]interface{}, 0, limit)
	it := 0
	for e := q.buffer.Front(); e != nil && it < limit; {
		cur := e
		e = e.Next()
		records = append(records, q.buffer.Remove(cur))
		it++
	}
	return records, nil
}

func (q *Queue) Push(record encoding.BinaryMarshaler) error {
	q.mx.Lock()
	defer q.mx.Unlock()
	q.buffer.PushBack(record)
	return nil
}

func (q *Queue) Len() int {
	q.mx.Lock()
	defer q.mx.Unlock()
	return q.buffer.Len()
}
