package relay

import (
	"sync"

	"fielder"
)

type NewQueueFunc = func(record fielder.Record) (fielder.Queue, error)

func NewPool(newQueue NewQueueFunc) fielder.Pool {
	return &Pool{
		newQueue:  newQueue,
		openQueue: map[string]fielder.Queue{},
	}
}

// Pool groups queues by the INSERT statement of the records they hold, so a
// batch ejected for one statement can be published in a single prepared
// transaction.
type Pool struct {
	newQueue  NewQueueFunc
	ofsMx     sync.Mutex
	openQueue map[string]fielder.Queue
}

func (p *Pool) getQueue(record fielder.Record) (fielder.Queue, error) {
	var err error
	queue, isInit := p.openQueue[record.SQL()]
	if !isInit {
		queue, err = p.newQueue(record)
		if err != nil {
			return nil, err
		}

		p.openQueue[record.SQL()] = queue
	}

	return queue, nil
}

func (p *Pool) Append(records []fielder.Record) error {
	p.ofsMx.Lock()
	defer p.ofsMx.Unlock()

	for _, record := range records {
		queue, err := p.getQueue(record)
		if err != nil {
			return err
		}

		err = queue.Push(record)
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Pool) Push(record fielder.Record) (err error) {
	p.ofsMx.Lock()
	defer p.ofsMx.Unlock()

	queue, err := p.getQueue(record)
	if err != nil {
		return err
	}

	return queue.Push(record)
}

func (p *Pool) Eject(limit int) (records []fielder.Record, err error) {
	p.ofsMx.Lock()
	defer p.ofsMx.Unlock()

	maxLimit := 0
	for _, queue := range p.openQueue {
		maxLimit += queue.Len()
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	if limit < 0 {
		limit = maxLimit
	}

	if limit == 0 {
		return nil, nil
	}

	records = make([]fielder.Record, 0, limit)
	for _, queue := range p.openQueue {
		ejected, err := queue.Eject(limit - len(records))
		if err != nil {
			return nil, err
		}

		for _, e := range ejected {
			if e != nil {
				records = append(records, e.(fielder.Record))
			}
		}

		if len(records) >= limit {
			return records, nil
		}
	}
	return records, nil
}
