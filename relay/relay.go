package relay

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"

	"fielder"
	"fielder/queue/file"
	"fielder/queue/memory"
)

// NewRelay builds a relay that drains pushed records into the given SQL sink
// in batches. Records land in a crash-safe file queue first; if disk writes
// fail and the memory fallback is on, they are held in memory instead. Rows
// that cannot be delivered at all end up in the spill and are retried on
// later ticks.
func NewRelay(connect *sql.DB, config ...Config) *Relay {
	// Set default config
	cfg := configDefault(config...)

	logger, _ := NewStdLogger()
	if cfg.Logger != nil {
		logger = cfg.Logger
	}

	spill := cfg.Spill
	if spill == nil {
		var err error
		spill, err = fielder.NewFileSpill(filepath.Join(cfg.FileWorkspace, "spill"), nil, nil)
		if err != nil {
			logger.Warnw("spill directory unavailable, undeliverable rows will be dropped",
				"error", err)
			spill = fielder.NewNullSpill()
		}
	}

	return &Relay{
		cfg: cfg,
		filePool: NewPool(
			func(record fielder.Record) (fielder.Queue, error) {
				return file.NewQueueByRecord(record, file.Config{
					Workspace:  cfg.FileWorkspace,
					MaxHistory: 0,
				})
			},
		),
		memoryPool: NewPool(func(_ fielder.Record) (fielder.Queue, error) {
			return memory.NewQueue(), nil
		}),
		spill:   spill,
		stopSig: make(chan bool),
		connect: connect,
		logger:  logger,
	}
}

type Relay struct {
	cfg Config

	logger Logger

	filePool   fielder.Pool
	memoryPool fielder.Pool
	spill      fielder.Spill

	stopSig  chan bool
	connect  *sql.DB
	shutdown int32
}

// Stop shuts the relay down. With sendTail set, everything still queued is
// published before returning; otherwise the tail is flushed to disk.
func (r *Relay) Stop(sendTail bool) {
	atomic.StoreInt32(&r.shutdown, 1)
	r.stopSig <- sendTail
	<-r.stopSig
}

func (r *Relay) Push(record fielder.Record) error {
	if atomic.LoadInt32(&r.shutdown) == 0 {
		err := r.filePool.Push(record)
		if err != nil {
			if r.cfg.UseMemoryFallback {
				r.logger.Warnw("writing to disk failed", "error", err)

				// the memory queue does not return an error
				_ = r.memoryPool.Push(record)
				return nil
			}
			return fmt.Errorf("writing to disk failed: %v", err)
		}
		return nil
	}

	return errors.New("relay shutdown")
}

func (r *Relay) publishOnce(query string, rows [][]interface{}) error {
	panicked := true
	tx, err := r.connect.Begin()
	if err != nil {
		return err
	}
	defer func() {
		// Make sure to rollback when panic, Block error or Commit error
		if panicked || err != nil {
			if err := tx.Rollback(); err != nil {
				r.logger.Errorw("problem when rolling back a transaction", "error", err)
			}
		}
	}()

	err = func() error {
		stmt, err := tx.Prepare(query)
		if err != nil {
			return err
		}

		for _, args := range rows {
			_, err := stmt.Exec(args...)
			if err != nil {
				return err
			}
		}

		err = stmt.Close()
		if err != nil {
			return err
		}

		return nil
	}()

	if err == nil {
		err = tx.Commit()
	}

	panicked = false

	return err
}

func (r *Relay) publish(query string, rows [][]interface{}) error {
	backoff := retry.WithMaxRetries(r.cfg.MaxPublishRetries,
		retry.NewExponential(r.cfg.RetryBackoff))

	return retry.Do(context.Background(), backoff, func(_ context.Context) error {
		if err := r.publishOnce(query, rows); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func toRows(records []fielder.Record) [][]interface{} {
	rows := make([][]interface{}, 0, len(records))
	for _, record := range records {
		rows = append(rows, record.ToExec())
	}
	return rows
}

func (r *Relay) fallback(query string, records []fielder.Record, memorySafe bool) {
	if err := r.filePool.Append(records); err != nil {
		if memorySafe {
			_ = r.memoryPool.Append(records)
			r.logger.Warnw("error when fallback a write to disk", "error", err)
			return
		}

		// Last resort: park the raw rows in the spill.
		r.spill.Save(query, toRows(records))
		r.logger.Errorw("records spilled after fallback failed",
			"error", err,
			"spilled", len(records),
		)
	}
}

// drainSpill retries everything parked in the spill. Batches that still
// cannot be published go straight back.
func (r *Relay) drainSpill() {
	safes := map[string][][]interface{}{}
	for {
		exist, query, row := r.spill.Restore()
		if !exist {
			break
		}
		safes[query] = append(safes[query], row)
	}

	for query, rows := range safes {
		if err := r.publish(query, rows); err != nil {
			r.spill.Save(query, rows)
			r.logger.Warnw("spilled rows still undeliverable", "error", err)
		}
	}
}

// Run starts the delivery loop. Every SendInterval it ejects up to SendLimit
// records, groups them by statement and publishes each group in one
// transaction. Failed groups fall back to the queues, then to the spill.
func (r *Relay) Run() {
	period := r.cfg.SendInterval
	if period < time.Millisecond {
		period = time.Millisecond
	}
	limit := r.cfg.SendLimit

	t := time.NewTicker(period)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-t.C:
				r.drainSpill()

				extractSize := 0
				safes := map[string][]fielder.Record{}
				ejected, _ := r.memoryPool.Eject(limit)
				extractSize += len(ejected)
				for _, record := range ejected {
					query := record.SQL()
					safes[query] = append(safes[query], record)
				}

				extractCount := limit - extractSize
				if extractCount > 0 {
					ejected, err := r.filePool.Eject(extractCount)
					extractSize += len(ejected)
					if err != nil {
						r.logger.Warnw("problem ejecting queue from disk", "error", err)
					}
					for _, record := range ejected {
						query := record.SQL()
						safes[query] = append(safes[query], record)
					}
				}

				for query, records := range safes {
					err := r.publish(query, toRows(records))
					if err != nil {
						r.logger.Warnw("publication ended with an error", "error", err)
						r.fallback(query, records, r.cfg.UseMemoryFallback)
					} else {
						if r.cfg.ShowSuccessfulInfo {
							r.logger.Infow("successfully sent", "count", len(records))
						}
					}
				}
			case sendTail := <-r.stopSig:
				ejected, _ := r.memoryPool.Eject(-1)
				if !sendTail {
					if len(ejected) > 0 {
						if err := r.filePool.Append(ejected); err != nil {
							r.logger.Errorw("data lost! fatal error writing to disk when stopping relay",
								"error", err,
								"lost", len(ejected),
							)
						}
					}
					close(r.stopSig)
					return
				}

				r.drainSpill()

				safes := map[string][]fielder.Record{}

				// From memory
				for _, record := range ejected {
					query := record.SQL()
					safes[query] = append(safes[query], record)
				}

				// From file
				ejected, err := r.filePool.Eject(-1)
				if err != nil {
					r.logger.Warnw("problem ejecting queue from disk", "error", err)
				}
				for _, record := range ejected {
					query := record.SQL()
					safes[query] = append(safes[query], record)
				}

				for query, records := range safes {
					err := r.publish(query, toRows(records))
					if err != nil {
						r.logger.Warnw("publication ended with an error", "error", err)
						r.fallback(query, records, false)
					}
				}

				close(r.stopSig)
				return
			}
		}
	}()
}
