package file

import (
	"errors"
	"fmt"
	"hash/adler32"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"fielder"
)

// NewQueueByRecord opens (or creates) the queue file that backs records with
// the given INSERT statement. The file name is derived from the statement so
// every distinct statement gets its own queue.
func NewQueueByRecord(record fielder.Record, config ...Config) (*Queue, error) {
	// Set default config
	cfg := configDefault(config...)

	return (&queueLoader{
		cfg:               cfg,
		fileNameExtractor: regexp.MustCompile(`^(\d+)_(\d+)\.(fq|corrupt)$`),
	}).load(record)
}

type queueLoader struct {
	cfg               Config
	fileNameExtractor *regexp.Regexp
}

func (q *queueLoader) load(record fielder.Record) (*Queue, error) {
	h := adler32.New()
	_, _ = h.Write([]byte(record.SQL()))

	fName := fmt.Sprintf("%d_0.fq", h.Sum32())
	fPath := filepath.Join(q.cfg.Workspace, fName)
	file, err := os.OpenFile(fPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	queue, err := NewQueue(file, record)
	if err != nil {
		if !errors.Is(err, ErrInvalidFile) {
			return nil, err
		}

		// Move the damaged file aside and start over with a fresh one.
		if err := q.markCorrupt(file); err != nil {
			return nil, err
		}

		file, err = os.OpenFile(fPath, os.O_CREATE|os.O_RDWR, 0644)
		if err != nil {
			return nil, err
		}

		queue, err = NewQueue(file, record)
		if err != nil {
			return nil, err
		}
	}
	return queue, nil
}

func (q *queueLoader) markCorrupt(file *os.File) error {
	err := file.Close()
	if err != nil {
		return err
	}

	name, _, n, err := q.extractName(filepath.Base(file.Name()))
	if err != nil {
		return err
	}
	corruptFilePath := filepath.Join(q.cfg.Workspace, q.buildName(name, "corrupt", n))

	return q.move(file.Name(), corruptFilePath)
}

func (q *queueLoader) buildName(name, t string, n int) string {
	return fmt.Sprintf("%s_%d.%s", name, n, t)
}

func (q *queueLoader) extractName(fileName string) (name, t string, n int, err error) {
	fne := q.fileNameExtractor.FindStringSubmatch(fileName)
	if len(fne) != 4 {
		return "", "", 0, fmt.Errorf("bad name: '%s'", fileName)
	}

	n, err = strconv.Atoi(fne[2])
	if err != nil {
		return "", "", 0, err
	}

	return fne[1], fne[3], n, nil
}

func (q *queueLoader) move(prev, next string) error {
	if exists(next) {
		name, t, n, err := q.extractName(filepath.Base(next))
		if err != nil {
			return err
		}

		err = q.move(next, filepath.Join(q.cfg.Workspace, q.buildName(name, t, n+1)))
		if err != nil {
			return err
		}
	}

	_, _, n, err := q.extractName(filepath.Base(prev))
	if err != nil {
		return err
	}

	if n >= q.cfg.MaxHistory {
		return os.Remove(prev)
	}

	return os.Rename(prev, next)
}
