package file

import (
	"encoding"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/crc32"
	"io"
	"math"
	"os"
	"reflect"
	"sync"
)

type Safe interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// File layout: a CRC32 of everything past the head, then a skip-ahead offset
// marking how far the reader has already consumed, then length-prefixed
// record payloads.
const (
	CRC32HashOffset int64 = 0
	CRC32HashSize   int64 = 4
	SkipAheadOffset       = CRC32HashOffset + CRC32HashSize
	SkipAheadSize   int64 = 8
	DataOffset            = SkipAheadOffset + SkipAheadSize
	HeadSize              = CRC32HashSize + SkipAheadSize
	MetaElementSize       = 2
)

func NewQueue(file *os.File, pattern Safe) (*Queue, error) {
	return (&Queue{
		typeOf: reflect.ValueOf(pattern).Elem().Type(),
		file:   file,
		order:  binary.BigEndian,
		sum:    crc32.NewIEEE(),
	}).checkFile()
}

type Queue struct {
	typeOf reflect.Type
	file   *os.File
	order  binary.ByteOrder
	mx     sync.Mutex

	sum   hash.Hash32
	count int
	mw    io.Writer
}

func (q *Queue) Len() int {
	q.mx.Lock()
	defer q.mx.Unlock()
	return q.count
}

func (q *Queue) checkFile() (*Queue, error) {
	q.mw = io.MultiWriter(q.file, q.sum)

	_, err := q.file.Seek(0, io.SeekStart)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, HeadSize)
	crc32SumBuf := buf[0:CRC32HashSize]
	skipAheadBuf := buf[CRC32HashSize : CRC32HashSize+SkipAheadSize]

	n, err := q.file.Read(buf[0:HeadSize])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			headBuf := buf[0 : CRC32HashSize+SkipAheadSize]
			q.order.PutUint32(crc32SumBuf, 0)
			q.order.PutUint64(skipAheadBuf, uint64(DataOffset))
			_, err := q.file.Write(headBuf)
			if err != nil {
				return nil, err
			}
			return q, nil
		}
		return nil, err
	}

	fileSum := q.order.Uint32(crc32SumBuf)
	skipAhead := int64(q.order.Uint64(skipAheadBuf))
	currOffset := DataOffset

	_, err = q.file.Seek(DataOffset, io.SeekStart)
	if err != nil {
		return nil, err
	}

	tr := io.TeeReader(q.file, q.sum)

	for {
		size, err := q.readMeta(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		currOffset += MetaElementSize

		if size > math.MaxUint16 {
			return nil, ErrInvalidFile
		}

		if len(buf) < size {
			buf = make([]byte, size)
		}

		_, err = tr.Read(buf[:size])
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrInvalidFile
			}
			return nil, err
		}

		currOffset += int64(size)

		if currOffset > skipAhead {
			q.count++
		}
	}

	if q.sum.Sum32() != fileSum {
		return nil, ErrInvalidFile
	}

	return q, nil
}

func (q *Queue) readMeta(bs []byte) (size int, err error) {
	metaElementBuf := bs[0:MetaElementSize]

	_, err = q.file.Read(metaElementBuf)
	if err != nil {
		return 0, err
	}

	size = int(q.order.Uint16(metaElementBuf))

	return size, err
}

func (q *Queue) writeMeta(bs []byte, size int) error {
	metaElementBuf := bs[0:MetaElementSize]

	q.order.PutUint16(metaElementBuf, uint16(size))

	_, err := q.file.Write(metaElementBuf)
	if err != nil {
		return err
	}

	return nil
}

func (q *Queue) updateSum(bs []byte) error {
	crc32SumBuf := bs[0:CRC32HashSize]

	q.order.PutUint32(crc32SumBuf, q.sum.Sum32())
	_, err := q.file.WriteAt(crc32SumBuf, CRC32HashOffset)
	if err != nil {
		return err
	}

	return nil
}

func (q *Queue) Push(record encoding.BinaryMarshaler) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}

	size := len(data)

	if size > math.MaxUint16 {
		return fmt.Errorf("record too large: %d over %d", size, math.MaxUint16)
	}

	bs := bsPool.Get().([]byte)
	defer bsPool.Put(bs)

	q.mx.Lock()
	defer q.mx.Unlock()

	err = q.writeMeta(bs, size)
	if err != nil {
		return err
	}

	_, err = q.mw.Write(data)
	if err != nil {
		return err
	}

	q.count++

	err = q.updateSum(bs)
	if err != nil {
		return err
	}

	return nil
}

func (q *Queue) Eject(limit int) (records []interface{}, err error) {
	q.mx.Lock()
	defer q.mx.Unlock()

	if limit > q.count {
		limit = q.count
	}

	if limit < 0 {
		limit = q.count
	}

	if limit == 0 {
		return nil, nil
	}

	records = make([]interface{}, limit)

	buf := make([]byte, HeadSize)
	skipAheadBuf := buf[0:SkipAheadSize]

	_, err = q.file.ReadAt(skipAheadBuf, SkipAheadOffset)
	if err != nil {
		return nil, err
	}

	skipAhead := int64(q.order.Uint64(skipAheadBuf))

	_, err = q.file.Seek(skipAhead, io.SeekStart)
	if err != nil {
		return nil, err
	}

	for i := 0; i < limit; i++ {
		size, err := q.readMeta(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return records[:i], err
		}

		skipAhead += MetaElementSize

		if len(buf) < size {
			buf = make([]byte, size)
		}

		dataBuf := buf[0:size]
		_, err = q.file.Read(dataBuf)
		q.count--
		if err != nil {
			return records[:i], err
		}

		skipAhead += int64(size)

		e := reflect.New(q.typeOf).Interface().(encoding.BinaryUnmarshaler)
		err = e.UnmarshalBinary(dataBuf)
		if err != nil {
			return records[:i], err
		}

		records[i] = e
	}

	q.order.PutUint64(skipAheadBuf, uint64(skipAhead))
	_, err = q.file.WriteAt(skipAheadBuf, SkipAheadOffset)
	if err != nil {
		return records, err
	}

	_, err = q.file.Seek(0, io.SeekEnd)
	if err != nil {
		return records, err
	}

	return records, nil
}
