package fielder

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// gob handles the basic argument types out of the box, timestamps need
// an explicit registration.
func init() {
	gob.Register(time.Time{})
}

func NewFileSpill(basePath string,
	failSaveFunc func(query string, args []interface{}, err error),
	failOpenFunc func(err error)) (Spill, error) {
	if _, err := os.Stat(basePath); os.IsNotExist(err) {
		err := os.MkdirAll(basePath, 0755)
		if err != nil {
			return nil, err
		}
	}
	if failSaveFunc == nil {
		failSaveFunc = func(_ string, _ []interface{}, _ error) {
			// Nothing
		}
	}
	if failOpenFunc == nil {
		failOpenFunc = func(_ error) {
			// Nothing
		}
	}
	return &FileSpill{
		basePath:     basePath,
		failSaveFunc: failSaveFunc,
		failOpenFunc: failOpenFunc,
	}, nil
}

type FileSpill struct {
	basePath     string
	failSaveFunc func(query string, args []interface{}, err error)
	failOpenFunc func(err error)
}

// Save writes each row to its own file: an 8 byte big-endian query length,
// the query text, then the gob-encoded argument list.
func (s *FileSpill) Save(query string, rows [][]interface{}) {
	for _, row := range rows {
		f, err := os.CreateTemp(s.basePath, "spill")
		if err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
		ret, err := f.Seek(8, io.SeekStart)
		if err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
		n, err := io.Copy(f, strings.NewReader(query))
		if err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
		_, err = f.Seek(0, io.SeekStart)
		if err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
		err = binary.Write(f, binary.BigEndian, n)
		if err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
		_, err = f.Seek(ret+n, io.SeekStart)
		if err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
		err = gob.NewEncoder(f).Encode(&row)
		if err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
		if err := f.Close(); err != nil {
			s.failSaveFunc(query, row, err)
			return
		}
	}
}

func (s *FileSpill) Restore() (exist bool, query string, rows []interface{}) {
	f, err := os.Open(s.basePath)
	if err != nil {
		s.failOpenFunc(err)
		return
	}
	names, err := f.Readdirnames(-1)
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		s.failOpenFunc(err)
		return
	}
	if len(names) > 0 {
		f, err = os.Open(filepath.Join(s.basePath, names[0]))
		if err != nil {
			s.failOpenFunc(err)
			return
		}
		var n int64 = 0
		err = binary.Read(f, binary.BigEndian, &n)
		if err != nil {
			s.failOpenFunc(err)
			return
		}
		buf := bytes.NewBuffer(nil)
		_, err = io.CopyN(buf, f, n)
		if err != nil {
			s.failOpenFunc(err)
			return
		}
		query = buf.String()
		err = gob.NewDecoder(f).Decode(&rows)
		if err != nil {
			s.failOpenFunc(err)
			return
		}
		err = f.Close()
		if err != nil {
			s.failOpenFunc(err)
			return
		}
		err = os.Remove(f.Name())
		if err != nil {
			s.failOpenFunc(err)
			return
		}
		return true, query, rows
	}
	return false, "", nil
}
