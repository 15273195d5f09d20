package fielder

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSpill_DirShouldBeMade(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "_test")
	require.NoError(t, err)

	tmpDir = filepath.Join(tmpDir, "test", "test")
	_, err = NewFileSpill(tmpDir, nil, nil)
	assert.NoError(t, err)

	assert.DirExists(t, tmpDir)
	os.RemoveAll(tmpDir)
}

func TestFileSpill_SaveRestore(t *testing.T) {
	tmpDir := t.TempDir()

	s := &FileSpill{
		basePath: tmpDir,
		failSaveFunc: func(query string, args []interface{}, err error) {
			t.Errorf("save failed: %v", err)
		},
		failOpenFunc: func(err error) {
			t.Errorf("open failed: %v", err)
		},
	}

	query := "INSERT INTO attribute_events"
	row := []interface{}{
		"t1",
		1,
		false,
		int16(2),
		uint64(3),
	}
	s.Save(query, [][]interface{}{row, row})

	for i := 0; i < 2; i++ {
		gotExist, gotQuery, gotRows := s.Restore()
		if !gotExist {
			t.Fatalf("Restore() gotExist = false on saved batch %d", i)
		}
		if gotQuery != query {
			t.Errorf("Restore() gotQuery = %v, want %v", gotQuery, query)
		}
		if !reflect.DeepEqual(gotRows, row) {
			t.Errorf("Restore() gotRows = %v, want %v", gotRows, row)
		}
	}

	gotExist, gotQuery, gotRows := s.Restore()
	if gotExist || gotQuery != "" || gotRows != nil {
		t.Errorf("Restore() on empty spill = (%v, %q, %v), want (false, \"\", nil)",
			gotExist, gotQuery, gotRows)
	}
}
