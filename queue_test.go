package fielder_test

import (
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fielder"
	"fielder/queue/file"
	"fielder/queue/memory"
)

type testRecord struct {
	T  time.Time
	S  string
	Bs []byte
}

func (t *testRecord) SQL() string {
	return "test"
}

func (t *testRecord) ToExec() []interface{} {
	return nil
}

func (t *testRecord) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, t)
}

func (t testRecord) MarshalBinary() (data []byte, err error) {
	return json.Marshal(t)
}

func TestQueueLimit(t *testing.T) {
	var tempFiles []*os.File

	defer func() {
		for _, tempFile := range tempFiles {
			assert.NoError(t, tempFile.Close())
			assert.NoError(t, os.Remove(tempFile.Name()))
		}
	}()

	testsType := []struct {
		name string
		Type func() fielder.Queue
	}{
		{
			name: "Memory",
			Type: func() fielder.Queue {
				return memory.NewQueue()
			},
		},
		{
			name: "File",
			Type: func() fielder.Queue {
				tempFile, err := os.CreateTemp("", "test")
				require.NoError(t, err)
				tempFiles = append(tempFiles, tempFile)
				q, err := file.NewQueue(tempFile, &testRecord{})
				require.NoError(t, err)
				return q
			},
		},
	}
	for _, testType := range testsType {
		t.Run(testType.name, func(t *testing.T) {
			testsLimit := []struct {
				limit int
			}{
				{limit: 0},
				{limit: 1},
				{limit: 2},
				{limit: 3},
			}
			for _, testLimit := range testsLimit {
				t.Run(fmt.Sprintf("Limit=%d", testLimit.limit), func(t *testing.T) {
					q := testType.Type()
					err := q.Push(&testRecord{
						T:  time.Date(2021, 04, 29, 20, 1, 34, 561, time.UTC),
						S:  "string",
						Bs: []byte("test data"),
					})
					assert.NoError(t, err)
					err = q.Push(&testRecord{
						T:  time.Date(2021, 04, 29, 20, 5, 34, 561, time.UTC),
						S:  "string x",
						Bs: []byte("test data x"),
					})
					assert.NoError(t, err)
					records, err := q.Eject(testLimit.limit)
					assert.NoError(t, err)
					assert.LessOrEqual(t, len(records), testLimit.limit)

					if testLimit.limit > 0 {
						require.NotZero(t, len(records))

						d1, ok := records[0].(*testRecord)
						assert.True(t, ok)
						require.NotNil(t, d1)
						assert.Equal(t, d1.T, time.Date(2021, 04, 29, 20, 1, 34, 561, time.UTC))
						assert.Equal(t, d1.S, "string")
						assert.Equal(t, d1.Bs, []byte("test data"))
					}
				})
			}
		})
	}
}

func TestQueueDrainOrder(t *testing.T) {
	tempFile, err := os.CreateTemp("", "test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, tempFile.Close())
		assert.NoError(t, os.Remove(tempFile.Name()))
	}()
	fileQueue, err := file.NewQueue(tempFile, &testRecord{})
	require.NoError(t, err)

	testsType := []struct {
		name string
		Type fielder.Queue
	}{
		{name: "Memory", Type: memory.NewQueue()},
		{name: "File", Type: fileQueue},
	}
	for _, testType := range testsType {
		t.Run(testType.name, func(t *testing.T) {
			q := testType.Type
			for i := 0; i < 5; i++ {
				err := q.Push(&testRecord{S: fmt.Sprintf("rec-%d", i)})
				require.NoError(t, err)
			}
			assert.Equal(t, 5, q.Len())

			records, err := q.Eject(2)
			require.NoError(t, err)
			require.Len(t, records, 2)
			assert.Equal(t, "rec-0", records[0].(*testRecord).S)
			assert.Equal(t, "rec-1", records[1].(*testRecord).S)
			assert.Equal(t, 3, q.Len())

			records, err = q.Eject(-1)
			require.NoError(t, err)
			require.Len(t, records, 3)
			assert.Equal(t, "rec-2", records[0].(*testRecord).S)
			assert.Equal(t, 0, q.Len())
		})
	}
}
