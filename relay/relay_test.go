package relay

import (
	"encoding/json"
	"errors"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"fielder"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testInsert = "INSERT INTO attribute_events (event_id, action) VALUES (?, ?)"

type testEvent struct {
	ID     string `json:"id"`
	Action string `json:"action"`
}

func (e testEvent) MarshalBinary() (data []byte, err error) {
	return json.Marshal(e)
}

func (e *testEvent) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

func (e *testEvent) SQL() string {
	return testInsert
}

func (e *testEvent) ToExec() []interface{} {
	return []interface{}{e.ID, e.Action}
}

func TestRelay(t *testing.T) {
	suite.Run(t, new(relayTestSuite))
}

type relayTestSuite struct {
	suite.Suite
}

func (s *relayTestSuite) TestPublishTwo() {
	db, sm, err := sqlmock.New()
	require.NoError(s.T(), err, "An error was not expected when opening a stub database connection")
	defer db.Close()

	sm.ExpectBegin()
	stmt := sm.ExpectPrepare(regexp.QuoteMeta(testInsert)).
		WillBeClosed()
	stmt.ExpectExec().
		WithArgs("ev-1", "create").
		WillReturnResult(sqlmock.NewResult(0, 0))
	stmt.ExpectExec().
		WithArgs("ev-2", "update").
		WillReturnResult(sqlmock.NewResult(0, 0))
	sm.ExpectCommit()

	r := NewRelay(db, Config{
		FileWorkspace: s.T().TempDir(),
		SendLimit:     100,
	})
	require.NoError(s.T(), r.Push(&testEvent{ID: "ev-1", Action: "create"}))
	require.NoError(s.T(), r.Push(&testEvent{ID: "ev-2", Action: "update"}))

	r.Run()
	r.Stop(true)

	assert.NoError(s.T(), sm.ExpectationsWereMet())
}

func (s *relayTestSuite) TestPublishRetries() {
	db, sm, err := sqlmock.New()
	require.NoError(s.T(), err, "An error was not expected when opening a stub database connection")
	defer db.Close()

	// First attempt fails and rolls back, the retry succeeds.
	sm.ExpectBegin()
	stmt := sm.ExpectPrepare(regexp.QuoteMeta(testInsert))
	stmt.ExpectExec().
		WithArgs("ev-1", "create").
		WillReturnError(errors.New("connection reset"))
	sm.ExpectRollback()

	sm.ExpectBegin()
	stmt = sm.ExpectPrepare(regexp.QuoteMeta(testInsert)).
		WillBeClosed()
	stmt.ExpectExec().
		WithArgs("ev-1", "create").
		WillReturnResult(sqlmock.NewResult(0, 0))
	sm.ExpectCommit()

	r := NewRelay(db, Config{
		FileWorkspace:     s.T().TempDir(),
		SendLimit:         100,
		MaxPublishRetries: 2,
		RetryBackoff:      time.Millisecond,
	})
	require.NoError(s.T(), r.Push(&testEvent{ID: "ev-1", Action: "create"}))

	r.Run()
	r.Stop(true)

	assert.NoError(s.T(), sm.ExpectationsWereMet())
}

func (s *relayTestSuite) TestMemoryFallbackWhenDiskUnavailable() {
	db, sm, err := sqlmock.New()
	require.NoError(s.T(), err, "An error was not expected when opening a stub database connection")
	defer db.Close()

	sm.ExpectBegin()
	stmt := sm.ExpectPrepare(regexp.QuoteMeta(testInsert)).
		WillBeClosed()
	stmt.ExpectExec().
		WithArgs("ev-1", "delete").
		WillReturnResult(sqlmock.NewResult(0, 0))
	sm.ExpectCommit()

	// A workspace that is a regular file makes every queue open fail.
	notADir := s.T().TempDir() + "/occupied"
	require.NoError(s.T(), writeFile(notADir))

	r := NewRelay(db, Config{
		FileWorkspace:     notADir + "/sub",
		UseMemoryFallback: true,
		SendLimit:         100,
	})
	require.NoError(s.T(), r.Push(&testEvent{ID: "ev-1", Action: "delete"}))

	r.Run()
	r.Stop(true)

	assert.NoError(s.T(), sm.ExpectationsWereMet())
}

func (s *relayTestSuite) TestDrainsSpilledRows() {
	db, sm, err := sqlmock.New()
	require.NoError(s.T(), err, "An error was not expected when opening a stub database connection")
	defer db.Close()

	sm.ExpectBegin()
	stmt := sm.ExpectPrepare(regexp.QuoteMeta(testInsert)).
		WillBeClosed()
	stmt.ExpectExec().
		WithArgs("ev-7", "update").
		WillReturnResult(sqlmock.NewResult(0, 0))
	sm.ExpectCommit()

	workspace := s.T().TempDir()
	spill, err := fielder.NewFileSpill(workspace+"/spill", nil, nil)
	require.NoError(s.T(), err)

	// Left over from an earlier run that could not reach the sink.
	spill.Save(testInsert, [][]interface{}{{"ev-7", "update"}})

	r := NewRelay(db, Config{
		FileWorkspace: workspace,
		SendLimit:     100,
		Spill:         spill,
	})
	r.Run()
	r.Stop(true)

	assert.NoError(s.T(), sm.ExpectationsWereMet())
}

func (s *relayTestSuite) TestPushAfterStop() {
	db, _, err := sqlmock.New()
	require.NoError(s.T(), err)
	defer db.Close()

	r := NewRelay(db, Config{FileWorkspace: s.T().TempDir()})
	r.Run()
	r.Stop(false)

	err = r.Push(&testEvent{ID: "ev-9", Action: "create"})
	assert.Error(s.T(), err)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0644)
}
