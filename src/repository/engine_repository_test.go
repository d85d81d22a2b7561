package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"tradingrelay/src/model"
)

func TestEngineRepositoryFindByEngineIDNotFound(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &EngineRepository{db: mockDB}

	rows := sqlmock.NewRows([]string{"id", "engine_id", "status"})
	mock.ExpectQuery(`SELECT \* FROM "engines" WHERE engine_id = \$1 ORDER BY "engines"\."id" LIMIT`).
		WillReturnRows(rows)

	engine, err := repo.FindByEngineID(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("not-found must not be an error: %v", err)
	}
	if engine != nil {
		t.Fatalf("expected nil engine, got %+v", engine)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestEngineRepositoryMarkStaleOffline(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &EngineRepository{db: mockDB}

	cutoff := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "engines" SET "active_bot_count"=$1,"active_bot_ids"=$2,"status"=$3,"updated_at"=$4 WHERE status IN ($5,$6) AND last_heartbeat < $7`)).
		WithArgs(0, "[]", model.EngineStatusOffline, sqlmock.AnyArg(),
			model.EngineStatusOnline, model.EngineStatusDraining, cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	count, err := repo.MarkStaleOffline(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error marking stale engines: %v", err)
	}

	if count != 2 {
		t.Fatalf("expected 2 transitioned engines, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
