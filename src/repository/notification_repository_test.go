package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNotificationRepositoryMarkTelegramSent(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &NotificationRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "notifications" SET "sent_via_telegram"=$1 WHERE notification_id = $2`)).
		WithArgs(true, "ntf-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.MarkTelegramSent(context.Background(), "ntf-1"); err != nil {
		t.Fatalf("unexpected error marking notification sent: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
