package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, nil), mock
}

func rotatedFile() *domain.ManualFile {
	f := &domain.ManualFile{ManualID: "man-1", FileType: domain.FileTypePDF, PDFRotationDegrees: 90}
	f.ID = "file-1"
	return f
}

func TestUpdateFileRotation_WriteFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	emitter := &recordingEmitter{}
	s.SetEmitter(emitter)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE manual_files").
		WithArgs(90, 0, sqlmock.AnyArg(), "file-1").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err := s.UpdateFileRotation(context.Background(), rotatedFile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")

	assert.Empty(t, emitter.kinds())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFileRotation_CommitFailure(t *testing.T) {
	s, mock := newMockStore(t)
	emitter := &recordingEmitter{}
	s.SetEmitter(emitter)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE manual_files").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sync_state SET change_token").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := s.UpdateFileRotation(context.Background(), rotatedFile())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")

	assert.Empty(t, emitter.kinds())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFileRotation_EmitsAfterCommit(t *testing.T) {
	s, mock := newMockStore(t)
	emitter := &recordingEmitter{}
	s.SetEmitter(emitter)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE manual_files").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE sync_state SET change_token").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.UpdateFileRotation(context.Background(), rotatedFile()))

	require.Len(t, emitter.changes, 1)
	c := emitter.changes[0]
	assert.Equal(t, store.ChangeFileUpdated, c.Kind)
	assert.Equal(t, "file-1", c.EntityID)
	assert.Equal(t, "man-1", c.ManualID)
	assert.NotEmpty(t, c.Token)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteManual_PartialFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM manual_files").
		WithArgs("man-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("file-1").AddRow("file-2"))
	mock.ExpectQuery("SELECT DISTINCT tag_id FROM file_tags").
		WithArgs("file-1", "file-2").
		WillReturnRows(sqlmock.NewRows([]string{"tag_id"}).AddRow("tag-1"))
	mock.ExpectExec("DELETE FROM file_tags WHERE file_id IN").
		WithArgs("file-1", "file-2").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM manual_files").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	fileIDs, tagIDs, err := s.DeleteManual(context.Background(), "man-1")
	require.Error(t, err)
	assert.Nil(t, fileIDs)
	assert.Nil(t, tagIDs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSyncState_QueryFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT change_token").WillReturnError(errors.New("no such table"))

	_, err := s.GetSyncState(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
