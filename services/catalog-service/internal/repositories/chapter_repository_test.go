package repositories

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var chapterRowColumns = []string{"id", "course_id", "title", "description", "order_index", "is_free", "created_at", "updated_at"}

// setupChapterTestRepository creates a chapter repository with a mock database
func setupChapterTestRepository(t *testing.T) (*chapterRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewChapterRepository(db)

	cleanup := func() {
		db.Close()
	}

	return repo, mock, cleanup
}

func TestChapterRepository_GetByID(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedKind  apperr.Kind
		expectedError bool
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				now := time.Now()
				mock.ExpectQuery(`(?s)SELECT .*FROM chapters WHERE id = \$1 LIMIT 1`).
					WithArgs(4).
					WillReturnRows(sqlmock.NewRows(chapterRowColumns).AddRow(4, 1, "Intro", "First steps", 0, true, now, now))
			},
		},
		{
			name: "chapter not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`(?s)SELECT .*FROM chapters`).
					WithArgs(4).
					WillReturnError(sql.ErrNoRows)
			},
			expectedError: true,
			expectedKind:  apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupChapterTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			chapter, err := repo.GetByID(context.Background(), 4)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperr.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, 4, chapter.ID)
				assert.Equal(t, 1, chapter.CourseID)
				assert.True(t, chapter.IsFree)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChapterRepository_List_Search(t *testing.T) {
	repo, mock, cleanup := setupChapterTestRepository(t)
	defer cleanup()

	courseID := 1
	now := time.Now()
	mock.ExpectQuery(`SELECT COUNT\(\*\)\s+FROM chapters\s+WHERE course_id = \$1 AND \(title ILIKE \$2 OR description ILIKE \$2\)`).
		WithArgs(1, "%intro%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`ORDER BY order_index ASC, id ASC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs(1, "%intro%", 50, 0).
		WillReturnRows(sqlmock.NewRows(chapterRowColumns).
			AddRow(1, 1, "Introduction", "", 0, true, now, now).
			AddRow(3, 1, "Advanced", "An intro to generics", 2, false, now, now))

	chapters, total, err := repo.List(context.Background(), &models.ChapterFilter{CourseID: &courseID, Search: "intro"}, models.Sort{}, models.PageRequest{})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, chapters, 2)
	assert.Equal(t, "Introduction", chapters[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChapterRepository_MaxOrderIndex(t *testing.T) {
	tests := []struct {
		name     string
		maxIndex int
	}{
		{name: "empty course", maxIndex: -1},
		{name: "populated course", maxIndex: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupChapterTestRepository(t)
			defer cleanup()

			mock.ExpectQuery(`SELECT COALESCE\(MAX\(order_index\), -1\) FROM chapters WHERE course_id = \$1`).
				WithArgs(9).
				WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(tt.maxIndex))

			maxIndex, err := repo.MaxOrderIndex(context.Background(), 9)

			require.NoError(t, err)
			assert.Equal(t, tt.maxIndex, maxIndex)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChapterRepository_Create(t *testing.T) {
	repo, mock, cleanup := setupChapterTestRepository(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO chapters`).
		WithArgs(1, "Intro", "", 3, false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(12, now, now))

	chapter := &models.Chapter{CourseID: 1, Title: "Intro", OrderIndex: 3}
	err := repo.Create(context.Background(), chapter)

	require.NoError(t, err)
	assert.Equal(t, 12, chapter.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChapterRepository_Update(t *testing.T) {
	title := "Renamed"

	tests := []struct {
		name          string
		req           *models.UpdateChapterRequest
		setupMock     func(sqlmock.Sqlmock)
		expectedError bool
		expectedKind  apperr.Kind
	}{
		{
			name: "success",
			req:  &models.UpdateChapterRequest{Title: &title},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE chapters\s+SET title = \$1, updated_at = NOW\(\)\s+WHERE id = \$2`).
					WithArgs(title, 4).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:          "empty patch",
			req:           &models.UpdateChapterRequest{},
			setupMock:     func(mock sqlmock.Sqlmock) {},
			expectedError: true,
			expectedKind:  apperr.KindValidation,
		},
		{
			name: "chapter not found",
			req:  &models.UpdateChapterRequest{Title: &title},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE chapters`).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			expectedError: true,
			expectedKind:  apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupChapterTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			err := repo.Update(context.Background(), 4, tt.req)

			if tt.expectedError {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperr.KindOf(err))
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChapterRepository_Delete(t *testing.T) {
	tests := []struct {
		name             string
		setupMock        func(sqlmock.Sqlmock)
		expectedCourseID int
		expectedKind     apperr.Kind
	}{
		{
			name: "lessons deleted before chapter",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM lessons WHERE chapter_id = ANY\(\$1\)`).
					WithArgs(pq.Array([]int{4})).
					WillReturnResult(sqlmock.NewResult(0, 3))
				mock.ExpectQuery(`DELETE FROM chapters WHERE id = ANY\(\$1\) RETURNING id, course_id`).
					WithArgs(pq.Array([]int{4})).
					WillReturnRows(sqlmock.NewRows([]string{"id", "course_id"}).AddRow(4, 2))
				mock.ExpectCommit()
			},
			expectedCourseID: 2,
		},
		{
			name: "chapter not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM lessons`).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(`DELETE FROM chapters`).WillReturnRows(sqlmock.NewRows([]string{"id", "course_id"}))
				mock.ExpectRollback()
			},
			expectedKind: apperr.KindNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupChapterTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			courseID, err := repo.Delete(context.Background(), 4)

			if tt.expectedKind != "" {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperr.KindOf(err))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCourseID, courseID)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChapterRepository_BulkDelete(t *testing.T) {
	tests := []struct {
		name          string
		setupMock     func(sqlmock.Sqlmock)
		expectedRefs  []models.ChapterRef
		expectedError bool
	}{
		{
			name: "chapters across courses",
			setupMock: func(mock sqlmock.Sqlmock) {
				ids := pq.Array([]int{1, 2, 3})
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM lessons WHERE chapter_id = ANY\(\$1\)`).WithArgs(ids).WillReturnResult(sqlmock.NewResult(0, 5))
				mock.ExpectQuery(`DELETE FROM chapters WHERE id = ANY\(\$1\)`).WithArgs(ids).
					WillReturnRows(sqlmock.NewRows([]string{"id", "course_id"}).AddRow(1, 10).AddRow(2, 10).AddRow(3, 11))
				mock.ExpectCommit()
			},
			expectedRefs: []models.ChapterRef{{ID: 1, CourseID: 10}, {ID: 2, CourseID: 10}, {ID: 3, CourseID: 11}},
		},
		{
			name: "lesson delete fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(`DELETE FROM lessons`).WillReturnError(errors.New("database error"))
				mock.ExpectRollback()
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupChapterTestRepository(t)
			defer cleanup()

			tt.setupMock(mock)

			refs, err := repo.BulkDelete(context.Background(), []int{1, 2, 3})

			if tt.expectedError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "failed to delete chapter lessons")
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedRefs, refs)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChapterRepository_BulkUpdate(t *testing.T) {
	repo, mock, cleanup := setupChapterTestRepository(t)
	defer cleanup()

	isFree := true
	mock.ExpectQuery(`UPDATE chapters\s+SET is_free = \$1, updated_at = NOW\(\)\s+WHERE id = ANY\(\$2\)\s+RETURNING id, course_id`).
		WithArgs(true, pq.Array([]int{1, 2})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id"}).AddRow(1, 5).AddRow(2, 5))

	refs, err := repo.BulkUpdate(context.Background(), []int{1, 2}, &models.UpdateChapterRequest{IsFree: &isFree})

	require.NoError(t, err)
	assert.Len(t, refs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChapterRepository_UpdateOrderIndex(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{name: "chapter in course", affected: 1, expected: true},
		{name: "chapter of another course", affected: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupChapterTestRepository(t)
			defer cleanup()

			mock.ExpectExec(`UPDATE chapters\s+SET order_index = \$1, updated_at = NOW\(\)\s+WHERE id = \$2 AND course_id = \$3`).
				WithArgs(2, 7, 1).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := repo.UpdateOrderIndex(context.Background(), 1, 7, 2)

			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChapterRepository_CompactOrder(t *testing.T) {
	repo, mock, cleanup := setupChapterTestRepository(t)
	defer cleanup()

	mock.ExpectExec(`ROW_NUMBER\(\) OVER \(ORDER BY order_index, id\) - 1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 2))

	updated, err := repo.CompactOrder(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, 2, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChapterRepository_Stats(t *testing.T) {
	tests := []struct {
		name            string
		row             []driver.Value
		expectedAverage float64
	}{
		{name: "rounded average", row: []driver.Value{3, 1, 10}, expectedAverage: 3.33},
		{name: "no chapters", row: []driver.Value{0, 0, 0}, expectedAverage: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, cleanup := setupChapterTestRepository(t)
			defer cleanup()

			mock.ExpectQuery(`FROM chapters c\s+LEFT JOIN`).
				WithArgs(1).
				WillReturnRows(sqlmock.NewRows([]string{"total", "free", "lessons"}).AddRow(tt.row...))

			stats, err := repo.Stats(context.Background(), 1)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedAverage, stats.AverageLessonsPerChapter)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestChapterRepository_RefsByIDs(t *testing.T) {
	repo, mock, cleanup := setupChapterTestRepository(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT id, course_id FROM chapters WHERE id = ANY\(\$1\)`).
		WithArgs(pq.Array([]int{1, 2})).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id"}).AddRow(1, 4).AddRow(2, 6))

	refs, err := repo.RefsByIDs(context.Background(), []int{1, 2})

	require.NoError(t, err)
	assert.Equal(t, []models.ChapterRef{{ID: 1, CourseID: 4}, {ID: 2, CourseID: 6}}, refs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
