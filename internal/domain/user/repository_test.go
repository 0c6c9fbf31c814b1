package user

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *RepositoryImpl) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewRepositoryImpl(mock, slog.New(slog.DiscardHandler))
}

func TestGetByID(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the user", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT id, email, full_name, is_active FROM users").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "full_name", "is_active"}).
				AddRow(userID, "dev@example.com", "Dev", true))

		u, err := repo.GetByID(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, userID, u.ID)
		assert.True(t, u.IsActive)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user is not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery("SELECT id, email, full_name, is_active FROM users").
			WithArgs(userID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "email", "full_name", "is_active"}))

		_, err := repo.GetByID(context.Background(), userID)
		require.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestGetSignals(t *testing.T) {
	userID := uuid.New()
	mock, repo := newMockRepo(t)

	mock.ExpectQuery("SELECT p.place_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"place_id"}).
			AddRow("place-1").AddRow("place-2"))

	mock.ExpectQuery("SELECT DISTINCT pt.type_name").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"type_name"}).
			AddRow("cafe").AddRow("subway_station"))

	createdAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, user_id, address, created_at").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "address", "created_at"}).
			AddRow(int64(1), userID, "Pangyo Station", createdAt))

	signals, err := repo.GetSignals(context.Background(), userID)
	require.NoError(t, err)

	assert.Contains(t, signals.InterestedPlaceIDs, "place-1")
	assert.Contains(t, signals.InterestedPlaceIDs, "place-2")
	assert.Contains(t, signals.PreferredTypes, "cafe")
	require.Len(t, signals.SearchHistory, 1)
	assert.Equal(t, "Pangyo Station", signals.SearchHistory[0].Address)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkInterest(t *testing.T) {
	userID := uuid.New()

	t.Run("inserts the mark", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec("INSERT INTO user_interested_places").
			WithArgs(userID, int64(7)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.MarkInterest(context.Background(), userID, 7))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate mark is a conflict", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec("INSERT INTO user_interested_places").
			WithArgs(userID, int64(7)).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		err := repo.MarkInterest(context.Background(), userID, 7)
		require.ErrorIs(t, err, types.ErrConflict)
	})
}

func TestUnmarkInterest(t *testing.T) {
	userID := uuid.New()

	t.Run("deletes the mark", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec("DELETE FROM user_interested_places").
			WithArgs(userID, int64(7)).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		require.NoError(t, repo.UnmarkInterest(context.Background(), userID, 7))
	})

	t.Run("unmarked place is not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec("DELETE FROM user_interested_places").
			WithArgs(userID, int64(7)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.UnmarkInterest(context.Background(), userID, 7)
		require.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestAddSearchHistory(t *testing.T) {
	userID := uuid.New()
	mock, repo := newMockRepo(t)

	mock.ExpectExec("INSERT INTO user_search_history").
		WithArgs(userID, "Pangyo Station").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO user_search_history").
		WithArgs(userID, "Seoul Station").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.AddSearchHistory(context.Background(), userID, []string{"Pangyo Station", "Seoul Station"}))
	require.NoError(t, mock.ExpectationsWereMet())
}
