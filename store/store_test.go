package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rangapin/forum/forum"
	"github.com/rangapin/forum/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return New(db), mock
}

func admin() *models.User  { return &models.User{ID: 99, IsAdmin: true} }
func member() *models.User { return &models.User{ID: 5} }

func TestCreateReplyIncrementsCountInOneTransaction(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `posts`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO `replies`").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec("UPDATE `posts` SET `reply_count`=reply_count \\+ \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	reply := &models.Reply{PostID: 3, AuthorID: 5, Body: "nice dive"}
	err := st.CreateReply(context.Background(), reply)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReplyToMissingPostIsReferentialError(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `posts`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	err := st.CreateReply(context.Background(), &models.Reply{PostID: 404, AuthorID: 5, Body: "hello"})
	assert.ErrorIs(t, err, forum.ErrReferential)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func replyRow(id, postID, authorID uint) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "post_id", "author_id", "body", "created_at", "updated_at"}).
		AddRow(id, postID, authorID, "body", now, now)
}

func TestDeleteReplyDecrementsCountByOne(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `replies`").
		WillReturnRows(replyRow(9, 3, 5))
	mock.ExpectExec("DELETE FROM `reports`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `replies`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `posts` SET `reply_count`=reply_count - \\?").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	postID, err := st.DeleteReply(context.Background(), 9, member())
	require.NoError(t, err)
	assert.Equal(t, uint(3), postID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReplyByAdmin(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `replies`").
		WillReturnRows(replyRow(9, 3, 5))
	mock.ExpectExec("DELETE FROM `reports`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `replies`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `posts` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := st.DeleteReply(context.Background(), 9, admin())
	assert.NoError(t, err)
}

func TestDeleteReplyUnauthorizedRemovesNothing(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `replies`").
		WillReturnRows(replyRow(9, 3, 5))
	mock.ExpectRollback()

	_, err := st.DeleteReply(context.Background(), 9, &models.User{ID: 6})
	assert.ErrorIs(t, err, forum.ErrUnauthorized)
	// No DELETE or UPDATE was expected; any row touched would have failed the mock.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func postRow(id, authorID uint) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "category_id", "author_id", "title", "body", "reply_count", "created_at", "updated_at"}).
		AddRow(id, 1, authorID, "title", "body", 2, now, now)
}

func TestDeletePostCascadesRepliesAndReports(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `posts`").
		WillReturnRows(postRow(3, 5))
	mock.ExpectExec("DELETE FROM `reports` WHERE post_id = \\? OR reply_id IN").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `replies` WHERE post_id = \\?").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM `posts`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.DeletePost(context.Background(), 3, member())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostUnauthorized(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `posts`").
		WillReturnRows(postRow(3, 5))
	mock.ExpectRollback()

	err := st.DeletePost(context.Background(), 3, &models.User{ID: 6})
	assert.ErrorIs(t, err, forum.ErrUnauthorized)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePostNotFound(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `posts`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := st.DeletePost(context.Background(), 404, admin())
	assert.ErrorIs(t, err, forum.ErrNotFound)
}

func listingRows(counts ...int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "title", "reply_count", "created_at", "author_username", "category_name", "category_slug"})
	for i, c := range counts {
		rows.AddRow(uint(i+1), "post", c, time.Now(), "janediver", "General Discussion", "general-discussion")
	}
	return rows
}

func TestListPostsMostRepliesOrdering(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("ORDER BY posts\\.reply_count DESC").
		WithArgs(forum.ListLimit).
		WillReturnRows(listingRows(5, 2, 0))

	rows, err := st.ListPosts(context.Background(), ListOptions{Sort: forum.SortReplies})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{5, 2, 0}, []int{rows[0].ReplyCount, rows[1].ReplyCount, rows[2].ReplyCount})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostsDefaultsToLatest(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("ORDER BY posts\\.created_at DESC").
		WithArgs(forum.ListLimit).
		WillReturnRows(listingRows(0))

	_, err := st.ListPosts(context.Background(), ListOptions{Sort: forum.ParseSort("")})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostsUnknownSlugFallsBackToUnfiltered(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	// The listing query carries no category argument: only the limit.
	mock.ExpectQuery("SELECT posts\\.id, posts\\.title").
		WithArgs(forum.ListLimit).
		WillReturnRows(listingRows(1, 0))

	rows, err := st.ListPosts(context.Background(), ListOptions{CategorySlug: "no-such-category", Sort: forum.SortLatest})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostsKnownSlugFilters(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT \\* FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name"}).AddRow(2, "gear-equipment", "Gear & Equipment"))
	mock.ExpectQuery("WHERE posts\\.category_id = \\?").
		WithArgs(2, forum.ListLimit).
		WillReturnRows(listingRows(0))

	_, err := st.ListPosts(context.Background(), ListOptions{CategorySlug: "gear-equipment", Sort: forum.SortLatest})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPostsSearchMatchesTitleOrBody(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("posts\\.title LIKE \\? OR posts\\.body LIKE \\?").
		WithArgs("%monofin%", "%monofin%", forum.ListLimit).
		WillReturnRows(listingRows(0))

	_, err := st.ListPosts(context.Background(), ListOptions{Query: "monofin", Sort: forum.SortLatest})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePostInitializesReplyCount(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("INSERT INTO `posts`").
		WithArgs(uint(1), uint(5), "Monofin care", "Rinse it.", 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(42, 1))

	post := &models.Post{CategoryID: 1, AuthorID: 5, Title: "Monofin care", Body: "Rinse it.", ReplyCount: 7}
	err := st.CreatePost(context.Background(), post)
	require.NoError(t, err)
	assert.Equal(t, uint(42), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePostUnknownCategoryIsReferentialError(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `categories`").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := st.CreatePost(context.Background(), &models.Post{CategoryID: 404, AuthorID: 5, Title: "t", Body: "b"})
	assert.ErrorIs(t, err, forum.ErrReferential)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReportTargets(t *testing.T) {
	t.Run("post target", func(t *testing.T) {
		st, mock := newTestStore(t)
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `posts`").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec("INSERT INTO `reports`").
			WithArgs(uint(1), uint(7), nil, "spam", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := st.CreateReport(context.Background(), 1, forum.TargetPost(7), "spam")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reply target", func(t *testing.T) {
		st, mock := newTestStore(t)
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `replies`").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec("INSERT INTO `reports`").
			WithArgs(uint(1), nil, uint(9), "abuse", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(2, 1))

		err := st.CreateReport(context.Background(), 1, forum.TargetReply(9), "abuse")
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing post inserts nothing", func(t *testing.T) {
		st, mock := newTestStore(t)
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `posts`").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := st.CreateReport(context.Background(), 1, forum.TargetPost(404), "spam")
		assert.ErrorIs(t, err, forum.ErrReferential)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing reply inserts nothing", func(t *testing.T) {
		st, mock := newTestStore(t)
		mock.ExpectQuery("SELECT count\\(\\*\\) FROM `replies`").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := st.CreateReport(context.Background(), 1, forum.TargetReply(404), "abuse")
		assert.ErrorIs(t, err, forum.ErrReferential)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty target never reaches the database", func(t *testing.T) {
		st, mock := newTestStore(t)
		err := st.CreateReport(context.Background(), 1, forum.ReportTarget{}, "spam")
		assert.ErrorIs(t, err, forum.ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserByUsernameNotFound(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := st.UserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, forum.ErrNotFound)
}
