package forum

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePost(t *testing.T) {
	t.Run("trims title and body", func(t *testing.T) {
		title, body, err := ValidatePost("  Depth training  ", "  CO2 tables?  ")
		require.NoError(t, err)
		assert.Equal(t, "Depth training", title)
		assert.Equal(t, "CO2 tables?", body)
	})

	t.Run("title at boundary is accepted", func(t *testing.T) {
		_, _, err := ValidatePost(strings.Repeat("a", 200), "body")
		assert.NoError(t, err)
	})

	t.Run("title over boundary is rejected", func(t *testing.T) {
		_, _, err := ValidatePost(strings.Repeat("a", 201), "body")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("whitespace-only body is rejected", func(t *testing.T) {
		_, _, err := ValidatePost("title", "   \n\t ")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("whitespace-only title is rejected", func(t *testing.T) {
		_, _, err := ValidatePost("   ", "body")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestNormalizeReplyBody(t *testing.T) {
	// A whitespace-only reply is silently dropped, unlike a post body which
	// is a validation error.
	body, ok := NormalizeReplyBody("  \t\n ")
	assert.False(t, ok)
	assert.Empty(t, body)

	body, ok = NormalizeReplyBody("  nice dive  ")
	assert.True(t, ok)
	assert.Equal(t, "nice dive", body)
}

func TestNormalizeReason(t *testing.T) {
	_, ok := NormalizeReason("   ")
	assert.False(t, ok)

	reason, ok := NormalizeReason(" spam ")
	assert.True(t, ok)
	assert.Equal(t, "spam", reason)
}

func TestReportTarget(t *testing.T) {
	post := TargetPost(7)
	assert.True(t, post.Valid())
	id, ok := post.PostID()
	assert.True(t, ok)
	assert.Equal(t, uint(7), id)
	_, ok = post.ReplyID()
	assert.False(t, ok)

	reply := TargetReply(9)
	assert.True(t, reply.Valid())
	id, ok = reply.ReplyID()
	assert.True(t, ok)
	assert.Equal(t, uint(9), id)

	assert.False(t, ReportTarget{}.Valid())
}

func TestDeriveUsername(t *testing.T) {
	assert.Equal(t, "janediver", DeriveUsername("Jane Diver", "abc"))
	assert.Equal(t, "janediver", DeriveUsername("  Jane   Diver ", "abc"))
	assert.Equal(t, "user_d3adbeef", DeriveUsername("", "d3adbeef-0000-4000-8000-000000000000"))
	assert.Equal(t, "user_ab", DeriveUsername("   ", "ab"))
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, SortLatest, ParseSort(""))
	assert.Equal(t, SortLatest, ParseSort("latest"))
	assert.Equal(t, SortLatest, ParseSort("bogus"))
	assert.Equal(t, SortReplies, ParseSort("replies"))

	assert.Equal(t, "posts.created_at DESC", SortLatest.OrderClause())
	assert.Equal(t, "posts.reply_count DESC", SortReplies.OrderClause())
}

func TestCategoryBySlug(t *testing.T) {
	cat, ok := CategoryBySlug("training-technique")
	require.True(t, ok)
	assert.Equal(t, "Training & Technique", cat.Name)

	_, ok = CategoryBySlug("underwater-basket-weaving")
	assert.False(t, ok)

	// Registry ordering is the display ordering.
	for i := 1; i < len(Categories); i++ {
		assert.Greater(t, Categories[i].SortOrder, Categories[i-1].SortOrder)
	}
}
