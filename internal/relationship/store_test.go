package relationship

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchsocial/backend/internal/apperr"
	"matchsocial/backend/internal/database/dbtest"
	"matchsocial/backend/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	return NewStore(dbtest.New(t)).WithClock(func() time.Time { return fixedNow })
}

func countPairRows(t *testing.T, s *Store, a, b uint) int64 {
	low, high := models.PairKey(a, b)
	var n int64
	require.NoError(t, s.db.Model(&models.Friendship{}).
		Where("user_low_id = ? AND user_high_id = ?", low, high).Count(&n).Error)
	return n
}

func TestRequestCreatesPendingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	f, err := s.Request(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, f.Status)
	assert.Equal(t, uint(1), f.RequesterID)
	assert.Equal(t, uint(2), f.TargetID)
	assert.Nil(t, f.AcceptedAt)
	assert.True(t, f.RequestedAt.Equal(fixedNow))
}

func TestRequestRejectsSelf(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Request(context.Background(), 3, 3)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestReverseRequestNeverCreatesSecondRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Request(ctx, 1, 2)
	require.NoError(t, err)

	existing, err := s.Request(ctx, 2, 1)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	require.NotNil(t, existing)
	assert.Equal(t, uint(1), existing.RequesterID)

	_, err = s.Request(ctx, 1, 2)
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	assert.EqualValues(t, 1, countPairRows(t, s, 1, 2))
}

func TestConcurrentRequestsKeepOneRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = s.Request(ctx, 5, 6)
			} else {
				_, errs[i] = s.Request(ctx, 6, 5)
			}
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	}
	assert.Equal(t, 1, created)
	assert.EqualValues(t, 1, countPairRows(t, s, 5, 6))
}

func TestOnlyTargetCanAccept(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Request(ctx, 1, 2)
	require.NoError(t, err)

	_, err = s.Accept(ctx, 1, 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	f, err := s.Accept(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, f.Status)
	require.NotNil(t, f.AcceptedAt)
	assert.True(t, f.AcceptedAt.Equal(fixedNow))

	stored, err := s.Get(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, stored.Status)
	assert.NotNil(t, stored.AcceptedAt)

	// An accepted row is no longer pending.
	_, err = s.Accept(ctx, 2, 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAreFriendsChecksBothOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.AreFriends(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Request(ctx, 2, 1)
	require.NoError(t, err)
	ok, _ = s.AreFriends(ctx, 1, 2)
	assert.False(t, ok, "pending is not a friendship")

	_, err = s.Accept(ctx, 1, 2)
	require.NoError(t, err)

	ok, _ = s.AreFriends(ctx, 1, 2)
	assert.True(t, ok)
	ok, _ = s.AreFriends(ctx, 2, 1)
	assert.True(t, ok)
}

func TestDeclineOrCancelFromEitherSide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Request(ctx, 1, 2)
	require.NoError(t, err)
	removed, err := s.DeclineOrCancel(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = s.Request(ctx, 1, 2)
	require.NoError(t, err)
	removed, err = s.DeclineOrCancel(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeclineOrCancel(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed, "missing row is a no-op")
}

func TestDeclineDoesNotTouchAcceptedRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Request(ctx, 1, 2)
	require.NoError(t, err)
	_, err = s.Accept(ctx, 2, 1)
	require.NoError(t, err)

	removed, err := s.DeclineOrCancel(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.Unfriend(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.EqualValues(t, 0, countPairRows(t, s, 1, 2))

	removed, err = s.Unfriend(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestBlockPreventsRequests(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Request(ctx, 1, 2)
	require.NoError(t, err)
	_, err = s.Accept(ctx, 2, 1)
	require.NoError(t, err)

	_, err = s.Block(ctx, 2, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, countPairRows(t, s, 1, 2))

	ok, _ := s.AreFriends(ctx, 1, 2)
	assert.False(t, ok)

	_, err = s.Request(ctx, 1, 2)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	removed, err := s.Unblock(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, removed, "only the blocker can unblock")

	removed, err = s.Unblock(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = s.Request(ctx, 1, 2)
	assert.NoError(t, err)
}

func TestBlockedUserCannotOverwriteBlock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Block(ctx, 1, 2)
	require.NoError(t, err)

	_, err = s.Block(ctx, 2, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	removed, err := s.Unblock(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	row, err := s.Get(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, row.Status)
	assert.EqualValues(t, 1, row.RequesterID)

	_, err = s.Request(ctx, 2, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	again, err := s.Block(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
	assert.EqualValues(t, 1, countPairRows(t, s, 1, 2))
}

func TestListFriendsAndPending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, target := range []uint{2, 3, 4} {
		_, err := s.Request(ctx, 1, target)
		require.NoError(t, err)
	}
	_, err := s.Request(ctx, 5, 1)
	require.NoError(t, err)
	_, err = s.Accept(ctx, 3, 1)
	require.NoError(t, err)

	friends, err := s.ListFriends(ctx, 1)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, uint(3), friends[0].Other(1))

	outgoing, err := s.ListPending(ctx, 1, Outgoing)
	require.NoError(t, err)
	assert.Len(t, outgoing, 2)

	incoming, err := s.ListPending(ctx, 1, Incoming)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, uint(5), incoming[0].RequesterID)

	_, err = s.ListPending(ctx, 1, Direction("sideways"))
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}
