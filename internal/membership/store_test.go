package membership

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

var fixedNow = time.Date(2026, 4, 2, 18, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	return NewStore(dbtest.New(t)).WithClock(func() time.Time { return fixedNow })
}

func intPtr(n int) *int { return &n }

func TestCreateGroupMaterializesCreatorAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Climbers", IsPrivate: true})
	require.NoError(t, err)
	assert.True(t, g.IsActive)

	row, err := membershipRow(s.db, g.ID, 1)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, models.RoleAdmin, row.Role)
	assert.Equal(t, models.MembershipApproved, row.Status)
	assert.NotNil(t, row.JoinedAt)

	ok, err := s.IsAdmin(ctx, 1, g.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.ApprovedCount(ctx, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCreateGroupValidation(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateGroup(context.Background(), 1, GroupInput{Name: "  "})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = s.CreateGroup(context.Background(), 1, GroupInput{Name: "x", MaxMembers: intPtr(0)})
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestJoinPublicGroupApprovesImmediately(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Open"})
	require.NoError(t, err)

	m, created, err := s.Join(ctx, 2, g.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.MembershipApproved, m.Status)
	assert.Equal(t, models.RoleMember, m.Role)
	require.NotNil(t, m.JoinedAt)
	assert.True(t, m.JoinedAt.Equal(fixedNow))

	_, _, err = s.Join(ctx, 2, g.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyMember)
}

func TestJoinPrivateGroupStaysPendingUntilApproved(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Closed", IsPrivate: true})
	require.NoError(t, err)

	m, created, err := s.Join(ctx, 2, g.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.MembershipPending, m.Status)
	assert.Nil(t, m.JoinedAt)

	again, created, err := s.Join(ctx, 2, g.ID)
	require.NoError(t, err, "repeat join while pending is a no-op")
	assert.False(t, created)
	assert.Equal(t, models.MembershipPending, again.Status)

	ok, err := s.IsApprovedMember(ctx, 2, g.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Approve(ctx, 3, g.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	approved, err := s.Approve(ctx, 1, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipApproved, approved.Status)
	assert.NotNil(t, approved.JoinedAt)

	ok, err = s.IsApprovedMember(ctx, 2, g.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.Approve(ctx, 1, g.ID, 2)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCapacityScenario(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Duo", IsPrivate: true, MaxMembers: intPtr(2)})
	require.NoError(t, err)

	_, _, err = s.Join(ctx, 3, g.ID)
	require.NoError(t, err)
	_, err = s.Approve(ctx, 1, g.ID, 3)
	require.NoError(t, err)

	n, err := s.ApprovedCount(ctx, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, _, err = s.Join(ctx, 4, g.ID)
	assert.ErrorIs(t, err, apperr.ErrGroupFull)
}

func TestApproveRespectsCapacity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Duo", IsPrivate: true, MaxMembers: intPtr(2)})
	require.NoError(t, err)

	_, _, err = s.Join(ctx, 2, g.ID)
	require.NoError(t, err)
	_, _, err = s.Join(ctx, 3, g.ID)
	require.NoError(t, err)

	_, err = s.Approve(ctx, 1, g.ID, 2)
	require.NoError(t, err)
	_, err = s.Approve(ctx, 1, g.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrGroupFull)
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Small", MaxMembers: intPtr(3)})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for u := uint(10); u < 20; u++ {
		wg.Add(1)
		go func(u uint) {
			defer wg.Done()
			_, _, err := s.Join(ctx, u, g.ID)
			if err != nil {
				assert.ErrorIs(t, err, apperr.ErrGroupFull)
			}
		}(u)
	}
	wg.Wait()

	n, err := s.ApprovedCount(ctx, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestLeave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Open"})
	require.NoError(t, err)
	_, _, err = s.Join(ctx, 2, g.ID)
	require.NoError(t, err)

	_, err = s.Leave(ctx, 1, g.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	removed, err := s.Leave(ctx, 2, g.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	row, err := membershipRow(s.db, g.ID, 2)
	require.NoError(t, err)
	assert.Nil(t, row)

	_, err = s.Leave(ctx, 2, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Open"})
	require.NoError(t, err)
	_, _, err = s.Join(ctx, 2, g.ID)
	require.NoError(t, err)
	_, _, err = s.Join(ctx, 3, g.ID)
	require.NoError(t, err)

	_, err = s.Remove(ctx, 2, g.ID, 3)
	assert.ErrorIs(t, err, apperr.ErrForbidden, "plain members cannot remove")

	_, err = s.SetRole(ctx, 1, g.ID, 2, models.RoleAdmin)
	require.NoError(t, err)

	_, err = s.Remove(ctx, 2, g.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden, "creator cannot be removed")

	removed, err := s.Remove(ctx, 2, g.ID, 3)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestSetRole(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Open"})
	require.NoError(t, err)
	_, _, err = s.Join(ctx, 2, g.ID)
	require.NoError(t, err)

	_, err = s.SetRole(ctx, 1, g.ID, 2, models.GroupRole("owner"))
	assert.ErrorIs(t, err, apperr.ErrInvalid)
	_, err = s.SetRole(ctx, 1, g.ID, 1, models.RoleMember)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = s.SetRole(ctx, 1, g.ID, 7, models.RoleModerator)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	m, err := s.SetRole(ctx, 1, g.ID, 2, models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, m.Role)

	ok, err := s.IsAdmin(ctx, 2, g.ID)
	require.NoError(t, err)
	assert.False(t, ok, "moderators are not admins")
}

func TestBanBlocksRejoin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Open"})
	require.NoError(t, err)
	_, _, err = s.Join(ctx, 2, g.ID)
	require.NoError(t, err)

	_, err = s.Ban(ctx, 1, g.ID, 2)
	require.NoError(t, err)

	ok, err := s.IsApprovedMember(ctx, 2, g.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.Join(ctx, 2, g.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = s.Ban(ctx, 1, g.ID, 1)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestViewAndListGating(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	private, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Closed", IsPrivate: true})
	require.NoError(t, err)
	public, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Open"})
	require.NoError(t, err)

	ok, err := s.CanView(ctx, 5, public.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.CanView(ctx, 5, private.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.ListMembers(ctx, 5, private.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = s.Join(ctx, 5, private.ID)
	require.NoError(t, err)
	pending, err := s.ListPending(ctx, 1, private.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, uint(5), pending[0].UserID)

	_, err = s.ListPending(ctx, 5, private.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	members, err := s.ListMembers(ctx, 1, private.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, uint(1), members[0].UserID)
}

func TestInactiveGroupBehavesAsMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	g, err := s.CreateGroup(ctx, 1, GroupInput{Name: "Old"})
	require.NoError(t, err)

	require.ErrorIs(t, s.SetActive(ctx, 2, g.ID, false), apperr.ErrForbidden)
	require.NoError(t, s.SetActive(ctx, 1, g.ID, false))

	_, _, err = s.Join(ctx, 2, g.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.Group(ctx, g.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.SetActive(ctx, 1, g.ID, true))
	_, _, err = s.Join(ctx, 2, g.ID)
	assert.NoError(t, err)
}
