package group

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"todoapp/internal/common"
	"todoapp/internal/database"
	"todoapp/internal/database/databasetest"
)

func setup(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := databasetest.Open(t)
	return NewService(db), db
}

func createUser(t *testing.T, db *gorm.DB, username string) *database.User {
	t.Helper()
	u := &database.User{Username: username, Email: username + "@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestCreateMakesCreatorMemberAndAdmin(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	g, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)

	r, err := svc.Roster(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Household", r.Name)
	assert.Equal(t, []uuid.UUID{alice.ID}, r.Members)
	assert.Equal(t, []uuid.UUID{alice.ID}, r.Admins)
}

func TestCreateDuplicateName(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	_, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)

	_, err = svc.Create(ctx, alice, "Household")
	assert.ErrorIs(t, err, common.ErrConflict)

	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
}

func TestRosterNotFound(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.Roster(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListForUserOnlyReturnsMemberGroups(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	g1, err := svc.Create(ctx, alice, "One")
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, "Two")
	require.NoError(t, err)
	g3, err := svc.Create(ctx, bob, "Three")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, bob, g3.ID, alice.ID))

	groups, err := svc.ListForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, g1.ID, groups[0].ID)
	assert.Equal(t, g3.ID, groups[1].ID)
	assert.ElementsMatch(t, []uuid.UUID{bob.ID, alice.ID}, groups[1].Members)
	assert.Equal(t, []uuid.UUID{bob.ID}, groups[1].Admins)

	none, err := svc.ListForUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMembersReadAdminsWrite(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	eve := createUser(t, db, "eve")

	g, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, alice, g.ID, bob.ID))

	_, err = svc.Get(ctx, bob, g.ID)
	assert.NoError(t, err)

	_, err = svc.Get(ctx, eve, g.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.Rename(ctx, bob, g.ID, "Renamed")
	assert.ErrorIs(t, err, common.ErrForbidden)

	err = svc.AddMember(ctx, bob, g.ID, eve.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)

	r, err := svc.Rename(ctx, alice, g.ID, "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", r.Name)
}

func TestAddMemberTwiceConflicts(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	g, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)

	require.NoError(t, svc.AddMember(ctx, alice, g.ID, bob.ID))
	assert.ErrorIs(t, svc.AddMember(ctx, alice, g.ID, bob.ID), common.ErrConflict)
	assert.ErrorIs(t, svc.AddMember(ctx, alice, g.ID, uuid.New()), common.ErrNotFound)
}

func TestPromoteAddsMembership(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	g, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)

	require.NoError(t, svc.PromoteAdmin(ctx, alice, g.ID, bob.ID))

	r, err := svc.Roster(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, r.IsMember(bob.ID))
	assert.True(t, r.IsAdmin(bob.ID))

	assert.ErrorIs(t, svc.PromoteAdmin(ctx, alice, g.ID, bob.ID), common.ErrConflict)
}

func TestDemoteKeepsLastAdmin(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	g, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)

	err = svc.DemoteAdmin(ctx, alice, g.ID, alice.ID)
	assert.ErrorIs(t, err, ErrLastAdmin)
	assert.ErrorIs(t, err, common.ErrConflict)

	assert.ErrorIs(t, svc.DemoteAdmin(ctx, alice, g.ID, bob.ID), common.ErrNotFound)

	require.NoError(t, svc.PromoteAdmin(ctx, alice, g.ID, bob.ID))
	require.NoError(t, svc.DemoteAdmin(ctx, bob, g.ID, alice.ID))

	r, err := svc.Roster(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{bob.ID}, r.Admins)
	assert.True(t, r.IsMember(alice.ID))
}

func TestRemoveMember(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	g, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, alice, g.ID, bob.ID))
	require.NoError(t, svc.AddMember(ctx, alice, g.ID, carol.ID))

	// members may leave but not remove others
	assert.ErrorIs(t, svc.RemoveMember(ctx, bob, g.ID, carol.ID), common.ErrForbidden)
	require.NoError(t, svc.RemoveMember(ctx, bob, g.ID, bob.ID))

	require.NoError(t, svc.RemoveMember(ctx, alice, g.ID, carol.ID))
	assert.ErrorIs(t, svc.RemoveMember(ctx, alice, g.ID, carol.ID), common.ErrNotFound)

	assert.ErrorIs(t, svc.RemoveMember(ctx, alice, g.ID, alice.ID), ErrLastAdmin)

	r, err := svc.Roster(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{alice.ID}, r.Members)
	assert.Equal(t, []uuid.UUID{alice.ID}, r.Admins)
}

func TestDeleteCascades(t *testing.T) {
	svc, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	g, err := svc.Create(ctx, alice, "Household")
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, alice, g.ID, bob.ID))

	groupID := g.ID
	require.NoError(t, db.Create(&database.ToDo{UserID: &bob.ID, GroupID: &groupID, Title: "Dishes", Priority: database.PriorityMedium}).Error)

	assert.ErrorIs(t, svc.Delete(ctx, bob, g.ID), common.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, alice, g.ID))

	_, err = svc.Roster(ctx, g.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	var n int64
	require.NoError(t, db.Model(&database.ToDo{}).Where("group_id = ?", groupID).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&database.GroupMember{}).Where("group_id = ?", groupID).Count(&n).Error)
	assert.Zero(t, n)
}
