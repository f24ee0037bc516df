package todo

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
	"todoapp/internal/platform/group"
)

func setup(t *testing.T) (*Service, *group.Service, *gorm.DB) {
	t.Helper()
	db := databasetest.Open(t)
	groups := group.NewService(db)
	return NewService(db, groups), groups, db
}

func createUser(t *testing.T, db *gorm.DB, username string) *database.User {
	t.Helper()
	u := &database.User{Username: username, Email: username + "@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func titles(todos []database.ToDo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.Title
	}
	return out
}

func TestCreatePersonalDefaultsPriority(t *testing.T) {
	svc, _, db := setup(t)
	alice := createUser(t, db, "alice")

	created, err := svc.Create(context.Background(), alice, Input{Title: "Laundry"})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, database.PriorityMedium, created[0].Priority)
	assert.Equal(t, alice.ID, *created[0].UserID)
	assert.Nil(t, created[0].GroupID)
}

func TestCreateValidation(t *testing.T) {
	svc, _, db := setup(t)
	alice := createUser(t, db, "alice")

	_, err := svc.Create(context.Background(), alice, Input{Title: " ", Priority: 7})

	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "priority")
}

func TestCreateForGroupFansOut(t *testing.T) {
	svc, groups, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	g, err := groups.Create(ctx, alice, "Household")
	require.NoError(t, err)
	require.NoError(t, groups.AddMember(ctx, alice, g.ID, bob.ID))

	groupID := g.ID
	created, err := svc.Create(ctx, alice, Input{Title: "Dishes", Priority: database.PriorityHigh, GroupID: &groupID})
	require.NoError(t, err)
	require.Len(t, created, 2)

	owners := []uuid.UUID{*created[0].UserID, *created[1].UserID}
	assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, owners)

	bobs, err := svc.ListGroupTasks(ctx, bob, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Dishes"}, titles(bobs))

	// members cannot fan out, strangers neither
	_, err = svc.Create(ctx, bob, Input{Title: "Nope", GroupID: &groupID})
	assert.ErrorIs(t, err, common.ErrForbidden)
	_, err = svc.Create(ctx, carol, Input{Title: "Nope", GroupID: &groupID})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestCreateForOtherUser(t *testing.T) {
	svc, groups, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")

	g, err := groups.Create(ctx, alice, "Household")
	require.NoError(t, err)
	require.NoError(t, groups.AddMember(ctx, alice, g.ID, bob.ID))

	created, err := svc.Create(ctx, alice, Input{Title: "Groceries", UserID: &bob.ID})
	require.NoError(t, err)
	assert.Equal(t, bob.ID, *created[0].UserID)
	assert.Nil(t, created[0].GroupID)

	_, err = svc.Create(ctx, bob, Input{Title: "Payback", UserID: &alice.ID})
	assert.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.Create(ctx, alice, Input{Title: "Stranger", UserID: &carol.ID})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestListFiltersAndOrdering(t *testing.T) {
	svc, groups, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")

	for _, in := range []Input{
		{Title: "b", Priority: database.PriorityLow},
		{Title: "a", Priority: database.PriorityHigh},
		{Title: "c", Priority: database.PriorityHigh},
	} {
		_, err := svc.Create(ctx, alice, in)
		require.NoError(t, err)
	}

	g, err := groups.Create(ctx, alice, "Household")
	require.NoError(t, err)
	groupID := g.ID
	_, err = svc.Create(ctx, alice, Input{Title: "group", GroupID: &groupID})
	require.NoError(t, err)

	personal, err := svc.ListPersonal(ctx, alice, Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, titles(personal))

	high, err := svc.ListPersonal(ctx, alice, Filter{Priority: database.PriorityHigh, Ordering: "-title"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, titles(high))

	ordered, err := svc.ListPersonal(ctx, alice, Filter{Ordering: "-priority"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, titles(ordered))

	all, err := svc.List(ctx, alice, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	inGroup, err := svc.List(ctx, alice, Filter{GroupID: g.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"group"}, titles(inGroup))

	_, err = svc.ListPersonal(ctx, alice, Filter{Ordering: "password_hash"})
	var verr *common.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "ordering")
}

func TestGetUpdateDeleteOwnOnly(t *testing.T) {
	svc, _, db := setup(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	created, err := svc.Create(ctx, alice, Input{Title: "Laundry"})
	require.NoError(t, err)
	id := created[0].ID

	_, err = svc.Get(ctx, bob, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.Update(ctx, bob, id, Input{Title: "Mine"})
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, bob, id), common.ErrNotFound)

	updated, err := svc.Update(ctx, alice, id, Input{Title: "Laundry", Priority: database.PriorityLow, IsCompleted: true})
	require.NoError(t, err)
	assert.True(t, updated.IsCompleted)

	got, err := svc.Get(ctx, alice, id)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, database.PriorityLow, got.Priority)

	// completed flag can be cleared again
	_, err = svc.Update(ctx, alice, id, Input{Title: "Laundry"})
	require.NoError(t, err)
	got, err = svc.Get(ctx, alice, id)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted)
	assert.Equal(t, database.PriorityMedium, got.Priority)

	require.NoError(t, svc.Delete(ctx, alice, id))
	_, err = svc.Get(ctx, alice, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
