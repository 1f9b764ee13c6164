package runtime

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, users ...string) *Registry {
	t.Helper()
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug))
	for _, u := range users {
		_, err := registry.CreateUser(u)
		require.NoError(t, err)
	}
	return registry
}

func TestRegistry_CreateUser(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t)

	id, err := registry.CreateUser("Alice")
	req.NoError(err)
	req.Equal(domain.UserID("Alice"), id)

	// When the name is taken
	_, err = registry.CreateUser("Alice")
	req.ErrorIs(err, errors.ErrDuplicateIdentity)

	// When the name is invalid
	_, err = registry.CreateUser("")
	req.ErrorIs(err, errors.ErrInvalidName)
}

func TestRegistry_CreateGroup_CreatorIsSoleMemberAndAdmin(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice")

	id, err := registry.CreateGroup("Family", "Alice")
	req.NoError(err)

	group, err := registry.Group(id)
	req.NoError(err)
	req.Equal(domain.UserID("Alice"), group.Creator)
	req.Equal([]domain.UserID{"Alice"}, group.Members)
	req.Equal([]domain.UserID{"Alice"}, group.Admins)

	groups, err := registry.GroupsOf("Alice")
	req.NoError(err)
	req.Equal([]domain.GroupID{"Family"}, groups)
}

func TestRegistry_CreateGroup_Errors(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice")

	_, err := registry.CreateGroup("Family", "Nobody")
	req.ErrorIs(err, errors.ErrUnknownEntity)

	_, err = registry.CreateGroup("Family", "Alice")
	req.NoError(err)
	_, err = registry.CreateGroup("Family", "Alice")
	req.ErrorIs(err, errors.ErrDuplicateIdentity)

	_, err = registry.CreateGroup(" ", "Alice")
	req.ErrorIs(err, errors.ErrInvalidName)
}

func TestRegistry_AddMember(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice", "Bob", "Clara")
	_, err := registry.CreateGroup("Family", "Alice")
	req.NoError(err)

	// When an admin adds Bob
	req.NoError(registry.AddMember("Family", "Bob", "Alice"))

	// Then both sides of the edge are updated
	members, err := registry.MembersOf("Family")
	req.NoError(err)
	req.Equal([]domain.UserID{"Alice", "Bob"}, members)
	groups, err := registry.GroupsOf("Bob")
	req.NoError(err)
	req.Equal([]domain.GroupID{"Family"}, groups)

	// When a non admin member tries to add Clara
	err = registry.AddMember("Family", "Clara", "Bob")
	req.ErrorIs(err, errors.ErrNotAuthorized)
	isMember, err := registry.IsMember("Family", "Clara")
	req.NoError(err)
	req.False(isMember)
}

func TestRegistry_AddMember_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice", "Bob")
	_, err := registry.CreateGroup("Family", "Alice")
	req.NoError(err)

	req.NoError(registry.AddMember("Family", "Bob", "Alice"))
	before, err := registry.Group("Family")
	req.NoError(err)

	// When Bob is added a second time
	req.NoError(registry.AddMember("Family", "Bob", "Alice"))

	// Then nothing changed
	after, err := registry.Group("Family")
	req.NoError(err)
	req.Equal(before, after)
	groups, err := registry.GroupsOf("Bob")
	req.NoError(err)
	req.Len(groups, 1)
}

func TestRegistry_AddMember_UnknownEntities(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice", "Bob")
	_, err := registry.CreateGroup("Family", "Alice")
	req.NoError(err)

	req.ErrorIs(registry.AddMember("Friends", "Bob", "Alice"), errors.ErrUnknownEntity)
	req.ErrorIs(registry.AddMember("Family", "Nobody", "Alice"), errors.ErrUnknownEntity)
	req.ErrorIs(registry.AddMember("Family", "Bob", "Nobody"), errors.ErrUnknownEntity)
}

func TestRegistry_PromoteAdmin(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice", "Bob", "Clara")
	_, err := registry.CreateGroup("Family", "Alice")
	req.NoError(err)
	req.NoError(registry.AddMember("Family", "Bob", "Alice"))

	// When Bob tries to promote himself
	err = registry.PromoteAdmin("Family", "Bob", "Bob")
	req.ErrorIs(err, errors.ErrNotAuthorized)

	// When Alice promotes Clara who is not a member
	err = registry.PromoteAdmin("Family", "Clara", "Alice")
	req.ErrorIs(err, errors.ErrNotAMember)

	// When Alice promotes Bob
	req.NoError(registry.PromoteAdmin("Family", "Bob", "Alice"))
	isAdmin, err := registry.IsAdmin("Family", "Bob")
	req.NoError(err)
	req.True(isAdmin)

	// Then Bob may now add Clara
	req.NoError(registry.AddMember("Family", "Clara", "Bob"))

	// And promoting twice is a no-op
	req.NoError(registry.PromoteAdmin("Family", "Bob", "Alice"))
	admins, err := registry.AdminsOf("Family")
	req.NoError(err)
	req.Equal([]domain.UserID{"Alice", "Bob"}, admins)
}

func TestRegistry_Queries_UnknownEntity(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice")
	_, err := registry.CreateGroup("Family", "Alice")
	req.NoError(err)

	_, err = registry.IsMember("Friends", "Alice")
	req.ErrorIs(err, errors.ErrUnknownEntity)
	_, err = registry.IsMember("Family", "Nobody")
	req.ErrorIs(err, errors.ErrUnknownEntity)
	_, err = registry.IsAdmin("Friends", "Alice")
	req.ErrorIs(err, errors.ErrUnknownEntity)
	_, err = registry.MembersOf("Friends")
	req.ErrorIs(err, errors.ErrUnknownEntity)
	_, err = registry.AdminsOf("Friends")
	req.ErrorIs(err, errors.ErrUnknownEntity)
	_, err = registry.GroupsOf("Nobody")
	req.ErrorIs(err, errors.ErrUnknownEntity)
	_, err = registry.User("Nobody")
	req.ErrorIs(err, errors.ErrUnknownEntity)
	_, err = registry.Group("Friends")
	req.ErrorIs(err, errors.ErrUnknownEntity)
}

func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry(t, "Alice", "Bob")
	_, err := registry.CreateGroup("Family", "Alice")
	req.NoError(err)

	members, err := registry.MembersOf("Family")
	req.NoError(err)
	members[0] = "Mallory"

	req.NoError(registry.AddMember("Family", "Bob", "Alice"))
	fresh, err := registry.MembersOf("Family")
	req.NoError(err)
	req.Equal([]domain.UserID{"Alice", "Bob"}, fresh)
	req.Len(members, 1)
}

// Random admin-gated operations from random actors must never break
// admins ⊆ members nor the user/group mirror.
func TestRegistry_Invariants_UnderRandomOperations(t *testing.T) {
	req := require.New(t)
	users := lo.Times(6, func(i int) string { return fmt.Sprintf("user-%d", i) })
	registry := newTestRegistry(t, users...)
	groups := []domain.GroupID{"g0", "g1"}
	for i, g := range groups {
		_, err := registry.CreateGroup(string(g), domain.UserID(users[i]))
		req.NoError(err)
	}

	rnd := rand.New(rand.NewSource(42))
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		seed := rnd.Int63()
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := rand.New(rand.NewSource(seed))
			for i := 0; i < 200; i++ {
				g := groups[local.Intn(len(groups))]
				target := domain.UserID(users[local.Intn(len(users))])
				acting := domain.UserID(users[local.Intn(len(users))])
				if local.Intn(2) == 0 {
					_ = registry.AddMember(g, target, acting)
				} else {
					_ = registry.PromoteAdmin(g, target, acting)
				}
			}
		}()
	}
	wg.Wait()

	for _, g := range groups {
		group, err := registry.Group(g)
		req.NoError(err)
		req.Subset(group.Members, group.Admins)
		req.Equal(len(group.Members), len(lo.Uniq(group.Members)))
		for _, m := range group.Members {
			userGroups, err := registry.GroupsOf(m)
			req.NoError(err)
			req.Contains(userGroups, g)
		}
	}
	for _, u := range users {
		user, err := registry.User(domain.UserID(u))
		req.NoError(err)
		for _, g := range user.Groups {
			isMember, err := registry.IsMember(g, user.ID)
			req.NoError(err)
			req.True(isMember)
		}
	}
}
