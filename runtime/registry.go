package runtime

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/validation"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

var _ contract.IRegistry = (*Registry)(nil)

type Set[T comparable] map[T]struct{}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

type userRecord struct {
	groups []domain.GroupID // join order
}

type groupRecord struct {
	creator domain.UserID
	members []domain.UserID // join order
	admins  Set[domain.UserID]
	// members as a set, kept in sync with members
	memberSet Set[domain.UserID]
}

// Registry owns users, groups and the membership edges between them.
// Edges are stored on both sides by id: a user lists its groups and a group
// lists its members, and every mutation updates both under the same lock.
// Group composition only changes through admin-gated operations.
type Registry struct {
	mu     sync.RWMutex
	log    *slog.Logger
	users  map[domain.UserID]*userRecord
	groups map[domain.GroupID]*groupRecord
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:    log,
		users:  make(map[domain.UserID]*userRecord),
		groups: make(map[domain.GroupID]*groupRecord),
	}
}

func (r *Registry) CreateUser(name string) (domain.UserID, error) {
	if err := validation.ValidateName(name); err != nil {
		return "", err
	}
	id := domain.UserID(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; ok {
		return "", fmt.Errorf("%w: user %q", errors.ErrDuplicateIdentity, name)
	}
	r.users[id] = &userRecord{}
	r.log.Debug("User created", "user", id)
	return id, nil
}

// CreateGroup registers a group whose creator is its sole member and admin.
func (r *Registry) CreateGroup(name string, creator domain.UserID) (domain.GroupID, error) {
	if err := validation.ValidateName(name); err != nil {
		return "", err
	}
	id := domain.GroupID(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	user, err := r.user(creator)
	if err != nil {
		return "", err
	}
	if _, ok := r.groups[id]; ok {
		return "", fmt.Errorf("%w: group %q", errors.ErrDuplicateIdentity, name)
	}
	r.groups[id] = &groupRecord{
		creator:   creator,
		members:   []domain.UserID{creator},
		memberSet: Set[domain.UserID]{creator: {}},
		admins:    Set[domain.UserID]{creator: {}},
	}
	user.groups = append(user.groups, id)
	r.log.Debug("Group created", "group", id, "creator", creator)
	return id, nil
}

// AddMember adds user to the group on behalf of acting, who must be an admin.
// Adding an existing member is a no-op.
func (r *Registry) AddMember(groupID domain.GroupID, userID, acting domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, err := r.group(groupID)
	if err != nil {
		return err
	}
	user, err := r.user(userID)
	if err != nil {
		return err
	}
	if _, err = r.user(acting); err != nil {
		return err
	}
	if !group.admins.Has(acting) {
		return fmt.Errorf("%w: %s is not an admin of %s", errors.ErrNotAuthorized, acting, groupID)
	}
	if group.memberSet.Has(userID) {
		return nil
	}
	group.members = append(group.members, userID)
	group.memberSet[userID] = struct{}{}
	user.groups = append(user.groups, groupID)
	r.log.Debug("Member added", "group", groupID, "user", userID, "by", acting)
	return nil
}

// PromoteAdmin makes a member an admin on behalf of acting, who must be an admin.
// Membership is checked before the admin set is touched.
func (r *Registry) PromoteAdmin(groupID domain.GroupID, userID, acting domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, err := r.group(groupID)
	if err != nil {
		return err
	}
	if _, err = r.user(userID); err != nil {
		return err
	}
	if _, err = r.user(acting); err != nil {
		return err
	}
	if !group.admins.Has(acting) {
		return fmt.Errorf("%w: %s is not an admin of %s", errors.ErrNotAuthorized, acting, groupID)
	}
	if !group.memberSet.Has(userID) {
		return fmt.Errorf("%w: %s is not in %s", errors.ErrNotAMember, userID, groupID)
	}
	group.admins[userID] = struct{}{}
	r.log.Debug("Admin promoted", "group", groupID, "user", userID, "by", acting)
	return nil
}

func (r *Registry) IsMember(groupID domain.GroupID, userID domain.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, err := r.group(groupID)
	if err != nil {
		return false, err
	}
	if _, err = r.user(userID); err != nil {
		return false, err
	}
	return group.memberSet.Has(userID), nil
}

func (r *Registry) IsAdmin(groupID domain.GroupID, userID domain.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, err := r.group(groupID)
	if err != nil {
		return false, err
	}
	if _, err = r.user(userID); err != nil {
		return false, err
	}
	return group.admins.Has(userID), nil
}

// MembersOf returns a copy of the members in join order.
func (r *Registry) MembersOf(groupID domain.GroupID) ([]domain.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, err := r.group(groupID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(group.members), nil
}

// AdminsOf returns the admins in join order.
func (r *Registry) AdminsOf(groupID domain.GroupID) ([]domain.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, err := r.group(groupID)
	if err != nil {
		return nil, err
	}
	return group.adminsInOrder(), nil
}

func (r *Registry) GroupsOf(userID domain.UserID) ([]domain.GroupID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, err := r.user(userID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(user.groups), nil
}

func (r *Registry) User(id domain.UserID) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, err := r.user(id)
	if err != nil {
		return domain.User{}, err
	}
	return domain.User{ID: id, Groups: slices.Clone(user.groups)}, nil
}

// Group returns a consistent snapshot of the group, members and admins taken
// under the same read lock.
func (r *Registry) Group(id domain.GroupID) (domain.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	group, err := r.group(id)
	if err != nil {
		return domain.Group{}, err
	}
	return domain.Group{
		ID:      id,
		Creator: group.creator,
		Members: slices.Clone(group.members),
		Admins:  group.adminsInOrder(),
	}, nil
}

func (r *Registry) user(id domain.UserID) (*userRecord, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", errors.ErrUnknownEntity, id)
	}
	return user, nil
}

func (r *Registry) group(id domain.GroupID) (*groupRecord, error) {
	group, ok := r.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: group %q", errors.ErrUnknownEntity, id)
	}
	return group, nil
}

func (g *groupRecord) adminsInOrder() []domain.UserID {
	var admins []domain.UserID
	for _, m := range g.members {
		if g.admins.Has(m) {
			admins = append(admins, m)
		}
	}
	return admins
}
