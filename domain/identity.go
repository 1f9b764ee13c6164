// Package domain contains core concepts of the chat system.
// This file defines the User and Group entities returned by the registry.
// Membership edges live in the registry as id-to-id relations, never as
// embedded references.
package domain

// UserID is the unique name of a user.
type UserID string

// GroupID is the unique name of a group.
type GroupID string

// User is a read-only snapshot of a user and the groups it belongs to.
type User struct {
	ID     UserID
	Groups []GroupID
}

// Group is a read-only snapshot of a group.
// Members keep their join order, the creator always comes first.
type Group struct {
	ID      GroupID
	Creator UserID
	Members []UserID
	Admins  []UserID
}
