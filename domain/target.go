package domain

import "strings"

type TargetKind string

const (
	TargetUser  TargetKind = "user"
	TargetGroup TargetKind = "group"
)

// Target is the addressee of a send: exactly one user or one group.
type Target struct {
	Kind TargetKind
	ID   string
}

func UserTarget(id UserID) Target {
	return Target{Kind: TargetUser, ID: string(id)}
}

func GroupTarget(id GroupID) Target {
	return Target{Kind: TargetGroup, ID: string(id)}
}

func (t Target) String() string {
	return string(t.Kind) + ":" + t.ID
}

// ParseTarget reads back the "kind:id" form produced by String.
func ParseTarget(s string) (Target, bool) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Target{}, false
	}
	switch TargetKind(kind) {
	case TargetUser, TargetGroup:
		return Target{Kind: TargetKind(kind), ID: id}, true
	}
	return Target{}, false
}
