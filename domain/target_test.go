package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	req := require.New(t)

	got, ok := ParseTarget(GroupTarget("Family").String())
	req.True(ok)
	req.Equal(GroupTarget("Family"), got)

	got, ok = ParseTarget("user:Bob:with:colons")
	req.True(ok)
	req.Equal(Target{Kind: TargetUser, ID: "Bob:with:colons"}, got)

	for _, invalid := range []string{"", "Family", "room:Family", "group:"} {
		_, ok = ParseTarget(invalid)
		req.False(ok, invalid)
	}
}
