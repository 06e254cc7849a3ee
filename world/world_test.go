package world

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typeforge/checkrun/types"
)

func newTestIterArgs(t *testing.T) *IterArgs {
	t.Helper()
	ia, err := NewIterArgs([2]string{"font", "fonts"}, [2]string{"case", "cases"})
	require.NoError(t, err)
	return ia
}

func TestIterArgsKind(t *testing.T) {
	ia := newTestIterArgs(t)

	assert.Equal(t, ArgSingular, ia.Kind("font"))
	assert.Equal(t, ArgPlural, ia.Kind("fonts"))
	assert.Equal(t, ArgSingular, ia.Kind("case"))
	assert.Equal(t, ArgUnknown, ia.Kind("weights"))
}

func TestIterArgsSingularsKeepDeclarationOrder(t *testing.T) {
	ia := newTestIterArgs(t)
	assert.Equal(t, []string{"font", "case"}, ia.Singulars())
}

func TestNewIterArgsRejectsCollisions(t *testing.T) {
	tests := []struct {
		name  string
		pairs [][2]string
	}{
		{"duplicate singular", [][2]string{{"font", "fonts"}, {"font", "typefaces"}}},
		{"duplicate plural", [][2]string{{"font", "fonts"}, {"face", "fonts"}}},
		{"singular equals existing plural", [][2]string{{"font", "fonts"}, {"fonts", "fontses"}}},
		{"identical forms", [][2]string{{"font", "font"}}},
		{"empty name", [][2]string{{"", "fonts"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIterArgs(tt.pairs...)
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	ia := newTestIterArgs(t)
	w := World{"fonts": {"f1", "f2"}}

	values, err := ia.Resolve("fonts", w)
	require.NoError(t, err)
	assert.Equal(t, []any{"f1", "f2"}, values)

	_, err = ia.Resolve("cases", w)
	var missing *types.MissingCollectionError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "cases", missing.Collection)

	_, err = ia.Resolve("font", w)
	assert.Error(t, err, "singular names resolve only through bindings")

	_, err = ia.Resolve("weights", w)
	var unknown *types.MissingArgumentError
	assert.True(t, errors.As(err, &unknown))
}

func TestBindingWithDoesNotMutateParent(t *testing.T) {
	parent := Binding{}.With("font", "f1", 0)
	childA := parent.With("case", "upper", 0)
	childB := parent.With("case", "lower", 1)

	assert.Len(t, parent, 1)
	assert.Equal(t, "upper", childA[1].Value)
	assert.Equal(t, "lower", childB[1].Value)
}

func TestBindingSubPreservesOrder(t *testing.T) {
	b := Binding{}.With("font", "f1", 0).With("case", "upper", 1).With("size", 12, 2)

	sub := b.Sub([]string{"size", "font"})
	require.Len(t, sub, 2)
	assert.Equal(t, "font", sub[0].Name)
	assert.Equal(t, "size", sub[1].Name)
}

func TestBindingKey(t *testing.T) {
	b := Binding{}.With("font", "f1", 0).With("case", "upper", 1)
	assert.Equal(t, "font=0;case=1", b.Key())
	assert.Equal(t, "", Binding{}.Key())

	unresolved := Binding{}.With("font", nil, -1)
	assert.Equal(t, "font=-1", unresolved.Key())
	assert.True(t, unresolved[0].Unresolved())
}

func TestBindingLookup(t *testing.T) {
	b := Binding{}.With("font", "f1", 0)

	arg, ok := b.Lookup("font")
	require.True(t, ok)
	assert.Equal(t, "f1", arg.Value)

	_, ok = b.Lookup("case")
	assert.False(t, ok)
}
