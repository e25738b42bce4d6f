package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityID_Deterministic(t *testing.T) {
	a := EntityID("lib/my_app/user.ex", "create_user/2", TypeFunction)
	b := EntityID("lib/my_app/user.ex", "create_user/2", TypeFunction)
	assert.Equal(t, a, b, "same triple must always produce the same id")
	assert.Len(t, a, 16)
}

func TestEntityID_DistinguishesTripleComponents(t *testing.T) {
	base := EntityID("lib/a.ex", "foo/1", TypeFunction)

	assert.NotEqual(t, base, EntityID("lib/b.ex", "foo/1", TypeFunction))
	assert.NotEqual(t, base, EntityID("lib/a.ex", "foo/2", TypeFunction))
	assert.NotEqual(t, base, EntityID("lib/a.ex", "foo/1", TypeMacro))
}

func TestEntityType_IsValid(t *testing.T) {
	for _, et := range ValidEntityTypes {
		assert.True(t, et.IsValid(), "expected %q to be valid", et)
	}
	assert.False(t, EntityType("callback").IsValid())
	assert.False(t, EntityType("").IsValid())
}

func TestEntity_Validate(t *testing.T) {
	valid := func() *Entity {
		return &Entity{
			ID:        EntityID("lib/a.ex", "A", TypeModule),
			Name:      "A",
			Type:      TypeModule,
			FilePath:  "lib/a.ex",
			LineStart: 1,
			LineEnd:   10,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(*Entity)
		wantErr error
	}{
		{"missing id", func(e *Entity) { e.ID = "" }, ErrMissingID},
		{"missing name", func(e *Entity) { e.Name = "" }, ErrMissingName},
		{"bad type", func(e *Entity) { e.Type = "gadget" }, ErrInvalidEntityType},
		{"missing path", func(e *Entity) { e.FilePath = "" }, ErrMissingFilePath},
		{"zero start", func(e *Entity) { e.LineStart = 0 }, ErrInvalidLineRange},
		{"end before start", func(e *Entity) { e.LineEnd = 0 }, ErrInvalidLineRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			err := e.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEntity_Visibility(t *testing.T) {
	e := &Entity{Name: "foo/1", Type: TypeFunction}
	assert.Equal(t, VisibilityPublic, e.Visibility())
	assert.False(t, e.IsPrivate())

	e.Metadata = map[string]any{MetaVisibility: VisibilityPrivate}
	assert.Equal(t, VisibilityPrivate, e.Visibility())
	assert.True(t, e.IsPrivate())
}

func TestEntity_Lines(t *testing.T) {
	e := &Entity{LineStart: 3, LineEnd: 7}
	assert.Equal(t, 5, e.Lines())

	single := &Entity{LineStart: 4, LineEnd: 4}
	assert.Equal(t, 1, single.Lines())
}

func TestSortedIDs(t *testing.T) {
	entities := map[string]*Entity{
		"c": {ID: "c"},
		"a": {ID: "a"},
		"b": {ID: "b"},
	}
	assert.Equal(t, []string{"a", "b", "c"}, SortedIDs(entities))
	assert.Empty(t, SortedIDs(nil))
}
