package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"editor":       Editor,
		"EDITOR":       Editor,
		"visualizador": Viewer,
		"viewer":       Viewer,
		"sin_acceso":   NoAccess,
		"":             NoAccess,
		"admin":        NoAccess,
		" editor ":     Editor,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
	assert.Equal(t, NoAccess, ParseLevelPtr(nil))
}

func TestCompare(t *testing.T) {
	assert.Equal(t, 1, Compare(Editor, Viewer))
	assert.Equal(t, 1, Compare(Viewer, NoAccess))
	assert.Equal(t, -1, Compare(NoAccess, Editor))
	assert.Equal(t, 0, Compare(Viewer, Viewer))
	// out-of-range values are treated as no access
	assert.Equal(t, 0, Compare(Level(42), NoAccess))
	assert.False(t, Level(42).CanView())
}

func TestEditImpliesView(t *testing.T) {
	for _, l := range []Level{NoAccess, Viewer, Editor, Level(9)} {
		if l.CanEdit() {
			assert.True(t, l.CanView(), "level %v", l)
		}
	}
	assert.True(t, Editor.Allows(Viewer))
	assert.False(t, Viewer.Allows(Editor))
}

func TestStoredRoundTrip(t *testing.T) {
	for _, l := range []Level{NoAccess, Viewer, Editor} {
		assert.Equal(t, l, ParseLevel(l.Stored()))
	}
}

func TestLevelJSON(t *testing.T) {
	b, err := json.Marshal(map[string]Level{"a": Viewer})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"viewer"}`, string(b))

	var got struct {
		L Level `json:"l"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"l":"no_access"}`), &got))
	assert.Equal(t, NoAccess, got.L)
	require.NoError(t, json.Unmarshal([]byte(`{"l":"visualizador"}`), &got))
	assert.Equal(t, Viewer, got.L)
}

func TestRegistry(t *testing.T) {
	secs := Sections()
	require.Len(t, secs, 7)

	keys := map[string]bool{}
	for _, s := range secs {
		assert.False(t, keys[s.Key()], "duplicate key %s", s.Key())
		keys[s.Key()] = true
		assert.NotEmpty(t, s.Label())
		assert.NotEmpty(t, s.Field())
		assert.NotEmpty(t, s.Path())

		got, ok := SectionByKey(s.Key())
		require.True(t, ok)
		assert.Equal(t, s, got)
	}

	assert.Equal(t, "senior_football", secs[0].Key())
	assert.Equal(t, "staff", secs[len(secs)-1].Key())

	_, ok := SectionByKey("kitchen")
	assert.False(t, ok)
	assert.Equal(t, FallbackPath, Section(99).Path())
}

func TestLevelsFromFields(t *testing.T) {
	l := LevelsFromFields(map[string]string{
		"medical_players_access": "visualizador",
		"football_access":        "sin_acceso",
		"staff_access":           "editor",
		"unrelated":              "editor",
	})
	assert.Equal(t, Viewer, l.Get(MedicalPlayers))
	assert.Equal(t, NoAccess, l.Get(Football))
	assert.Equal(t, Editor, l.Get(Staff))
	assert.Equal(t, NoAccess, l.Get(Physical))
	assert.Equal(t, NoAccess, l.Get(Section(50)))

	byKey := l.ByKey()
	assert.Len(t, byKey, 7)
	assert.Equal(t, Editor, byKey["staff"])
}

func TestLevelsSetIgnoresUnknown(t *testing.T) {
	var l Levels
	l.Set(Section(77), Editor)
	l.Set(Physical, Level(12))
	assert.Equal(t, NoAccess, l.Get(Physical))
	l.Set(Physical, Editor)
	assert.Equal(t, Editor, l.Get(Physical))
}
