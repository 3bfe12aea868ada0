package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.True(t, c.IsLoadout("sshooter"))
	assert.True(t, c.IsLoadout("heroshooter_replica"))
	assert.False(t, c.IsLoadout("not_a_weapon"))

	assert.True(t, c.IsAbility("ink_saver_main"))
	assert.False(t, c.IsAbility("ink_saver"))

	assert.True(t, c.IsStage("masaba"))
	assert.True(t, c.IsLobby("bankara_open"))
	assert.True(t, c.IsMode("nawabari"))
	assert.False(t, c.IsMode("tricolor"))

	assert.Same(t, c, Default())
	assert.Empty(t, c.ReskinProblems())
}

func TestCanonical(t *testing.T) {
	c := Default()

	assert.Equal(t, "sshooter", c.Canonical("octoshooter_replica"))
	assert.Equal(t, "sshooter", c.Canonical("sshooter"))
	assert.Equal(t, "wakaba", c.Canonical("wakaba"))
}

func TestNew(t *testing.T) {
	weapons := []byte(`[{"key":"a"},{"key":"b","reskin_of":"a"},{"key":"c","reskin_of":"missing"},{"key":"d","reskin_of":"b"}]`)
	abilities := []byte(`[{"key":"x"}]`)
	stages := []byte(`[{"key":"s"}]`)

	c, err := New(weapons, abilities, stages)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c", "d"}, c.Loadouts())
	assert.Equal(t, []string{
		"c is a reskin of unknown loadout missing",
		"d is a reskin of b which is itself a reskin",
	}, c.ReskinProblems())
}

func TestNew_Invalid(t *testing.T) {
	_, err := New([]byte(`{`), []byte(`[]`), []byte(`[]`))
	assert.ErrorContains(t, err, "decoding weapons")

	_, err = New([]byte(`[]`), []byte(`[{"key":""}]`), []byte(`[]`))
	assert.ErrorContains(t, err, "entry 0 has an empty key")
}

func TestNew_ReskinShapes(t *testing.T) {
	weapons := []byte(`[
		{"key":"sshooter","reskin_of":null},
		{"key":"heroshooter_replica","reskin_of":"sshooter"},
		{"key":"octoshooter_replica","reskin_of":{"key":"sshooter","name":{"en_US":"Splattershot"}}}
	]`)

	c, err := New(weapons, []byte(`[]`), []byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, "sshooter", c.Canonical("sshooter"))
	assert.Equal(t, "sshooter", c.Canonical("heroshooter_replica"))
	assert.Equal(t, "sshooter", c.Canonical("octoshooter_replica"))
	assert.Empty(t, c.ReskinProblems())

	_, err = New([]byte(`[{"key":"x","reskin_of":42}]`), []byte(`[]`), []byte(`[]`))
	assert.Error(t, err)
}

func TestReskinProblems_IdenticalKits(t *testing.T) {
	weapons := []byte(`[
		{"key":"a","main":"m","sub":{"key":"s1"},"special":{"key":"sp1"}},
		{"key":"b","main":"m","sub":{"key":"s1"},"special":{"key":"sp1"}},
		{"key":"x","main":"n","sub":{"key":"s2"},"special":{"key":"sp2"}},
		{"key":"y","main":"n","sub":{"key":"s2"},"special":{"key":"sp2"},"reskin_of":"x"},
		{"key":"p","main":"n","sub":{"key":"s3"},"special":{"key":"sp3"}},
		{"key":"q","main":"n","sub":{"key":"s3"},"special":{"key":"sp3"},"reskin_of":"x"},
		{"key":"lone"}
	]`)

	c, err := New(weapons, []byte(`[]`), []byte(`[]`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"a shares kit (m, s1, sp1) with [b] but has no reskin entry",
		"b shares kit (m, s1, sp1) with [a] but has no reskin entry",
		"p shares kit (n, s3, sp3) with [q] but has no reskin entry",
		"q is a reskin of x which is not among its identical loadouts [p q]",
		"q shares kit (n, s3, sp3) with [p] but has no reskin entry",
	}, c.ReskinProblems())
}
