package placeholder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValues(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"plain text", []string{}},
		{"{0} hits {1}", []string{"{0}", "{1}"}},
		{"[PAWN_nameDef] wields {WEAPON_label}", []string{"[PAWN_nameDef]", "{WEAPON_label}"}},
		{"%s took %2d damage, 100%%", []string{"%s", "%2d", "%%"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Values(tt.in))
		})
	}
}

func TestFind_Positions(t *testing.T) {
	toks := Find("a {0} b")
	assert.Equal(t, []Token{{Value: "{0}", Start: 2, End: 5}}, toks)
}

func TestMissing(t *testing.T) {
	assert.Empty(t, Missing("Hello {0}", "你好 {0}"))
	assert.Equal(t, []string{"{1}"}, Missing("{0} and {1}", "{0} 和"))
	assert.Equal(t, []string{"{0}"}, Missing("{0} {0}", "{0}"))
	assert.Equal(t, []string{"[PAWN_nameDef]"}, Missing("[PAWN_nameDef] left", "离开了"))
}

func TestExtra(t *testing.T) {
	assert.Equal(t, []string{"{2}"}, Extra("{0}", "{0}{2}"))
	assert.Empty(t, Extra("{0}", "{0}"))
}
