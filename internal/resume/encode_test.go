package resume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionJSON(t *testing.T) {
	cases := []struct {
		name    string
		section []string
		want    string
	}{
		{name: "nil", section: nil, want: `[]`},
		{name: "empty", section: []string{}, want: `[]`},
		{name: "block", section: []string{"Education\nMIT 2020"}, want: `["Education\nMIT 2020"]`},
		{name: "markup kept", section: []string{"Education\nR&D <Lab> > 1"}, want: `["Education\nR&D <Lab> > 1"]`},
		{name: "quotes escaped", section: []string{`say "hi"`}, want: `["say \"hi\""]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SectionJSON(tc.section)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}
