package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstraint_Satisfied(t *testing.T) {
	cases := []struct {
		expr    string
		version string
		want    bool
	}{
		{expr: "", version: "", want: true},
		{expr: ">=1.0.0", version: "1.0.0", want: true},
		{expr: ">=1.0.0", version: "0.9.9", want: false},
		{expr: ">=1.0.0", version: "", want: false},
		{expr: ">=1.0.0, <2.0.0", version: "1.5.2", want: true},
		{expr: ">=1.0.0, <2.0.0", version: "2.0.0", want: false},
		{expr: "^1.2.0", version: "1.9.0", want: true},
		{expr: "^1.2.0", version: "2.0.0", want: false},
		{expr: "^0.3.0", version: "0.3.5", want: true},
		{expr: "^0.3.0", version: "0.4.0", want: false},
		{expr: "~1.2.0", version: "1.2.9", want: true},
		{expr: "~1.2.0", version: "1.3.0", want: false},
		{expr: "=1.0.0", version: "v1.0.0", want: true},
		{expr: "1.0.0", version: "1.0.1", want: false},
		{expr: "!=1.0.0", version: "1.0.1", want: true},
	}
	for _, tc := range cases {
		t.Run(tc.expr+"/"+tc.version, func(t *testing.T) {
			c, err := ParseConstraint(tc.expr)
			require.NoError(t, err)
			require.Equal(t, tc.want, c.Satisfied(tc.version))
		})
	}
}

func TestParseConstraint_Invalid(t *testing.T) {
	for _, expr := range []string{">=banana", ">=1.0.0,", "^"} {
		_, err := ParseConstraint(expr)
		require.Error(t, err, expr)
	}
}
