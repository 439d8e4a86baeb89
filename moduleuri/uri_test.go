package moduleuri_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/moduleuri"
)

func TestParse_KnownSchemes(t *testing.T) {
	cases := []struct {
		raw    string
		scheme moduleuri.Scheme
	}{
		{"file:///home/user/module.pkl", moduleuri.SchemeFile},
		{"https://example.com/module.pkl", moduleuri.SchemeHTTPS},
		{"pkl:test", moduleuri.SchemePkl},
		{"env:HOME", moduleuri.SchemeEnv},
		{"prop:user.name", moduleuri.SchemeProp},
	}
	for _, c := range cases {
		u, err := moduleuri.Parse(c.raw)
		require.NoError(t, err, c.raw)
		require.Equal(t, c.scheme, u.Scheme, c.raw)
	}
}

func TestParse_UnknownSchemeRejected(t *testing.T) {
	_, err := moduleuri.Parse("ftp://example.com/module.pkl")
	require.Error(t, err)
}

func TestParse_PackageURIWithVersion(t *testing.T) {
	u, err := moduleuri.Parse("package:example.com/foo@1.2.3")
	require.NoError(t, err)
	require.Equal(t, moduleuri.SchemePackage, u.Scheme)
	require.Equal(t, "1.2.3", u.Version)
}

func TestValidateVersion(t *testing.T) {
	require.NoError(t, moduleuri.ValidateVersion("1.2.3"))
	require.NoError(t, moduleuri.ValidateVersion("v1.2.3"))
	require.Error(t, moduleuri.ValidateVersion("not-a-version"))
}

func TestDependencyConstraint_Matches(t *testing.T) {
	c, err := moduleuri.ParseConstraint("^1.2.0")
	require.NoError(t, err)

	ok, err := c.Matches("1.5.0")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Matches("2.0.0")
	require.NoError(t, err)
	require.False(t, ok)
}
