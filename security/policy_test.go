package security_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/config"
	"github.com/pklgo/pklcore/security"
	"github.com/pklgo/pklcore/token"
)

func TestPolicy_NoRulesAllowsEverything(t *testing.T) {
	p := security.AllowAll()
	require.NoError(t, p.Check("https:example.com/module.pkl", token.Span{}))
}

func TestPolicy_AllowListRejectsUnmatched(t *testing.T) {
	p, err := security.NewPolicy([]string{"https:example.com/*"}, nil)
	require.NoError(t, err)

	require.NoError(t, p.Check("https:example.com/module.pkl", token.Span{}))
	require.Error(t, p.Check("https:evil.test/module.pkl", token.Span{}))
}

func TestPolicy_DenyWinsOverAllow(t *testing.T) {
	p, err := security.NewPolicy(
		[]string{"https:example.com/*"},
		[]string{"https:example.com/secret/*"},
	)
	require.NoError(t, err)

	require.NoError(t, p.Check("https:example.com/module.pkl", token.Span{}))
	require.Error(t, p.Check("https:example.com/secret/module.pkl", token.Span{}))
}

func TestPolicy_InvalidPatternRejectedAtConstruction(t *testing.T) {
	_, err := security.NewPolicy([]string{"["}, nil)
	require.Error(t, err)
}

func TestPoliciesFromConfig_BuildsBothPolicies(t *testing.T) {
	opts := config.Default()
	opts.AllowedModulePatterns = []string{"https:example.com/*"}
	opts.AllowedResourcePatterns = []string{"env:*"}

	modules, resources, err := security.PoliciesFromConfig(opts)
	require.NoError(t, err)
	require.NoError(t, modules.Check("https:example.com/a.pkl", token.Span{}))
	require.Error(t, modules.Check("https:evil.test/a.pkl", token.Span{}))
	require.NoError(t, resources.Check("env:HOME", token.Span{}))
}
