package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordMemberCacheOutcome_IncrementsCorrectLabel(t *testing.T) {
	before := testutil.ToFloat64(memberCacheHits.WithLabelValues("hit"))
	RecordMemberCacheOutcome(true)
	after := testutil.ToFloat64(memberCacheHits.WithLabelValues("hit"))
	require.Equal(t, before+1, after)
}

func TestRecordSecurityDecision_AllowVsDeny(t *testing.T) {
	before := testutil.ToFloat64(securityDecisions.WithLabelValues("module", "allow"))
	RecordSecurityDecision("module", true)
	after := testutil.ToFloat64(securityDecisions.WithLabelValues("module", "allow"))
	require.Equal(t, before+1, after)
}

func TestStartSpan_StopRecordsErrorWithoutPanicking(t *testing.T) {
	_, stop := StartSpan(context.Background(), "eval.loadModule", "test")
	require.NotPanics(t, func() { stop(errors.New("boom")) })
}
