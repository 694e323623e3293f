package grants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/steward-iam/steward/internal/audit"
)

func TestBulkGrantPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := int64(3)

	// Only user 1 holds the dependency of reports.export going in, so the
	// outcome per pair is fixed regardless of fan-out order.
	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "base"}, &actor)
	require.NoError(t, err)

	results, err := f.service.BulkGrant(ctx, BulkRequest{
		UserIDs: []int64{1, 2},
		Codes:   []string{"reports.export"},
		Reason:  "rollout",
	}, &actor)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byUser := make(map[int64]BulkResult, len(results))
	for _, res := range results {
		byUser[res.UserID] = res
	}
	require.True(t, byUser[1].OK)
	require.Empty(t, byUser[1].Error)
	require.False(t, byUser[2].OK)
	require.Contains(t, byUser[2].Error, ErrMissingDependency.Error())

	// The seed grant plus the one successful pair.
	require.Len(t, f.repo.auditsByAction(audit.ActionGrant), 2)
}

func TestBulkRevokeNeverFailsOnUnheld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Grant(ctx, GrantRequest{UserID: 1, Code: "reports.view", Reason: "base"}, nil)
	require.NoError(t, err)

	results, err := f.service.BulkRevoke(ctx, BulkRequest{
		UserIDs: []int64{1, 2},
		Codes:   []string{"reports.view"},
		Reason:  "cleanup",
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		require.True(t, res.OK)
	}
	// Only the held grant produced an audit entry.
	require.Len(t, f.repo.auditsByAction(audit.ActionRevoke), 1)
}
