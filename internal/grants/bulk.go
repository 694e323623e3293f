package grants

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// bulkConcurrency bounds the fan-out so a large roster does not exhaust the
// connection pool.
const bulkConcurrency = 8

// BulkGrant applies the grant to every (user, permission) pair in the
// request. Pairs succeed or fail independently; the returned slice has one
// entry per pair in request order and the call itself only errors on context
// cancellation.
func (s *Service) BulkGrant(ctx context.Context, req BulkRequest, actorID *int64) ([]BulkResult, error) {
	return s.bulk(ctx, req, func(ctx context.Context, userID int64, code string) error {
		_, err := s.Grant(ctx, GrantRequest{UserID: userID, Code: code, Reason: req.Reason}, actorID)
		if errors.Is(err, ErrPendingApproval) {
			return nil
		}
		return err
	})
}

// BulkRevoke revokes the permission from every pair in the request with the
// same partial-failure semantics as BulkGrant.
func (s *Service) BulkRevoke(ctx context.Context, req BulkRequest, actorID *int64) ([]BulkResult, error) {
	return s.bulk(ctx, req, func(ctx context.Context, userID int64, code string) error {
		return s.Revoke(ctx, RevokeRequest{UserID: userID, Code: code, Reason: req.Reason}, actorID)
	})
}

func (s *Service) bulk(ctx context.Context, req BulkRequest, op func(context.Context, int64, string) error) ([]BulkResult, error) {
	results := make([]BulkResult, 0, len(req.UserIDs)*len(req.Codes))
	for _, userID := range req.UserIDs {
		for _, code := range req.Codes {
			results = append(results, BulkResult{UserID: userID, Code: code})
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)
	for i := range results {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := op(ctx, results[i].UserID, results[i].Code); err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].OK = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
