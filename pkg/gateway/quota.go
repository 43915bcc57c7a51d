package gateway

import (
	"context"

	"mycloud/pkg/models"
	"mycloud/pkg/store"
)

// QuotaStatus reports the user's role, bytes stored across both namespaces
// and the configured budget.
func (g *Gateway) QuotaStatus(ctx context.Context, user *models.User) (*models.QuotaStatus, error) {
	if user == nil {
		return nil, store.UnauthenticatedError{}
	}

	roots, err := g.roots(user, "quota")
	if err != nil {
		return nil, err
	}

	role, err := g.guard.Role(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &models.QuotaStatus{
		Role: role,
		Used: g.guard.Usage(roots.files, roots.gallery),
		Max:  g.guard.MaxUserSpace(),
	}, nil
}
