// Package quota decides whether a user may write more bytes.
package quota

import (
	"context"
	"fmt"
	"time"

	"mycloud/pkg/metrics"
	"mycloud/pkg/models"
	"mycloud/pkg/usage"
)

// DefaultMaxUserSpace is the per-user budget when none is configured (20 GiB).
const DefaultMaxUserSpace int64 = 20 * 1024 * 1024 * 1024

// Directory maps a user ID to its role.
type Directory interface {
	Role(ctx context.Context, userID string) (models.Role, error)
}

// Reason explains a rejected Decision.
type Reason string

const ReasonQuotaExceeded Reason = "QuotaExceeded"

// Decision is the outcome of an admission check.
type Decision struct {
	Admitted  bool
	Reason    Reason
	Used      int64
	Requested int64
	Max       int64
}

// Guard admits or rejects writes against the configured per-user budget.
type Guard struct {
	directory    Directory
	maxUserSpace int64
	metrics      metrics.StorageMetrics
	locks        *userLocks
}

// NewGuard creates a Guard. A non-positive maxUserSpace selects DefaultMaxUserSpace.
func NewGuard(directory Directory, maxUserSpace int64, m metrics.StorageMetrics) *Guard {
	if maxUserSpace <= 0 {
		maxUserSpace = DefaultMaxUserSpace
	}
	if m == nil {
		m = metrics.NewNoopStorageMetrics()
	}

	return &Guard{
		directory:    directory,
		maxUserSpace: maxUserSpace,
		metrics:      m,
		locks:        newUserLocks(),
	}
}

// MaxUserSpace returns the per-user budget in bytes.
func (g *Guard) MaxUserSpace() int64 {
	return g.maxUserSpace
}

// Role looks up the role of userID.
func (g *Guard) Role(ctx context.Context, userID string) (models.Role, error) {
	role, err := g.directory.Role(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("role lookup for %q: %w", userID, err)
	}
	return role, nil
}

// Usage measures the bytes stored below roots.
func (g *Guard) Usage(roots ...string) int64 {
	start := time.Now()
	used := usage.MeasureAll(roots...)
	g.metrics.ObserveUsageScan(time.Since(start))
	return used
}

// Admit decides whether user may store extraBytes more below roots.
//
// Admins are always admitted without a scan. Otherwise the write is admitted
// iff used+extraBytes <= MaxUserSpace. A failed role lookup is returned as an
// error and nothing is admitted.
func (g *Guard) Admit(ctx context.Context, user models.User, extraBytes int64, roots ...string) (Decision, error) {
	if extraBytes < 0 {
		return Decision{}, fmt.Errorf("negative write size %d", extraBytes)
	}

	role, err := g.Role(ctx, user.ID)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{
		Requested: extraBytes,
		Max:       g.maxUserSpace,
	}

	if role == models.RoleAdmin {
		decision.Admitted = true
		return decision, nil
	}

	decision.Used = g.Usage(roots...)
	if decision.Used > g.maxUserSpace-extraBytes {
		decision.Reason = ReasonQuotaExceeded
		g.metrics.RecordQuotaRejection()
		return decision, nil
	}

	decision.Admitted = true
	return decision, nil
}

// Lock acquires the per-user write lock and returns its release function.
// Holding it across Admit and the write keeps concurrent uploads of the same
// user in this process from passing on the same usage snapshot.
func (g *Guard) Lock(userID string) func() {
	return g.locks.lock(userID)
}
