package gateway

import (
	"context"

	"mycloud/pkg/log"
	"mycloud/pkg/models"
	"mycloud/pkg/store"
	"mycloud/pkg/tree"
)

// List returns the directory tree of one namespace of the user.
func (g *Gateway) List(_ context.Context, user *models.User, namespace models.Namespace) (*models.DirectoryTree, error) {
	if user == nil {
		return nil, store.UnauthenticatedError{}
	}

	roots, err := g.roots(user, "list")
	if err != nil {
		return nil, err
	}

	root, err := roots.namespace(namespace)
	if err != nil {
		return nil, err
	}

	listing := tree.Build(root)
	log.Debug().
		Str("user", user.ID).
		Str("namespace", string(namespace)).
		Int("files", listing.FileCount()).
		Msg("Listed namespace")

	return listing, nil
}
