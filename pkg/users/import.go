package users

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"mycloud/pkg/log"
	"mycloud/pkg/models"
)

// seedEntry is one value of a users file:
//
//	{"alice": {"role": "admin"}, "bob": {"role": "user"}}
//
// Fields other than role are ignored.
type seedEntry struct {
	Role string `mapstructure:"role"`
}

// ParseSeed decodes a users file into user records. Entries without a role
// are plain users.
func ParseSeed(data []byte) ([]models.User, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeedFile, err)
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parsed := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if err := ValidateUserID(id); err != nil {
			return nil, fmt.Errorf("%w: user %q: %w", ErrInvalidSeedFile, id, err)
		}

		var entry seedEntry
		var metadata mapstructure.Metadata
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &entry,
			Metadata:         &metadata,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSeedFile, err)
		}
		if err := decoder.Decode(raw[id]); err != nil {
			return nil, fmt.Errorf("%w: user %q: %w", ErrInvalidSeedFile, id, err)
		}
		if len(metadata.Unused) > 0 {
			log.Debug().Str("user", id).Strs("fields", metadata.Unused).Msg("Ignoring unknown user fields")
		}

		role := models.Role(strings.ToLower(strings.TrimSpace(entry.Role)))
		if role == "" {
			role = models.RoleUser
		}
		if !role.Valid() {
			return nil, fmt.Errorf("%w: user %q: %w", ErrInvalidSeedFile, id, ErrInvalidRole)
		}

		parsed = append(parsed, models.User{ID: id, Role: role})
	}

	return parsed, nil
}

// Import upserts every entry of the users file at path in one transaction
// and returns the number of entries written.
func (s *Store) Import(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSeedFile, err)
	}

	seed, err := ParseSeed(data)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for _, user := range seed {
		if err := upsert(ctx, tx, user.ID, user.Role, now); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrDatabaseError, err)
	}

	log.Info().Str("file_path", path).Int("users", len(seed)).Msg("Imported users file")
	return len(seed), nil
}
