package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mycloud/pkg/models"
	"mycloud/pkg/users"

	"github.com/stretchr/testify/suite"
)

type AdminTestSuite struct {
	suite.Suite
	dbPath string
	ctx    context.Context
}

func (s *AdminTestSuite) SetupTest() {
	s.dbPath = filepath.Join(s.T().TempDir(), "users.db")
	s.ctx = context.Background()
}

func (s *AdminTestSuite) role(userID string) models.Role {
	store, err := users.NewStore(s.dbPath)
	s.Require().NoError(err)
	defer store.Close()

	role, err := store.Role(s.ctx, userID)
	s.Require().NoError(err)
	return role
}

func (s *AdminTestSuite) TestParseAssignment() {
	userID, role, err := parseAssignment(" alice = Admin ")
	s.Require().NoError(err)
	s.Equal("alice", userID)
	s.Equal(models.RoleAdmin, role)

	_, _, err = parseAssignment("alice")
	s.Error(err)
}

func (s *AdminTestSuite) TestRequiresAction() {
	s.ErrorIs(run(s.ctx, options{dbPath: s.dbPath}), errUsage)
}

func (s *AdminTestSuite) TestSetRoleAndDelete() {
	s.Require().NoError(run(s.ctx, options{dbPath: s.dbPath, setRole: "alice=admin"}))
	s.Equal(models.RoleAdmin, s.role("alice"))

	s.Require().NoError(run(s.ctx, options{dbPath: s.dbPath, remove: "alice", list: true}))
	s.Equal(models.RoleUser, s.role("alice"))

	s.ErrorIs(run(s.ctx, options{dbPath: s.dbPath, remove: "alice"}), users.ErrUserNotFound)
	s.ErrorIs(run(s.ctx, options{dbPath: s.dbPath, setRole: "alice=owner"}), users.ErrInvalidRole)
}

func (s *AdminTestSuite) TestImport() {
	seed := filepath.Join(s.T().TempDir(), "users.json")
	s.Require().NoError(os.WriteFile(seed, []byte(`{"root":{"role":"admin"},"bob":{"role":"user"}}`), 0o600))

	s.Require().NoError(run(s.ctx, options{dbPath: s.dbPath, seed: seed}))
	s.Equal(models.RoleAdmin, s.role("root"))
	s.Equal(models.RoleUser, s.role("bob"))
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminTestSuite))
}
