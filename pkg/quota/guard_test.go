package quota

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"mycloud/pkg/models"
)

// MockDirectory is a mock implementation of Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Role(ctx context.Context, userID string) (models.Role, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.Role), args.Error(1)
}

// GuardTestSuite tests quota admission
type GuardTestSuite struct {
	suite.Suite
	tempDir    string
	filesRoot  string
	galleryDir string
	directory  *MockDirectory
	guard      *Guard
}

const testMax int64 = 1000

// SetupTest creates user roots holding 600 bytes in total
func (s *GuardTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "quota_test")
	s.Require().NoError(err)
	s.tempDir = tempDir

	s.filesRoot = filepath.Join(tempDir, "files", "alice")
	s.galleryDir = filepath.Join(tempDir, "gallery", "alice")
	s.Require().NoError(os.MkdirAll(filepath.Join(s.filesRoot, "docs"), 0o755))
	s.Require().NoError(os.MkdirAll(s.galleryDir, 0o755))
	s.Require().NoError(os.WriteFile(filepath.Join(s.filesRoot, "docs", "a.bin"), make([]byte, 400), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(s.galleryDir, "p.jpg"), make([]byte, 200), 0o644))

	s.directory = new(MockDirectory)
	s.guard = NewGuard(s.directory, testMax, nil)
}

// TearDownTest removes the roots
func (s *GuardTestSuite) TearDownTest() {
	os.RemoveAll(s.tempDir)
}

func (s *GuardTestSuite) admit(userID string, extra int64) Decision {
	decision, err := s.guard.Admit(context.Background(), models.User{ID: userID}, extra, s.filesRoot, s.galleryDir)
	s.Require().NoError(err)
	return decision
}

// TestDefaultMax tests the default budget
func (s *GuardTestSuite) TestDefaultMax() {
	s.Equal(DefaultMaxUserSpace, NewGuard(s.directory, 0, nil).MaxUserSpace())
	s.Equal(int64(21474836480), DefaultMaxUserSpace)
}

// TestAdmitBelowBudget tests admission with room to spare
func (s *GuardTestSuite) TestAdmitBelowBudget() {
	s.directory.On("Role", mock.Anything, "alice").Return(models.RoleUser, nil)

	decision := s.admit("alice", 100)
	s.True(decision.Admitted)
	s.Empty(decision.Reason)
	s.Equal(int64(600), decision.Used)
	s.Equal(int64(100), decision.Requested)
	s.Equal(testMax, decision.Max)
	s.directory.AssertExpectations(s.T())
}

// TestAdmitExactBoundary tests that used+extra == max is admitted
func (s *GuardTestSuite) TestAdmitExactBoundary() {
	s.directory.On("Role", mock.Anything, "alice").Return(models.RoleUser, nil)

	s.True(s.admit("alice", 400).Admitted)
}

// TestRejectOverBoundary tests that one byte over the budget is rejected
func (s *GuardTestSuite) TestRejectOverBoundary() {
	s.directory.On("Role", mock.Anything, "alice").Return(models.RoleUser, nil)

	decision := s.admit("alice", 401)
	s.False(decision.Admitted)
	s.Equal(ReasonQuotaExceeded, decision.Reason)
	s.Equal(int64(600), decision.Used)
}

// TestRejectHugeRequest tests that requests above the whole budget are rejected
func (s *GuardTestSuite) TestRejectHugeRequest() {
	s.directory.On("Role", mock.Anything, "alice").Return(models.RoleUser, nil)

	decision := s.admit("alice", 1<<62)
	s.False(decision.Admitted)
}

// TestAdminAlwaysAdmitted tests that admins bypass the budget
func (s *GuardTestSuite) TestAdminAlwaysAdmitted() {
	s.directory.On("Role", mock.Anything, "root").Return(models.RoleAdmin, nil)

	decision := s.admit("root", testMax*10)
	s.True(decision.Admitted)
	s.Equal(int64(0), decision.Used)
}

// TestZeroExtraOverBudget tests a user already over a lowered budget
func (s *GuardTestSuite) TestZeroExtraOverBudget() {
	s.directory.On("Role", mock.Anything, "alice").Return(models.RoleUser, nil)
	guard := NewGuard(s.directory, 500, nil)

	decision, err := guard.Admit(context.Background(), models.User{ID: "alice"}, 0, s.filesRoot, s.galleryDir)
	s.Require().NoError(err)
	s.False(decision.Admitted)
}

// TestMissingRootsCountZero tests admission for a user without any data
func (s *GuardTestSuite) TestMissingRootsCountZero() {
	s.directory.On("Role", mock.Anything, "new").Return(models.RoleUser, nil)

	decision, err := s.guard.Admit(context.Background(), models.User{ID: "new"}, testMax,
		filepath.Join(s.tempDir, "files", "new"), filepath.Join(s.tempDir, "gallery", "new"))
	s.Require().NoError(err)
	s.True(decision.Admitted)
	s.Equal(int64(0), decision.Used)
}

// TestDirectoryErrorFailsClosed tests that lookup errors are not admitted
func (s *GuardTestSuite) TestDirectoryErrorFailsClosed() {
	lookupErr := errors.New("database is locked")
	s.directory.On("Role", mock.Anything, "alice").Return(models.Role(""), lookupErr)

	decision, err := s.guard.Admit(context.Background(), models.User{ID: "alice"}, 1, s.filesRoot)
	s.Require().Error(err)
	s.True(errors.Is(err, lookupErr))
	s.False(decision.Admitted)
}

// TestNegativeExtra tests rejection of negative sizes
func (s *GuardTestSuite) TestNegativeExtra() {
	_, err := s.guard.Admit(context.Background(), models.User{ID: "alice"}, -1, s.filesRoot)
	s.Error(err)
	s.directory.AssertNotCalled(s.T(), "Role", mock.Anything, mock.Anything)
}

// TestUsage tests measuring both roots
func (s *GuardTestSuite) TestUsage() {
	s.Equal(int64(600), s.guard.Usage(s.filesRoot, s.galleryDir))
	s.Equal(int64(400), s.guard.Usage(s.filesRoot))
}

// TestLockSerializesSameUser tests mutual exclusion for one user
func (s *GuardTestSuite) TestLockSerializesSameUser() {
	var inside int32
	var overlap atomic.Bool
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := s.guard.Lock("alice")
			defer unlock()

			if atomic.AddInt32(&inside, 1) > 1 {
				overlap.Store(true)
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	s.False(overlap.Load())
	s.Equal(0, s.guard.locks.size())
}

// TestLockIndependentUsers tests that different users do not block each other
func (s *GuardTestSuite) TestLockIndependentUsers() {
	unlockAlice := s.guard.Lock("alice")
	defer unlockAlice()

	acquired := make(chan struct{})
	go func() {
		unlock := s.guard.Lock("bob")
		unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		s.Fail("lock for bob blocked on alice")
	}
}

// TestUnlockIdempotent tests that releasing twice is harmless
func (s *GuardTestSuite) TestUnlockIdempotent() {
	unlock := s.guard.Lock("alice")
	unlock()
	s.NotPanics(unlock)
	s.Equal(0, s.guard.locks.size())
}

// TestGuardSuite runs the guard test suite
func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardTestSuite))
}
