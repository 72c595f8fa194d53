package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/affectlab/moodtrace/pkg/models"
)

type SQLiteArchiveSuite struct {
	suite.Suite
	dir     string
	archive *SQLite
	ctx     context.Context
}

func (s *SQLiteArchiveSuite) SetupTest() {
	dir, err := os.MkdirTemp("", "moodtrace-archive-*")
	s.Require().NoError(err)
	s.dir = dir
	s.ctx = context.Background()

	archive, err := NewSQLite(filepath.Join(dir, "archive.db"))
	s.Require().NoError(err)
	s.archive = archive
}

func (s *SQLiteArchiveSuite) TearDownTest() {
	if s.archive != nil {
		s.archive.Close()
	}
	os.RemoveAll(s.dir)
}

func TestSQLiteArchiveSuite(t *testing.T) {
	suite.Run(t, new(SQLiteArchiveSuite))
}

// frameCount reads the persisted frame rows for a session straight from
// the database.
func (s *SQLiteArchiveSuite) frameCount(sessionID string) int {
	var n int
	err := s.archive.db.QueryRow(
		`SELECT COUNT(*) FROM archived_frames WHERE session_id = ?`, sessionID,
	).Scan(&n)
	s.Require().NoError(err)
	return n
}

// TestArchiveAndList tests that archived sessions round-trip through the
// database and list most recently ended first.
func (s *SQLiteArchiveSuite) TestArchiveAndList() {
	oldest := testRecord("s-oldest", 3*time.Hour, 1)
	middle := testRecord("s-middle", 2*time.Hour, 2)
	newest := testRecord("s-newest", time.Hour, 3)

	// Insertion order deliberately differs from end-time order.
	s.Require().NoError(s.archive.ArchiveSession(s.ctx, middle))
	s.Require().NoError(s.archive.ArchiveSession(s.ctx, newest))
	s.Require().NoError(s.archive.ArchiveSession(s.ctx, oldest))

	sessions, err := s.archive.RecentSessions(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 3)

	s.Equal("s-newest", sessions[0].SessionID)
	s.Equal("s-middle", sessions[1].SessionID)
	s.Equal("s-oldest", sessions[2].SessionID)

	got := sessions[0]
	s.Equal(3, got.TotalFrames)
	s.WithinDuration(newest.Results.StartTime, got.StartTime, time.Second)
	s.WithinDuration(*newest.Results.EndTime, got.EndTime, time.Second)
	s.False(got.ArchivedAt.IsZero())

	s.Equal(models.EmotionHappy, got.Results.DominantEmotion)
	s.Equal(models.VariabilityStable, got.Results.Variability)
	s.Equal(models.TrendPositive, got.Results.Trend)
	s.Equal(map[models.EmotionLabel]int{models.EmotionHappy: 3}, got.Results.Distribution)
}

// TestArchiveLimit tests that the listing honors the limit.
func (s *SQLiteArchiveSuite) TestArchiveLimit() {
	for i, id := range []string{"s-a", "s-b", "s-c", "s-d", "s-e"} {
		rec := testRecord(id, time.Duration(i+1)*time.Hour, 1)
		s.Require().NoError(s.archive.ArchiveSession(s.ctx, rec))
	}

	sessions, err := s.archive.RecentSessions(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal("s-a", sessions[0].SessionID)
	s.Equal("s-b", sessions[1].SessionID)
}

// TestArchiveIdempotent tests that re-archiving a session replaces its row
// and frame log instead of duplicating them.
func (s *SQLiteArchiveSuite) TestArchiveIdempotent() {
	s.Require().NoError(s.archive.ArchiveSession(s.ctx, testRecord("s-1", time.Hour, 3)))
	s.Equal(3, s.frameCount("s-1"))

	updated := testRecord("s-1", time.Hour, 2)
	s.Require().NoError(s.archive.ArchiveSession(s.ctx, updated))

	sessions, err := s.archive.RecentSessions(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(2, sessions[0].TotalFrames)
	s.Equal(2, s.frameCount("s-1"))
}

// TestRecentSessionsEmpty tests listing against an empty archive.
func (s *SQLiteArchiveSuite) TestRecentSessionsEmpty() {
	sessions, err := s.archive.RecentSessions(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(sessions)
}

// TestEmptySessionRecord tests archiving a completed session that never
// recorded a frame.
func (s *SQLiteArchiveSuite) TestEmptySessionRecord() {
	rec := testRecord("s-empty", time.Hour, 0)
	rec.Results.TotalQuestions = 0
	rec.Results.Results = models.Results{
		Distribution: map[models.EmotionLabel]int{},
		Variability:  models.VariabilityStable,
		Trend:        models.TrendNoData,
		Observations: []string{},
	}

	s.Require().NoError(s.archive.ArchiveSession(s.ctx, rec))
	s.Equal(0, s.frameCount("s-empty"))

	sessions, err := s.archive.RecentSessions(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal(0, sessions[0].TotalFrames)
	s.Equal(models.TrendNoData, sessions[0].Results.Trend)
}

// TestMissingSessionID tests that a record without a session id is rejected.
func (s *SQLiteArchiveSuite) TestMissingSessionID() {
	err := s.archive.ArchiveSession(s.ctx, SessionRecord{})
	s.Require().Error(err)
	s.Contains(err.Error(), "no session id")
}

// TestPing tests database reachability before and after Close.
func (s *SQLiteArchiveSuite) TestPing() {
	s.Require().NoError(s.archive.Ping(s.ctx))

	s.Require().NoError(s.archive.Close())
	s.Error(s.archive.Ping(s.ctx))
	s.archive = nil
}

// TestReopen tests that a second handle on the same file sees archived data.
func (s *SQLiteArchiveSuite) TestReopen() {
	path := filepath.Join(s.dir, "archive.db")
	s.Require().NoError(s.archive.ArchiveSession(s.ctx, testRecord("s-persist", time.Hour, 2)))
	s.Require().NoError(s.archive.Close())
	s.archive = nil

	reopened, err := NewSQLite(path)
	s.Require().NoError(err)
	defer reopened.Close()

	sessions, err := reopened.RecentSessions(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 1)
	s.Equal("s-persist", sessions[0].SessionID)
	s.Equal(2, sessions[0].TotalFrames)
}
