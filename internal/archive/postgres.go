package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/goccy/go-json"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/affectlab/moodtrace/pkg/models"
)

// archivedSession is the gorm row model for a completed session.
type archivedSession struct {
	SessionID       string    `gorm:"primaryKey;size:64"`
	StartedAt       time.Time `gorm:"not null"`
	EndedAt         time.Time `gorm:"not null;index:idx_arch_sessions_ended,sort:desc"`
	TotalFrames     int       `gorm:"not null;check:total_frames >= 0"`
	TotalQuestions  int       `gorm:"not null;check:total_questions >= 0"`
	DominantEmotion string    `gorm:"size:16"`
	ResultsJSON     string    `gorm:"type:text;not null"`
	ArchivedAt      time.Time `gorm:"not null"`
}

func (archivedSession) TableName() string { return "archived_sessions" }

func (a *archivedSession) BeforeCreate(tx *gorm.DB) error {
	if a.ArchivedAt.IsZero() {
		a.ArchivedAt = time.Now().UTC()
	}
	return nil
}

// archivedFrame is the gorm row model for one frame of an archived session.
type archivedFrame struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	SessionID  string    `gorm:"size:64;not null;index:idx_arch_frames_session"`
	QuestionID string    `gorm:"size:128;not null"`
	FrameID    string    `gorm:"size:64;not null"`
	Emotion    string    `gorm:"size:16;not null"`
	Confidence float64   `gorm:"not null;check:confidence >= 0 AND confidence <= 1"`
	RecordedAt time.Time `gorm:"not null"`
}

func (archivedFrame) TableName() string { return "archived_frames" }

// Postgres archives sessions into PostgreSQL via gorm.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres connects to the DSN and runs pending migrations.
func NewPostgres(dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres archive dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func runMigrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "001_archive_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&archivedSession{}, &archivedFrame{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&archivedFrame{}, &archivedSession{})
			},
		},
		{
			ID: "002_frames_session_emotion_index",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_arch_frames_session_emotion
					ON archived_frames (session_id, emotion)`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_arch_frames_session_emotion`).Error
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("run archive migrations: %w", err)
	}
	return nil
}

// ArchiveSession upserts the session row and rewrites its frame log in one
// transaction.
func (p *Postgres) ArchiveSession(ctx context.Context, rec SessionRecord) error {
	if rec.Results.SessionID == "" {
		return fmt.Errorf("session record has no session id")
	}

	resultsJSON, err := json.Marshal(rec.Results)
	if err != nil {
		return fmt.Errorf("marshal session results: %w", err)
	}

	ended := time.Now().UTC()
	if rec.Results.EndTime != nil {
		ended = rec.Results.EndTime.UTC()
	}
	row := archivedSession{
		SessionID:       rec.Results.SessionID,
		StartedAt:       rec.Results.StartTime.UTC(),
		EndedAt:         ended,
		TotalFrames:     rec.Results.TotalFrames,
		TotalQuestions:  rec.Results.TotalQuestions,
		DominantEmotion: string(rec.Results.DominantEmotion),
		ResultsJSON:     string(resultsJSON),
		ArchivedAt:      time.Now().UTC(),
	}

	frames := make([]archivedFrame, 0, len(rec.Frames))
	for _, frame := range rec.Frames {
		frames = append(frames, archivedFrame{
			SessionID:  rec.Results.SessionID,
			QuestionID: frame.QuestionID,
			FrameID:    frame.FrameID,
			Emotion:    string(frame.Emotion),
			Confidence: frame.Confidence,
			RecordedAt: frame.Timestamp.UTC(),
		})
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert archived session: %w", err)
		}

		err = tx.Where("session_id = ?", rec.Results.SessionID).
			Delete(&archivedFrame{}).Error
		if err != nil {
			return fmt.Errorf("clear archived frames: %w", err)
		}

		if len(frames) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(frames, 200).Error; err != nil {
			return fmt.Errorf("insert archived frames: %w", err)
		}
		return nil
	})
}

// RecentSessions lists archived sessions, most recently ended first.
func (p *Postgres) RecentSessions(ctx context.Context, limit int) ([]ArchivedSession, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []archivedSession
	err := p.db.WithContext(ctx).
		Order("ended_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query archived sessions: %w", err)
	}

	sessions := make([]ArchivedSession, 0, len(rows))
	for _, row := range rows {
		var results models.SessionResults
		if err := json.Unmarshal([]byte(row.ResultsJSON), &results); err != nil {
			return nil, fmt.Errorf("unmarshal session results: %w", err)
		}
		sessions = append(sessions, ArchivedSession{
			SessionID:   row.SessionID,
			StartTime:   row.StartedAt,
			EndTime:     row.EndedAt,
			TotalFrames: row.TotalFrames,
			ArchivedAt:  row.ArchivedAt,
			Results:     results,
		})
	}
	return sessions, nil
}

// Ping verifies the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("get sql connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("get sql connection: %w", err)
	}
	return sqlDB.Close()
}
