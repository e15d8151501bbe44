package journal

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"memorylens/internal/model"
	"memorylens/internal/store"
)

var ErrEmptySubject = errors.New("journal subject is required")

const defaultListLimit = 50

type Repository interface {
	Record(ctx context.Context, subject string, p model.UploadProgress) error
	ListBySubject(ctx context.Context, subject string, limit int) ([]*Entry, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Migrate creates or updates the journal table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

// Record upserts by progress key, so replays of the same record are harmless.
func (r *repository) Record(ctx context.Context, subject string, p model.UploadProgress) error {
	if subject == "" {
		return ErrEmptySubject
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "progress_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "progress", "image_id", "finished_at"}),
	}).Create(entryFrom(subject, p)).Error
}

func (r *repository) ListBySubject(ctx context.Context, subject string, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var entries []*Entry
	err := r.db.WithContext(ctx).
		Where("subject = ?", subject).
		Order("finished_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Prune deletes entries that finished before the cutoff.
func (r *repository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("finished_at < ?", before).Delete(&Entry{})
	return res.RowsAffected, res.Error
}

// Observer persists terminal progress records for subject. Write errors are
// logged; the upload outcome the user sees does not depend on the journal.
func Observer(repo Repository, subject string) store.Observer {
	return store.ObserverFunc(func(p model.UploadProgress) {
		if !p.Status.Terminal() {
			return
		}
		if err := repo.Record(context.Background(), subject, p); err != nil {
			log.Printf("journal_error subject=%s key=%s error=%q", subject, p.Key, err.Error())
		}
	})
}
