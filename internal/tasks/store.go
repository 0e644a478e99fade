package tasks

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ticketing_app_echo/internal/models"
)

// TaskStore persists scheduled tasks and their run history
type TaskStore interface {
	DueTasks(ctx context.Context, now time.Time) ([]models.ScheduledTask, error)
	HasActive(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, task *models.ScheduledTask) error
	Update(ctx context.Context, task *models.ScheduledTask, updates map[string]interface{}) error
	AddHistory(ctx context.Context, history *models.ScheduledTaskHistory) error
}

type GormTaskStore struct {
	db *gorm.DB
}

func NewGormTaskStore(db *gorm.DB) *GormTaskStore {
	return &GormTaskStore{db: db}
}

// DueTasks returns active tasks whose due time has passed, oldest first
func (s *GormTaskStore) DueTasks(ctx context.Context, now time.Time) ([]models.ScheduledTask, error) {
	var due []models.ScheduledTask
	err := s.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, now).
		Order("due asc").
		Find(&due).Error
	return due, err
}

func (s *GormTaskStore) HasActive(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ScheduledTask{}).
		Where("task_name = ? AND status = ?", name, models.ScheduledTaskStatusActive).
		Count(&count).Error
	return count > 0, err
}

func (s *GormTaskStore) Create(ctx context.Context, task *models.ScheduledTask) error {
	return s.db.WithContext(ctx).Create(task).Error
}

func (s *GormTaskStore) Update(ctx context.Context, task *models.ScheduledTask, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(task).Updates(updates).Error
}

func (s *GormTaskStore) AddHistory(ctx context.Context, history *models.ScheduledTaskHistory) error {
	return s.db.WithContext(ctx).Create(history).Error
}
