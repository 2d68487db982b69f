package store

import (
	"context"
	"errors"
	"time"

	"myloop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScenarioStore reads and writes scenario (drip campaign) definitions.
type ScenarioStore struct {
	db *gorm.DB
}

func NewScenarioStore(db *gorm.DB) *ScenarioStore {
	return &ScenarioStore{db: db}
}

// ListActiveByTrigger returns active scenarios whose trigger tag matches,
// with steps preloaded in declared order. Matching is always scoped to
// ownerRef; an empty ownerRef matches unscoped scenarios only, never
// another owner's.
func (s *ScenarioStore) ListActiveByTrigger(ctx context.Context, triggerTag, ownerRef string) ([]models.Scenario, error) {
	var scenarios []models.Scenario
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("scenario_steps.position ASC")
		}).
		Where("active = ? AND trigger_tag = ? AND owner_ref = ?", true, triggerTag, ownerRef).
		Find(&scenarios).Error
	if err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (s *ScenarioStore) Get(ctx context.Context, id string) (*models.Scenario, error) {
	var scenario models.Scenario
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("scenario_steps.position ASC")
		}).
		First(&scenario, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &scenario, nil
}

func (s *ScenarioStore) List(ctx context.Context, ownerRef string) ([]models.Scenario, error) {
	q := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("scenario_steps.position ASC")
		}).
		Order("created_at DESC")
	if ownerRef != "" {
		q = q.Where("owner_ref = ?", ownerRef)
	}
	var scenarios []models.Scenario
	if err := q.Find(&scenarios).Error; err != nil {
		return nil, err
	}
	return scenarios, nil
}

func (s *ScenarioStore) Create(ctx context.Context, scenario *models.Scenario) error {
	if scenario.ID == "" {
		scenario.ID = uuid.NewString()
	}
	for i := range scenario.Steps {
		scenario.Steps[i].Position = i
	}
	return s.db.WithContext(ctx).Create(scenario).Error
}

// Replace overwrites a scenario definition and its steps in one
// transaction. The scenario editor saves whole definitions.
func (s *ScenarioStore) Replace(ctx context.Context, scenario *models.Scenario) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Scenario{}).
			Where("id = ?", scenario.ID).
			Updates(map[string]interface{}{
				"name":        scenario.Name,
				"active":      scenario.Active,
				"trigger_tag": scenario.TriggerTag,
				"updated_at":  time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Delete(&models.ScenarioStep{}, "scenario_id = ?", scenario.ID).Error; err != nil {
			return err
		}
		for i := range scenario.Steps {
			scenario.Steps[i].ID = 0
			scenario.Steps[i].ScenarioID = scenario.ID
			scenario.Steps[i].Position = i
		}
		if len(scenario.Steps) == 0 {
			return nil
		}
		return tx.Create(&scenario.Steps).Error
	})
}

func (s *ScenarioStore) SetActive(ctx context.Context, id string, active bool) error {
	res := s.db.WithContext(ctx).Model(&models.Scenario{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"active": active, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ScenarioStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.ScenarioStep{}, "scenario_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Scenario{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
