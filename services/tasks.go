package services

import (
	"log"
	"strings"

	"github.com/gosimple/slug"
	"github.com/neweracoin/wfdropbackend/models"
	"gorm.io/gorm"
)

// TaskService manages the master social task catalog.
type TaskService struct {
	DB *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{DB: db}
}

// TaskInput carries the writable fields of a catalog task.
type TaskInput struct {
	ClaimKey     string   `json:"claimTreshold" validate:"omitempty,max=64"`
	BtnText      string   `json:"btnText" validate:"max=128"`
	TaskText     string   `json:"taskText" validate:"max=512"`
	TaskPoints   *float64 `json:"taskPoints" validate:"omitempty,gte=0"`
	TaskCategory string   `json:"taskCategory" validate:"max=64"`
	TaskStatus   string   `json:"taskStatus" validate:"max=64"`
	TaskURL      string   `json:"taskUrl" validate:"omitempty,url"`
}

// claimKeyFor returns the explicit claim key or one derived from the task text.
func claimKeyFor(in TaskInput) string {
	if key := strings.TrimSpace(in.ClaimKey); key != "" {
		return key
	}
	return slug.Make(in.TaskText)
}

func (s *TaskService) claimKeyTaken(key, exceptID string) (bool, error) {
	var n int64
	q := s.DB.Model(&models.Task{}).Where("claim_key = ?", key)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&n).Error; err != nil {
		return false, &StorageError{Operation: "check claim key", Err: err}
	}
	return n > 0, nil
}

func (s *TaskService) Create(in TaskInput) (*models.Task, error) {
	key := claimKeyFor(in)
	if key == "" {
		return nil, &ValidationError{Field: "claimTreshold", Reason: "is required when taskText is empty"}
	}
	taken, err := s.claimKeyTaken(key, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ValidationError{Field: "claimTreshold", Reason: "already exists"}
	}

	task := models.Task{
		ClaimKey: key,
		TaskDetails: models.TaskDetails{
			BtnText:      in.BtnText,
			TaskText:     in.TaskText,
			TaskCategory: in.TaskCategory,
			TaskStatus:   in.TaskStatus,
			TaskURL:      in.TaskURL,
		},
	}
	if in.TaskPoints != nil {
		task.TaskPoints = *in.TaskPoints
	}
	if err := s.DB.Create(&task).Error; err != nil {
		return nil, &StorageError{Operation: "create task", Err: err}
	}
	log.Printf("📝 [CLAIMS] task %s added to catalog", task.ClaimKey)
	return &task, nil
}

// Update applies the non-empty fields of in to task id.
func (s *TaskService) Update(id string, in TaskInput) (*models.Task, error) {
	task, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if key := strings.TrimSpace(in.ClaimKey); key != "" && key != task.ClaimKey {
		taken, err := s.claimKeyTaken(key, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, &ValidationError{Field: "claimTreshold", Reason: "already exists"}
		}
		fields["claim_key"] = key
	}
	if in.BtnText != "" {
		fields["btn_text"] = in.BtnText
	}
	if in.TaskText != "" {
		fields["task_text"] = in.TaskText
	}
	if in.TaskPoints != nil {
		fields["task_points"] = *in.TaskPoints
	}
	if in.TaskCategory != "" {
		fields["task_category"] = in.TaskCategory
	}
	if in.TaskStatus != "" {
		fields["task_status"] = in.TaskStatus
	}
	if in.TaskURL != "" {
		fields["task_url"] = in.TaskURL
	}
	if len(fields) == 0 {
		return task, nil
	}

	if err := s.DB.Model(task).Updates(fields).Error; err != nil {
		return nil, &StorageError{Operation: "update task", Err: err}
	}
	return s.Get(id)
}

func (s *TaskService) Delete(id string) error {
	res := s.DB.Where("id = ?", id).Delete(&models.Task{})
	if res.Error != nil {
		return &StorageError{Operation: "delete task", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "task", Identifier: id}
	}
	log.Printf("[CLAIMS] task %s removed from catalog", id)
	return nil
}

func (s *TaskService) Get(id string) (*models.Task, error) {
	var task models.Task
	if err := s.DB.Where("id = ?", id).First(&task).Error; err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Resource: "task", Identifier: id}
		}
		return nil, &StorageError{Operation: "load task", Err: err}
	}
	return &task, nil
}

func (s *TaskService) List() ([]models.Task, error) {
	var tasks []models.Task
	if err := s.DB.Order("created_at, claim_key").Find(&tasks).Error; err != nil {
		return nil, &StorageError{Operation: "list tasks", Err: err}
	}
	return tasks, nil
}
