package dto

import (
	"time"

	"github.com/agencyiq/agency-service/internal/domain"
)

// CreateTemplateRequest payload.
type CreateTemplateRequest struct {
	Name  string                `json:"name" validate:"required,min=2,max=200"`
	Tasks []TemplateTaskRequest `json:"tasks" validate:"required,min=1,dive"`
}

// TemplateTaskRequest is one ordered step of a template.
type TemplateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=4000"`
	DueOffset   int    `json:"due_offset_days" validate:"min=0"`
}

// TemplateResponse describes an onboarding template.
type TemplateResponse struct {
	ID        string                `json:"id"`
	Name      string                `json:"name"`
	Tasks     []TemplateTaskRequest `json:"tasks"`
	Active    bool                  `json:"active"`
	CreatedAt time.Time             `json:"created_at"`
}

// AssignTemplateRequest payload.
type AssignTemplateRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
}

// InstanceResponse describes an onboarding instance.
type InstanceResponse struct {
	ID          string                  `json:"id"`
	TemplateID  string                  `json:"template_id"`
	StaffID     string                  `json:"staff_id"`
	Status      domain.OnboardingStatus `json:"status"`
	AssignedAt  time.Time               `json:"assigned_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Tasks       []TaskResponse          `json:"tasks,omitempty"`
}

// TaskResponse describes one generated task.
type TaskResponse struct {
	ID          string     `json:"id"`
	Position    int        `json:"position"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AudioURL    *string    `json:"audio_url,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AssignChallengeRequest payload.
type AssignChallengeRequest struct {
	StaffID     string     `json:"staff_id" validate:"required"`
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	Points      int        `json:"points" validate:"min=0"`
	DueDate     *time.Time `json:"due_date"`
}

// ReassignChallengeRequest payload.
type ReassignChallengeRequest struct {
	StaffID string `json:"staff_id" validate:"required"`
}

// ChallengeResponse describes a challenge assignment.
type ChallengeResponse struct {
	ID          string                 `json:"id"`
	StaffID     string                 `json:"staff_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	Points      int                    `json:"points"`
	DueDate     *time.Time             `json:"due_date,omitempty"`
	Status      domain.ChallengeStatus `json:"status"`
	AudioURL    *string                `json:"audio_url,omitempty"`
	AssignedAt  time.Time              `json:"assigned_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// TemplateFromDomain maps the domain template.
func TemplateFromDomain(tpl *domain.OnboardingTemplate) TemplateResponse {
	tasks := make([]TemplateTaskRequest, 0, len(tpl.Tasks))
	for _, task := range tpl.Tasks {
		tasks = append(tasks, TemplateTaskRequest{
			Title:       task.Title,
			Description: task.Description,
			DueOffset:   task.DueOffset,
		})
	}
	return TemplateResponse{
		ID:        tpl.ID,
		Name:      tpl.Name,
		Tasks:     tasks,
		Active:    tpl.Active,
		CreatedAt: tpl.CreatedAt,
	}
}

// InstanceFromDomain maps an instance and optional tasks.
func InstanceFromDomain(inst *domain.OnboardingInstance, tasks []domain.OnboardingTask) InstanceResponse {
	resp := InstanceResponse{
		ID:          inst.ID,
		TemplateID:  inst.TemplateID,
		StaffID:     inst.StaffID,
		Status:      inst.Status,
		AssignedAt:  inst.AssignedAt,
		CompletedAt: inst.CompletedAt,
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, TaskFromDomain(&tasks[i]))
	}
	return resp
}

// TaskFromDomain maps one task.
func TaskFromDomain(task *domain.OnboardingTask) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Position:    task.Position,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		AudioURL:    task.AudioURL,
		CompletedAt: task.CompletedAt,
	}
}

// ChallengeFromDomain maps one challenge.
func ChallengeFromDomain(c *domain.ChallengeAssignment) ChallengeResponse {
	return ChallengeResponse{
		ID:          c.ID,
		StaffID:     c.StaffID,
		Title:       c.Title,
		Description: c.Description,
		Points:      c.Points,
		DueDate:     c.DueDate,
		Status:      c.Status,
		AudioURL:    c.AudioURL,
		AssignedAt:  c.AssignedAt,
		CompletedAt: c.CompletedAt,
	}
}
