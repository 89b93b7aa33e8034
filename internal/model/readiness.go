package model

import "time"

type ReadinessStatus string

const (
	ReadinessInProgress ReadinessStatus = "in_progress"
	ReadinessCompleted  ReadinessStatus = "completed"
)

// ReadinessAssessment is one staff member's paid AI-readiness assessment.
// swagger:model ReadinessAssessment
type ReadinessAssessment struct {
	BaseModel
	InstitutionID uint            `gorm:"index;not null" json:"institutionId"`
	UserID        uint            `gorm:"index" json:"userId"`
	Department    string          `gorm:"size:100;index" json:"department"`
	Status        ReadinessStatus `gorm:"size:20;default:'in_progress'" json:"status"`
	Score         float64         `gorm:"default:0" json:"score"` // 0-100
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

func (ReadinessAssessment) TableName() string {
	return "readiness_assessments"
}

// ToolAdoption is a periodic usage snapshot for one AI tool in one department.
// swagger:model ToolAdoption
type ToolAdoption struct {
	BaseModel
	InstitutionID uint      `gorm:"index;not null" json:"institutionId"`
	Department    string    `gorm:"size:100;index" json:"department"`
	ToolName      string    `gorm:"size:255;not null" json:"toolName"`
	LicensedUsers int       `gorm:"default:0" json:"licensedUsers"`
	ActiveUsers   int       `gorm:"default:0" json:"activeUsers"`
	RecordedAt    time.Time `gorm:"index" json:"recordedAt"`
}

func (ToolAdoption) TableName() string {
	return "tool_adoptions"
}
