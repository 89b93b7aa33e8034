package model

type UserRole string

const (
	Member   UserRole = "member"
	Reviewer UserRole = "reviewer"
	Admin    UserRole = "admin"
)

type InstitutionKind string

const (
	InstitutionK12      InstitutionKind = "k12"
	InstitutionHigherEd InstitutionKind = "higher_ed"
)

// Institution is the tenant. Users and credentials live in the hosted auth
// provider; tokens carry the institution id.
// swagger:model Institution
type Institution struct {
	BaseModel
	Name            string          `gorm:"size:255;not null" json:"name"`
	Kind            InstitutionKind `gorm:"size:20" json:"kind"`
	SlackWebhookURL string          `gorm:"size:512" json:"-"`
	SlackChannel    string          `gorm:"size:100" json:"slackChannel"`
}

func (Institution) TableName() string {
	return "institutions"
}
