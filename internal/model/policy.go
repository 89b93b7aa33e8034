package model

// swagger:model PolicyTemplate
type PolicyTemplate struct {
	BaseModel
	InstitutionID uint   `gorm:"index;not null" json:"institutionId"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Category      string `gorm:"size:100" json:"category"`
	Body          string `gorm:"type:text" json:"body"`
	Version       int    `gorm:"default:1" json:"version"`
}

func (PolicyTemplate) TableName() string {
	return "policy_templates"
}

// PolicyRevision keeps the redline between a template version and the one
// before it.
// swagger:model PolicyRevision
type PolicyRevision struct {
	BaseModel
	TemplateID uint   `gorm:"index;not null" json:"templateId"`
	Version    int    `json:"version"`
	AuthorID   uint   `json:"authorId"`
	Body       string `gorm:"type:text" json:"body"`
	Redline    string `gorm:"type:text" json:"redline"`
	Added      int    `json:"linesAdded"`
	Removed    int    `json:"linesRemoved"`
}

func (PolicyRevision) TableName() string {
	return "policy_revisions"
}

// swagger:model PolicySubscription
type PolicySubscription struct {
	BaseModel
	TemplateID uint   `gorm:"uniqueIndex:idx_policy_sub;not null" json:"templateId"`
	WebhookURL string `gorm:"uniqueIndex:idx_policy_sub;size:512;not null" json:"webhookUrl"`
	Channel    string `gorm:"size:100" json:"channel"`
}

func (PolicySubscription) TableName() string {
	return "policy_subscriptions"
}
