package model

import "time"

// ContactStatus 留言处理状态
type ContactStatus string

const (
	ContactStatusNew      ContactStatus = "new"
	ContactStatusRead     ContactStatus = "read"
	ContactStatusReplied  ContactStatus = "replied"
	ContactStatusArchived ContactStatus = "archived"
)

func (s ContactStatus) Valid() bool {
	switch s {
	case ContactStatusNew, ContactStatusRead, ContactStatusReplied, ContactStatusArchived:
		return true
	}
	return false
}

// ContactMessage 联系表单留言
type ContactMessage struct {
	Base
	Name      string        `json:"name" gorm:"type:varchar(200);not null"`
	Email     string        `json:"email" gorm:"type:varchar(254);not null"`
	Subject   string        `json:"subject" gorm:"type:varchar(200);not null"`
	Message   string        `json:"message" gorm:"type:text;not null"`
	Status    ContactStatus `json:"status" gorm:"type:varchar(10);index;not null;default:new"`
	IPAddress *string       `json:"ip_address,omitempty" gorm:"type:varchar(45)"`
}

func (ContactMessage) TableName() string { return "contact_messages" }

// Subscriber 邮件订阅
type Subscriber struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email        string    `json:"email" gorm:"type:varchar(254);uniqueIndex;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null"`
	Token        string    `json:"-" gorm:"type:varchar(100);uniqueIndex;not null"`
	SubscribedAt time.Time `json:"subscribed_at"`
}

func (Subscriber) TableName() string { return "subscribers" }
