package model

import "time"

// JobType 岗位类型
type JobType string

const (
	JobTypeFullTime   JobType = "full-time"
	JobTypePartTime   JobType = "part-time"
	JobTypeContract   JobType = "contract"
	JobTypeInternship JobType = "internship"
)

func (t JobType) Valid() bool {
	switch t {
	case JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship:
		return true
	}
	return false
}

// Vacancy 招聘岗位；删除时级联删除其下的申请
type Vacancy struct {
	Base
	Title            string    `json:"title" gorm:"type:varchar(200);not null"`
	Slug             string    `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description      string    `json:"description" gorm:"type:text"`
	Requirements     string    `json:"requirements" gorm:"type:text"`
	Responsibilities string    `json:"responsibilities" gorm:"type:text"`
	JobType          JobType   `json:"job_type" gorm:"type:varchar(20);not null"`
	Location         string    `json:"location" gorm:"type:varchar(200)"`
	Deadline         time.Time `json:"deadline" gorm:"type:date;index;not null"`
	IsPublished      bool      `json:"is_published" gorm:"not null"`
}

func (Vacancy) TableName() string { return "vacancies" }

// IsOpen 已发布且截止日期不早于今天
func (v *Vacancy) IsOpen(now time.Time) bool {
	return v.IsPublished && !v.DeadlinePassed(now)
}

// DeadlinePassed 截止日期早于今天
func (v *Vacancy) DeadlinePassed(now time.Time) bool {
	return DateOf(v.Deadline).Before(DateOf(now))
}

// DaysRemaining 距截止日期的天数，过期为负数
func (v *Vacancy) DaysRemaining(now time.Time) int {
	return int(DateOf(v.Deadline).Sub(DateOf(now)).Hours() / 24)
}

// Application 岗位申请；申请人填写的字段创建后不可修改，仅 IsReviewed 可变
type Application struct {
	ID                  string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	VacancyID           string    `json:"vacancy_id" gorm:"type:varchar(36);index;not null"`
	FullName            string    `json:"full_name" gorm:"type:varchar(200);not null"`
	Email               string    `json:"email" gorm:"type:varchar(254);not null"`
	Phone               string    `json:"phone" gorm:"type:varchar(20);not null"`
	CoverLetter         string    `json:"cover_letter" gorm:"type:text;not null"`
	Resume              string    `json:"resume" gorm:"type:varchar(255);not null"`
	AdditionalDocuments string    `json:"additional_documents,omitempty" gorm:"type:varchar(255)"`
	AppliedAt           time.Time `json:"applied_at" gorm:"index"`
	IsReviewed          bool      `json:"is_reviewed" gorm:"not null;default:false"`
	IPAddress           *string   `json:"ip_address,omitempty" gorm:"type:varchar(45)"`

	// 仅在申请提交后回填，不入库
	Vacancy *Vacancy `json:"-" gorm:"-"`
}

func (Application) TableName() string { return "applications" }
