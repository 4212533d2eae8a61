package model

// SliderImage 首页轮播图
type SliderImage struct {
	Base
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Image       string `json:"image" gorm:"type:varchar(255)"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	IsActive    bool   `json:"is_active" gorm:"not null"`
	Order       int    `json:"order" gorm:"column:sort_order;not null;default:0"`
	Link        string `json:"link,omitempty" gorm:"type:varchar(255)"`
}

func (SliderImage) TableName() string { return "slider_images" }

// GuidingPrinciple 指导原则
type GuidingPrinciple struct {
	Base
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Icon        string `json:"icon" gorm:"type:varchar(100)"`
	Description string `json:"description" gorm:"type:text"`
	Order       int    `json:"order" gorm:"column:sort_order;not null;default:0"`
}

func (GuidingPrinciple) TableName() string { return "guiding_principles" }

// Partner 合作伙伴
type Partner struct {
	Base
	Name     string `json:"name" gorm:"type:varchar(200);not null"`
	Logo     string `json:"logo" gorm:"type:varchar(255)"`
	Website  string `json:"website,omitempty" gorm:"type:varchar(255)"`
	IsActive bool   `json:"is_active" gorm:"not null"`
}

func (Partner) TableName() string { return "partners" }

// BoardMember 理事会成员
type BoardMember struct {
	Base
	Name     string `json:"name" gorm:"type:varchar(200);not null"`
	Position string `json:"position" gorm:"type:varchar(200)"`
	Photo    string `json:"photo" gorm:"type:varchar(255)"`
	Bio      string `json:"bio" gorm:"type:text"`
	Order    int    `json:"order" gorm:"column:sort_order;not null;default:0"`
}

func (BoardMember) TableName() string { return "board_members" }

// Strategy 战略重点
type Strategy struct {
	Base
	Title       string `json:"title" gorm:"type:varchar(200);not null"`
	Description string `json:"description" gorm:"type:text"`
	Icon        string `json:"icon" gorm:"type:varchar(100)"`
	Order       int    `json:"order" gorm:"column:sort_order;not null;default:0"`
}

func (Strategy) TableName() string { return "strategies" }
