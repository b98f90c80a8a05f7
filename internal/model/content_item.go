package model

type ContentType string

const (
	ContentVideo    ContentType = "video"
	ContentArticle  ContentType = "article"
	ContentQuiz     ContentType = "quiz"
	ContentExercise ContentType = "exercise"
)

// ContentItem 模块下的可学习内容，section 为完成度统计的分组键
// swagger:model ContentItem
type ContentItem struct {
	BaseModel
	ModuleID    uint        `gorm:"index;type:bigint unsigned;not null" json:"moduleId"`
	Section     string      `gorm:"size:100;index;not null" json:"section"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Type        ContentType `gorm:"size:20;default:'article'" json:"type"`
	URL         string      `gorm:"size:512" json:"url"`
	Order       int         `gorm:"default:0" json:"order"`
	IsActive    bool        `gorm:"default:true;index" json:"isActive"`
}

func (ContentItem) TableName() string {
	return "content_items"
}
