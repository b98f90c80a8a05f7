package model

// swagger:model Course
type Course struct {
	BaseModel
	Title       string  `gorm:"size:255;not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	IsPublished bool    `gorm:"default:false" json:"isPublished"`
	CreatorID   uint    `gorm:"index;type:bigint unsigned" json:"creatorId"`
	Phases      []Phase `gorm:"foreignKey:CourseID" json:"phases,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// swagger:model Phase
type Phase struct {
	BaseModel
	CourseID uint     `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title    string   `gorm:"size:255;not null" json:"title"`
	Order    int      `gorm:"default:0" json:"order"`
	Modules  []Module `gorm:"foreignKey:PhaseID" json:"modules,omitempty"`
}

func (Phase) TableName() string {
	return "course_phases"
}

// swagger:model Module
type Module struct {
	BaseModel
	PhaseID     uint          `gorm:"index;type:bigint unsigned" json:"phaseId"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Order       int           `gorm:"default:0" json:"order"`
	IsActive    bool          `gorm:"default:true" json:"isActive"`
	Contents    []ContentItem `gorm:"foreignKey:ModuleID" json:"contents,omitempty"`
}

func (Module) TableName() string {
	return "learning_modules"
}
