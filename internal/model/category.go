package model

// Category groups books. It cannot be deleted while books reference it.
type Category struct {
	BaseModel
	Name        string `gorm:"type:varchar(128);uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:varchar(512)" json:"description"`
}

// TableName specifies the table name for Category model
func (Category) TableName() string {
	return "categories"
}
