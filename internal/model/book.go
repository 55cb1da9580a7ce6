package model

import (
	"time"

	"gorm.io/gorm"
)

// Book is a catalog title with a pool of physical copies.
// Invariant: 0 <= AvailableCopies <= TotalCopies.
// CategoryID is only nil on a deleted book whose category was removed afterwards.
type Book struct {
	BaseModel
	Title           string         `gorm:"type:varchar(255);not null;index" json:"title"`
	Author          string         `gorm:"type:varchar(255);index" json:"author"`
	ISBN            string         `gorm:"column:isbn;type:varchar(32);index" json:"isbn"`
	Publisher       string         `gorm:"type:varchar(255)" json:"publisher"`
	PublishedDate   *time.Time     `json:"publishedDate"`
	Description     string         `gorm:"type:text" json:"description"`
	TotalCopies     int            `gorm:"not null;default:0" json:"totalCopies"`
	AvailableCopies int            `gorm:"not null;default:0" json:"availableCopies"`
	CategoryID      *int           `gorm:"index" json:"categoryId"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Category *Category `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"category,omitempty"`
}

// TableName specifies the table name for Book model
func (Book) TableName() string {
	return "books"
}

// OnLoan is the number of copies currently checked out
func (b *Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}
