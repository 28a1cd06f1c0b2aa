package models

// Category groups opportunities (scholarship, internship, job, workshop, ...).
// Deletion is refused while opportunities still reference the category.
type Category struct {
	BaseModel

	Name string `gorm:"uniqueIndex;not null" json:"name"`
	Slug string `gorm:"uniqueIndex;not null" json:"slug"`
}
