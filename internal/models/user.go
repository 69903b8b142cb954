package models

// User represents a registered account owner.
type User struct {
	Base
	Email            string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash     string `gorm:"size:255;not null" json:"-"`
	Name             string `gorm:"size:100" json:"name"`
	RefreshTokenHash string `gorm:"size:64" json:"-"`

	Portfolios []Portfolio `gorm:"foreignKey:UserID" json:"-"`
}
