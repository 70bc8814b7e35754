package store

import "time"

// GORM models used for persistence.
//
// UpdatedAt tracking is disabled on both tables: the column stays NULL until
// the first explicit update, which the mutation methods set themselves.
type UserModel struct {
	ID           int64      `gorm:"primaryKey"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Role         string     `gorm:"not null;default:user"`
	CreatedAt    time.Time  `gorm:"not null"`
	UpdatedAt    *time.Time `gorm:"autoUpdateTime:false"`
}

func (UserModel) TableName() string { return "users" }

type NoteModel struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"index;not null"`
	Title     string     `gorm:"not null"`
	Content   *string
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime:false"`

	User *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (NoteModel) TableName() string { return "notes" }
