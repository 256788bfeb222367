package models

type User struct {
	BaseModel
	Name         string           `gorm:"not null" json:"name"`
	Email        string           `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string           `gorm:"not null" json:"-"`
	Role         UserRole         `gorm:"type:varchar(20);not null;default:'user'" json:"role"`
	CPF          *string          `json:"cpf,omitempty"`
	Whatsapp     *string          `gorm:"uniqueIndex" json:"whatsapp,omitempty"`
	// Denormalized mirror of the subscription state, written only through
	// UserRepository.UpdateSubscriptionTier. Access decisions never read it.
	SubscriptionTier SubscriptionTier `gorm:"type:varchar(20);not null;default:'free'" json:"subscription_tier"`

	// Relations
	Subscription *Subscription    `gorm:"foreignKey:UserID" json:"subscription,omitempty"`
	Accesses     []ResourceAccess `gorm:"foreignKey:UserID" json:"-"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}
