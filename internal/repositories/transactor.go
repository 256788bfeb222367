package repositories

import (
	"gorm.io/gorm"
)

// Transactor runs a function inside one storage transaction. Services depend
// on this instead of *gorm.DB directly so unit tests can substitute a
// pass-through implementation.
type Transactor interface {
	Transaction(fn func(tx *gorm.DB) error) error
}

type GormTransactor struct {
	db *gorm.DB
}

func NewTransactor(db *gorm.DB) Transactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) Transaction(fn func(tx *gorm.DB) error) error {
	return t.db.Transaction(fn)
}
