package model

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a physical library location. Copies are owned by and shelved
// at a branch; transactions record the branch that served them.
type Branch struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Address   string    `json:"address" db:"address"`
	IsMain    bool      `json:"is_main" db:"is_main"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
