package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storeline/pkg/apperror"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStaff   Role = "STAFF"
	RoleManager Role = "MANAGER"
)

type Employee struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	Role      Role         `gorm:"type:varchar(16);not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

func (Employee) TableName() string { return "employees" }

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Employee, error)
	Insert(ctx context.Context, db *gorm.DB, employee *Employee) error
}

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (Employee, error)
}

var ErrNotFound = apperror.New(apperror.KindNotFound, "employee_not_found")
