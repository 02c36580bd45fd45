package repositories

import (
	"github.com/yigit/roster/internal/db"
)

// Repositories holds all the repository instances
type Repositories struct {
	StudentRepository *StudentRepository
	UserRepository    *UserRepository
}

// NewRepositories initializes all repositories on the shared pool
func NewRepositories(database *db.DB) *Repositories {
	return &Repositories{
		StudentRepository: NewStudentRepository(database.DB, database.Dialect),
		UserRepository:    NewUserRepository(database.DB, database.Dialect),
	}
}
