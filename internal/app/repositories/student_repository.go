package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/yigit/roster/internal/app/models"
	"github.com/yigit/roster/internal/db"
	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/helpers"
)

// IStudentRepository defines the student storage operations
type IStudentRepository interface {
	List(ctx context.Context) ([]*models.Student, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
}

// StudentRepository handles database operations for students
type StudentRepository struct {
	db      db.DBTX
	builder sq.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(conn db.DBTX, dialect db.Dialect) *StudentRepository {
	return &StudentRepository{
		db:      conn,
		builder: db.StatementBuilder(dialect),
	}
}

var studentColumns = []string{"id", "name", "age", "photo_path"}

func scanStudent(row interface{ Scan(dest ...any) error }) (*models.Student, error) {
	var (
		s     models.Student
		photo sql.NullString
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Age, &photo); err != nil {
		return nil, err
	}
	s.PhotoPath = helpers.StringPtr(photo)
	return &s, nil
}

// List returns every student ordered by id
func (r *StudentRepository) List(ctx context.Context) ([]*models.Student, error) {
	query, args, err := r.builder.Select(studentColumns...).From("students").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to load students.", err)
	}
	defer rows.Close()

	students := make([]*models.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, apperrors.NewStorageError("Failed to load students.", err)
		}
		students = append(students, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("Failed to load students.", err)
	}

	return students, nil
}

// GetByID retrieves a student by ID
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	query, args, err := r.builder.Select(studentColumns...).From("students").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("error building query: %w", err)
	}

	s, err := scanStudent(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, apperrors.NewStorageError("Failed to load student.", err)
	}

	return s, nil
}

// Create inserts a student and sets its ID
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	query, args, err := r.builder.Insert("students").
		Columns("name", "age", "photo_path").
		Values(student.Name, student.Age, helpers.GetNullString(student.PhotoPath)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("error building query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&student.ID); err != nil {
		return apperrors.NewStorageError("An error occurred while saving data.", err)
	}

	return nil
}

// Update overwrites name, age and photo of an existing student
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	query, args, err := r.builder.Update("students").
		Set("name", student.Name).
		Set("age", student.Age).
		Set("photo_path", helpers.GetNullString(student.PhotoPath)).
		Where(sq.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("error building query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewStorageError("An error occurred while updating data.", err)
	}

	return requireAffected(result, apperrors.ErrStudentNotFound)
}

// Delete removes a student row
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	query, args, err := r.builder.Delete("students").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("error building query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewStorageError("An error occurred while deleting data.", err)
	}

	return requireAffected(result, apperrors.ErrStudentNotFound)
}

// requireAffected maps a statement that touched no rows to notFound
func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewStorageError("Failed to read affected rows.", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
