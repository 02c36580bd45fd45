package services

import (
	"context"
	"mime/multipart"

	"github.com/rs/zerolog"

	"github.com/yigit/roster/internal/app/models"
	"github.com/yigit/roster/internal/app/repositories"
	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/filestorage"
	"github.com/yigit/roster/internal/pkg/validation"
)

// Messages shown after a student operation
const (
	MsgStudentAdded         = "Student added successfully!"
	MsgStudentUpdated       = "Student data updated successfully!"
	MsgStudentDeleted       = "Student data deleted successfully!"
	MsgPhotoUploadFailed    = "Failed to upload photo."
	MsgNewPhotoUploadFailed = "Failed to upload new photo."
	MsgOldPhotoDeleteFailed = "Failed to delete old photo."
)

// StudentInput is a submitted add or update form
type StudentInput struct {
	Name        string
	Age         string
	Photo       *multipart.FileHeader
	DeletePhoto bool
}

// StudentService handles the student roster and its photos
type StudentService struct {
	repo         repositories.IStudentRepository
	storage      filestorage.FileStorage
	studentRules validation.StudentRules
	photoRules   validation.PhotoRules
	logger       zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(
	repo repositories.IStudentRepository,
	storage filestorage.FileStorage,
	studentRules validation.StudentRules,
	photoRules validation.PhotoRules,
	logger zerolog.Logger,
) *StudentService {
	return &StudentService{
		repo:         repo,
		storage:      storage,
		studentRules: studentRules,
		photoRules:   photoRules,
		logger:       logger,
	}
}

// List returns all students
func (s *StudentService) List(ctx context.Context) ([]*models.Student, error) {
	return s.repo.List(ctx)
}

// Get returns one student or apperrors.ErrStudentNotFound
func (s *StudentService) Get(ctx context.Context, id int64) (*models.Student, error) {
	return s.repo.GetByID(ctx, id)
}

// validateFields checks name and age in form order
func (s *StudentService) validateFields(in StudentInput) (string, int, error) {
	name, err := s.studentRules.ValidateName(in.Name)
	if err != nil {
		return "", 0, err
	}
	age, err := s.studentRules.ValidateAge(in.Age)
	if err != nil {
		return "", 0, err
	}
	return name, age, nil
}

// Create validates the form, stores the photo and inserts the row.
// A failed insert leaves the stored photo behind; another row may share
// the same file name.
func (s *StudentService) Create(ctx context.Context, in StudentInput) (*models.Student, error) {
	name, age, err := s.validateFields(in)
	if err != nil {
		return nil, err
	}
	if err := s.photoRules.ValidatePhoto(in.Photo); err != nil {
		return nil, err
	}

	stored, err := s.storage.SaveFile(in.Photo)
	if err != nil {
		s.logger.Error().Err(err).Str("filename", in.Photo.Filename).Msg("Failed to store student photo")
		return nil, apperrors.NewFileSystemError(MsgPhotoUploadFailed, err)
	}

	student := &models.Student{Name: name, Age: age, PhotoPath: &stored}
	if err := s.repo.Create(ctx, student); err != nil {
		s.logger.Warn().Err(err).Str("photo", stored).Msg("Student insert failed after photo was stored")
		return nil, err
	}

	s.logger.Info().Int64("studentID", student.ID).Str("photo", stored).Msg("Student created")
	return student, nil
}

// Update applies an edit form to an existing student. All validation runs
// before anything touches the disk. Failing to unlink the old photo yields a
// warning and the update still goes ahead.
func (s *StudentService) Update(ctx context.Context, id int64, in StudentInput) (*models.Student, []string, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	name, age, err := s.validateFields(in)
	if err != nil {
		return nil, nil, err
	}

	replace := validation.HasPhoto(in.Photo)
	if replace {
		if err := s.photoRules.ValidatePhoto(in.Photo); err != nil {
			return nil, nil, err
		}
	}

	var warnings []string
	photoPath := student.PhotoPath

	if in.DeletePhoto {
		if student.HasPhoto() {
			if err := s.storage.DeleteFile(*student.PhotoPath); err != nil {
				warnings = append(warnings, MsgOldPhotoDeleteFailed)
			}
		}
		photoPath = nil
	}

	if replace {
		stored, err := s.storage.SaveFile(in.Photo)
		if err != nil {
			s.logger.Error().Err(err).Int64("studentID", id).Msg("Failed to store replacement photo")
			return nil, warnings, apperrors.NewFileSystemError(MsgNewPhotoUploadFailed, err)
		}
		photoPath = &stored
	}

	student.Name, student.Age, student.PhotoPath = name, age, photoPath
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, warnings, err
	}

	s.logger.Info().Int64("studentID", id).Bool("photoDeleted", in.DeletePhoto).Bool("photoReplaced", replace).Msg("Student updated")
	return student, warnings, nil
}

// Delete unlinks the student's photo, then removes the row. A failed unlink
// is returned as a warning and does not stop the row delete.
func (s *StudentService) Delete(ctx context.Context, id int64) ([]string, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if student.HasPhoto() {
		if err := s.storage.DeleteFile(*student.PhotoPath); err != nil {
			warnings = append(warnings, MsgOldPhotoDeleteFailed)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return warnings, err
	}

	s.logger.Info().Int64("studentID", id).Msg("Student deleted")
	return warnings, nil
}
