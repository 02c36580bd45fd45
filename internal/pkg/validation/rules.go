package validation

import (
	"fmt"
	"mime/multipart"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/yigit/roster/internal/pkg/apperrors"
	"github.com/yigit/roster/internal/pkg/filestorage"
)

var validate = validator.New()

// StudentRules holds the bounds applied to student forms
type StudentRules struct {
	MinNameLength int
	MinAge        int
	MaxAge        int
}

// DefaultStudentRules mirrors the historical hard-coded limits
var DefaultStudentRules = StudentRules{MinNameLength: 3, MinAge: 10, MaxAge: 50}

// PhotoRules holds the constraints on uploaded photos
type PhotoRules struct {
	AllowedExtensions []string
	MaxFileSize       int64
}

// DefaultPhotoRules allows png/jpg/jpeg up to 2MB
var DefaultPhotoRules = PhotoRules{AllowedExtensions: []string{"png", "jpg", "jpeg"}, MaxFileSize: 2 * 1024 * 1024}

// AccountRules holds the constraints on usernames and passwords
type AccountRules struct {
	MinUsernameLength int
	MinPasswordLength int
}

// DefaultAccountRules mirrors the historical hard-coded limits
var DefaultAccountRules = AccountRules{MinUsernameLength: 3, MinPasswordLength: 6}

// maxPasswordBytes is the bcrypt input limit
const maxPasswordBytes = 72

// ValidateName trims and checks a student name
func (r StudentRules) ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if utf8.RuneCountInString(name) < r.MinNameLength {
		return "", apperrors.NewValidationError(fmt.Sprintf("Name must be at least %d characters!", r.MinNameLength))
	}
	return name, nil
}

// ValidateAge parses and range-checks a submitted age
func (r StudentRules) ValidateAge(raw string) (int, error) {
	age, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, apperrors.NewValidationError("Age must be a positive number!")
	}

	if err := validate.Var(age, fmt.Sprintf("gte=%d,lte=%d", r.MinAge, r.MaxAge)); err != nil {
		return 0, apperrors.NewValidationError(fmt.Sprintf("Age must be between %d and %d!", r.MinAge, r.MaxAge))
	}
	return age, nil
}

// HasPhoto reports whether the form carried a non-empty file part
func HasPhoto(fh *multipart.FileHeader) bool {
	return fh != nil && fh.Filename != ""
}

// ValidatePhoto checks extension and size of an upload
func (r PhotoRules) ValidatePhoto(fh *multipart.FileHeader) error {
	if !HasPhoto(fh) {
		return apperrors.NewValidationError("Photo must be uploaded!")
	}

	if !slices.Contains(r.AllowedExtensions, filestorage.Extension(fh.Filename)) {
		return apperrors.NewValidationError(fmt.Sprintf("File format not supported! (Only %s)", r.describeExtensions()))
	}

	if fh.Size > r.MaxFileSize {
		return apperrors.NewValidationError(fmt.Sprintf("Maximum file size is %s!", formatSize(r.MaxFileSize)))
	}
	return nil
}

func (r PhotoRules) describeExtensions() string {
	names := make([]string, 0, len(r.AllowedExtensions))
	for _, ext := range r.AllowedExtensions {
		if ext == "jpeg" && slices.Contains(r.AllowedExtensions, "jpg") {
			continue
		}
		names = append(names, strings.ToUpper(ext))
	}
	slices.Sort(names)
	return strings.Join(names, "/")
}

func formatSize(n int64) string {
	const mb = 1024 * 1024
	if n%mb == 0 {
		return fmt.Sprintf("%dMB", n/mb)
	}
	if n%1024 == 0 {
		return fmt.Sprintf("%dKB", n/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}

// ValidateUsername checks the registration username
func (r AccountRules) ValidateUsername(username string) error {
	if utf8.RuneCountInString(username) < r.MinUsernameLength {
		return apperrors.NewValidationError(fmt.Sprintf("Username must be at least %d characters", r.MinUsernameLength))
	}
	return nil
}

// ValidatePassword checks a new password
func (r AccountRules) ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < r.MinPasswordLength {
		return apperrors.NewValidationError(fmt.Sprintf("Password must be at least %d characters", r.MinPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		return apperrors.NewValidationError(fmt.Sprintf("Password must be at most %d bytes", maxPasswordBytes))
	}
	return nil
}
