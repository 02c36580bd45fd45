package models

// Student defines the student model based on the 'students' table
type Student struct {
	ID        int64   `db:"id"`
	Name      string  `db:"name"`
	Age       int     `db:"age"`
	PhotoPath *string `db:"photo_path"` // file name relative to the upload directory
}

// HasPhoto reports whether a photo file is attached
func (s *Student) HasPhoto() bool {
	return s.PhotoPath != nil && *s.PhotoPath != ""
}

// PhotoName returns the stored file name, or "" when there is no photo
func (s *Student) PhotoName() string {
	if !s.HasPhoto() {
		return ""
	}
	return *s.PhotoPath
}
