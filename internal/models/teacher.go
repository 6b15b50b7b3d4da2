package models

import (
	"time"

	"github.com/lib/pq"
)

// Teacher represents an instructor record.
type Teacher struct {
	ID          string         `db:"id" json:"id"`
	FullName    string         `db:"full_name" json:"full_name"`
	Email       string         `db:"email" json:"email"`
	Active      bool           `db:"active" json:"active"`
	SubjectIDs  pq.StringArray `db:"subject_ids" json:"subject_ids"`
	HomeClassID *string        `db:"home_class_id" json:"home_class_id,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// QualifiedFor reports whether the teacher may teach the subject.
func (t Teacher) QualifiedFor(subjectID string) bool {
	for _, id := range t.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}
