// Package roster holds the student and teacher records that the entitlement
// engine counts. Creates go through an authorization check under a
// per-school lock; reads and deletes do not.
package roster

import (
	"errors"
	"time"
)

// Errors
var (
	ErrStudentNotFound = errors.New("roster: student not found")
	ErrTeacherNotFound = errors.New("roster: teacher not found")
)

// Student is one enrolled learner.
type Student struct {
	ID             string    `json:"id"`
	SchoolID       string    `json:"schoolId"`
	Name           string    `json:"name"`
	AdmissionNo    string    `json:"admissionNo,omitempty"`
	GuardianPhone  string    `json:"guardianPhone,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Teacher is one staff member on the teaching roster.
type Teacher struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"schoolId"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
