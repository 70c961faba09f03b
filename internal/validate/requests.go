package validate

import (
	"strings"

	"github.com/pavelanni/mcqengine/internal/model"
)

// CreateBatchRequest is the body of a batch creation call.
type CreateBatchRequest struct {
	BatchCode  string `json:"batch_code" validate:"required,ident"`
	Name       string `json:"name" validate:"max=128"`
	Department string `json:"department" validate:"max=128"`
	Year       string `json:"year" validate:"max=16"`
	Section    string `json:"section" validate:"max=16"`
	FacultyID  string `json:"faculty_id" validate:"omitempty,ident"`
}

func (r *CreateBatchRequest) normalize() {
	r.BatchCode = strings.TrimSpace(r.BatchCode)
	r.Name = strings.TrimSpace(r.Name)
	r.Department = strings.TrimSpace(r.Department)
	r.Year = strings.TrimSpace(r.Year)
	r.Section = strings.TrimSpace(r.Section)
	r.FacultyID = strings.TrimSpace(r.FacultyID)
}

// Meta returns the optional batch fields.
func (r CreateBatchRequest) Meta() model.BatchMeta {
	return model.BatchMeta{
		Name:       r.Name,
		Department: r.Department,
		Year:       r.Year,
		Section:    r.Section,
		FacultyID:  r.FacultyID,
	}
}

// AddStudentsRequest is the body of a batch membership call.
type AddStudentsRequest struct {
	StudentIDs IDList `json:"student_ids" validate:"required,min=1,dive,ident"`
}

// CreateTestRequest is the body of a test creation call.
type CreateTestRequest struct {
	Type       string `json:"type" validate:"required,oneof=aptitude technical psychometric"`
	Title      string `json:"title" validate:"max=200"`
	BatchCodes IDList `json:"batch_codes" validate:"dive,ident"`
}

func (r *CreateTestRequest) normalize() {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Title = strings.TrimSpace(r.Title)
}

// AssignRequest is the body of a participant targeting call. All lists are
// optional; an all-empty request is rejected later as EmptyParticipants.
type AssignRequest struct {
	FacultyIDs IDList `json:"faculty_ids" validate:"dive,ident"`
	StudentIDs IDList `json:"student_ids" validate:"dive,ident"`
	BatchCodes IDList `json:"batch_codes" validate:"dive,ident"`
}

// SubmitRequest is the body of a test submission.
type SubmitRequest struct {
	Answers AnswerList `json:"answers" validate:"required"`
}
