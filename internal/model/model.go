package model

import (
	"time"
)

// TestType selects the fixed question template a test is created from.
type TestType string

const (
	TestAptitude     TestType = "aptitude"
	TestTechnical    TestType = "technical"
	TestPsychometric TestType = "psychometric"
)

var validTestTypes = map[TestType]bool{
	TestAptitude:     true,
	TestTechnical:    true,
	TestPsychometric: true,
}

// IsValid reports whether t is one of the known test types.
func (t TestType) IsValid() bool {
	return validTestTypes[t]
}

// TestStatus is the persisted lifecycle state of a test. A deleted test is
// closed and has no row, so there is no closed status value.
type TestStatus string

const (
	StatusDraft    TestStatus = "draft"
	StatusTargeted TestStatus = "targeted"
)

// Role identifies who a projection is built for.
type Role string

const (
	RoleInstitution Role = "institution"
	RoleFaculty     Role = "faculty"
	RoleStudent     Role = "student"
)

// RetakePolicy controls whether a student may submit a test more than once.
type RetakePolicy string

const (
	// RetakeUnlimited appends every attempt.
	RetakeUnlimited RetakePolicy = "unlimited"
	// RetakeSingle rejects any attempt after the first.
	RetakeSingle RetakePolicy = "single"
)

// IsValid reports whether p is a known retake policy.
func (p RetakePolicy) IsValid() bool {
	return p == RetakeUnlimited || p == RetakeSingle
}

// Batch is a cohort of students owned by one institution.
type Batch struct {
	ID            int64     `json:"id"`
	Code          string    `json:"batch_code"`
	InstitutionID string    `json:"institution_id"`
	FacultyID     string    `json:"faculty_id,omitempty"`
	Name          string    `json:"name,omitempty"`
	Department    string    `json:"department,omitempty"`
	Year          string    `json:"year,omitempty"`
	Section       string    `json:"section,omitempty"`
	Students      []string  `json:"students"`
	CreatedAt     time.Time `json:"created_at"`
}

// BatchMeta holds the optional descriptive fields of a new batch.
type BatchMeta struct {
	Name       string
	Department string
	Year       string
	Section    string
	FacultyID  string
}

// Question is one multiple-choice item. CorrectIndex is the answer key.
type Question struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

// Submission is one recorded attempt at a test.
type Submission struct {
	ID          int64     `json:"-"`
	StudentID   string    `json:"student_id"`
	Answers     []int     `json:"answers"`
	Score       int       `json:"score"`
	AttemptedAt time.Time `json:"attempted_at"`
}

// Test is a test instance with its targeting sets and submissions.
type Test struct {
	ID                 string       `json:"id"`
	InstitutionID      string       `json:"institution_id"`
	Type               TestType     `json:"type"`
	Title              string       `json:"title"`
	Status             TestStatus   `json:"status"`
	Questions          []Question   `json:"questions"`
	AssignedFacultyIDs []string     `json:"assigned_faculty_ids"`
	AssignedStudentIDs []string     `json:"assigned_student_ids"`
	AssignedBatchCodes []string     `json:"assigned_batch_codes"`
	Submissions        []Submission `json:"submissions"`
	CreatedAt          time.Time    `json:"created_at"`
}

// Targets is the result of a participant merge.
type Targets struct {
	ID                 string   `json:"id"`
	AssignedFacultyIDs []string `json:"assigned_faculty_ids"`
	AssignedStudentIDs []string `json:"assigned_student_ids"`
	AssignedBatchCodes []string `json:"assigned_batch_codes"`
}

// Target kinds stored per test.
const (
	TargetFaculty = "faculty"
	TargetStudent = "student"
	TargetBatch   = "batch"
)

// ScoreResult is returned to a student after a submission.
type ScoreResult struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// SubmissionSummary is the results projection of one submission.
type SubmissionSummary struct {
	StudentID   string    `json:"student_id"`
	Score       int       `json:"score"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// TestResults lists every submission of a test.
type TestResults struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Type        TestType            `json:"type"`
	Submissions []SubmissionSummary `json:"submissions"`
}

// Faculty is a faculty account.
type Faculty struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institution_id"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Student is a student account. BatchID and FacultyID are copied from the
// batch the student was last added to.
type Student struct {
	EnrollmentID  string    `json:"enrollment_id"`
	InstitutionID string    `json:"institution_id"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	BatchID       *int64    `json:"batch_id,omitempty"`
	FacultyID     string    `json:"faculty_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Announcement is a notice addressed to a set of batches.
type Announcement struct {
	ID            int64     `json:"id"`
	InstitutionID string    `json:"institution_id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	BatchCodes    []string  `json:"batch_codes"`
	CreatedAt     time.Time `json:"created_at"`
}
