package model

import "time"

// QuestionView is a question as shown to a role. CorrectIndex is nil unless
// the role may see the answer key.
type QuestionView struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
}

// TestView is the role-scoped projection of a Test. Empty fields are omitted
// so each role sees only what View filled in.
type TestView struct {
	ID                 string         `json:"id"`
	InstitutionID      string         `json:"institution_id,omitempty"`
	Title              string         `json:"title"`
	Type               TestType       `json:"type"`
	Status             TestStatus     `json:"status,omitempty"`
	Questions          []QuestionView `json:"questions,omitempty"`
	AssignedFacultyIDs []string       `json:"assigned_faculty_ids,omitempty"`
	AssignedStudentIDs []string       `json:"assigned_student_ids,omitempty"`
	AssignedBatchCodes []string       `json:"assigned_batch_codes,omitempty"`
	Submissions        []Submission   `json:"submissions,omitempty"`
	CreatedAt          *time.Time     `json:"created_at,omitempty"`
}

// View projects t for role. Every read path goes through here:
//   - institution: everything, answer key included
//   - faculty: no questions
//   - student: questions without the answer key, no targeting, no submissions
func (t Test) View(role Role) TestView {
	v := TestView{
		ID:    t.ID,
		Title: t.Title,
		Type:  t.Type,
	}
	if role == RoleStudent {
		v.Questions = questionViews(t.Questions, false)
		return v
	}

	created := t.CreatedAt
	v.InstitutionID = t.InstitutionID
	v.Status = t.Status
	v.CreatedAt = &created
	v.AssignedFacultyIDs = t.AssignedFacultyIDs
	v.AssignedStudentIDs = t.AssignedStudentIDs
	v.AssignedBatchCodes = t.AssignedBatchCodes
	v.Submissions = t.Submissions
	if role == RoleInstitution {
		v.Questions = questionViews(t.Questions, true)
	}
	return v
}

// Views projects every test for role.
func Views(tests []Test, role Role) []TestView {
	out := make([]TestView, 0, len(tests))
	for _, t := range tests {
		out = append(out, t.View(role))
	}
	return out
}

func questionViews(qs []Question, withKey bool) []QuestionView {
	out := make([]QuestionView, 0, len(qs))
	for _, q := range qs {
		qv := QuestionView{
			Prompt:  q.Prompt,
			Options: append([]string(nil), q.Options...),
		}
		if withKey {
			idx := q.CorrectIndex
			qv.CorrectIndex = &idx
		}
		out = append(out, qv)
	}
	return out
}
