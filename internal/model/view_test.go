package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func sampleTest() Test {
	return Test{
		ID:            "t-1",
		InstitutionID: "INST1",
		Type:          TestAptitude,
		Title:         "aptitude test",
		Status:        StatusTargeted,
		Questions: []Question{
			{Prompt: "2+2?", Options: []string{"1", "2", "3", "4"}, CorrectIndex: 3},
			{Prompt: "Zero index", Options: []string{"a", "b"}, CorrectIndex: 0},
		},
		AssignedStudentIDs: []string{"S1"},
		Submissions: []Submission{
			{StudentID: "S1", Answers: []int{3, 0}, Score: 2, AttemptedAt: time.Now()},
		},
		CreatedAt: time.Now(),
	}
}

func TestViewStudentHasNoAnswerKey(t *testing.T) {
	v := sampleTest().View(RoleStudent)

	if len(v.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(v.Questions))
	}
	for i, q := range v.Questions {
		if q.CorrectIndex != nil {
			t.Errorf("question %d: correct index leaked", i)
		}
	}
	if v.Submissions != nil {
		t.Error("student view should not carry submissions")
	}

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{"correct_index", "submissions", "assigned_student_ids", "institution_id"} {
		if strings.Contains(string(data), key) {
			t.Errorf("student JSON contains %q: %s", key, data)
		}
	}
}

func TestViewFacultyOmitsQuestions(t *testing.T) {
	v := sampleTest().View(RoleFaculty)
	if v.Questions != nil {
		t.Error("faculty view should not carry questions")
	}
	if len(v.Submissions) != 1 {
		t.Errorf("expected 1 submission, got %d", len(v.Submissions))
	}
	data, _ := json.Marshal(v)
	if strings.Contains(string(data), `"questions"`) {
		t.Errorf("faculty JSON contains questions: %s", data)
	}
}

func TestViewInstitutionKeepsZeroIndexKey(t *testing.T) {
	v := sampleTest().View(RoleInstitution)
	if len(v.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(v.Questions))
	}
	if v.Questions[1].CorrectIndex == nil || *v.Questions[1].CorrectIndex != 0 {
		t.Errorf("expected correct index 0 to survive, got %v", v.Questions[1].CorrectIndex)
	}
}

func TestViewDoesNotAliasOptions(t *testing.T) {
	tt := sampleTest()
	v := tt.View(RoleStudent)
	v.Questions[0].Options[0] = "changed"
	if tt.Questions[0].Options[0] != "1" {
		t.Error("view shares option storage with the test")
	}
}

func TestTestTypeIsValid(t *testing.T) {
	tests := []struct {
		in   TestType
		want bool
	}{
		{TestAptitude, true},
		{TestTechnical, true},
		{TestPsychometric, true},
		{"", false},
		{"Aptitude", false},
		{"verbal", false},
	}
	for _, tt := range tests {
		if got := tt.in.IsValid(); got != tt.want {
			t.Errorf("TestType(%q).IsValid() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
