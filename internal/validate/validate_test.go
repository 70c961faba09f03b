package validate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pavelanni/mcqengine/internal/apperr"
)

func TestDecodeCreateBatch(t *testing.T) {
	v := New()

	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
		wantCode  string
	}{
		{"valid", `{"batch_code":" B1 ","department":"CSE"}`, false, "", "B1"},
		{"missing code", `{"department":"CSE"}`, true, "batch_code", ""},
		{"blank code", `{"batch_code":"   "}`, true, "batch_code", ""},
		{"slash and space", `{"batch_code":"CSE 2024/A"}`, false, "", "CSE 2024/A"},
		{"control character", `{"batch_code":"B\u00071"}`, true, "batch_code", ""},
		{"empty body", ``, true, "batch_code", ""},
		{"malformed", `{"batch_code":`, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[CreateBatchRequest](v, strings.NewReader(tt.body))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.BatchCode != tt.wantCode {
					t.Errorf("BatchCode = %q, want %q", got.BatchCode, tt.wantCode)
				}
				return
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tt.wantField != "" {
				var ae *apperr.Error
				if !errors.As(err, &ae) {
					t.Fatalf("expected *apperr.Error, got %T", err)
				}
				if _, ok := ae.Fields[tt.wantField]; !ok {
					t.Errorf("expected field %q in %v", tt.wantField, ae.Fields)
				}
			}
		})
	}
}

func TestDecodeCreateTestType(t *testing.T) {
	v := New()

	got, err := Decode[CreateTestRequest](v, strings.NewReader(`{"type":" Aptitude ","batch_codes":["B1", 42]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Type != "aptitude" {
		t.Errorf("Type = %q, want aptitude", got.Type)
	}
	if !reflect.DeepEqual([]string(got.BatchCodes), []string{"B1", "42"}) {
		t.Errorf("BatchCodes = %v", got.BatchCodes)
	}

	_, err = Decode[CreateTestRequest](v, strings.NewReader(`{"type":"verbal"}`))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for unknown type, got %v", err)
	}
}

func TestIDListCoercion(t *testing.T) {
	v := New()
	got, err := Decode[AssignRequest](v, strings.NewReader(`{"student_ids":[" S1 ", 7, "", null, "S2"]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []string{"S1", "7", "S2"}
	if !reflect.DeepEqual([]string(got.StudentIDs), want) {
		t.Errorf("StudentIDs = %v, want %v", got.StudentIDs, want)
	}

	_, err = Decode[AssignRequest](v, strings.NewReader(`{"student_ids":[{"id":1}]}`))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for object element, got %v", err)
	}
}

func TestAnswerListCoercion(t *testing.T) {
	v := New()

	tests := []struct {
		name string
		body string
		want []int
	}{
		{"ints", `{"answers":[3,1,0,2,1]}`, []int{3, 1, 0, 2, 1}},
		{"numeric strings", `{"answers":["3"," 1 "]}`, []int{3, 1}},
		{"integral float", `{"answers":[2.0]}`, []int{2}},
		{"junk", `{"answers":["x", true, null, 1.5, -2, {}]}`, []int{NoAnswer, NoAnswer, NoAnswer, NoAnswer, NoAnswer, NoAnswer}},
		{"empty", `{"answers":[]}`, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode[SubmitRequest](v, strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual([]int(got.Answers), tt.want) {
				t.Errorf("Answers = %v, want %v", got.Answers, tt.want)
			}
		})
	}

	_, err := Decode[SubmitRequest](v, strings.NewReader(`{}`))
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error for missing answers, got %v", err)
	}
}

func TestTestID(t *testing.T) {
	id, err := TestID(" 3F2504E0-4F89-11D3-9A0C-0305E82C3301 ")
	if err != nil {
		t.Fatalf("TestID: %v", err)
	}
	if id != "3f2504e0-4f89-11d3-9a0c-0305e82c3301" {
		t.Errorf("expected canonical lower-case id, got %q", id)
	}

	for _, bad := range []string{"", "123", "not-a-uuid"} {
		if _, err := TestID(bad); !errors.Is(err, apperr.ErrInvalidIdentifier) {
			t.Errorf("TestID(%q): expected invalid identifier, got %v", bad, err)
		}
	}
}

func TestIdent(t *testing.T) {
	if got, err := Ident("institution id", " INST1 "); err != nil || got != "INST1" {
		t.Errorf("Ident = %q, %v", got, err)
	}

	for _, good := range []string{"jane.doe@uni.edu", "2021/CS/001", "Section A", "Ünïcode-7", strings.Repeat("x", MaxIdentLen)} {
		if _, err := Ident("student id", good); err != nil {
			t.Errorf("Ident(%q): %v", good, err)
		}
	}
	for _, bad := range []string{"", "   ", "a\tb", "line\nbreak", "nul\x00", strings.Repeat("x", MaxIdentLen+1)} {
		if _, err := Ident("student id", bad); !errors.Is(err, apperr.ErrInvalidIdentifier) {
			t.Errorf("Ident(%q): expected invalid identifier, got %v", bad, err)
		}
	}
}
