package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mcqengine/internal/assessment"
	"github.com/pavelanni/mcqengine/internal/model"
	"github.com/pavelanni/mcqengine/internal/validate"
)

func pathTestID(r *http.Request) (string, error) {
	return validate.TestID(chi.URLParam(r, "testID"))
}

// institutionTest reads the institution and test ids of a scoped test route.
func institutionTest(r *http.Request) (instID, testID string, err error) {
	if instID, err = pathIdent(r, "institutionID", "institution id"); err != nil {
		return "", "", err
	}
	if testID, err = pathTestID(r); err != nil {
		return "", "", err
	}
	return instID, testID, nil
}

func (h *Handler) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	instID, err := pathIdent(r, "institutionID", "institution id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := validate.Decode[validate.CreateTestRequest](h.validator, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.catalog.Create(r.Context(), instID, model.TestType(req.Type), req.Title, req.BatchCodes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t.View(model.RoleInstitution))
}

func (h *Handler) handleListInstitutionTests(w http.ResponseWriter, r *http.Request) {
	instID, err := pathIdent(r, "institutionID", "institution id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tests, err := h.catalog.ListByInstitution(r.Context(), instID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handler) handleListFacultyTests(w http.ResponseWriter, r *http.Request) {
	facultyID, err := pathIdent(r, "facultyID", "faculty id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tests, err := h.catalog.ListForFaculty(r.Context(), facultyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handler) handleListStudentTests(w http.ResponseWriter, r *http.Request) {
	instID, err := pathIdent(r, "institutionID", "institution id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	studentID, err := pathIdent(r, "studentID", "student id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tests, err := h.catalog.ListForStudent(r.Context(), instID, studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handler) handleGetStudentTest(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathIdent(r, "studentID", "student id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	testID, err := pathTestID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.catalog.GetForStudent(r.Context(), studentID, testID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	instID, testID, err := institutionTest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := validate.Decode[validate.AssignRequest](h.validator, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	targets, err := h.resolver.Assign(r.Context(), instID, testID, assessment.Assignment{
		FacultyIDs: req.FacultyIDs,
		StudentIDs: req.StudentIDs,
		BatchCodes: req.BatchCodes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, targets)
}

func (h *Handler) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	instID, testID, err := institutionTest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.catalog.Delete(r.Context(), instID, testID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathIdent(r, "studentID", "student id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	testID, err := pathTestID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := validate.Decode[validate.SubmitRequest](h.validator, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.grader.Submit(r.Context(), studentID, testID, req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleInstitutionResults(w http.ResponseWriter, r *http.Request) {
	instID, testID, err := institutionTest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.aggregator.ResultsFor(r.Context(), instID, testID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleFacultyResults(w http.ResponseWriter, r *http.Request) {
	actor, err := h.facultyActor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	testID, err := pathTestID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.aggregator.ResultsFor(r.Context(), actor.InstitutionID, testID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
