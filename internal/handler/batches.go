package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/assessment"
	"github.com/pavelanni/mcqengine/internal/model"
	"github.com/pavelanni/mcqengine/internal/validate"
)

// pathIdent reads and checks an identifier URL parameter. chi routes on
// RawPath when the request has one, leaving its params escaped.
func pathIdent(r *http.Request, param, name string) (string, error) {
	v := chi.URLParam(r, param)
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(v)
		if err != nil {
			return "", apperr.InvalidIdentifier("invalid %s %q", name, v)
		}
		v = unescaped
	}
	return validate.Ident(name, v)
}

// facultyActor resolves the institution a faculty member belongs to.
func (h *Handler) facultyActor(r *http.Request) (assessment.Actor, error) {
	facultyID, err := pathIdent(r, "facultyID", "faculty id")
	if err != nil {
		return assessment.Actor{}, err
	}
	f, err := h.store.GetFaculty(r.Context(), facultyID)
	if err != nil {
		return assessment.Actor{}, err
	}
	return assessment.Actor{InstitutionID: f.InstitutionID, FacultyID: f.ID}, nil
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	instID, err := pathIdent(r, "institutionID", "institution id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := validate.Decode[validate.CreateBatchRequest](h.validator, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.registry.CreateBatch(r.Context(), instID, req.BatchCode, req.Meta())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) handleListInstitutionBatches(w http.ResponseWriter, r *http.Request) {
	instID, err := pathIdent(r, "institutionID", "institution id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	batches, err := h.registry.ListByInstitution(r.Context(), instID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) handleListFacultyBatches(w http.ResponseWriter, r *http.Request) {
	facultyID, err := pathIdent(r, "facultyID", "faculty id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	batches, err := h.registry.ListByFaculty(r.Context(), facultyID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (h *Handler) handleInstitutionAddStudents(w http.ResponseWriter, r *http.Request) {
	instID, err := pathIdent(r, "institutionID", "institution id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.addStudents(w, r, assessment.Actor{InstitutionID: instID})
}

func (h *Handler) handleFacultyAddStudents(w http.ResponseWriter, r *http.Request) {
	actor, err := h.facultyActor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.addStudents(w, r, actor)
}

func (h *Handler) addStudents(w http.ResponseWriter, r *http.Request, actor assessment.Actor) {
	code, err := pathIdent(r, "batchCode", "batch code")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := validate.Decode[validate.AddStudentsRequest](h.validator, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.registry.AddStudents(r.Context(), actor, code, req.StudentIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	instID, err := pathIdent(r, "institutionID", "institution id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := h.store.ListAnnouncements(r.Context(), instID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Announcement{}
	}
	writeJSON(w, http.StatusOK, list)
}
