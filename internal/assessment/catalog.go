package assessment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/mcqengine/internal/apperr"
	"github.com/pavelanni/mcqengine/internal/model"
)

// TestStore persists tests.
type TestStore interface {
	InsertTest(ctx context.Context, t model.Test) error
	GetTest(ctx context.Context, id string) (model.Test, error)
	TestInstitution(ctx context.Context, id string) (string, error)
	ListTestsByInstitution(ctx context.Context, institutionID string) ([]model.Test, error)
	ListTestsForTarget(ctx context.Context, kind, ref string) ([]model.Test, error)
	ListStudentTests(ctx context.Context, institutionID, studentID string) ([]model.Test, error)
	StudentAdmitted(ctx context.Context, testID, studentID string) (bool, error)
	DeleteTest(ctx context.Context, id string) error
}

// Announcer publishes the notice that goes out when a test is created.
type Announcer interface {
	Announce(ctx context.Context, t model.Test, batchCodes []string) error
}

// Catalog creates, lists and deletes tests.
type Catalog struct {
	store     TestStore
	announcer Announcer
	now       func() time.Time
	newID     func() string
}

// NewCatalog creates a Catalog. announcer may be nil.
func NewCatalog(s TestStore, announcer Announcer) *Catalog {
	return &Catalog{
		store:     s,
		announcer: announcer,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Create builds a draft test of the given type from the fixed question bank.
// The announcement to batchCodes is best effort: a failure is logged and the
// test is still returned. Batch codes here do not target the test.
func (c *Catalog) Create(ctx context.Context, institutionID string, testType model.TestType, title string, batchCodes []string) (model.Test, error) {
	testType = model.TestType(strings.ToLower(strings.TrimSpace(string(testType))))
	if !testType.IsValid() {
		return model.Test{}, apperr.ValidationFields(map[string]string{
			"type": "type must be one of aptitude, technical, psychometric",
		})
	}
	if institutionID == "" {
		return model.Test{}, apperr.Validation("institution id is required")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = string(testType) + " test"
	}

	t := model.Test{
		ID:                 c.newID(),
		InstitutionID:      institutionID,
		Type:               testType,
		Title:              title,
		Status:             model.StatusDraft,
		Questions:          QuestionsFor(testType),
		AssignedFacultyIDs: []string{},
		AssignedStudentIDs: []string{},
		AssignedBatchCodes: []string{},
		Submissions:        []model.Submission{},
		CreatedAt:          c.now(),
	}
	if err := c.store.InsertTest(ctx, t); err != nil {
		return model.Test{}, err
	}
	slog.Info("created test", "test_id", t.ID, "institution_id", institutionID, "type", testType)

	if c.announcer != nil {
		if err := c.announcer.Announce(ctx, t, dedupe(batchCodes)); err != nil {
			slog.Warn("test announcement failed", "test_id", t.ID, "error", err)
		}
	}
	return t, nil
}

// ListByInstitution returns the institution's tests with answer keys.
func (c *Catalog) ListByInstitution(ctx context.Context, institutionID string) ([]model.TestView, error) {
	tests, err := c.store.ListTestsByInstitution(ctx, institutionID)
	if err != nil {
		return nil, err
	}
	return model.Views(tests, model.RoleInstitution), nil
}

// ListForFaculty returns the tests a faculty member is assigned to, without questions.
func (c *Catalog) ListForFaculty(ctx context.Context, facultyID string) ([]model.TestView, error) {
	tests, err := c.store.ListTestsForTarget(ctx, model.TargetFaculty, facultyID)
	if err != nil {
		return nil, err
	}
	return model.Views(tests, model.RoleFaculty), nil
}

// ListForStudent returns the institution's tests a student is assigned to,
// without answer keys.
func (c *Catalog) ListForStudent(ctx context.Context, institutionID, studentID string) ([]model.TestView, error) {
	tests, err := c.store.ListStudentTests(ctx, institutionID, studentID)
	if err != nil {
		return nil, err
	}
	return model.Views(tests, model.RoleStudent), nil
}

// GetForStudent returns the student projection of one test. The student must
// be targeted by the test or enrolled in its institution.
func (c *Catalog) GetForStudent(ctx context.Context, studentID, testID string) (model.TestView, error) {
	t, err := c.store.GetTest(ctx, testID)
	if err != nil {
		return model.TestView{}, err
	}
	if err := admit(ctx, c.store, testID, studentID); err != nil {
		return model.TestView{}, err
	}
	return t.View(model.RoleStudent), nil
}

// Delete removes a test owned by institutionID.
func (c *Catalog) Delete(ctx context.Context, institutionID, testID string) error {
	owner, err := c.store.TestInstitution(ctx, testID)
	if err != nil {
		return err
	}
	if owner != institutionID {
		return apperr.Forbidden("test %s belongs to another institution", testID)
	}
	if err := c.store.DeleteTest(ctx, testID); err != nil {
		return err
	}
	slog.Info("deleted test", "test_id", testID, "institution_id", institutionID)
	return nil
}
