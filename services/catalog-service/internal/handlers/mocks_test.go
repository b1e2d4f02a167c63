package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"github.com/go-chi/chi/v5"
)

var (
	instructor = principal.Principal{UserID: 7, Role: principal.RoleInstructor}
	admin      = principal.Principal{UserID: 1, Role: principal.RoleAdmin}
)

type routeRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// serve routes one request through a router carrying p as the caller
func serve(h routeRegistrar, p principal.Principal, method, target, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(principal.WithPrincipal(req.Context(), p)))
		})
	})
	h.RegisterRoutes(r)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type mockCourseService struct {
	course     *models.Course
	tree       *models.CourseWithChapters
	page       *models.Page[models.Course]
	err        error
	caller     principal.Principal
	lastID     int
	lastFilter *models.CourseFilter
	lastSort   models.Sort
	lastPage   models.PageRequest
	created    *models.CreateCourseRequest
	updated    *models.UpdateCourseRequest
	lessons    bool
	deleted    int
}

func (m *mockCourseService) List(ctx context.Context, p principal.Principal, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Course], error) {
	m.caller, m.lastFilter, m.lastSort, m.lastPage = p, filter, sort, page
	return m.page, m.err
}

func (m *mockCourseService) Get(ctx context.Context, p principal.Principal, id int) (*models.Course, error) {
	m.caller, m.lastID = p, id
	return m.course, m.err
}

func (m *mockCourseService) GetWithChapters(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.CourseWithChapters, error) {
	m.caller, m.lastID, m.lessons = p, id, includeLessons
	return m.tree, m.err
}

func (m *mockCourseService) Create(ctx context.Context, p principal.Principal, req *models.CreateCourseRequest) (*models.Course, error) {
	m.caller, m.created = p, req
	return m.course, m.err
}

func (m *mockCourseService) Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateCourseRequest) (*models.Course, error) {
	m.caller, m.lastID, m.updated = p, id, req
	return m.course, m.err
}

func (m *mockCourseService) Delete(ctx context.Context, p principal.Principal, id int) error {
	m.caller, m.deleted = p, id
	return m.err
}

type mockReorderService struct {
	result   *models.ReorderResult
	repair   *models.RepairResult
	err      error
	parentID int
	req      *models.ReorderRequest
	repaired int
}

func (m *mockReorderService) ReorderChapters(ctx context.Context, p principal.Principal, courseID int, req *models.ReorderRequest) (*models.ReorderResult, error) {
	m.parentID, m.req = courseID, req
	return m.result, m.err
}

func (m *mockReorderService) ReorderLessons(ctx context.Context, p principal.Principal, chapterID int, req *models.ReorderRequest) (*models.ReorderResult, error) {
	m.parentID, m.req = chapterID, req
	return m.result, m.err
}

func (m *mockReorderService) RepairOrder(ctx context.Context, p principal.Principal, courseID int) (*models.RepairResult, error) {
	m.parentID = courseID
	return m.repair, m.err
}

func (m *mockReorderService) RepairAll(ctx context.Context) (int, error) {
	return m.repaired, m.err
}

type mockChapterStats struct {
	stats    *models.ChapterStats
	courseID int
}

func (m *mockChapterStats) Stats(ctx context.Context, p principal.Principal, courseID int) (*models.ChapterStats, error) {
	m.courseID = courseID
	return m.stats, nil
}

type mockChapterService struct {
	chapter    *models.Chapter
	duplicate  *models.DuplicateChapterResult
	err        error
	lastID     int
	lessons    bool
	lastFilter *models.ChapterFilter
}

func (m *mockChapterService) List(ctx context.Context, p principal.Principal, filter *models.ChapterFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Chapter], error) {
	m.lastFilter = filter
	return models.NewPage([]models.Chapter{}, 0, page.Normalize(50)), m.err
}

func (m *mockChapterService) Get(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.Chapter, error) {
	m.lastID, m.lessons = id, includeLessons
	return m.chapter, m.err
}

func (m *mockChapterService) Create(ctx context.Context, p principal.Principal, req *models.CreateChapterRequest) (*models.Chapter, error) {
	return m.chapter, m.err
}

func (m *mockChapterService) Update(ctx context.Context, p principal.Principal, id int, req *models.UpdateChapterRequest) (*models.Chapter, error) {
	m.lastID = id
	return m.chapter, m.err
}

func (m *mockChapterService) Delete(ctx context.Context, p principal.Principal, id int) error {
	m.lastID = id
	return m.err
}

func (m *mockChapterService) Duplicate(ctx context.Context, p principal.Principal, id int, includeLessons bool) (*models.DuplicateChapterResult, error) {
	m.lastID, m.lessons = id, includeLessons
	return m.duplicate, m.err
}

type mockBulkService struct {
	count int
	err   error
	ids   []int
}

func (m *mockBulkService) BulkUpdateChapters(ctx context.Context, p principal.Principal, req *models.BulkUpdateChaptersRequest) (int, error) {
	m.ids = req.IDs
	return m.count, m.err
}

func (m *mockBulkService) BulkDeleteChapters(ctx context.Context, p principal.Principal, req *models.BulkIDsRequest) (int, error) {
	m.ids = req.IDs
	return m.count, m.err
}

func (m *mockBulkService) BulkUpdateCourses(ctx context.Context, p principal.Principal, req *models.BulkUpdateCoursesRequest) (int, error) {
	m.ids = req.IDs
	return m.count, m.err
}

func (m *mockBulkService) BulkDeleteCourses(ctx context.Context, p principal.Principal, req *models.BulkIDsRequest) (int, error) {
	m.ids = req.IDs
	return m.count, m.err
}

type mockCatalogService struct {
	tree      *models.CourseWithChapters
	featured  []models.Course
	err       error
	caller    principal.Principal
	lastID    int
	lastSlug  string
	lastLimit int
}

func (m *mockCatalogService) List(ctx context.Context, p principal.Principal, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.Course], error) {
	m.caller = p
	return models.NewPage([]models.Course{}, 0, page.Normalize(10)), m.err
}

func (m *mockCatalogService) GetByID(ctx context.Context, p principal.Principal, id int) (*models.CourseWithChapters, error) {
	m.caller, m.lastID = p, id
	return m.tree, m.err
}

func (m *mockCatalogService) GetBySlug(ctx context.Context, p principal.Principal, slug string) (*models.CourseWithChapters, error) {
	m.caller, m.lastSlug = p, slug
	return m.tree, m.err
}

func (m *mockCatalogService) Featured(ctx context.Context, limit int) ([]models.Course, error) {
	m.lastLimit = limit
	return m.featured, m.err
}

type mockUserService struct {
	user       *models.User
	err        error
	lastID     int
	lastRole   principal.Role
	lastFilter *models.UserFilter
	lastSort   models.Sort
	lastPatch  *models.UpdateUserProfileRequest
	bulkIDs    []int
	deleted    int
	learners   int
}

func (m *mockUserService) List(ctx context.Context, p principal.Principal, filter *models.UserFilter, sort models.Sort, page models.PageRequest) (*models.Page[models.User], error) {
	m.lastFilter, m.lastSort = filter, sort
	return models.NewPage([]models.User{}, 0, page.Normalize(20)), m.err
}

func (m *mockUserService) UpdateProfile(ctx context.Context, p principal.Principal, id int, req *models.UpdateUserProfileRequest) (*models.User, error) {
	m.lastID, m.lastPatch = id, req
	if m.err != nil {
		return nil, m.err
	}
	return m.user, nil
}

func (m *mockUserService) BulkUpdate(ctx context.Context, p principal.Principal, req *models.BulkUpdateUsersRequest) (int, error) {
	m.bulkIDs, m.lastPatch = req.IDs, &req.Patch
	if m.err != nil {
		return 0, m.err
	}
	return len(req.IDs), nil
}

func (m *mockUserService) Delete(ctx context.Context, p principal.Principal, id int) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = id
	return nil
}

func (m *mockUserService) Get(ctx context.Context, p principal.Principal, id int) (*models.UserWithStats, error) {
	m.lastID = id
	if m.err != nil {
		return nil, m.err
	}
	return &models.UserWithStats{User: *m.user}, nil
}

func (m *mockUserService) UpdateRole(ctx context.Context, p principal.Principal, id int, req *models.UpdateRoleRequest) (*models.User, error) {
	m.lastID, m.lastRole = id, req.Role
	return m.user, m.err
}

func (m *mockUserService) Stats(ctx context.Context, p principal.Principal) (*models.UserStats, error) {
	return &models.UserStats{}, m.err
}

func (m *mockUserService) LearnersOfCourse(ctx context.Context, p principal.Principal, courseID int, page models.PageRequest) (*models.Page[models.Learner], error) {
	m.learners = courseID
	return models.NewPage([]models.Learner{}, 0, page.Normalize(20)), m.err
}
