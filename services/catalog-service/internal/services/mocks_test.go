package services

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/coursecraft/backend/libs/apperr"
	"github.com/coursecraft/backend/libs/auth/principal"
	"github.com/coursecraft/backend/services/catalog-service/internal/models"
	"go.uber.org/zap"
)

var (
	admin      = principal.Principal{UserID: 1, Role: principal.RoleAdmin}
	instructor = principal.Principal{UserID: 7, Role: principal.RoleInstructor}
	stranger   = principal.Principal{UserID: 8, Role: principal.RoleInstructor}
	student    = principal.Principal{UserID: 9, Role: principal.RoleStudent}
	anonymous  = principal.Principal{}
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// mockCourseRepository is an in-memory implementation of CourseRepository
type mockCourseRepository struct {
	mu           sync.Mutex
	courses      map[int]*models.Course
	listed       []models.Course
	total        int
	lastFilter   *models.CourseFilter
	featured     []models.Course
	existsBySlug bool
	stats        *models.CourseStats
	gaps         []int
	nextID       int
	created      int
	err          error
	createErr    error
	updateErr    error
	deleteErr    error
	bumpErr      error
	bulkErr      error
}

func newMockCourseRepository(courses ...models.Course) *mockCourseRepository {
	m := &mockCourseRepository{courses: map[int]*models.Course{}, nextID: 100}
	for i := range courses {
		c := courses[i]
		m.courses[c.ID] = &c
	}
	return m
}

func (m *mockCourseRepository) GetByID(ctx context.Context, id int) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.courses[id]
	if !ok {
		return nil, apperr.NotFound("Course not found")
	}
	cp := *c
	return &cp, nil
}

func (m *mockCourseRepository) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.courses {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("Course not found")
}

func (m *mockCourseRepository) List(ctx context.Context, filter *models.CourseFilter, sort models.Sort, page models.PageRequest) ([]models.Course, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.listed, m.total, nil
}

func (m *mockCourseRepository) Featured(ctx context.Context, limit int) ([]models.Course, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.featured) > limit {
		return m.featured[:limit], nil
	}
	return m.featured, nil
}

func (m *mockCourseRepository) ExistsBySlug(ctx context.Context, slug string, excludeID int) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.existsBySlug, nil
}

func (m *mockCourseRepository) CheckOwnership(ctx context.Context, id, instructorID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	c, ok := m.courses[id]
	return ok && c.InstructorID == instructorID, nil
}

func (m *mockCourseRepository) Create(ctx context.Context, course *models.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	course.ID = m.nextID
	m.nextID++
	m.created++
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *mockCourseRepository) Update(ctx context.Context, id int, req *models.UpdateCourseRequest, updatedBy int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	c, ok := m.courses[id]
	if !ok {
		return apperr.NotFound("Course not found")
	}
	if req.Title != nil {
		c.Title = *req.Title
	}
	if req.Slug != nil {
		c.Slug = *req.Slug
	}
	if req.Status != nil {
		c.Status = *req.Status
	}
	if req.InstructorID != nil {
		c.InstructorID = *req.InstructorID
	}
	c.UpdatedBy = &updatedBy
	return nil
}

func (m *mockCourseRepository) BulkUpdate(ctx context.Context, ids []int, req *models.UpdateCourseRequest, updatedBy int) ([]int, error) {
	if m.bulkErr != nil {
		return nil, m.bulkErr
	}
	updated := []int{}
	for _, id := range ids {
		if _, ok := m.courses[id]; ok {
			updated = append(updated, id)
		}
	}
	return updated, nil
}

func (m *mockCourseRepository) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.courses, id)
	return nil
}

func (m *mockCourseRepository) BulkDelete(ctx context.Context, ids []int) ([]int, error) {
	if m.bulkErr != nil {
		return nil, m.bulkErr
	}
	deleted := []int{}
	for _, id := range ids {
		if _, ok := m.courses[id]; ok {
			delete(m.courses, id)
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

func (m *mockCourseRepository) BumpCurriculumVersion(ctx context.Context, id int, expected *int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bumpErr != nil {
		return 0, m.bumpErr
	}
	c, ok := m.courses[id]
	if !ok {
		return 0, apperr.NotFound("Course not found")
	}
	if expected != nil && *expected != c.CurriculumVersion {
		return 0, apperr.Conflict("curriculum was modified by another request")
	}
	c.CurriculumVersion++
	return c.CurriculumVersion, nil
}

func (m *mockCourseRepository) Stats(ctx context.Context) (*models.CourseStats, error) {
	return m.stats, m.err
}

func (m *mockCourseRepository) ListWithOrderGaps(ctx context.Context) ([]int, error) {
	return m.gaps, m.err
}

// mockChapterRepository is an in-memory implementation of ChapterRepository
type mockChapterRepository struct {
	mu           sync.Mutex
	chapters     map[int]*models.Chapter
	listed       []models.Chapter
	total        int
	stats        *models.ChapterStats
	failOrderIDs map[int]bool
	compacted    map[int]int
	nextID       int
	created      []models.Chapter
	err          error
	createErr    error
	updateErr    error
	deleteErr    error
	compactErr   error
}

func newMockChapterRepository(chapters ...models.Chapter) *mockChapterRepository {
	m := &mockChapterRepository{chapters: map[int]*models.Chapter{}, compacted: map[int]int{}, nextID: 1000}
	for i := range chapters {
		ch := chapters[i]
		m.chapters[ch.ID] = &ch
	}
	return m
}

func (m *mockChapterRepository) GetByID(ctx context.Context, id int) (*models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ch, ok := m.chapters[id]
	if !ok {
		return nil, apperr.NotFound("Chapter not found")
	}
	cp := *ch
	return &cp, nil
}

func (m *mockChapterRepository) GetByCourseID(ctx context.Context, courseID int) ([]models.Chapter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var chapters []models.Chapter
	for _, ch := range m.chapters {
		if ch.CourseID == courseID {
			chapters = append(chapters, *ch)
		}
	}
	return chapters, nil
}

func (m *mockChapterRepository) RefsByIDs(ctx context.Context, ids []int) ([]models.ChapterRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	refs := []models.ChapterRef{}
	for _, id := range ids {
		if ch, ok := m.chapters[id]; ok {
			refs = append(refs, models.ChapterRef{ID: ch.ID, CourseID: ch.CourseID})
		}
	}
	return refs, nil
}

func (m *mockChapterRepository) List(ctx context.Context, filter *models.ChapterFilter, sort models.Sort, page models.PageRequest) ([]models.Chapter, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.listed, m.total, nil
}

func (m *mockChapterRepository) MaxOrderIndex(ctx context.Context, courseID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	maxIndex := -1
	for _, ch := range m.chapters {
		if ch.CourseID == courseID && ch.OrderIndex > maxIndex {
			maxIndex = ch.OrderIndex
		}
	}
	return maxIndex, nil
}

func (m *mockChapterRepository) Create(ctx context.Context, chapter *models.Chapter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	chapter.ID = m.nextID
	m.nextID++
	cp := *chapter
	m.chapters[chapter.ID] = &cp
	m.created = append(m.created, cp)
	return nil
}

func (m *mockChapterRepository) Update(ctx context.Context, id int, req *models.UpdateChapterRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	ch, ok := m.chapters[id]
	if !ok {
		return apperr.NotFound("Chapter not found")
	}
	if req.Title != nil {
		ch.Title = *req.Title
	}
	if req.OrderIndex != nil {
		ch.OrderIndex = *req.OrderIndex
	}
	return nil
}

func (m *mockChapterRepository) BulkUpdate(ctx context.Context, ids []int, req *models.UpdateChapterRequest) ([]models.ChapterRef, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return m.RefsByIDs(ctx, ids)
}

func (m *mockChapterRepository) Delete(ctx context.Context, id int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	ch, ok := m.chapters[id]
	if !ok {
		return 0, apperr.NotFound("Chapter not found")
	}
	delete(m.chapters, id)
	return ch.CourseID, nil
}

func (m *mockChapterRepository) BulkDelete(ctx context.Context, ids []int) ([]models.ChapterRef, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	refs, _ := m.RefsByIDs(ctx, ids)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ref := range refs {
		delete(m.chapters, ref.ID)
	}
	return refs, nil
}

func (m *mockChapterRepository) UpdateOrderIndex(ctx context.Context, courseID, id, orderIndex int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOrderIDs[id] {
		return false, apperr.New(apperr.KindWriteFailed, "connection reset")
	}
	ch, ok := m.chapters[id]
	if !ok || ch.CourseID != courseID {
		return false, nil
	}
	ch.OrderIndex = orderIndex
	return true, nil
}

func (m *mockChapterRepository) CompactOrder(ctx context.Context, courseID int) (int, error) {
	if m.compactErr != nil {
		return 0, m.compactErr
	}
	return m.compacted[courseID], nil
}

func (m *mockChapterRepository) Stats(ctx context.Context, courseID int) (*models.ChapterStats, error) {
	return m.stats, m.err
}

// orderOf returns the chapter IDs of a course sorted by order index
func (m *mockChapterRepository) orderOf(courseID int) []int {
	chapters, _ := m.GetByCourseID(context.Background(), courseID)
	sortChapters(chapters)
	ids := make([]int, len(chapters))
	for i, ch := range chapters {
		ids[i] = ch.ID
	}
	return ids
}

// mockLessonRepository is an in-memory implementation of LessonRepository
type mockLessonRepository struct {
	mu           sync.Mutex
	lessons      map[int]*models.Lesson
	listed       []models.Lesson
	total        int
	compacted    map[int]int
	nextID       int
	batches      [][]models.Lesson
	err          error
	getErr       error
	createErr    error
	batchErr     error
	updateErr    error
	deleteErr    error
	failOrderIDs map[int]bool
}

func newMockLessonRepository(lessons ...models.Lesson) *mockLessonRepository {
	m := &mockLessonRepository{lessons: map[int]*models.Lesson{}, compacted: map[int]int{}, nextID: 5000}
	for i := range lessons {
		l := lessons[i]
		m.lessons[l.ID] = &l
	}
	return m
}

func (m *mockLessonRepository) GetByID(ctx context.Context, id int) (*models.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.lessons[id]
	if !ok {
		return nil, apperr.NotFound("Lesson not found")
	}
	cp := *l
	return &cp, nil
}

func (m *mockLessonRepository) GetByChapterIDs(ctx context.Context, chapterIDs []int) ([]models.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	lessons := []models.Lesson{}
	for _, l := range m.lessons {
		if slices.Contains(chapterIDs, l.ChapterID) {
			lessons = append(lessons, *l)
		}
	}
	return lessons, nil
}

func (m *mockLessonRepository) List(ctx context.Context, filter *models.LessonFilter, sort models.Sort, page models.PageRequest) ([]models.Lesson, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.listed, m.total, nil
}

func (m *mockLessonRepository) CountByChapter(ctx context.Context, chapterID int) (int, error) {
	lessons, err := m.GetByChapterIDs(ctx, []int{chapterID})
	return len(lessons), err
}

func (m *mockLessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	lesson.ID = m.nextID
	m.nextID++
	cp := *lesson
	m.lessons[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepository) CreateBatch(ctx context.Context, lessons []models.Lesson) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.batchErr != nil {
		return 0, m.batchErr
	}
	m.batches = append(m.batches, lessons)
	for _, l := range lessons {
		l.ID = m.nextID
		m.nextID++
		m.lessons[l.ID] = &l
	}
	return len(lessons), nil
}

func (m *mockLessonRepository) Update(ctx context.Context, id int, req *models.UpdateLessonRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	l, ok := m.lessons[id]
	if !ok {
		return apperr.NotFound("Lesson not found")
	}
	if req.Title != nil {
		l.Title = *req.Title
	}
	return nil
}

func (m *mockLessonRepository) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.lessons[id]; !ok {
		return apperr.NotFound("Lesson not found")
	}
	delete(m.lessons, id)
	return nil
}

func (m *mockLessonRepository) UpdateOrderIndex(ctx context.Context, chapterID, id, orderIndex int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOrderIDs[id] {
		return false, apperr.New(apperr.KindWriteFailed, "connection reset")
	}
	l, ok := m.lessons[id]
	if !ok || l.ChapterID != chapterID {
		return false, nil
	}
	l.OrderIndex = orderIndex
	return true, nil
}

func (m *mockLessonRepository) CompactOrder(ctx context.Context, courseID int) (int, error) {
	return m.compacted[courseID], nil
}

// mockInvalidator records every invalidation call
type mockInvalidator struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (m *mockInvalidator) Invalidate(ctx context.Context, paths ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, paths)
	return m.err
}

// paths flattens every recorded call
func (m *mockInvalidator) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []string
	for _, call := range m.calls {
		all = append(all, call...)
	}
	return all
}

// mockPageCache keeps JSON views in memory
type mockPageCache struct {
	views  map[string][]byte
	hits   int
	sets   int
	getErr error
}

func newMockPageCache() *mockPageCache {
	return &mockPageCache{views: map[string][]byte{}}
}

func (m *mockPageCache) GetJSON(ctx context.Context, path string, dest any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.views[path]
	if !ok {
		return false, nil
	}
	m.hits++
	return true, json.Unmarshal(raw, dest)
}

func (m *mockPageCache) SetJSON(ctx context.Context, path string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.views[path] = raw
	return nil
}

// mockEnqueuer records queued lesson copies
type mockEnqueuer struct {
	calls [][2]int
	err   error
}

func (m *mockEnqueuer) EnqueueCopyLessons(ctx context.Context, sourceChapterID, targetChapterID int) error {
	m.calls = append(m.calls, [2]int{sourceChapterID, targetChapterID})
	return m.err
}

// mockUserRepository is a mock implementation of UserRepository
type mockUserRepository struct {
	user        *models.User
	users       []models.User
	total       int
	stats       *models.UserStats
	learners    []models.Learner
	enrollments int
	teaching    int
	updatedRole principal.Role
	lastFilter  *models.UserFilter
	lastSort    models.Sort
	patched     []int
	lastPatch   *models.UpdateUserProfileRequest
	deleted     []int
	err         error
	updateErr   error
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.user == nil {
		return nil, apperr.NotFound("User not found")
	}
	return m.user, nil
}

func (m *mockUserRepository) List(ctx context.Context, filter *models.UserFilter, sort models.Sort, page models.PageRequest) ([]models.User, int, error) {
	m.lastFilter, m.lastSort = filter, sort
	return m.users, m.total, m.err
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, id int, patch *models.UpdateUserProfileRequest) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.patched = append(m.patched, id)
	m.lastPatch = patch
	if m.user != nil && patch.FirstName != nil {
		m.user.FirstName = *patch.FirstName
	}
	return nil
}

func (m *mockUserRepository) BulkUpdate(ctx context.Context, ids []int, patch *models.UpdateUserProfileRequest) (int, error) {
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	m.patched = append(m.patched, ids...)
	m.lastPatch = patch
	return len(ids), nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id int) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id int, role principal.Role) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updatedRole = role
	if m.user != nil {
		m.user.Role = role
	}
	return nil
}

func (m *mockUserRepository) Stats(ctx context.Context) (*models.UserStats, error) {
	return m.stats, m.err
}

func (m *mockUserRepository) CountEnrollments(ctx context.Context, userID int) (int, error) {
	return m.enrollments, m.err
}

func (m *mockUserRepository) CountCoursesTeaching(ctx context.Context, userID int) (int, error) {
	return m.teaching, m.err
}

func (m *mockUserRepository) LearnersOfCourse(ctx context.Context, courseID int, page models.PageRequest) ([]models.Learner, int, error) {
	return m.learners, len(m.learners), m.err
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
