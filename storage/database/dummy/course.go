package dummydb

import (
	"sort"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/course"
)

type courseRepository struct {
	courses     *courseTable
	lessons     *lessonTable
	enrollments *enrollmentTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{
		courses:     db.course,
		lessons:     db.lesson,
		enrollments: db.enrollment,
	}
}

func enrollmentKey(userID, courseID string) string {
	return userID + ":" + courseID
}

func (repo *courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	repo.courses.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) GetCourseByID(id string) (course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	if crs, ok := repo.courses.table[id]; ok {
		return *crs, nil
	}
	return course.Course{}, course.ErrCourseNotFound
}

func (repo *courseRepository) QueryAllCourses() ([]course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	courses := make([]course.Course, 0, len(repo.courses.table))
	for _, crs := range repo.courses.table {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].CreatedAt.After(courses[j].CreatedAt) })
	return courses, nil
}

func (repo *courseRepository) CreateLesson(les course.Lesson) (course.Lesson, error) {
	repo.lessons.Lock()
	defer repo.lessons.Unlock()

	if les.ID == "" {
		les.ID = uuid.New().String()
	}
	repo.lessons.table[les.ID] = &les
	return les, nil
}

func (repo *courseRepository) GetLessonByID(id string) (course.Lesson, error) {
	repo.lessons.RLock()
	defer repo.lessons.RUnlock()

	if les, ok := repo.lessons.table[id]; ok {
		return *les, nil
	}
	return course.Lesson{}, course.ErrLessonNotFound
}

func (repo *courseRepository) QueryCourseLessons(courseID string) ([]course.Lesson, error) {
	repo.lessons.RLock()
	defer repo.lessons.RUnlock()

	lessons := make([]course.Lesson, 0)
	for _, les := range repo.lessons.table {
		if les.CourseID == courseID {
			lessons = append(lessons, *les)
		}
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Position < lessons[j].Position })
	return lessons, nil
}

func (repo *courseRepository) GetEnrollment(userID, courseID string) (course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	if enr, ok := repo.enrollments.table[enrollmentKey(userID, courseID)]; ok {
		return *enr, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) UpsertEnrollment(enr course.Enrollment) (course.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	key := enrollmentKey(enr.UserID, enr.CourseID)
	if existing, ok := repo.enrollments.table[key]; ok {
		existing.Status = enr.Status
		existing.UpdatedAt = enr.UpdatedAt
		return *existing, nil
	}
	repo.enrollments.table[key] = &enr
	return enr, nil
}
