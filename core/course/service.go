package course

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrCourseNotFound     = errors.New("course not found")
	ErrLessonNotFound     = errors.New("lesson not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

type (
	Repository interface {
		CreateCourse(crs Course) (Course, error)
		GetCourseByID(id string) (Course, error)
		QueryAllCourses() ([]Course, error)
		CreateLesson(les Lesson) (Lesson, error)
		GetLessonByID(id string) (Lesson, error)
		QueryCourseLessons(courseID string) ([]Lesson, error)
		GetEnrollment(userID, courseID string) (Enrollment, error)
		UpsertEnrollment(enr Enrollment) (Enrollment, error)
	}

	Service interface {
		GetCourse(id string) (Course, error)
		QueryAll() ([]Course, error)
		GetLesson(id string) (Lesson, error)
		CourseLessons(courseID string) ([]Lesson, error)
		// IsEnrolled reports whether userID holds an active enrollment in courseID.
		IsEnrolled(userID, courseID string) (bool, error)
		Enroll(userID, courseID string) (Enrollment, error)
		Revoke(userID, courseID string) (Enrollment, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) *service {
	return &service{repo: repo}
}

func (svc *service) GetCourse(id string) (Course, error) {
	return svc.repo.GetCourseByID(id)
}

func (svc *service) QueryAll() ([]Course, error) {
	return svc.repo.QueryAllCourses()
}

func (svc *service) GetLesson(id string) (Lesson, error) {
	return svc.repo.GetLessonByID(id)
}

func (svc *service) CourseLessons(courseID string) ([]Lesson, error) {
	return svc.repo.QueryCourseLessons(courseID)
}

func (svc *service) IsEnrolled(userID, courseID string) (bool, error) {
	enr, err := svc.repo.GetEnrollment(userID, courseID)
	if err != nil {
		if errors.Cause(err) == ErrEnrollmentNotFound {
			return false, nil
		}
		return false, errors.Wrap(err, "getting enrollment")
	}
	return enr.IsActive(), nil
}

func (svc *service) Enroll(userID, courseID string) (Enrollment, error) {
	if _, err := svc.repo.GetCourseByID(courseID); err != nil {
		return Enrollment{}, err
	}
	now := time.Now().UTC()
	return svc.repo.UpsertEnrollment(Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Status:    EnrollmentActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Revoke(userID, courseID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	enr.Status = EnrollmentRevoked
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpsertEnrollment(enr)
}
