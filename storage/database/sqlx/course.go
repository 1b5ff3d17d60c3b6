package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/course"
)

type courseRow struct {
	ID         string      `db:"id"`
	Title      string      `db:"title"`
	Slug       null.String `db:"slug"`
	PriceCents int64       `db:"price_cents"`
	Currency   string      `db:"currency"`
	Published  null.Bool   `db:"published"`
	CreatedAt  null.Time   `db:"created_at"`
	UpdatedAt  null.Time   `db:"updated_at"`
}

type lessonRow struct {
	ID        string      `db:"id"`
	CourseID  string      `db:"course_id"`
	Title     string      `db:"title"`
	Position  int         `db:"position"`
	VideoKey  null.String `db:"video_key"`
	Duration  int64       `db:"duration"`
	CreatedAt null.Time   `db:"created_at"`
	UpdatedAt null.Time   `db:"updated_at"`
}

type enrollmentRow struct {
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	Status    string    `db:"status"`
	CreatedAt null.Time `db:"created_at"`
	UpdatedAt null.Time `db:"updated_at"`
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo courseRepository) unmarshalCourse(row courseRow) course.Course {
	return course.Course{
		ID:         row.ID,
		Title:      row.Title,
		Slug:       row.Slug.String,
		PriceCents: row.PriceCents,
		Currency:   row.Currency,
		Published:  row.Published.Bool,
		CreatedAt:  row.CreatedAt.Time,
		UpdatedAt:  row.UpdatedAt.Time,
	}
}

func (repo courseRepository) unmarshalLesson(row lessonRow) course.Lesson {
	return course.Lesson{
		ID:        row.ID,
		CourseID:  row.CourseID,
		Title:     row.Title,
		Position:  row.Position,
		VideoKey:  row.VideoKey.String,
		Duration:  time.Duration(row.Duration),
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo courseRepository) unmarshalEnrollment(row enrollmentRow) course.Enrollment {
	return course.Enrollment{
		UserID:    row.UserID,
		CourseID:  row.CourseID,
		Status:    row.Status,
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
}

func (repo courseRepository) CreateCourse(crs course.Course) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = uuid.New().String()
	}
	var row courseRow
	err := repo.db.QueryRowx(
		`INSERT INTO course (id, title, slug, price_cents, currency, published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING *`,
		crs.ID, crs.Title, null.NewString(crs.Slug, crs.Slug != ""), crs.PriceCents, crs.Currency,
		crs.Published, null.TimeFrom(crs.CreatedAt.UTC()), null.TimeFrom(crs.UpdatedAt.UTC()),
	).StructScan(&row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "creating course")
	}
	return repo.unmarshalCourse(row), nil
}

func (repo courseRepository) GetCourseByID(id string) (course.Course, error) {
	var row courseRow
	if err := repo.db.Get(&row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrCourseNotFound
		}
		return course.Course{}, errors.Wrap(err, "getting course by ID")
	}
	return repo.unmarshalCourse(row), nil
}

func (repo courseRepository) QueryAllCourses() ([]course.Course, error) {
	var rows []courseRow
	if err := repo.db.Select(&rows, `SELECT * FROM course ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying all courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.unmarshalCourse(row))
	}
	return courses, nil
}

func (repo courseRepository) CreateLesson(les course.Lesson) (course.Lesson, error) {
	if les.ID == "" {
		les.ID = uuid.New().String()
	}
	var row lessonRow
	err := repo.db.QueryRowx(
		`INSERT INTO lesson (id, course_id, title, position, video_key, duration, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING *`,
		les.ID, les.CourseID, les.Title, les.Position, null.NewString(les.VideoKey, les.VideoKey != ""),
		int64(les.Duration), null.TimeFrom(les.CreatedAt.UTC()), null.TimeFrom(les.UpdatedAt.UTC()),
	).StructScan(&row)
	if err != nil {
		return course.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return repo.unmarshalLesson(row), nil
}

func (repo courseRepository) GetLessonByID(id string) (course.Lesson, error) {
	var row lessonRow
	if err := repo.db.Get(&row, `SELECT * FROM lesson WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Lesson{}, course.ErrLessonNotFound
		}
		return course.Lesson{}, errors.Wrap(err, "getting lesson by ID")
	}
	return repo.unmarshalLesson(row), nil
}

func (repo courseRepository) QueryCourseLessons(courseID string) ([]course.Lesson, error) {
	var rows []lessonRow
	err := repo.db.Select(&rows, `SELECT * FROM lesson WHERE course_id = $1 ORDER BY position`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying course lessons")
	}
	lessons := make([]course.Lesson, 0, len(rows))
	for _, row := range rows {
		lessons = append(lessons, repo.unmarshalLesson(row))
	}
	return lessons, nil
}

func (repo courseRepository) GetEnrollment(userID, courseID string) (course.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.Get(&row, `SELECT * FROM enrollment WHERE user_id = $1 AND course_id = $2`, userID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return repo.unmarshalEnrollment(row), nil
}

func (repo courseRepository) UpsertEnrollment(enr course.Enrollment) (course.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.QueryRowx(
		`INSERT INTO enrollment (user_id, course_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id, course_id)
		 DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		 RETURNING *`,
		enr.UserID, enr.CourseID, enr.Status,
		null.TimeFrom(enr.CreatedAt.UTC()), null.TimeFrom(enr.UpdatedAt.UTC()),
	).StructScan(&row)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "upserting enrollment")
	}
	return repo.unmarshalEnrollment(row), nil
}
