package dummydb

import (
	"sync"

	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

// DB is an in-memory store for tests and local hacking; not safe across
// processes, safe across goroutines.
type DB struct {
	user       *userTable
	course     *courseTable
	lesson     *lessonTable
	enrollment *enrollmentTable
}

func NewDB() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		course:     &courseTable{table: make(map[string]*course.Course)},
		lesson:     &lessonTable{table: make(map[string]*course.Lesson)},
		enrollment: &enrollmentTable{table: make(map[string]*course.Enrollment)},
	}
}

// Reset clears all tables.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.course.Lock()
	db.course.table = make(map[string]*course.Course)
	db.course.Unlock()

	db.lesson.Lock()
	db.lesson.table = make(map[string]*course.Lesson)
	db.lesson.Unlock()

	db.enrollment.Lock()
	db.enrollment.table = make(map[string]*course.Enrollment)
	db.enrollment.Unlock()
}

type userTable struct {
	sync.RWMutex
	table map[string]*user.User
}

type courseTable struct {
	sync.RWMutex
	table map[string]*course.Course
}

type lessonTable struct {
	sync.RWMutex
	table map[string]*course.Lesson
}

type enrollmentTable struct {
	sync.RWMutex
	table map[string]*course.Enrollment
}
