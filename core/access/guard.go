package access

import (
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/audit"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type (
	// UserGetter resolves a capability token's subject.
	UserGetter interface {
		GetByID(id string) (user.User, error)
	}

	// LessonGetter resolves the requested lesson and its parent course.
	LessonGetter interface {
		GetLesson(id string) (course.Lesson, error)
	}

	// EnrollmentChecker reports active enrollment; read-only, never mutates.
	EnrollmentChecker interface {
		IsEnrolled(userID, courseID string) (bool, error)
	}

	// Guard decides, per request, whether the caller may receive a lesson's
	// video asset. Stateless: each call is a decision over the token, the
	// lesson lookup and the enrollment lookup.
	Guard struct {
		secretKey   []byte
		window      time.Duration
		users       UserGetter
		lessons     LessonGetter
		enrollments EnrollmentChecker
		sink        audit.Sink
		logger      core.Logger
	}
)

func NewGuard(
	conf *core.Config,
	users UserGetter,
	lessons LessonGetter,
	enrollments EnrollmentChecker,
	sink audit.Sink,
	logger core.Logger,
) *Guard {
	return &Guard{
		secretKey:   conf.SecretKey,
		window:      conf.Server.VideoTokenExpirationDelta,
		users:       users,
		lessons:     lessons,
		enrollments: enrollments,
		sink:        sink,
		logger:      logger,
	}
}

// ValidateAccess validates token against lessonID and returns the resolved
// user and lesson. All checks must pass; there is no partial grant.
// Failures map onto the core error taxonomy:
//
//	core.ErrUnauthorized        - missing/invalid/expired token, unknown or inactive subject
//	core.ErrForbidden           - token bound to another lesson, not enrolled
//	core.ErrNotFound            - lesson does not exist
//	core.ErrServerMisconfigured - signing key not set
func (g *Guard) ValidateAccess(token, lessonID string) (user.User, course.Lesson, error) {
	if token == "" {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrUnauthorized, errTokenMissing.Error())
	}
	if len(g.secretKey) == 0 {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrServerMisconfigured, "video token signing key not set")
	}

	claims, err := parseToken(token, g.secretKey)
	if err != nil {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrUnauthorized, errTokenInvalid.Error())
	}

	if claims.LessonID != lessonID {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrForbidden, "token not valid for this lesson")
	}

	// coarser freshness check layered on top of the signature-level expiry
	issuedAt := time.Unix(claims.IssuedAt, 0)
	if nowFunc().Sub(issuedAt) > g.window {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrUnauthorized, errTokenStale.Error())
	}

	usr, err := g.users.GetByID(claims.Subject)
	if err != nil {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrUnauthorized, "unknown token subject")
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrUnauthorized, "account deactivated")
	}

	les, err := g.lessons.GetLesson(lessonID)
	if err != nil {
		return user.User{}, course.Lesson{}, errors.Wrap(core.ErrNotFound, course.ErrLessonNotFound.Error())
	}

	if !usr.IsAdmin() {
		enrolled, err := g.enrollments.IsEnrolled(usr.ID, les.CourseID)
		if err != nil {
			return user.User{}, course.Lesson{}, errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return user.User{}, course.Lesson{}, errors.Wrap(core.ErrForbidden, "not enrolled in this course")
		}
	}

	g.logAccess(usr, les)
	return usr, les, nil
}

// logAccess records who accessed what lesson and when. Fire-and-forget:
// a sink failure must never block or fail the response.
func (g *Guard) logAccess(usr user.User, les course.Lesson) {
	entry := audit.NewEntry(audit.EventVideoAccess, map[string]string{
		"user_id":   usr.ID,
		"username":  usr.Username,
		"lesson_id": les.ID,
		"course_id": les.CourseID,
	})
	go func() {
		if err := g.sink.Append(entry); err != nil && g.logger != nil {
			g.logger.Warn("appending video access audit entry", err)
		}
	}()
}
