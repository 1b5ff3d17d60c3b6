package tests

import (
	"context"
	"io"
	"log"
	"os"
	"testing"
	"time"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/payment"
	"github.com/darasahq/darasa/core/user"
	auditsvc "github.com/darasahq/darasa/services/audit"
	emailsvc "github.com/darasahq/darasa/services/email"
	dummydb "github.com/darasahq/darasa/storage/database/dummy"
)

var (
	db      *dummydb.DB
	app     Server
	usrSvc  user.Service
	crsSvc  course.Service
	crsRepo course.Repository

	payClient *fakePaymentClient
	issuer    *access.TokenIssuer

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errAccessDenied = httpErr{Error: "access denied"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func TestMain(m *testing.M) {
	// responses must use the production shape, not debug dumps
	core.Conf.Debug = false
	core.Conf.TestMode = true

	// set up DB & repos
	db = dummydb.NewDB()
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo = dummydb.NewCourseRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc = user.NewService(usrRepo)
	crsSvc = course.NewService(crsRepo)

	auditSink := auditsvc.NewConsoleSink(log.New(io.Discard, "", 0))

	payClient = newFakePaymentClient()
	coordinator := payment.NewCoordinator(payment.CoordinatorDeps{
		Client:     payClient,
		Sink:       auditSink,
		Schedule:   payment.BackoffSchedule{0, 0, 0}, // no real sleeping in tests
		MailSvc:    mailSvc,
		Enroller:   crsSvc,
		AdminEmail: core.Conf.AdminEmail,
	})

	issuer = access.NewTokenIssuer(core.Conf)
	guard := access.NewGuard(core.Conf, usrSvc, crsSvc, crsSvc, auditSink, nil)

	// set up server
	app = NewServer(ServerDeps{
		DisableReqLogs: true,
		UserSvc:        usrSvc,
		CourseSvc:      crsSvc,
		TokenIssuer:    issuer,
		Guard:          guard,
		Limiter:        access.NewPermissiveLimiter(),
		Coordinator:    coordinator,
	})

	os.Exit(m.Run())
}

// fakePaymentClient fakes the remote payment provider. failAttempts is how
// many confirmation calls return a non-success status before succeeding.
type fakePaymentClient struct {
	intents      map[string]payment.Intent
	sessions     map[string]payment.Session
	failAttempts map[string]int
}

var _ payment.Client = (*fakePaymentClient)(nil)

func newFakePaymentClient() *fakePaymentClient {
	return &fakePaymentClient{
		intents:      make(map[string]payment.Intent),
		sessions:     make(map[string]payment.Session),
		failAttempts: make(map[string]int),
	}
}

func (c *fakePaymentClient) GetPaymentIntent(_ context.Context, id string) (payment.Intent, error) {
	if intent, ok := c.intents[id]; ok {
		return intent, nil
	}
	return payment.Intent{}, errRemoteNotFound
}

func (c *fakePaymentClient) ConfirmPaymentIntent(_ context.Context, id string) (payment.Intent, error) {
	intent, ok := c.intents[id]
	if !ok {
		return payment.Intent{}, errRemoteNotFound
	}
	if c.failAttempts[id] > 0 {
		c.failAttempts[id]--
		return intent, nil
	}
	intent.Status = payment.IntentStatusSucceeded
	c.intents[id] = intent
	return intent, nil
}

func (c *fakePaymentClient) GetCheckoutSession(_ context.Context, id string) (payment.Session, error) {
	if sess, ok := c.sessions[id]; ok {
		return sess, nil
	}
	return payment.Session{}, errRemoteNotFound
}

// Fixtures

func createUser(t *testing.T, name, uname, email, pwd string, roles []string) user.User {
	t.Helper()
	usr, err := usrSvc.Create(user.NewUser{
		Name:     name,
		Username: uname,
		Email:    email,
		Password: pwd,
		Roles:    roles,
	})
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func createCourseWithLesson(t *testing.T, title string) (course.Course, course.Lesson) {
	t.Helper()
	now := time.Now().UTC()
	crs, err := crsRepo.CreateCourse(course.Course{
		Title:      title,
		Slug:       core.CleanString(title, true),
		PriceCents: 4999,
		Currency:   "usd",
		Published:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("createCourseWithLesson(): %v", err)
	}
	les, err := crsRepo.CreateLesson(course.Lesson{
		CourseID:  crs.ID,
		Title:     title + " - Lesson 1",
		Position:  1,
		VideoKey:  crs.Slug + "/lesson-1.mp4",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("createCourseWithLesson(): %v", err)
	}
	return crs, les
}

func enroll(t *testing.T, usr user.User, crs course.Course) {
	t.Helper()
	if _, err := crsSvc.Enroll(usr.ID, crs.ID); err != nil {
		t.Fatalf("enroll(): %v", err)
	}
}
