package testutil

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
	"github.com/trezcool/trainings/core/session"
	"github.com/trezcool/trainings/fs"
	emailsvc "github.com/trezcool/trainings/services/email"
	logsvc "github.com/trezcool/trainings/services/logger"
	inmemdb "github.com/trezcool/trainings/storage/database/inmem"
)

// Env bundles what a test needs to drive the session service against the in-memory store.
type Env struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Repo       session.Repository
	Reporter   session.Reporter
	MailSvc    *emailsvc.ConsoleServiceMock
	Validate   *validator.Validate
	Translator ut.Translator
	Svc        *session.Service
}

func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.FrontendBaseURL = "http://trainings.test"
	conf.Server.PublicRateLimit = 0 // unlimited
	conf.Signature.Periods = []string{"MORNING", "AFTERNOON"}
	conf.Signature.MaxValueLength = 255
	conf.Signature.MaxDays = 31
	conf.TimeZone = time.UTC
	return conf
}

func NewLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
}

func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := NewConfig()
	logger := NewLogger(conf)
	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf, logger)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	db := inmemdb.Open()
	env := &Env{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Repo:       inmemdb.NewRepository(db),
		Reporter:   inmemdb.NewReporter(db),
		MailSvc:    emailsvc.NewConsoleServiceMock(conf, logger),
		Validate:   validate,
		Translator: translator,
	}
	env.Svc = session.NewService(env.Repo, env.Reporter, env.MailSvc, validate, logger, conf)
	return env
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateSession(t *testing.T, svc *session.Service, mode session.SignatureMode, start, end time.Time) session.Session {
	t.Helper()
	s, err := svc.Create(context.Background(), session.NewSession{
		TrainingID:    "training-1",
		TrainerID:     "trainer-1",
		StartDate:     start,
		EndDate:       end,
		Location:      "Room 101",
		SignatureMode: mode,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return s
}

// ScheduledSession creates a NOT_STARTED session and returns it along with its slots.
func ScheduledSession(t *testing.T, svc *session.Service, mode session.SignatureMode, start, end time.Time) (session.Session, []session.Slot) {
	t.Helper()
	ctx := context.Background()
	s := CreateSession(t, svc, mode, start, end)
	if _, err := svc.Schedule(ctx, s.ID); err != nil {
		t.Fatalf("ScheduledSession() failed: %v", err)
	}
	slots, err := svc.Slots(ctx, s.ID)
	if err != nil {
		t.Fatalf("ScheduledSession() failed: %v", err)
	}
	s, err = svc.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("ScheduledSession() failed: %v", err)
	}
	return s, slots
}

// ActiveSession creates an ACTIVE session and returns it along with its slots.
func ActiveSession(t *testing.T, svc *session.Service, mode session.SignatureMode, start, end time.Time) (session.Session, []session.Slot) {
	t.Helper()
	s, slots := ScheduledSession(t, svc, mode, start, end)
	if _, err := svc.Open(context.Background(), s.ID); err != nil {
		t.Fatalf("ActiveSession() failed: %v", err)
	}
	s, err := svc.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("ActiveSession() failed: %v", err)
	}
	return s, slots
}

func Enroll(t *testing.T, svc *session.Service, sessionID, employeeID, email string) session.Enrollment {
	t.Helper()
	enr, err := svc.Enroll(context.Background(), sessionID, session.NewEnrollment{
		EmployeeID:    employeeID,
		EmployeeName:  "Employee " + employeeID,
		EmployeeEmail: email,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func OpenSlot(t *testing.T, svc *session.Service, slotID string) session.Slot {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.OpenSlot(ctx, slotID); err != nil {
		t.Fatalf("OpenSlot() failed: %v", err)
	}
	s, err := svc.SlotSession(ctx, slotID)
	if err != nil {
		t.Fatalf("OpenSlot() failed: %v", err)
	}
	slots, err := svc.Slots(ctx, s.ID)
	if err != nil {
		t.Fatalf("OpenSlot() failed: %v", err)
	}
	for _, sl := range slots {
		if sl.ID == slotID {
			return sl
		}
	}
	t.Fatalf("OpenSlot(): slot %s not found", slotID)
	return session.Slot{}
}
