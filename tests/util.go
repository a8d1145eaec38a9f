package testutil

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	ut "github.com/go-playground/universal-translator"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
	emailsvc "github.com/trezcool/khollendar/services/email"
	logsvc "github.com/trezcool/khollendar/services/logger"
	"github.com/trezcool/khollendar/storage/cache"
	inmemdb "github.com/trezcool/khollendar/storage/database/inmem"
)

// Deps wires the application on the in-memory database and cache.
type Deps struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	UserRepo   user.Repository
	KholleRepo kholle.Repository
	MailSvc    core.EmailService
	UserSvc    *user.Service
	KholleSvc  *kholle.Service
	Drafts     *cache.MemoryDraftStore
	Tokens     *cache.MemoryTokens
	Wizard     *kholle.Wizard
	Validate   *validator.Validate
	Translator ut.Translator
}

func NewMemoryDeps(t *testing.T) *Deps {
	t.Helper()
	conf := core.NewTestConfig()
	logger := logsvc.NewNopLogger()
	db := inmemdb.Open()

	d := &Deps{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		UserRepo:   inmemdb.NewUserRepository(db),
		KholleRepo: inmemdb.NewKholleRepository(db),
		MailSvc:    emailsvc.NewConsoleServiceMock(conf, logger),
		Drafts:     cache.NewMemoryDraftStore(conf.Cache.DraftTTL),
		Tokens:     cache.NewMemoryTokens(),
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
	}
	d.UserSvc = user.NewService(d.UserRepo, logger)
	d.KholleSvc = kholle.NewService(d.KholleRepo, d.UserSvc, d.MailSvc, conf, logger, kholle.WithRand(rand.New(rand.NewSource(1))))
	d.Wizard = kholle.NewWizard(d.KholleSvc, d.Drafts, d.Tokens, conf.Ranking)

	core.InitValidators(d.Validate, d.Translator)
	user.InitValidators(d.Validate, d.Translator)
	kholle.InitValidators(d.Validate, d.Translator)
	emailsvc.ResetSentMessages()
	return d
}

// FreezeTime sets core.NowFunc to now until the end of the test.
func FreezeTime(t *testing.T, now time.Time) {
	t.Helper()
	core.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { core.NowFunc = time.Now })
}

func CreateUser(t *testing.T, repo user.Repository, uname, code string, isAdmin bool) user.User {
	t.Helper()
	usr := user.User{
		Username:  uname,
		IsAdmin:   isAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if code != "" {
		if err := usr.SetCode(code); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateSession stores an open session, its slots in date order.
func CreateSession(t *testing.T, repo kholle.SessionRepository, subject string, slots ...time.Time) kholle.Session {
	t.Helper()
	session := kholle.Session{
		Subject:   subject,
		Status:    kholle.StatusRegistrationsOpen,
		CreatedAt: time.Now().UTC(),
	}
	for _, dt := range slots {
		session.Slots = append(session.Slots, kholle.Slot{DateTime: dt.UTC()})
	}
	session.Slots = session.SlotsByDate()
	for i := range session.Slots {
		session.Slots[i].Position = i
	}
	session, err := repo.CreateSession(context.Background(), session)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return session
}
