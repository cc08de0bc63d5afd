package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/mailer"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendOrderConfirmation(ctx context.Context, c mailer.OrderConfirmation) error {
	return m.Called(ctx, c).Error(0)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db        *gorm.DB
	store     *repositories.Store
	mailer    *mockMailer
	publisher *recordingPublisher
	orders    *OrderService
	reviews   *ReviewService
	admin     *AdminService
	log       *logrus.Logger
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var fixedNow = time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Open(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      "file:" + name + "?mode=memory&cache=shared",
		LogLevel: "silent",
	}, nil)
	require.NoError(t, err)
	return newEnvWithDB(t, db)
}

// newEnvWithDB migrates db and builds the services over it.
func newEnvWithDB(t *testing.T, db *gorm.DB) *testEnv {
	t.Helper()
	require.NoError(t, database.MigrateUp(db))
	t.Cleanup(func() { _ = database.Close(db) })

	env := &testEnv{
		db:        db,
		store:     repositories.NewStore(db),
		mailer:    new(mockMailer),
		publisher: &recordingPublisher{},
		log:       quietLogger(),
	}
	env.orders = NewOrderService(env.store, env.store.Repositories, env.mailer, env.publisher, env.log)
	env.orders.now = func() time.Time { return fixedNow }
	env.reviews = NewReviewService(env.store, env.store.Repositories, env.log)
	env.admin = NewAdminService(env.store, env.store.Repositories, env.publisher, "Ram Stores", env.log)
	env.admin.now = func() time.Time { return fixedNow }
	return env
}

func (e *testEnv) user(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x", FullName: strings.ToUpper(username[:1]) + username[1:]}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) product(t *testing.T, name, price, rate string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     name,
		SKU:      strings.ToUpper(strings.ReplaceAll(name, " ", "-")),
		Price:    decimal.RequireFromString(price),
		TaxRate:  decimal.RequireFromString(rate),
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, e.store.Products.Create(context.Background(), p))
	return p
}

func (e *testEnv) stock(t *testing.T, id uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, e.db.Unscoped().First(&p, id).Error)
	return p.Stock
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func (e *testEnv) expectMail() {
	e.mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything).Return(nil)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
