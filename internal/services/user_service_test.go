package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

func TestProfileUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.store, env.store.Repositories, env.log)
	u := env.user(t, "priya")
	env.user(t, "meena")

	got, err := users.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", got.Email)

	taken := "Meena@Example.com"
	_, err = users.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: &taken})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	email, name, phone := " Priya@Shop.IN ", "Priya Nair", "98450 12345"
	updated, err := users.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: &email, FullName: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "priya@shop.in", updated.Email)
	assert.Equal(t, "Priya Nair", updated.DisplayName())

	same := "priya@shop.in"
	_, err = users.UpdateProfile(ctx, u.ID, ProfileUpdate{Email: &same})
	require.NoError(t, err)

	stored, err := env.store.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "98450 12345", stored.Phone)
	assert.Empty(t, stored.Address)

	_, err = users.Profile(ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAdminUserManagement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	users := NewUserService(env.store, env.store.Repositories, env.log)
	admin := Actor{UserID: env.user(t, "boss").ID, Role: models.RoleAdmin}

	created, err := users.CreateUser(ctx, CreateUserInput{Username: " clerk ", Email: "Clerk@Example.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, "clerk", created.Username)
	assert.Equal(t, "clerk@example.com", created.Email)
	assert.True(t, created.IsAdmin())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.Password), []byte("secret1")))

	_, err = users.CreateUser(ctx, CreateUserInput{Username: "clerk", Email: "x@example.com", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = users.CreateUser(ctx, CreateUserInput{Username: "other", Email: "clerk@example.com", Password: "secret1"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = users.CreateUser(ctx, CreateUserInput{Username: "other", Email: "o@example.com", Password: "secret1", Role: "owner"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	plain, err := users.CreateUser(ctx, CreateUserInput{Username: "walkin", Email: "walkin@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, plain.Role)

	role, password, bossName := models.RoleUser, "changed1", "boss"
	updated, err := users.UpdateUser(ctx, created.ID, UserUpdate{Role: &role, Password: &password})
	require.NoError(t, err)
	assert.False(t, updated.IsAdmin())
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("changed1")))
	_, err = users.UpdateUser(ctx, created.ID, UserUpdate{Username: &bossName})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = users.UpdateUser(ctx, 999, UserUpdate{})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	list, total, err := users.ListUsers(ctx, repositories.UserFilter{Role: models.RoleUser})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, list, 3)
	_, _, err = users.ListUsers(ctx, repositories.UserFilter{Role: "owner"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.True(t, apperr.Is(users.DeleteUser(ctx, admin, admin.UserID), apperr.KindValidation))
	require.NoError(t, users.DeleteUser(ctx, admin, plain.ID))
	_, err = env.store.Users.GetByID(ctx, plain.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.True(t, apperr.Is(users.DeleteUser(ctx, admin, plain.ID), apperr.KindNotFound))
}

func TestDeleteUserWithOrdersIsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	users := NewUserService(env.store, env.store.Repositories, env.log)
	admin := env.user(t, "boss")
	buyer := env.user(t, "kavya")
	p := env.product(t, "Sugar", "45", "5", 10)
	_, err := env.orders.PlaceOrder(ctx, buyer.ID, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	err = users.DeleteUser(ctx, Actor{UserID: admin.ID, Role: models.RoleAdmin}, buyer.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	_, err = env.store.Users.GetByID(ctx, buyer.ID)
	require.NoError(t, err)
}

func TestAdminNotifications(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	notifications := NewNotificationService(env.store.Notifications, env.store.Users, env.log)
	a := env.user(t, "arun")
	b := env.user(t, "bala")

	_, err := notifications.Send(ctx, SendNotificationInput{Title: " ", Message: "x", All: true})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = notifications.Send(ctx, SendNotificationInput{Title: "Hi", Message: "x"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = notifications.Send(ctx, SendNotificationInput{Title: "Hi", Message: "x", UserID: &a.ID, All: true})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	missing := uint(999)
	_, err = notifications.Send(ctx, SendNotificationInput{Title: "Hi", Message: "x", UserID: &missing})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	ids, err := notifications.Send(ctx, SendNotificationInput{Title: "Diwali sale", Message: "Sweets at 20% off", All: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID}, ids)
	ids, err = notifications.Send(ctx, SendNotificationInput{Title: "Your refund", Message: "Processed", UserID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{b.ID}, ids)

	forB, err := notifications.ListNotifications(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, forB, 2)

	all, total, err := notifications.ListAll(ctx, repositories.Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 2)

	forA, err := notifications.ListNotifications(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, forA, 1)
	require.NoError(t, notifications.SetRead(ctx, forA[0].ID, true))
	n, err := env.store.Notifications.GetByID(ctx, forA[0].ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	assert.True(t, apperr.Is(notifications.SetRead(ctx, 999, true), apperr.KindNotFound))

	require.NoError(t, notifications.Delete(ctx, forA[0].ID))
	forA, err = notifications.ListNotifications(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, forA)
}
