package services

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/models"
)

func TestCartPricesWithCatalogValues(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	carts := NewCartService(env.store.Cart, env.store.Products)
	u := env.user(t, "leela")
	rice := env.product(t, "Rice", "100", "18", 10)
	tea := env.product(t, "Tea", "40", "5", 1)

	_, err := carts.AddItem(ctx, u.ID, rice.ID, 0)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = carts.AddItem(ctx, u.ID, 999, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = carts.AddItem(ctx, u.ID, rice.ID, 1)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, u.ID, rice.ID, 2)
	require.NoError(t, err)
	cart, err := carts.AddItem(ctx, u.ID, tea.ID, 2)
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].LineTotal.Equal(dec("354")))
	assert.False(t, cart.Items[1].InStock)
	assert.Equal(t, 5, cart.ItemCount)
	assert.True(t, cart.Total.Equal(dec("438")))

	tea.IsActive = false
	require.NoError(t, env.store.Products.Update(ctx, tea))
	cart, err = carts.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.True(t, cart.Total.Equal(dec("354")))

	cart, err = carts.UpdateItem(ctx, u.ID, rice.ID, 1)
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(dec("118")))

	_, err = carts.UpdateItem(ctx, u.ID, 777, 1)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	lines, err := carts.Lines(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []OrderLine{{ProductID: rice.ID, Quantity: 1}}, lines)

	cart, err = carts.RemoveItem(ctx, u.ID, tea.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	require.NoError(t, carts.Clear(ctx, u.ID))
	cart, err = carts.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestCartCheckoutSkipsUnavailableProducts(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	carts := NewCartService(env.store.Cart, env.store.Products)
	u := env.user(t, "gopal")
	dal := env.product(t, "Toor Dal", "120", "5", 10)
	ghee := env.product(t, "Ghee", "550", "12", 10)
	salt := env.product(t, "Salt", "20", "0", 10)

	for _, id := range []uint{dal.ID, ghee.ID, salt.ID} {
		_, err := carts.AddItem(ctx, u.ID, id, 2)
		require.NoError(t, err)
	}
	ghee.IsActive = false
	require.NoError(t, env.store.Products.Update(ctx, ghee))
	require.NoError(t, env.store.Products.Delete(ctx, salt.ID))

	cart, err := carts.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	lines, err := carts.Lines(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []OrderLine{{ProductID: dal.ID, Quantity: 2}}, lines)

	placed, err := env.orders.PlaceOrder(ctx, u.ID, lines)
	require.NoError(t, err)
	assert.True(t, placed.Order.TotalAmount.Equal(cart.Total))
	assert.Equal(t, 8, env.stock(t, dal.ID))
	assert.Equal(t, 10, env.stock(t, ghee.ID))
}

func TestWishlist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	wishlist := NewWishlistService(env.store.Wishlist, env.store.Products)
	u := env.user(t, "mohan")
	other := env.user(t, "sana")
	p := env.product(t, "Pickle", "150", "12", 3)

	item, err := wishlist.Add(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pickle", item.Product.Name)

	_, err = wishlist.Add(ctx, u.ID, p.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = wishlist.Add(ctx, u.ID, 31337)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	items, err := wishlist.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, p.ID, items[0].ProductID)

	assert.True(t, apperr.Is(wishlist.Remove(ctx, other.ID, item.ID), apperr.KindForbidden))
	require.NoError(t, wishlist.Remove(ctx, u.ID, item.ID))
	assert.True(t, apperr.Is(wishlist.Remove(ctx, u.ID, item.ID), apperr.KindNotFound))
}

func TestNotificationsFromOrderEvents(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	notifications := NewNotificationService(env.store.Notifications, env.store.Users, env.log)
	u := env.user(t, "aditi")
	other := env.user(t, "bala")
	p := env.product(t, "Ragi", "90", "0", 5)

	placed, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	_, err = env.orders.UpdateOrder(ctx, placed.Order.ID, OrderUpdate{Status: strPtr("Confirmed")})
	require.NoError(t, err)

	for _, e := range env.publisher.events {
		require.NoError(t, notifications.HandleOrderEvent(ctx, e))
	}
	require.NoError(t, notifications.HandleOrderEvent(ctx, events.OrderEvent{Type: "order.archived", UserID: u.ID}))

	list, err := notifications.ListNotifications(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	titles := []string{list[0].Title, list[1].Title}
	assert.ElementsMatch(t, []string{"Order placed", "Order Confirmed"}, titles)
	for _, n := range list {
		assert.Contains(t, n.Message, placed.Order.OrderNumber)
		assert.False(t, n.IsRead)
	}

	assert.True(t, apperr.Is(notifications.MarkRead(ctx, other.ID, list[0].ID), apperr.KindForbidden))
	require.NoError(t, notifications.MarkRead(ctx, u.ID, list[0].ID))
	require.NoError(t, notifications.MarkRead(ctx, u.ID, list[0].ID))

	var n models.Notification
	require.NoError(t, env.db.First(&n, list[0].ID).Error)
	assert.True(t, n.IsRead)
}

func TestOrderPaymentQR(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	payments := NewPaymentService(env.store.Orders, config.PaymentConfig{UPIID: "ramstores@upi", PayeeName: "Ram Stores"})
	u := env.user(t, "geeta")
	p := env.product(t, "Rice", "100", "18", 5)
	placed, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 3}})
	require.NoError(t, err)

	qr, err := payments.OrderQR(ctx, Actor{UserID: u.ID, Role: models.RoleUser}, placed.Order.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(qr.QRCode, "data:image/png;base64,"))
	assert.Equal(t, placed.Order.OrderNumber, qr.OrderNumber)
	assert.True(t, qr.TotalAmount.Equal(dec("354")))

	link, err := url.Parse(qr.PaymentURL)
	require.NoError(t, err)
	assert.Equal(t, "upi", link.Scheme)
	q := link.Query()
	assert.Equal(t, "ramstores@upi", q.Get("pa"))
	assert.Equal(t, "Ram Stores", q.Get("pn"))
	assert.Equal(t, "354.00", q.Get("am"))
	assert.Equal(t, "INR", q.Get("cu"))
	assert.Equal(t, "Order "+placed.Order.OrderNumber, q.Get("tn"))

	_, err = payments.OrderQR(ctx, Actor{UserID: u.ID + 1, Role: models.RoleUser}, placed.Order.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}
