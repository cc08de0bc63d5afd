package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/apperr"
	"storefront/internal/events"
	"storefront/internal/mailer"
	"storefront/internal/models"
)

func TestPlaceOrderPricesAndReservesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "asha")
	rice := env.product(t, "Basmati Rice", "100", "18", 10)
	env.mailer.On("SendOrderConfirmation", mock.Anything, mock.MatchedBy(func(c mailer.OrderConfirmation) bool {
		return c.To == "asha@example.com" && c.Name == "Asha" && c.Total.Equal(dec("354"))
	})).Return(nil).Once()

	placed, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: rice.ID, Quantity: 3}})
	require.NoError(t, err)

	o := placed.Order
	assert.Regexp(t, regexp.MustCompile(`^ORD20240309140506[A-Z0-9]{6}$`), o.OrderNumber)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, models.PaymentStatusUnpaid, o.PaymentStatus)
	assert.True(t, o.TotalAmount.Equal(dec("354")), "total %s", o.TotalAmount)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Basmati Rice", o.Items[0].ProductName)
	assert.True(t, o.Items[0].UnitPrice.Equal(dec("100")))
	assert.True(t, o.Items[0].TaxAmount.Equal(dec("18")))
	assert.True(t, o.Items[0].TotalPrice.Equal(dec("354")))
	assert.True(t, placed.NotificationSent)
	assert.Equal(t, "Order confirmation email sent", placed.NotificationDetail)
	assert.Equal(t, 7, env.stock(t, rice.ID))

	stored, err := env.store.Orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(dec("354")))
	assert.Equal(t, []string{events.TypeOrderCreated}, env.publisher.types())
	env.mailer.AssertExpectations(t)
}

func TestPlaceOrderTotalIsSumOfLines(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	u := env.user(t, "ravi")
	a := env.product(t, "Cashews", "19.99", "5", 20)
	b := env.product(t, "Tea", "40", "5", 20)

	placed, err := env.orders.PlaceOrder(context.Background(), u.ID, []OrderLine{
		{ProductID: a.ID, Quantity: 7},
		{ProductID: b.ID, Quantity: 2},
	})
	require.NoError(t, err)
	assert.True(t, placed.Order.Items[0].TotalPrice.Equal(dec("146.93")))
	assert.True(t, placed.Order.Items[1].TotalPrice.Equal(dec("84")))
	assert.True(t, placed.Order.TotalAmount.Equal(dec("230.93")))
	for _, item := range placed.Order.Items {
		net := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		assert.True(t, item.TotalPrice.GreaterThanOrEqual(net))
	}
}

func TestPlaceOrderIsAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "meera")
	plenty := env.product(t, "Atta", "50", "5", 10)
	scarce := env.product(t, "Paneer", "90", "5", 1)

	_, err := env.orders.PlaceOrder(context.Background(), u.ID, []OrderLine{
		{ProductID: plenty.ID, Quantity: 4},
		{ProductID: scarce.ID, Quantity: 2},
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.Equal(t, "insufficient stock for Paneer (requested: 2, available: 1)", err.Error())

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.StockShortage{ProductID: scarce.ID, ProductName: "Paneer", Requested: 2, Available: 1}, appErr.Detail)

	assert.Equal(t, 10, env.stock(t, plenty.ID))
	assert.Equal(t, 1, env.stock(t, scarce.ID))
	assert.Zero(t, env.count(t, &models.Order{}))
	assert.Zero(t, env.count(t, &models.OrderItem{}))
	assert.Empty(t, env.publisher.types())
	env.mailer.AssertNotCalled(t, "SendOrderConfirmation", mock.Anything, mock.Anything)
}

func TestPlaceOrderValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "kiran")
	p := env.product(t, "Milk", "54", "0", 5)

	cases := []struct {
		name  string
		lines []OrderLine
		msg   string
	}{
		{"empty", nil, "order must contain at least one item"},
		{"zero product", []OrderLine{{ProductID: 0, Quantity: 1}}, "items[0]: product_id must be a positive integer"},
		{"zero quantity", []OrderLine{{ProductID: p.ID, Quantity: 1}, {ProductID: p.ID, Quantity: 0}}, "items[1]: quantity must be at least 1"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := env.orders.PlaceOrder(ctx, u.ID, c.lines)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
			assert.EqualError(t, err, c.msg)
		})
	}
	assert.Zero(t, env.count(t, &models.Order{}))
}

func TestPlaceOrderNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "dev")
	p := env.product(t, "Coffee", "45", "28", 5)

	_, err := env.orders.PlaceOrder(ctx, 999, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: 404, Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	assert.EqualError(t, err, "product with ID 404 not found")

	p.IsActive = false
	require.NoError(t, env.store.Products.Update(ctx, p))
	_, err = env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	assert.Equal(t, 5, env.stock(t, p.ID))
	assert.Zero(t, env.count(t, &models.Order{}))
}

func TestPlaceOrderRepeatedProductSharesStock(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "anu")
	p := env.product(t, "Rice", "10", "0", 5)

	_, err := env.orders.PlaceOrder(context.Background(), u.ID, []OrderLine{
		{ProductID: p.ID, Quantity: 3},
		{ProductID: p.ID, Quantity: 3},
	})
	assert.True(t, apperr.Is(err, apperr.KindInsufficientStock))
	assert.EqualError(t, err, "insufficient stock for Rice (requested: 3, available: 2)")
	assert.Equal(t, 5, env.stock(t, p.ID))
}

func TestConcurrentOrdersNeverOversell(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	p := env.product(t, "Cashews", "310", "12", 5)
	buyers := []*models.User{env.user(t, "buyer1"), env.user(t, "buyer2")}

	var (
		wg      sync.WaitGroup
		results = make([]error, len(buyers))
	)
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, results[i] = env.orders.PlaceOrder(context.Background(), userID, []OrderLine{{ProductID: p.ID, Quantity: 3}})
		}(i, b.ID)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case apperr.Is(err, apperr.KindInsufficientStock):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 2, env.stock(t, p.ID))
	assert.EqualValues(t, 1, env.count(t, &models.Order{}))
}

func TestPlaceOrderMailFailureIsSoft(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker down")
	env.mailer.On("SendOrderConfirmation", mock.Anything, mock.Anything).Return(errors.New("smtp: connection refused")).Once()
	u := env.user(t, "sita")
	p := env.product(t, "Tea", "265", "5", 3)

	placed, err := env.orders.PlaceOrder(context.Background(), u.ID, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.False(t, placed.NotificationSent)
	assert.Equal(t, "smtp: connection refused", placed.NotificationDetail)
	assert.EqualValues(t, 1, env.count(t, &models.Order{}))

	env.orders.mailer = nil
	placed, err = env.orders.PlaceOrder(context.Background(), u.ID, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	assert.False(t, placed.NotificationSent)
	assert.Equal(t, mailer.ErrNotConfigured.Error(), placed.NotificationDetail)
}

func TestOrderItemsKeepPriceSnapshot(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	u := env.user(t, "lata")
	p := env.product(t, "Butter", "50", "12", 10)

	placed, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)

	p.Price = dec("75")
	p.Name = "Butter 500g"
	require.NoError(t, env.store.Products.Update(ctx, p))
	require.NoError(t, env.store.Products.Delete(ctx, p.ID))

	stored, err := env.store.Orders.GetByID(ctx, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Butter", stored.Items[0].ProductName)
	assert.True(t, stored.Items[0].UnitPrice.Equal(dec("50")))
	assert.True(t, stored.Items[0].TotalPrice.Equal(dec("112")))
	assert.True(t, stored.TotalAmount.Equal(dec("112")))
}

func strPtr(s string) *string { return &s }

func TestUpdateOrderStateMachine(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	u := env.user(t, "gopal")
	p := env.product(t, "Dal", "120", "5", 10)
	placed, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 4}})
	require.NoError(t, err)
	id := placed.Order.ID

	_, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{Status: strPtr("Lost")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{Status: strPtr("Delivered")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.EqualError(t, err, "cannot change order status from Pending to Delivered")

	o, err := env.orders.UpdateOrder(ctx, id, OrderUpdate{Status: strPtr("Pending")})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, o.Status)

	for _, next := range []string{"Confirmed", "Shipped", "Delivered"} {
		o, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{Status: strPtr(next)})
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatus(next), o.Status)
	}

	_, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{Status: strPtr("Cancelled")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 6, env.stock(t, p.ID))

	assert.Equal(t, []string{
		events.TypeOrderCreated,
		events.TypeOrderStatusChanged,
		events.TypeOrderStatusChanged,
		events.TypeOrderStatusChanged,
	}, env.publisher.types())
}

func TestUpdatePaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	u := env.user(t, "uma")
	p := env.product(t, "Oil", "180", "5", 10)
	placed, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)
	id := placed.Order.ID

	_, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{PaymentStatus: strPtr("Refunded")})
	assert.EqualError(t, err, "cannot change payment status from Unpaid to Refunded")

	_, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{PaymentStatus: strPtr("paid")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	o, err := env.orders.UpdateOrder(ctx, id, OrderUpdate{Status: strPtr("Confirmed"), PaymentStatus: strPtr("Paid")})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, o.Status)
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)

	o, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{PaymentStatus: strPtr("Paid")})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, o.PaymentStatus)

	// an illegal payment change rolls back the status change made in the same request
	_, err = env.orders.UpdateOrder(ctx, id, OrderUpdate{Status: strPtr("Shipped"), PaymentStatus: strPtr("Unpaid")})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	stored, err := env.store.Orders.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, stored.Status)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, []string{events.TypeOrderCreated, events.TypeOrderStatusChanged}, env.publisher.types())
}

func TestCancelRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	owner := env.user(t, "neha")
	other := env.user(t, "arjun")
	a := env.product(t, "Sugar", "45", "5", 10)
	b := env.product(t, "Salt", "20", "0", 10)
	placed, err := env.orders.PlaceOrder(ctx, owner.ID, []OrderLine{{ProductID: a.ID, Quantity: 3}, {ProductID: b.ID, Quantity: 5}})
	require.NoError(t, err)
	id := placed.Order.ID

	_, err = env.orders.CancelOrder(ctx, Actor{UserID: other.ID, Role: models.RoleUser}, id)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	o, err := env.orders.CancelOrder(ctx, Actor{UserID: owner.ID, Role: models.RoleUser}, id)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, o.Status)
	assert.Equal(t, 10, env.stock(t, a.ID))
	assert.Equal(t, 10, env.stock(t, b.ID))

	// cancelling again is a no-op and does not restock twice
	_, err = env.orders.CancelOrder(ctx, Actor{UserID: owner.ID, Role: models.RoleUser}, id)
	require.NoError(t, err)
	assert.Equal(t, 10, env.stock(t, a.ID))
}

func TestListUserOrders(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	u := env.user(t, "isha")
	other := env.user(t, "om")
	a := env.product(t, "Ghee", "550", "12", 10)
	b := env.product(t, "Jaggery", "80", "0", 10)

	first, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: a.ID, Quantity: 1}})
	require.NoError(t, err)
	second, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: b.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = env.orders.PlaceOrder(ctx, other.ID, []OrderLine{{ProductID: a.ID, Quantity: 1}})
	require.NoError(t, err)

	for _, s := range []string{"Confirmed", "Shipped", "Delivered"} {
		_, err = env.orders.UpdateOrder(ctx, first.Order.ID, OrderUpdate{Status: strPtr(s)})
		require.NoError(t, err)
	}
	_, err = env.reviews.SubmitReview(ctx, u.ID, a.ID, ReviewInput{Rating: 5})
	require.NoError(t, err)

	list, err := env.orders.ListUserOrders(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list.Orders, 2)
	assert.EqualValues(t, 1, list.PendingCount)
	assert.Equal(t, second.Order.ID, list.Orders[0].ID)
	assert.False(t, list.Orders[0].Items[0].HasReviewed)
	assert.True(t, list.Orders[1].Items[0].HasReviewed)
}

func TestGetOrderAccess(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	owner := env.user(t, "ria")
	p := env.product(t, "Bread", "40", "0", 10)
	placed, err := env.orders.PlaceOrder(ctx, owner.ID, []OrderLine{{ProductID: p.ID, Quantity: 1}})
	require.NoError(t, err)

	_, err = env.orders.GetOrder(ctx, Actor{UserID: owner.ID + 100, Role: models.RoleUser}, placed.Order.ID)
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	o, err := env.orders.GetOrder(ctx, Actor{UserID: 999, Role: models.RoleAdmin}, placed.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, placed.Order.OrderNumber, o.OrderNumber)
	require.NotNil(t, o.User)
	assert.Equal(t, "ria", o.User.Username)

	_, err = env.orders.GetOrder(ctx, Actor{UserID: owner.ID}, 12345)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteOrder(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	u := env.user(t, "hari")
	p := env.product(t, "Curd", "35", "0", 10)
	placed, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 4}})
	require.NoError(t, err)

	require.NoError(t, env.orders.DeleteOrder(ctx, placed.Order.ID))
	assert.Equal(t, 10, env.stock(t, p.ID))
	assert.Zero(t, env.count(t, &models.Order{}))
	assert.Zero(t, env.count(t, &models.OrderItem{}))

	assert.True(t, apperr.Is(env.orders.DeleteOrder(ctx, placed.Order.ID), apperr.KindNotFound))
}

func TestNewOrderNumberFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n, err := newOrderNumber(fixedNow, rand.Reader)
		require.NoError(t, err)
		assert.Regexp(t, `^ORD20240309140506[A-Z0-9]{6}$`, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestPlaceOrderRepeatedOrderNumberIsConflict(t *testing.T) {
	env := newTestEnv(t)
	env.expectMail()
	ctx := context.Background()
	u := env.user(t, "kiran")
	p := env.product(t, "Jaggery", "60", "5", 10)

	// zero bytes always draw the first letter of the alphabet
	env.orders.random = bytes.NewReader(make([]byte, 1024))
	first, err := env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, "ORD20240309140506AAAAAA", first.Order.OrderNumber)

	_, err = env.orders.PlaceOrder(ctx, u.ID, []OrderLine{{ProductID: p.ID, Quantity: 3}})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
	assert.Equal(t, 8, env.stock(t, p.ID))
	assert.EqualValues(t, 1, env.count(t, &models.Order{}))
	assert.EqualValues(t, 1, env.count(t, &models.OrderItem{}))
}
