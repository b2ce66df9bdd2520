package repository

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const phone = "94771234567"

var cartColumns = []string{"id", "product_id", "name", "price", "quantity", "image_url", "stock_quantity", "status"}

func checkoutRequest() domain.CheckoutRequest {
	return domain.CheckoutRequest{
		CustomerPhone: phone,
		OrderNumber:   "ORD-1700000000000-AB12CD",
		Info:          domain.CheckoutInfo{Name: "Nimal", Address: "12 Lake Rd", City: "Kandy", PaymentMethod: domain.DefaultPaymentMethod},
		Pricing:       domain.DeliveryPricing{FlatFee: decimal.NewFromInt(500), FreeAbove: decimal.NewFromInt(3000)},
	}
}

func cartRows() *sqlmock.Rows {
	return sqlmock.NewRows(cartColumns).
		AddRow(10, 1, "Tea Pot", "1000.00", 2, "", 5, "active").
		AddRow(11, 2, "Cup", "500.00", 1, "/uploads/products/cup.jpg", 3, "active")
}

func newOrderRepo(t *testing.T) (domain.OrderRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresOrderRepository(db, quietLogger()), mock
}

func TestCheckoutCommits(t *testing.T) {
	repo, mock := newOrderRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`(?s)FROM cart_items ci.*FOR UPDATE OF ci, p`).WithArgs(phone).WillReturnRows(cartRows())
	mock.ExpectQuery(`INSERT INTO orders \(`).
		WithArgs("ORD-1700000000000-AB12CD", phone, "Nimal", "12 Lake Rd", "Kandy", sqlmock.AnyArg(), sqlmock.AnyArg(), domain.DefaultPaymentMethod).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "payment_status", "created_at", "updated_at"}).
			AddRow(42, "pending", "pending", now, now))
	mock.ExpectExec(`INSERT INTO order_items`).WithArgs(42, 1, "Tea Pot", 2, sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WithArgs(42, 2, "Cup", 1, sqlmock.AnyArg(), sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`UPDATE products SET stock_quantity = stock_quantity - \$1`).WithArgs(2, 1).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET stock_quantity = stock_quantity - \$1`).WithArgs(1, 2).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM cart_items WHERE customer_phone = \$1`).WithArgs(phone).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO customers`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	order, err := repo.Checkout(context.Background(), checkoutRequest())
	require.NoError(t, err)
	assert.Equal(t, 42, order.ID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, decimal.NewFromInt(3000).Equal(order.TotalAmount), order.TotalAmount.String())
	assert.True(t, decimal.NewFromInt(500).Equal(order.DeliveryFee))
	require.Len(t, order.Items, 2)
	assert.True(t, decimal.NewFromInt(2000).Equal(order.Items[0].Subtotal))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRollsBackOnInsufficientStock(t *testing.T) {
	repo, mock := newOrderRepo(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM cart_items ci`).WithArgs(phone).WillReturnRows(cartRows())
	mock.ExpectQuery(`INSERT INTO orders \(`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "payment_status", "created_at", "updated_at"}).
			AddRow(43, "pending", "pending", now, now))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO order_items`).WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(`UPDATE products SET stock_quantity`).WithArgs(2, 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	order, err := repo.Checkout(context.Background(), checkoutRequest())
	assert.Nil(t, order)
	assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
	assert.Contains(t, err.Error(), "Tea Pot")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutEmptyCartCreatesNoOrder(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM cart_items ci`).WithArgs(phone).WillReturnRows(sqlmock.NewRows(cartColumns))
	mock.ExpectRollback()

	order, err := repo.Checkout(context.Background(), checkoutRequest())
	assert.Nil(t, order)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRejectsInactiveProduct(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM cart_items ci`).WithArgs(phone).WillReturnRows(
		sqlmock.NewRows(cartColumns).AddRow(10, 1, "Tea Pot", "1000.00", 2, "", 5, "inactive"))
	mock.ExpectRollback()

	_, err := repo.Checkout(context.Background(), checkoutRequest())
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByNumberScopedToCustomer(t *testing.T) {
	repo, mock := newOrderRepo(t)

	mock.ExpectQuery(`FROM orders WHERE order_number = \$1 AND customer_phone = \$2`).
		WithArgs("ORD-1-XYZ", phone).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByNumber(context.Background(), phone, "ORD-1-XYZ")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
