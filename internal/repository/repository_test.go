package repository

import (
	"context"
	"testing"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds, nil)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedCatalog(t *testing.T, repo *Repository) {
	ctx := context.Background()
	stmts := []string{
		`INSERT INTO vendor_settings (vendor_id, vendor_name, commission_rate, fee_structure, origin_city, origin_state)
		 VALUES (1, 'Acme', 10.00, 'commission', 'Austin', 'TX'),
		        (2, 'Globex', NULL, 'pass_through', 'Denver', 'CO')`,
		`INSERT INTO category_commission_rates (category_id, commission_rate) VALUES (7, 12.50)`,
		`INSERT INTO products (id, vendor_id, title, price, category_id, status, ship_method, ship_rate)
		 VALUES (100, 1, 'Mug', 25.00, 7, 'active', 'flat_rate', 4.50),
		        (101, 2, 'Poster', 40.00, NULL, 'active', 'free', 0),
		        (102, 1, 'Retired', 9.99, NULL, 'archived', 'free', 0)`,
		`INSERT INTO discounts (id, code, name, source_type, coupon_type, discount_type, discount_value, valid_from)
		 VALUES (1, NULL, 'Spring sale', 'sale', 'site_sale', 'percentage', 10, NOW() - INTERVAL '1 day'),
		        (2, 'SAVE5', 'Five off', 'coupon', 'vendor_coupon', 'fixed_amount', 5, NOW() - INTERVAL '1 day'),
		        (3, NULL, 'Future sale', 'sale', 'site_sale', 'percentage', 50, NOW() + INTERVAL '1 day')`,
		`INSERT INTO discount_products (discount_id, product_id) VALUES (2, 100)`,
		`INSERT INTO promotions (id, name) VALUES (1, 'Summer collab')`,
		`INSERT INTO promotion_products (promotion_id, product_id, vendor_id, admin_discount_percentage,
		                                 vendor_discount_percentage, approval_status)
		 VALUES (1, 100, 1, 5, 5, 'approved'), (1, 101, 2, 10, 0, 'approved')`,
		`INSERT INTO promotion_invitations (promotion_id, vendor_id, invitation_status)
		 VALUES (1, 1, 'accepted'), (1, 2, 'declined')`,
	}
	for _, stmt := range stmts {
		_, err := repo.db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
}

func newTestOrder(userID int64) *d.Order {
	return &d.Order{
		ID:                uuid.New(),
		UserID:            userID,
		Status:            d.OrderStatusPending,
		Subtotal:          money("50.00"),
		ShippingTotal:     money("4.50"),
		PlatformFeeAmount: money("5.00"),
		TotalAmount:       money("54.50"),
		Currency:          "usd",
		ShippingAddress:   d.Address{Line1: "1 Main St", City: "Austin", State: "TX", PostalCode: "78701", Country: "US"},
		Items: []d.OrderItem{
			{
				LineItemID:       "li-0",
				ProductID:        100,
				VendorID:         1,
				VendorName:       "Acme",
				Title:            "Mug",
				Quantity:         2,
				UnitPrice:        money("25.00"),
				OriginalPrice:    money("50.00"),
				Price:            money("50.00"),
				CommissionRate:   money("10.00"),
				CommissionAmount: money("5.00"),
				ShippingCost:     money("4.50"),
				Status:           d.OrderItemStatusPending,
			},
		},
	}
}

func TestGetProductsByIDs(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, repo)

	products, err := repo.GetProductsByIDs(context.Background(), []int64{100, 102, 999})
	require.NoError(t, err)
	require.Len(t, products, 2)

	byID := map[int64]d.Product{}
	for _, p := range products {
		byID[p.ID] = p
	}
	mug := byID[100]
	assert.Equal(t, "Acme", mug.VendorName)
	assert.True(t, mug.Purchasable)
	assert.Equal(t, d.ShippingFlatRate, mug.Shipping.Method)
	assert.True(t, money("4.50").Equal(mug.Shipping.FlatRate))
	assert.Equal(t, "Austin", mug.Shipping.Origin.City)
	require.NotNil(t, mug.CategoryID)
	assert.Equal(t, int64(7), *mug.CategoryID)
	assert.False(t, byID[102].Purchasable)
}

func TestCommissionSettings(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, repo)
	ctx := context.Background()

	settings, err := repo.VendorFeeSettings(ctx, []int64{1, 2})
	require.NoError(t, err)
	require.NotNil(t, settings[1].Rate)
	assert.True(t, money("10").Equal(*settings[1].Rate))
	assert.Nil(t, settings[2].Rate)
	assert.Equal(t, d.FeePassThrough, settings[2].FeeStructure)

	rates, err := repo.CategoryCommissionRates(ctx, []int64{7, 8})
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	assert.True(t, money("12.5").Equal(rates[7]))
}

func TestDiscountSources(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	seedCatalog(t, repo)
	ctx := context.Background()
	now := time.Now()

	sales, err := repo.ActiveSales(ctx, 42, now)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, d.SourceSale, sales[0].SourceType)
	assert.True(t, decimal.NewFromInt(1).Equal(sales[0].PlatformShare))
	assert.Empty(t, sales[0].ProductIDs)

	coupons, err := repo.CouponsByCode(ctx, 42, []string{"save5", "NOPE"})
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, "SAVE5", coupons[0].Code)
	assert.Equal(t, []int64{100}, coupons[0].ProductIDs)
	assert.True(t, coupons[0].PlatformShare.IsZero())

	promos, err := repo.AcceptedPromotions(ctx, 42, []int64{100, 101}, now)
	require.NoError(t, err)
	require.Len(t, promos, 1, "declined vendor must be left out")
	assert.Equal(t, []int64{100}, promos[0].ProductIDs)
	assert.True(t, money("10").Equal(promos[0].Value))
	assert.True(t, money("0.5").Equal(promos[0].PlatformShare))
}

func TestCreateOrder_Success(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder(7)
	discounts := []d.DiscountApplication{{
		SourceType:     d.SourceCoupon,
		SourceID:       2,
		Code:           "SAVE5",
		DiscountType:   d.DiscountFixedAmount,
		DiscountAmount: money("5"),
		VendorCost:     money("5"),
		Allocations:    []d.DiscountAllocation{{LineItemID: "li-0", Amount: money("5"), VendorCost: money("5")}},
	}}

	err := repo.CreateOrder(ctx, order, discounts)
	require.NoError(t, err)
	assert.NotZero(t, order.Items[0].ID)

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	assert.Equal(t, d.OrderStatusPending, fetched.Status)
	assert.True(t, money("54.50").Equal(fetched.TotalAmount))
	assert.Nil(t, fetched.PaymentIntentID)
	assert.Equal(t, "Austin", fetched.ShippingAddress.City)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "li-0", fetched.Items[0].LineItemID)
	assert.True(t, money("5.00").Equal(fetched.Items[0].CommissionAmount))

	apps, err := repo.ListOrderDiscounts(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, []string{"li-0"}, apps[0].AppliesTo)
}

func TestCreateOrder_Duplicate(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder(7)
	require.NoError(t, repo.CreateOrder(ctx, order, nil))

	dup := newTestOrder(7)
	dup.ID = order.ID
	err := repo.CreateOrder(ctx, dup, nil)
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestCreateOrder_RollsBackOnItemFailure(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder(7)
	order.Items = append(order.Items, order.Items[0]) // same line item id violates the unique key

	err := repo.CreateOrder(ctx, order, nil)
	require.Error(t, err)

	_, err = repo.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSaveTaxRecord_UpsertsOnce(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder(7)
	require.NoError(t, repo.CreateOrder(ctx, order, nil))

	rec := &d.TaxRecord{
		OrderID:       order.ID,
		TaxProviderID: "taxcalc_1",
		TaxableAmount: money("54.50"),
		TaxCollected:  money("4.00"),
		Breakdown:     []d.TaxBreakdown{{Jurisdiction: "TX", TaxType: "sales_tax", Rate: money("0.0625"), Amount: money("4.00")}},
		CustomerState: "TX",
		CustomerZip:   "78701",
	}
	require.NoError(t, repo.SaveTaxRecord(ctx, rec))

	rec2 := *rec
	rec2.TaxProviderID = "taxcalc_2"
	rec2.TaxCollected = money("4.10")
	require.NoError(t, repo.SaveTaxRecord(ctx, &rec2))
	assert.Equal(t, rec.ID, rec2.ID)

	stored, err := repo.GetTaxRecord(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "taxcalc_2", stored.TaxProviderID)
	assert.Len(t, stored.Breakdown, 1)

	linked, err := repo.LinkTaxTransaction(ctx, order.ID, "tx_1")
	require.NoError(t, err)
	assert.True(t, linked)

	linked, err = repo.LinkTaxTransaction(ctx, order.ID, "tx_2")
	require.NoError(t, err)
	assert.False(t, linked)

	stored, err = repo.GetTaxRecord(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.TransactionID)
	assert.Equal(t, "tx_1", *stored.TransactionID)
	assert.Equal(t, d.TaxRecordCommitted, stored.Status)
}

func TestMarkPaid_IsConditional(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder(7)
	require.NoError(t, repo.CreateOrder(ctx, order, nil))

	err := repo.MarkPaid(ctx, order.ID, "pi_123", "order.paid", []byte(`{"order_id":"x"}`))
	require.NoError(t, err)

	err = repo.MarkPaid(ctx, order.ID, "pi_123", "order.paid", []byte(`{"order_id":"x"}`))
	assert.ErrorIs(t, err, ErrStatusChanged)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1, "a repeated confirm must not queue a second event")
	assert.Equal(t, order.ID.String(), events[0].AggregateID)
	assert.JSONEq(t, `{"order_id":"x"}`, string(events[0].Payload))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, d.OrderStatusPaid, fetched.Status)
	require.NotNil(t, fetched.PaymentIntentID)
	assert.Equal(t, "pi_123", *fetched.PaymentIntentID)
	assert.Equal(t, d.OrderItemStatusPaid, fetched.Items[0].Status)

	require.NoError(t, repo.MarkConfirmed(ctx, order.ID))
	assert.ErrorIs(t, repo.MarkConfirmed(ctx, order.ID), ErrStatusChanged)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestVoidTaxRecord_BlocksLink(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder(7)
	require.NoError(t, repo.CreateOrder(ctx, order, nil))
	require.NoError(t, repo.SaveTaxRecord(ctx, &d.TaxRecord{
		OrderID:       order.ID,
		TaxProviderID: "taxcalc_1",
		TaxableAmount: money("54.50"),
		TaxCollected:  money("4.13"),
	}))

	require.NoError(t, repo.VoidTaxRecord(ctx, order.ID))

	linked, err := repo.LinkTaxTransaction(ctx, order.ID, "tx_1")
	require.NoError(t, err)
	assert.False(t, linked)

	stored, err := repo.GetTaxRecord(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, d.TaxRecordVoid, stored.Status)
	assert.Nil(t, stored.TransactionID)
}

func TestApplyOrderTax_OnlyWhilePending(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	order := newTestOrder(7)
	require.NoError(t, repo.CreateOrder(ctx, order, nil))

	tax := decimal.RequireFromString("4.13")
	total := order.TotalAmount.Add(tax)
	require.NoError(t, repo.ApplyOrderTax(ctx, order.ID, tax, total))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, tax.Equal(fetched.TaxAmount))
	assert.True(t, total.Equal(fetched.TotalAmount))

	require.NoError(t, repo.MarkPaid(ctx, order.ID, "pi_1", "order.paid", []byte(`{}`)))
	assert.ErrorIs(t, repo.ApplyOrderTax(ctx, order.ID, tax, total), ErrStatusChanged)
}

func TestListStuckPaidOrders(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	paid := newTestOrder(7)
	require.NoError(t, repo.CreateOrder(ctx, paid, nil))
	require.NoError(t, repo.MarkPaid(ctx, paid.ID, "pi_1", "order.paid", []byte(`{}`)))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(7), nil))

	stuck, err := repo.ListStuckPaidOrders(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, paid.ID, stuck[0].ID)

	stuck, err = repo.ListStuckPaidOrders(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, stuck)
}

func TestListOrdersByUser_Paginates(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateOrder(ctx, newTestOrder(7), nil))
	}
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder(8), nil))

	page, err := repo.ListOrdersByUser(ctx, d.OrderFilter{UserID: 7, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages())
	require.Len(t, page.Orders, 2)
	assert.Len(t, page.Orders[0].Items, 1)

	page, err = repo.ListOrdersByUser(ctx, d.OrderFilter{UserID: 7, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 1)

	paid := d.OrderStatusPaid
	page, err = repo.ListOrdersByUser(ctx, d.OrderFilter{UserID: 7, Status: &paid, Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Orders)
}

func TestCustomers(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	_, err := repo.GetCustomerID(ctx, 7)
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	require.NoError(t, repo.SaveCustomerID(ctx, 7, "cus_1"))
	require.NoError(t, repo.SaveCustomerID(ctx, 7, "cus_2"))

	id, err := repo.GetCustomerID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "cus_2", id)
}
