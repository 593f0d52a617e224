package sales

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/facturo/facturo/internal/shared"
	"github.com/facturo/facturo/internal/sysconfig"
)

// fakeState is the in-memory database the fake store runs against.
type fakeState struct {
	products          map[int64]saleProduct
	stock             map[int64]float64
	nextInvoiceNumber int64
	nextNoteNumber    int64
	seq               int64
	invoices          map[int64]documentHeader
	notes             map[int64]documentHeader
	invoiceLines      map[int64][]LineItem
	noteLines         map[int64][]LineItem
	sales             map[int64]Sale
	payments          []Payment
	converted         map[int64]int64
}

func newFakeState() *fakeState {
	return &fakeState{
		products:          map[int64]saleProduct{},
		stock:             map[int64]float64{},
		nextInvoiceNumber: 1,
		nextNoteNumber:    1,
		invoices:          map[int64]documentHeader{},
		notes:             map[int64]documentHeader{},
		invoiceLines:      map[int64][]LineItem{},
		noteLines:         map[int64][]LineItem{},
		sales:             map[int64]Sale{},
		converted:         map[int64]int64{},
	}
}

func (s *fakeState) clone() *fakeState {
	c := newFakeState()
	c.nextInvoiceNumber = s.nextInvoiceNumber
	c.nextNoteNumber = s.nextNoteNumber
	c.seq = s.seq
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	for k, v := range s.invoices {
		c.invoices[k] = v
	}
	for k, v := range s.notes {
		c.notes[k] = v
	}
	for k, v := range s.invoiceLines {
		c.invoiceLines[k] = append([]LineItem(nil), v...)
	}
	for k, v := range s.noteLines {
		c.noteLines[k] = append([]LineItem(nil), v...)
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.converted {
		c.converted[k] = v
	}
	c.payments = append([]Payment(nil), s.payments...)
	return c
}

// fakeStore commits a cloned state only when the callback succeeds, which
// mirrors transactional rollback closely enough for these tests. The mutex
// serializes transactions the way the counter row lock does in Postgres.
type fakeStore struct {
	mu    sync.Mutex
	state *fakeState
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.state.clone()
	if err := fn(ctx, &fakeTx{state: c}); err != nil {
		return err
	}
	f.state = c
	return nil
}

func (f *fakeStore) GetSale(_ context.Context, id int64) (Sale, error) {
	sale, ok := f.state.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return sale, nil
}

func (f *fakeStore) ListSales(context.Context, ListFilters) ([]Sale, error) {
	var out []Sale
	for _, s := range f.state.sales {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ListPending(context.Context) ([]Sale, error) {
	var out []Sale
	for _, s := range f.state.sales {
		if s.Status == StatusPending {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByClient(_ context.Context, clientID int64) ([]Sale, error) {
	var out []Sale
	for _, s := range f.state.sales {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) Lines(_ context.Context, sale Sale) ([]LineItem, error) {
	return (&fakeTx{state: f.state}).SaleLines(context.Background(), sale)
}

func (f *fakeStore) Payments(_ context.Context, saleID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range f.state.payments {
		if p.SaleID == saleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Dashboard(context.Context) (DashboardSummary, error) {
	return DashboardSummary{}, nil
}

type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) NextInvoiceNumber(context.Context) (int64, error) {
	n := t.state.nextInvoiceNumber
	t.state.nextInvoiceNumber++
	return n, nil
}

func (t *fakeTx) NextNoteNumber(context.Context) (int64, error) {
	n := t.state.nextNoteNumber
	t.state.nextNoteNumber++
	return n, nil
}

func (t *fakeTx) CreateInvoice(_ context.Context, h documentHeader) (int64, error) {
	t.state.seq++
	t.state.invoices[t.state.seq] = h
	return t.state.seq, nil
}

func (t *fakeTx) CreateDeliveryNote(_ context.Context, h documentHeader) (int64, error) {
	t.state.seq++
	t.state.notes[t.state.seq] = h
	return t.state.seq, nil
}

func (t *fakeTx) InsertInvoiceLine(_ context.Context, invoiceID int64, line LineItem) error {
	t.state.invoiceLines[invoiceID] = append(t.state.invoiceLines[invoiceID], line)
	return nil
}

func (t *fakeTx) InsertNoteLine(_ context.Context, noteID int64, line LineItem) error {
	t.state.noteLines[noteID] = append(t.state.noteLines[noteID], line)
	return nil
}

func (t *fakeTx) CreateSale(_ context.Context, sale Sale) (int64, error) {
	var h documentHeader
	switch {
	case sale.InvoiceID != nil:
		h = t.state.invoices[*sale.InvoiceID]
	case sale.DeliveryNoteID != nil:
		h = t.state.notes[*sale.DeliveryNoteID]
	}
	sale.DocumentNumber = h.Number
	sale.ClientID = h.ClientID
	sale.Subtotal = h.Totals.Subtotal
	sale.Tax = h.Totals.Tax
	sale.Total = h.Totals.Total
	t.state.seq++
	sale.ID = t.state.seq
	t.state.sales[sale.ID] = sale
	return sale.ID, nil
}

func (t *fakeTx) DecrementStock(_ context.Context, productID int64, qty float64) error {
	if t.state.stock[productID] < qty {
		return shared.ErrInsufficientStock
	}
	t.state.stock[productID] -= qty
	return nil
}

func (t *fakeTx) RestoreStock(_ context.Context, productID int64, qty float64) error {
	t.state.stock[productID] += qty
	return nil
}

func (t *fakeTx) GetProductForSale(_ context.Context, productID int64) (saleProduct, error) {
	p, ok := t.state.products[productID]
	if !ok {
		return saleProduct{}, shared.ErrNotFound
	}
	return p, nil
}

func (t *fakeTx) GetSaleForUpdate(_ context.Context, id int64) (Sale, error) {
	sale, ok := t.state.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return sale, nil
}

func (t *fakeTx) SaleLines(_ context.Context, sale Sale) ([]LineItem, error) {
	switch {
	case sale.DeliveryNoteID != nil:
		return t.state.noteLines[*sale.DeliveryNoteID], nil
	case sale.InvoiceID != nil:
		return t.state.invoiceLines[*sale.InvoiceID], nil
	}
	return nil, errors.New("sale has no document")
}

func (t *fakeTx) InsertPayment(_ context.Context, p Payment) error {
	t.state.payments = append(t.state.payments, p)
	return nil
}

func (t *fakeTx) SetPaidStatus(_ context.Context, id int64, amountPaid float64, status string) error {
	sale, ok := t.state.sales[id]
	if !ok {
		return shared.ErrNotFound
	}
	sale.AmountPaid = amountPaid
	sale.Status = status
	t.state.sales[id] = sale
	return nil
}

func (t *fakeTx) LinkConvertedNote(_ context.Context, noteID, invoiceID, saleID int64) error {
	t.state.converted[noteID] = invoiceID
	sale, ok := t.state.sales[saleID]
	if !ok {
		return shared.ErrNotFound
	}
	inv := invoiceID
	sale.InvoiceID = &inv
	t.state.sales[saleID] = sale
	return nil
}

type fakeConfig struct {
	cfg sysconfig.Config
}

func (f fakeConfig) Get(context.Context) (sysconfig.Config, error) {
	return f.cfg, nil
}

func newTestService(t *testing.T, cfg sysconfig.Config) (*Service, *fakeStore) {
	t.Helper()
	store := &fakeStore{state: newFakeState()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store, fakeConfig{cfg: cfg}, logger, nil, nil)
	return svc, store
}

func seedProduct(store *fakeStore, id int64, price, stock float64, fractional bool) {
	store.state.products[id] = saleProduct{
		ID: id, Name: "Producto", SalePrice: price, Fractional: fractional, Active: true,
	}
	store.state.stock[id] = stock
}

func TestCreateCashSale(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{TaxPercent: 16, TaxEnabled: true})
	seedProduct(store, 1, 10, 5, false)

	saleID, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID: 3,
		Kind:     KindInvoice,
		Lines:    []LineInput{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	sale := store.state.sales[saleID]
	require.Equal(t, StatusCompleted, sale.Status)
	require.NotNil(t, sale.InvoiceID)
	require.Equal(t, int64(1), sale.DocumentNumber)
	require.Equal(t, 23.20, sale.Total)
	require.Equal(t, 23.20, sale.AmountPaid)
	require.Equal(t, 3.0, store.state.stock[1])
	require.Len(t, store.state.payments, 1)
	require.Equal(t, "efectivo", store.state.payments[0].Method)
	require.Equal(t, int64(2), store.state.nextInvoiceNumber)
}

func TestConcurrentSalesAllocateUniqueInvoiceNumbers(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{TaxPercent: 16, TaxEnabled: true})
	seedProduct(store, 1, 10, 1000, false)

	const sellers = 8
	var wg sync.WaitGroup
	errs := make(chan error, sellers)
	for i := 0; i < sellers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
				ClientID: 3,
				Kind:     KindInvoice,
				Lines:    []LineInput{{ProductID: 1, Quantity: 1}},
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, store.state.invoices, sellers)
	seen := map[int64]bool{}
	for _, inv := range store.state.invoices {
		require.False(t, seen[inv.Number], "invoice number %d issued twice", inv.Number)
		seen[inv.Number] = true
	}
	require.Equal(t, int64(sellers+1), store.state.nextInvoiceNumber)
	require.Equal(t, float64(1000-sellers), store.state.stock[1])
}

func TestCreateSaleInsufficientStockRollsBack(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{TaxPercent: 16, TaxEnabled: true})
	seedProduct(store, 1, 10, 5, false)
	seedProduct(store, 2, 4, 1, false)

	_, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID: 3,
		Kind:     KindInvoice,
		Lines: []LineInput{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 3},
		},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Equal(t, 5.0, store.state.stock[1])
	require.Equal(t, 1.0, store.state.stock[2])
	require.Empty(t, store.state.sales)
	require.Equal(t, int64(1), store.state.nextInvoiceNumber)
}

func TestCreateCreditSaleWithInitialPayment(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{TaxPercent: 16, TaxEnabled: false})
	seedProduct(store, 1, 25, 10, false)

	saleID, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID:       3,
		Kind:           KindDeliveryNote,
		Lines:          []LineInput{{ProductID: 1, Quantity: 2}},
		InitialPayment: &PaymentInput{Amount: 20, Method: "transferencia", Reference: "0102-9931"},
	})
	require.NoError(t, err)

	sale := store.state.sales[saleID]
	require.Equal(t, StatusPending, sale.Status)
	require.True(t, sale.IsCredit)
	require.Nil(t, sale.InvoiceID)
	require.Equal(t, int64(1), sale.DocumentNumber)
	require.Equal(t, 50.0, sale.Total)
	require.Equal(t, 20.0, sale.AmountPaid)
	require.Equal(t, 30.0, sale.Balance())
	require.Len(t, store.state.payments, 1)
	require.Equal(t, "0102-9931", store.state.payments[0].Reference)
}

func TestCreateCreditSaleRejectsFullInitialPayment(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	seedProduct(store, 1, 25, 10, false)

	_, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID:       3,
		Kind:           KindDeliveryNote,
		Lines:          []LineInput{{ProductID: 1, Quantity: 2}},
		InitialPayment: &PaymentInput{Amount: 50, Method: "efectivo"},
	})
	require.Error(t, err)
	require.Contains(t, shared.UserSafeMessage(err), "factura de contado")
	require.Empty(t, store.state.sales)
}

func TestCreateSaleRejectsFractionalQuantityOnWholeUnit(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	seedProduct(store, 1, 10, 5, false)

	_, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID: 3,
		Kind:     KindInvoice,
		Lines:    []LineInput{{ProductID: 1, Quantity: 1.5}},
	})
	require.Error(t, err)
	require.Contains(t, shared.UserSafeMessage(err), "fraccionarias")
}

func TestCreateSaleRejectsInactiveProduct(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	store.state.products[1] = saleProduct{ID: 1, Name: "Viejo", SalePrice: 10, Active: false}
	store.state.stock[1] = 5

	_, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID: 3,
		Kind:     KindInvoice,
		Lines:    []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.Error(t, err)
	require.Contains(t, shared.UserSafeMessage(err), "inactivo")
}

func newCreditSale(t *testing.T, svc *Service, initial float64) int64 {
	t.Helper()
	input := CreateSaleInput{
		ClientID: 3,
		Kind:     KindDeliveryNote,
		Lines:    []LineInput{{ProductID: 1, Quantity: 4}},
	}
	if initial > 0 {
		input.InitialPayment = &PaymentInput{Amount: initial, Method: "efectivo"}
	}
	saleID, err := svc.CreateSale(context.Background(), 7, input)
	require.NoError(t, err)
	return saleID
}

func TestRegisterPaymentPartial(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	seedProduct(store, 1, 25, 10, false)
	saleID := newCreditSale(t, svc, 0) // total 100

	err := svc.RegisterPayment(context.Background(), saleID, PaymentInput{Amount: 40, Method: "pago_movil"})
	require.NoError(t, err)

	sale := store.state.sales[saleID]
	require.Equal(t, StatusPending, sale.Status)
	require.Equal(t, 40.0, sale.AmountPaid)
	require.Nil(t, sale.InvoiceID)
	require.Empty(t, store.state.converted)
}

func TestRegisterPaymentSettlesAndConverts(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	seedProduct(store, 1, 25, 10, false)
	saleID := newCreditSale(t, svc, 30) // total 100, 70 open

	err := svc.RegisterPayment(context.Background(), saleID, PaymentInput{Amount: 70, Method: "tarjeta"})
	require.NoError(t, err)

	sale := store.state.sales[saleID]
	require.Equal(t, StatusCompleted, sale.Status)
	require.Equal(t, 100.0, sale.AmountPaid)
	require.NotNil(t, sale.InvoiceID)
	require.NotNil(t, sale.DeliveryNoteID)
	require.Equal(t, KindInvoice, sale.Kind())

	// The note is marked converted and the invoice carries the same lines.
	invoiceID, ok := store.state.converted[*sale.DeliveryNoteID]
	require.True(t, ok)
	require.Equal(t, *sale.InvoiceID, invoiceID)
	require.Len(t, store.state.invoiceLines[invoiceID], 1)
	require.Equal(t, store.state.noteLines[*sale.DeliveryNoteID][0].Quantity,
		store.state.invoiceLines[invoiceID][0].Quantity)

	// Conversion consumed an invoice number.
	header := store.state.invoices[invoiceID]
	require.Equal(t, int64(1), header.Number)
	require.Equal(t, int64(2), store.state.nextInvoiceNumber)
}

func TestRegisterPaymentRejectsOverpayment(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	seedProduct(store, 1, 25, 10, false)
	saleID := newCreditSale(t, svc, 30) // 70 open

	err := svc.RegisterPayment(context.Background(), saleID, PaymentInput{Amount: 80, Method: "efectivo"})
	require.Error(t, err)
	require.Contains(t, shared.UserSafeMessage(err), "excede el saldo")

	sale := store.state.sales[saleID]
	require.Equal(t, 30.0, sale.AmountPaid)
	require.Equal(t, StatusPending, sale.Status)
}

func TestRegisterPaymentRejectsCompletedSale(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	seedProduct(store, 1, 10, 5, false)

	saleID, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID: 3,
		Kind:     KindInvoice,
		Lines:    []LineInput{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	err = svc.RegisterPayment(context.Background(), saleID, PaymentInput{Amount: 1, Method: "efectivo"})
	require.Error(t, err)
	require.Contains(t, shared.UserSafeMessage(err), "pendientes")
}

func TestCancelSaleRestoresStock(t *testing.T) {
	svc, store := newTestService(t, sysconfig.Config{})
	seedProduct(store, 1, 10, 5, false)

	saleID, err := svc.CreateSale(context.Background(), 7, CreateSaleInput{
		ClientID: 3,
		Kind:     KindInvoice,
		Lines:    []LineInput{{ProductID: 1, Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, 2.0, store.state.stock[1])

	require.NoError(t, svc.CancelSale(context.Background(), saleID))
	require.Equal(t, 5.0, store.state.stock[1])
	require.Equal(t, StatusCancelled, store.state.sales[saleID].Status)

	err = svc.CancelSale(context.Background(), saleID)
	require.Error(t, err)
	require.Contains(t, shared.UserSafeMessage(err), "anulada")
}
