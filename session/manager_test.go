package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stall/gateway"
	"stall/models"
)

type fakeLedger struct {
	rows      []models.LedgerRecord
	events    []models.SaleEvent
	appendErr error
	deleteErr error
	listErr   error
	appends   int
	deletes   []string
}

func (f *fakeLedger) Events(ctx context.Context, conn models.Connection) ([]models.SaleEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.SaleEvent(nil), f.events...), nil
}

func (f *fakeLedger) Append(ctx context.Context, conn models.Connection, rec models.LedgerRecord) (gateway.Reply, error) {
	f.appends++
	if f.appendErr != nil {
		return gateway.Reply{}, f.appendErr
	}
	f.rows = append(f.rows, rec)
	return gateway.Reply{Success: true, Code: 201}, nil
}

func (f *fakeLedger) DeleteLast(ctx context.Context, conn models.Connection, name string) (gateway.Reply, error) {
	f.deletes = append(f.deletes, name)
	if f.deleteErr != nil {
		return gateway.Reply{}, f.deleteErr
	}
	return gateway.Reply{Success: true, Code: 200}, nil
}

type memoryStore struct {
	settings *models.Settings
	saves    int
	err      error
	saveErr  error
}

func (s *memoryStore) Load(ctx context.Context) (models.Settings, bool, error) {
	if s.err != nil {
		return models.Settings{}, false, s.err
	}
	if s.settings == nil {
		return models.Settings{}, false, nil
	}
	return *s.settings, true, nil
}

func (s *memoryStore) Save(ctx context.Context, settings models.Settings) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.settings = &settings
	return nil
}

var jst = time.FixedZone("JST", 9*60*60)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func configured() models.Connection {
	return models.Connection{
		SheetURL:    "https://sheets.example/d/abc",
		SheetName:   "シート1",
		ScriptURL:   "https://script.example/exec",
		ScriptToken: "secret",
	}
}

func newTestManager(t *testing.T, ledger *fakeLedger, policy UndoPolicy) (*Manager, *memoryStore) {
	t.Helper()
	store := &memoryStore{settings: &models.Settings{
		Connection: configured(),
		Items: []models.Item{
			{Name: "cd", UnitPrice: decimal.NewFromInt(1000), TargetQuantity: 50},
			{Name: "tote", UnitPrice: decimal.NewFromInt(1500), TargetQuantity: 10},
		},
		Window: models.DefaultWindow(),
	}}
	m := NewManager(ledger, store, Options{
		Location: jst,
		Undo:     policy,
		Clock:    fixedClock(time.Date(2025, 11, 3, 11, 30, 0, 0, jst)),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	return m, store
}

func soldOf(t *testing.T, m *Manager, name string) int {
	t.Helper()
	for _, it := range m.Items() {
		if it.Name == name {
			return it.SoldQuantity
		}
	}
	t.Fatalf("item %s not found", name)
	return 0
}

func TestRecordSaleAppliesAfterGatewaySuccess(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoTail)

	out, err := m.RecordSale(context.Background(), "cd", models.MethodAuPay)
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if !out.Applied || out.TotalSales != 1 || out.ItemSold != 1 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("expected one appended row, got %d", len(ledger.rows))
	}
	rec := ledger.rows[0]
	if rec.Name != "cd" || rec.Payment != "1000" || rec.Method != "auPay" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.JST != "2025/11/3 11:30:00" {
		t.Fatalf("expected local label in JST, got %q", rec.JST)
	}
	if rec.Timestamp != "2025-11-03T02:30:00Z" {
		t.Fatalf("expected UTC timestamp, got %q", rec.Timestamp)
	}
}

func TestRecordSaleFailureLeavesStateUnchanged(t *testing.T) {
	ledger := &fakeLedger{appendErr: &gateway.UpstreamError{Code: 401, Message: "bad token"}}
	m, _ := newTestManager(t, ledger, UndoTail)

	out, err := m.RecordSale(context.Background(), "cd", models.MethodTicket)
	var up *gateway.UpstreamError
	if !errors.As(err, &up) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if out.Applied {
		t.Fatal("expected outcome not applied")
	}
	if len(m.History()) != 0 || soldOf(t, m, "cd") != 0 {
		t.Fatal("expected local state unchanged")
	}
}

func TestRecordSaleRejectsUnknownItemAndMethod(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoTail)

	if _, err := m.RecordSale(context.Background(), "poster", models.MethodTicket); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
	if _, err := m.RecordSale(context.Background(), "cd", "cash"); !gateway.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ledger.appends != 0 {
		t.Fatalf("expected no gateway calls, got %d", ledger.appends)
	}
}

func TestRecordSaleRequiresConfiguration(t *testing.T) {
	ledger := &fakeLedger{}
	store := &memoryStore{}
	m := NewManager(ledger, store, Options{Location: jst, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if m.Configured() {
		t.Fatal("expected unconfigured session")
	}
	if _, err := m.AddItem(context.Background(), models.Item{Name: "cd", UnitPrice: decimal.NewFromInt(200)}); err != nil {
		t.Fatalf("add item: %v", err)
	}

	_, err := m.RecordSale(context.Background(), "cd", models.MethodTicket)
	if !errors.Is(err, gateway.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if ledger.appends != 0 {
		t.Fatal("expected no gateway call without configuration")
	}
}

func TestUndoWithEmptyHistoryIsNoop(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoTail)

	out, err := m.UndoLastSale(context.Background(), "cd")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if out.Applied {
		t.Fatal("expected no-op")
	}
	if len(ledger.deletes) != 0 {
		t.Fatalf("expected no gateway call, got %v", ledger.deletes)
	}
	if soldOf(t, m, "cd") != 0 {
		t.Fatal("expected sold count to stay at zero")
	}
}

func TestUndoTailDropsNewestOverall(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoTail)
	ctx := context.Background()

	for _, name := range []string{"cd", "tote"} {
		if _, err := m.RecordSale(ctx, name, models.MethodTicket); err != nil {
			t.Fatalf("record %s: %v", name, err)
		}
	}

	out, err := m.UndoLastSale(ctx, "cd")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !out.Applied || out.Event == nil || out.Event.ItemName != "tote" {
		t.Fatalf("expected tail event (tote) dropped, got %+v", out)
	}
	if ledger.deletes[0] != "cd" {
		t.Fatalf("expected gateway delete scoped to cd, got %v", ledger.deletes)
	}
	if soldOf(t, m, "cd") != 0 || soldOf(t, m, "tote") != 1 {
		t.Fatalf("expected cd decremented and tote untouched")
	}
	history := m.History()
	if len(history) != 1 || history[0].ItemName != "cd" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestUndoItemDropsNewestOfItem(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoItem)
	ctx := context.Background()

	for _, name := range []string{"cd", "tote"} {
		if _, err := m.RecordSale(ctx, name, models.MethodTicket); err != nil {
			t.Fatalf("record %s: %v", name, err)
		}
	}

	out, err := m.UndoLastSale(ctx, "cd")
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if out.Event == nil || out.Event.ItemName != "cd" {
		t.Fatalf("expected cd event dropped, got %+v", out)
	}
	history := m.History()
	if len(history) != 1 || history[0].ItemName != "tote" {
		t.Fatalf("unexpected history %+v", history)
	}
}

func TestUndoFailureLeavesStateUnchanged(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoTail)
	ctx := context.Background()
	if _, err := m.RecordSale(ctx, "cd", models.MethodTicket); err != nil {
		t.Fatalf("record: %v", err)
	}

	ledger.deleteErr = &gateway.TransportError{Op: "delete", Err: errors.New("boom")}
	out, err := m.UndoLastSale(ctx, "cd")
	if err == nil || out.Applied {
		t.Fatalf("expected failure, got %+v %v", out, err)
	}
	if len(m.History()) != 1 || soldOf(t, m, "cd") != 1 {
		t.Fatal("expected local state unchanged")
	}
}

func TestReconcileRecountsEveryItem(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoTail)

	remote := []models.SaleEvent{
		{ItemName: "cd"}, {ItemName: "tote"}, {ItemName: "cd"}, {ItemName: "sticker"}, {ItemName: "cd"},
	}
	m.Reconcile(remote)

	want := map[string]int{"cd": 3, "tote": 1}
	for name, n := range want {
		if got := soldOf(t, m, name); got != n {
			t.Fatalf("%s: expected %d sold, got %d", name, n, got)
		}
	}
	if got := m.Snapshot(m.Now()).TotalSales; got != len(remote) {
		t.Fatalf("expected total %d, got %d", len(remote), got)
	}
}

func TestOpenSyncsFromLedger(t *testing.T) {
	ledger := &fakeLedger{events: []models.SaleEvent{{ItemName: "tote"}, {ItemName: "tote"}}}
	m, _ := newTestManager(t, ledger, UndoTail)

	if got := soldOf(t, m, "tote"); got != 2 {
		t.Fatalf("expected 2 totes after open, got %d", got)
	}
	if !m.Configured() {
		t.Fatal("expected configured session")
	}
}

func TestOpenReportsSyncFailure(t *testing.T) {
	ledger := &fakeLedger{listErr: &gateway.TransportError{Op: "list", Err: errors.New("down")}}
	store := &memoryStore{settings: &models.Settings{Connection: configured()}}
	m := NewManager(ledger, store, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	err := m.Open(context.Background())
	var te *gateway.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestOpenKeepsStoredMidnightWindow(t *testing.T) {
	store := &memoryStore{settings: &models.Settings{Connection: models.Connection{SheetName: "シート1"}}}
	m := NewManager(&fakeLedger{}, store, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})

	if err := m.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if w := m.Settings().Window; w != (models.SalesWindow{}) {
		t.Fatalf("expected stored 00:00-00:00 window kept, got %+v", w)
	}
}

func TestCatalogMutationsPersist(t *testing.T) {
	ledger := &fakeLedger{}
	m, store := newTestManager(t, ledger, UndoTail)
	ctx := context.Background()
	m.Reconcile([]models.SaleEvent{{ItemName: "sticker"}, {ItemName: "sticker"}})

	added, err := m.AddItem(ctx, models.Item{Name: " sticker ", UnitPrice: decimal.NewFromInt(300), TargetQuantity: 20})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Name != "sticker" || added.SoldQuantity != 2 {
		t.Fatalf("expected derived sold count, got %+v", added)
	}
	if _, err := m.AddItem(ctx, models.Item{Name: "cd"}); !errors.Is(err, ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if _, err := m.AddItem(ctx, models.Item{Name: "  "}); !gateway.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	edited, err := m.EditItem(ctx, "cd", decimal.NewFromInt(1200), 60)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !edited.UnitPrice.Equal(decimal.NewFromInt(1200)) || edited.TargetQuantity != 60 {
		t.Fatalf("unexpected edited item %+v", edited)
	}
	if _, err := m.EditItem(ctx, "poster", decimal.Zero, 1); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	if err := m.RemoveItem(ctx, "tote"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.RemoveItem(ctx, "tote"); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}

	saved := store.settings.Items
	if len(saved) != 2 || saved[0].Name != "cd" || saved[1].Name != "sticker" {
		t.Fatalf("unexpected saved catalog %+v", saved)
	}
	if len(ledger.deletes) != 0 || ledger.appends != 0 {
		t.Fatal("expected catalog changes to leave the ledger alone")
	}
}

func TestUpdateConnectionAndWindow(t *testing.T) {
	ledger := &fakeLedger{}
	m, store := newTestManager(t, ledger, UndoTail)
	ctx := context.Background()

	if err := m.UpdateConnection(ctx, models.Connection{SheetName: "シート1"}); err != nil {
		t.Fatalf("update connection: %v", err)
	}
	if m.Configured() {
		t.Fatal("expected unconfigured after clearing connection")
	}
	if store.settings.Connection.ScriptURL != "" {
		t.Fatal("expected connection persisted")
	}

	if err := m.UpdateWindow(ctx, models.SalesWindow{StartHour: 25}); !gateway.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	w := models.SalesWindow{StartHour: 9, StartMinute: 30, EndHour: 17}
	if err := m.UpdateWindow(ctx, w); err != nil {
		t.Fatalf("update window: %v", err)
	}
	if store.settings.Window != w {
		t.Fatalf("expected window persisted, got %+v", store.settings.Window)
	}
}

func TestSnapshotGuardsZeroTarget(t *testing.T) {
	ledger := &fakeLedger{}
	m, _ := newTestManager(t, ledger, UndoTail)
	ctx := context.Background()
	for _, name := range []string{"cd", "tote"} {
		if _, err := m.EditItem(ctx, name, decimal.NewFromInt(100), 0); err != nil {
			t.Fatalf("edit: %v", err)
		}
	}
	if _, err := m.RecordSale(ctx, "cd", models.MethodTicket); err != nil {
		t.Fatalf("record: %v", err)
	}

	snap := m.Snapshot(m.Now())
	if snap.TargetSales != 0 || snap.AchievementRate != 0 || snap.PredictedAchievementRate != 0 {
		t.Fatalf("expected zero rates with zero target, got %+v", snap)
	}
	if len(snap.Points) == 0 {
		t.Fatal("expected projection points after a sale inside the window")
	}
}

// gatedStore holds the first Save open until release is closed.
type gatedStore struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
	saved models.Settings
}

func (s *gatedStore) Load(ctx context.Context) (models.Settings, bool, error) {
	return models.Settings{Connection: configured(), Window: models.DefaultWindow()}, true, nil
}

func (s *gatedStore) Save(ctx context.Context, settings models.Settings) error {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()

	if first {
		close(s.entered)
		<-s.release
	}

	s.mu.Lock()
	s.saved = settings
	s.mu.Unlock()
	return nil
}

func TestOverlappingCatalogSavesKeepNewest(t *testing.T) {
	store := &gatedStore{entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(&fakeLedger{}, store, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	ctx := context.Background()
	if err := m.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	errs := make(chan error, 2)
	go func() {
		_, err := m.AddItem(ctx, models.Item{Name: "cd", UnitPrice: decimal.NewFromInt(1000)})
		errs <- err
	}()
	<-store.entered

	second := make(chan struct{})
	go func() {
		_, err := m.AddItem(ctx, models.Item{Name: "tote", UnitPrice: decimal.NewFromInt(1500)})
		errs <- err
		close(second)
	}()

	select {
	case <-second:
		t.Fatal("expected second add to wait for the first save")
	case <-time.After(50 * time.Millisecond):
	}
	close(store.release)

	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	store.mu.Lock()
	saved := store.saved.Items
	store.mu.Unlock()
	if len(saved) != 2 || len(m.Items()) != 2 {
		t.Fatalf("expected both items stored, got stored %+v memory %+v", saved, m.Items())
	}
}

func TestFailedSaveRestoresSettings(t *testing.T) {
	m, store := newTestManager(t, &fakeLedger{}, UndoTail)
	ctx := context.Background()
	store.saveErr = errors.New("disk full")

	if _, err := m.AddItem(ctx, models.Item{Name: "sticker"}); err == nil {
		t.Fatal("expected save error")
	}
	if len(m.Items()) != 2 {
		t.Fatalf("expected catalog unchanged, got %+v", m.Items())
	}

	if _, err := m.EditItem(ctx, "cd", decimal.NewFromInt(1), 1); err == nil {
		t.Fatal("expected save error")
	}
	if it := m.Items()[0]; !it.UnitPrice.Equal(decimal.NewFromInt(1000)) || it.TargetQuantity != 50 {
		t.Fatalf("expected edit rolled back, got %+v", it)
	}

	if err := m.UpdateConnection(ctx, models.Connection{}); err == nil {
		t.Fatal("expected save error")
	}
	if !m.Configured() || m.Settings().Connection != configured() {
		t.Fatal("expected connection rolled back")
	}

	if err := m.UpdateWindow(ctx, models.SalesWindow{StartHour: 8, EndHour: 12}); err == nil {
		t.Fatal("expected save error")
	}
	if m.Settings().Window != models.DefaultWindow() {
		t.Fatalf("expected window rolled back, got %+v", m.Settings().Window)
	}
}
