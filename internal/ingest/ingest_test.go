package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpachecos/dashboard-faturas/internal/categories"
	"github.com/fpachecos/dashboard-faturas/internal/classifier"
	"github.com/fpachecos/dashboard-faturas/internal/logger"
	"github.com/fpachecos/dashboard-faturas/internal/model"
	"github.com/fpachecos/dashboard-faturas/internal/period"
	"github.com/fpachecos/dashboard-faturas/internal/store/filestore"
)

var fixedNow = time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

const statement = `Data;Estabelecimento;Portador;Valor;Parcela
20/10/2025;IFOOD*PEDIDO;João Silva;R$ 47,58;-
21/10/2025;MICROSOFT*365;João Silva;R$ -10.690,39;
22/10/2025;DROGASIL 123;Maria Souza;R$ 32,10;2/3
;SEM DATA;João Silva;R$ 1,00;-
24/10/2025;UBER *TRIP;Maria Souza;R$ 18,90;-
25/10/2025;POSTO SHELL;João Silva;R$ 1.234,56;1/10
`

// memStore is a TransactionStore without atomic replace.
type memStore struct {
	mu        sync.Mutex
	cats      []model.Category
	txns      map[string][]model.Transaction
	calls     []string
	deleteErr error
	insertErr error
	catsErr   error
}

func newMemStore() *memStore {
	return &memStore{txns: map[string][]model.Transaction{}}
}

func (m *memStore) ListCategories(_ context.Context, userID string) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "list")
	if m.catsErr != nil {
		return nil, m.catsErr
	}
	if len(m.cats) == 0 {
		m.cats = categories.Default()
	}
	return m.cats, nil
}

func (m *memStore) DeleteByInvoiceMonth(_ context.Context, userID, invoiceDate string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "delete")
	if m.deleteErr != nil {
		return m.deleteErr
	}
	month := period.Month(invoiceDate)
	var kept []model.Transaction
	for _, t := range m.txns[userID] {
		if !strings.HasPrefix(t.InvoiceDate, month) {
			kept = append(kept, t)
		}
	}
	m.txns[userID] = kept
	return nil
}

func (m *memStore) InsertTransactions(_ context.Context, userID string, txns []model.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "insert")
	if m.insertErr != nil {
		return m.insertErr
	}
	m.txns[userID] = append(m.txns[userID], txns...)
	return nil
}

func (m *memStore) list(userID string) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Transaction(nil), m.txns[userID]...)
}

// replacingStore adds an atomic replace on top of memStore.
type replacingStore struct {
	*memStore
	replaced int
}

func (r *replacingStore) ReplaceInvoiceMonth(ctx context.Context, userID, invoiceDate string, txns []model.Transaction) error {
	r.replaced++
	if err := r.DeleteByInvoiceMonth(ctx, userID, invoiceDate); err != nil {
		return err
	}
	return r.InsertTransactions(ctx, userID, txns)
}

type recordingAuditor struct {
	records []Record
	err     error
}

func (a *recordingAuditor) RecordImport(_ context.Context, rec Record) error {
	a.records = append(a.records, rec)
	return a.err
}

func newService(st Store, opts ...Option) *Service {
	return NewService(st, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func req(user, filename, body string) Request {
	return Request{UserID: user, Filename: filename, Content: strings.NewReader(body)}
}

func TestImport_ClassifiesAndStores(t *testing.T) {
	st := newMemStore()
	svc := newService(st)

	res, err := svc.Import(context.Background(), req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)
	assert.Equal(t, Result{Count: 5, InvoiceDate: "2025-10-20"}, res)

	got := st.list("alice")
	require.Len(t, got, 5)

	ifood := got[0]
	assert.Equal(t, "20/10/2025", ifood.Date)
	assert.Equal(t, "IFOOD*PEDIDO", ifood.Establishment)
	assert.Equal(t, "João Silva", ifood.Cardholder)
	assert.InDelta(t, 47.58, ifood.Value, 1e-9)
	assert.Equal(t, "-", ifood.Installment)
	assert.Equal(t, "2025-10-20", ifood.InvoiceDate)
	assert.Equal(t, "12", ifood.CategoryID(), "Restaurante")
	assert.Equal(t, model.TypeVariable, ifood.TypeOrEmpty())

	ms := got[1]
	assert.InDelta(t, -10690.39, ms.Value, 1e-9)
	assert.Equal(t, "-", ms.Installment)
	assert.Equal(t, "8", ms.CategoryID(), "Assinaturas")
	assert.Equal(t, model.TypeFixed, ms.TypeOrEmpty())

	assert.Equal(t, "11", got[2].CategoryID())
	assert.Equal(t, "2", got[3].CategoryID())
	assert.Equal(t, "9", got[4].CategoryID())

	ids := map[string]bool{}
	for _, txn := range got {
		assert.False(t, ids[txn.ID], "duplicate id %s", txn.ID)
		ids[txn.ID] = true
		assert.True(t, strings.HasPrefix(txn.ID, "2025-10-20-"))
	}

	assert.Equal(t, []string{"list", "delete", "insert"}, st.calls, "parse and classify before purging")
}

func TestImport_ReimportIsIdempotent(t *testing.T) {
	st := newMemStore()
	svc := newService(st)
	ctx := context.Background()

	_, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)
	_, err = svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	assert.Len(t, st.list("alice"), 5)
}

func TestImport_SameMonthDifferentDayReplaces(t *testing.T) {
	st := newMemStore()
	svc := newService(st)
	ctx := context.Background()

	_, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	smaller := "Data;Estabelecimento;Portador;Valor;Parcela\n01/10/2025;NETFLIX;Ana;R$ 55,90;-\n02/10/2025;ZAFFARI;Ana;R$ 10,00;-\n"
	res, err := svc.Import(ctx, req("alice", "Fatura2025-10-05.csv", smaller))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)

	got := st.list("alice")
	require.Len(t, got, 2)
	for _, txn := range got {
		assert.Equal(t, "2025-10-05", txn.InvoiceDate)
	}
}

func TestImport_OtherMonthsAndUsersUntouched(t *testing.T) {
	st := newMemStore()
	svc := newService(st)
	ctx := context.Background()

	_, err := svc.Import(ctx, req("alice", "Fatura2025-09-20.csv", statement))
	require.NoError(t, err)
	_, err = svc.Import(ctx, req("bob", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)
	_, err = svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	assert.Len(t, st.list("alice"), 10)
	assert.Len(t, st.list("bob"), 5)
}

func TestImport_NoFilenameUsesToday(t *testing.T) {
	st := newMemStore()
	res, err := newService(st).Import(context.Background(), req("alice", "", statement))
	require.NoError(t, err)
	assert.Equal(t, "2025-11-03", res.InvoiceDate)
	assert.Equal(t, "2025-11-03", st.list("alice")[0].InvoiceDate)
}

func TestImport_EmptyStatementPurgesMonth(t *testing.T) {
	st := newMemStore()
	svc := newService(st)
	ctx := context.Background()

	_, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	res, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", "Data;Estabelecimento;Portador;Valor;Parcela\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Empty(t, st.list("alice"))
}

func TestImport_MissingUser(t *testing.T) {
	st := newMemStore()
	aud := &recordingAuditor{}
	_, err := newService(st, WithAuditor(aud)).Import(context.Background(), req("  ", "Fatura2025-10-20.csv", statement))
	assert.ErrorIs(t, err, ErrMissingUser)
	assert.Empty(t, st.calls)
	assert.Empty(t, aud.records)
}

func TestImport_StoreFailures(t *testing.T) {
	boom := errors.New("connection refused")
	tests := []struct {
		name  string
		setup func(*memStore)
		want  string
	}{
		{"categories", func(m *memStore) { m.catsErr = boom }, "loading categories"},
		{"delete", func(m *memStore) { m.deleteErr = boom }, "deleting invoice month"},
		{"insert", func(m *memStore) { m.insertErr = boom }, "inserting transactions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newMemStore()
			tt.setup(st)
			_, err := newService(st).Import(context.Background(), req("alice", "Fatura2025-10-20.csv", statement))
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestImport_ReadFailureKeepsExistingData(t *testing.T) {
	st := newMemStore()
	svc := newService(st)
	ctx := context.Background()

	_, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	_, err = svc.Import(ctx, Request{UserID: "alice", Filename: "Fatura2025-10-20.csv", Content: failingReader{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing statement")
	assert.Len(t, st.list("alice"), 5)
}

func TestImport_PrefersReplacer(t *testing.T) {
	st := &replacingStore{memStore: newMemStore()}
	_, err := newService(st).Import(context.Background(), req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)
	assert.Equal(t, 1, st.replaced)
	assert.Len(t, st.list("alice"), 5)
}

func TestImport_CustomRules(t *testing.T) {
	rs := classifier.RuleSet{
		Rules: []classifier.Rule{{Group: "delivery", Categories: []string{categories.Food}, Keywords: []string{"ifood"}}},
	}
	st := newMemStore()
	_, err := newService(st, WithClassifier(classifier.New(rs))).Import(context.Background(), req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	got := st.list("alice")
	assert.Equal(t, "1", got[0].CategoryID(), "Alimentação")
	assert.Equal(t, "13", got[1].CategoryID(), "Outros")
	assert.Equal(t, model.TypeVariable, got[1].TypeOrEmpty(), "no fixed keywords configured")
}

func TestImport_Audits(t *testing.T) {
	st := newMemStore()
	aud := &recordingAuditor{err: errors.New("disk full")}
	svc := newService(st, WithAuditor(aud))
	ctx := context.Background()

	_, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err, "audit failures do not fail the import")

	st.insertErr = errors.New("boom")
	_, err = svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.Error(t, err)

	require.Len(t, aud.records, 2)
	assert.Equal(t, Record{At: fixedNow, UserID: "alice", Filename: "Fatura2025-10-20.csv", InvoiceDate: "2025-10-20", Count: 5}, aud.records[0])
	assert.Error(t, aud.records[1].Err)
	assert.Zero(t, aud.records[1].Count)
}

func TestImport_Logs(t *testing.T) {
	buf := &bytes.Buffer{}
	log, err := logger.New(buf, "debug", logger.FormatJSON)
	require.NoError(t, err)
	ctx := logger.WithContext(context.Background(), log)

	_, err = newService(newMemStore()).Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	var parsed map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry["message"] == "statement parsed" {
			parsed = entry
		}
	}
	require.NotNil(t, parsed, "parse step logs at debug level")
	assert.Equal(t, "alice", parsed["user_id"])
	assert.Equal(t, "Fatura2025-10-20.csv", parsed["file"])
	assert.Equal(t, "2025-10-20", parsed["invoice_date"])
	assert.EqualValues(t, 5, parsed["parsed"])

	out := buf.String()
	assert.Contains(t, out, `"message":"import complete"`)
	assert.Contains(t, out, `"count":5`)
	assert.Contains(t, out, `"purged_month":"2025-10"`)
	assert.Contains(t, out, `"user_id":"alice"`)
}

func TestImport_ConcurrentSameMonth(t *testing.T) {
	st := newMemStore()
	svc := newService(st)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, st.list("alice"), 5, "each import replaces the previous one")
}

func TestImport_FileStoreEndToEnd(t *testing.T) {
	fs := filestore.New(t.TempDir())
	svc := newService(fs)
	ctx := context.Background()

	_, err := svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)
	_, err = svc.Import(ctx, req("alice", "Fatura2025-10-20.csv", statement))
	require.NoError(t, err)

	got, err := fs.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, "Restaurante", mustName(t, fs, got[0].CategoryID()))
}

func mustName(t *testing.T, fs *filestore.Store, id string) string {
	t.Helper()
	cats, err := fs.ListCategories(context.Background(), "alice")
	require.NoError(t, err)
	return categories.NewService(cats).NameOf(id, "")
}
