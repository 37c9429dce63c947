package ingest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/altscore/altscore/internal/features"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func TestParseCSV_BankExport(t *testing.T) {
	doc := "Date,Transaction Type,Description,Debit,Credit,Balance\n" +
		"01/01/2024,Opening Balance,,-,-,1000\n" +
		"05/01/2024,Debit,Grocer,650.00,-,350\n" +
		"10/01/2024,Credit,<b>Employer</b>,,\"40,000.00\",40350\n"

	st, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, st.Format)
	assert.Equal(t, 0, st.Skipped)
	require.Len(t, st.Transactions, 2)

	debit := st.Transactions[0]
	assert.Equal(t, "2024-01-05", debit.TS)
	assert.Equal(t, features.Amount(-650), debit.Amount)
	assert.Equal(t, "debit", debit.Type)
	assert.Equal(t, "Grocer", deref(debit.Merchant))

	credit := st.Transactions[1]
	assert.Equal(t, features.Amount(40000), credit.Amount)
	assert.Equal(t, "credit", credit.Type)
	assert.Equal(t, "Employer", deref(credit.Merchant))
}

func TestParseCSV_GenericColumns(t *testing.T) {
	doc := "date,merchant,amount,type,channel\n" +
		"2024-02-01T10:00:00Z,Cafe,120,debit,UPI\n" +
		"2024-02-02T10:00:00Z,Shop,abc,debit,Card\n" +
		",NoDate,10,debit,Card\n" +
		"2024-02-03T10:00:00Z,Employer,5000,deposit,\n"

	st, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, st.Skipped)
	require.Len(t, st.Transactions, 2)

	assert.Equal(t, features.Amount(-120), st.Transactions[0].Amount)
	assert.Equal(t, "UPI", deref(st.Transactions[0].Channel))
	assert.Equal(t, "credit", st.Transactions[1].Type)
	assert.Nil(t, st.Transactions[1].Channel)
}

func TestParseCSV_SignDecidesKindWithoutTypeColumn(t *testing.T) {
	st, err := ParseCSV(strings.NewReader("Timestamp,Amount\n2024-01-01,500\n2024-01-02,-20\n"))
	require.NoError(t, err)
	require.Len(t, st.Transactions, 2)
	assert.Equal(t, "credit", st.Transactions[0].Type)
	assert.Equal(t, "debit", st.Transactions[1].Type)
}

func TestParseCSV_Errors(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ParseCSV(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestParseText(t *testing.T) {
	doc := "2025-10-01T10:00:00Z, 800.50, credit, Employer, Bank\n" +
		"\n" +
		"2025-10-02 21:15 | -120 | debit | Cafe | UPI\n" +
		"random line\n" +
		"2025-10-03T10:00:00Z, ₹1250, DEBIT\n"

	st, err := ParseText(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, FormatText, st.Format)
	assert.Equal(t, 1, st.Skipped)
	require.Len(t, st.Transactions, 3)

	assert.Equal(t, "credit", st.Transactions[0].Type)
	assert.Equal(t, features.Amount(800.5), st.Transactions[0].Amount)

	assert.Equal(t, "2025-10-02T21:15:00Z", st.Transactions[1].TS)
	assert.Equal(t, features.Amount(120), st.Transactions[1].Amount)
	assert.Equal(t, "debit", st.Transactions[1].Type)
	assert.Equal(t, "UPI", deref(st.Transactions[1].Channel))

	assert.Equal(t, features.Amount(1250), st.Transactions[2].Amount)
	assert.Equal(t, defaultMerchant, deref(st.Transactions[2].Merchant))
	assert.Equal(t, defaultChannel, deref(st.Transactions[2].Channel))

	_, err = ParseText(strings.NewReader("\n  \n"))
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2024-01-05", normalizeDate("5/1/2024"))
	assert.Equal(t, "2024-01-05T09:30:00Z", normalizeDate("05-01-2024 9:30"))
	assert.Equal(t, "2024-01-05T09:30:15Z", normalizeDate("05/01/2024 09:30:15"))
	assert.Equal(t, "2024-01-05", normalizeDate(" 2024-01-05 "))
}

func TestClassifyAndAmounts(t *testing.T) {
	assert.Equal(t, "credit", classify("CR", -5))
	assert.Equal(t, "debit", classify("Withdrawal", 5))
	assert.Equal(t, "debit", classify("", -5))
	assert.Equal(t, "credit", classify("", 5))
	assert.Equal(t, "debit", classify("transfer", 5))

	v, ok := parseAmount("₹1,250.50")
	assert.True(t, ok)
	assert.Equal(t, 1250.5, v)
	v, ok = parseAmount("--")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
	_, ok = parseAmount("n/a")
	assert.False(t, ok)
}

func setupRouter() *gin.Engine {
	r := gin.New()
	NewHandler().RegisterRoutes(r.Group("/v1"))
	return r
}

func TestImport_TextBody(t *testing.T) {
	r := setupRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/import",
		strings.NewReader("2024-03-01T23:30:00Z, 100, credit, Employer, Bank\n"))
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Format   Format             `json:"format"`
		Count    int                `json:"count"`
		Skipped  int                `json:"skipped"`
		Features map[string]float64 `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, FormatText, body.Format)
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, 100.0, body.Features["monthly_avg_income"])
	assert.Equal(t, 1.0, body.Features["night_txn_ratio"])
}

func TestImport_MultipartCSV(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "statement.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("date,amount,type\n2024-01-01,1000,credit\n2024-01-02,300,debit\n"))
	require.NoError(t, mw.Close())

	r := setupRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"format":"csv"`)
	assert.Contains(t, w.Body.String(), `"count":2`)
}

func TestImport_Rejections(t *testing.T) {
	r := setupRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/transactions/import", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/transactions/import", strings.NewReader("a,b\n1,2\n"))
	req.Header.Set("Content-Type", "text/csv")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
