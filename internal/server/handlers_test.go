package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/muletrace/internal/detection"
	"github.com/vanshika/muletrace/internal/domain"
	"github.com/vanshika/muletrace/internal/graph"
	"github.com/vanshika/muletrace/internal/ingest"
	"github.com/vanshika/muletrace/internal/metrics"
	"github.com/vanshika/muletrace/internal/service"
)

const triangleCSV = "transaction_id,sender_id,receiver_id,amount,timestamp\n" +
	"T1,A,B,100.50,2024-01-01 10:00:00\n" +
	"T2,B,C,99.00,2024-01-01 11:00:00\n" +
	"T3,C,A,98.25,2024-01-01 12:00:00\n"

type stubSource struct {
	txs []domain.TransactionRecord
	err error
}

func (s stubSource) ListTransactions(context.Context) ([]domain.TransactionRecord, error) {
	return s.txs, s.err
}

type routerOptions struct {
	source   service.TransactionSource
	rec      *metrics.Recorder
	maxBytes int64
	rate     float64
	burst    int
	health   HealthService
}

func newTestRouter(t *testing.T, o routerOptions) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	opts := []service.Option{
		service.WithIDGenerator(func() string { return "analysis-1" }),
		service.WithMetrics(o.rec),
	}
	if o.source != nil {
		opts = append(opts, service.WithSource(o.source))
	}
	svc := service.NewAnalysisService(logger, detection.NewEngine(detection.DefaultOptions()), ingest.NewParser(), opts...)

	maxBytes := o.maxBytes
	if maxBytes == 0 {
		maxBytes = 1 << 20
	}
	return NewRouter(logger, RouterDependencies{
		Health:       o.health,
		API:          NewAPIHandlers(logger, svc, maxBytes),
		Metrics:      o.rec,
		AnalyzeRate:  o.rate,
		AnalyzeBurst: o.burst,
	})
}

func decodeResult(t *testing.T, rr *httptest.ResponseRecorder) domain.Result {
	t.Helper()
	var res domain.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	return res
}

func multipartBody(t *testing.T, field, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "ignored"))
	fw, err := mw.CreateFormFile(field, "transactions.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleAnalyzeMultipart(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	body, contentType := multipartBody(t, "file", triangleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	assert.Equal(t, "analysis-1", rr.Header().Get(AnalysisIDHeader))

	var sections map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sections))
	keys := make([]string, 0, len(sections))
	for k := range sections {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"suspicious_accounts", "fraud_rings", "summary"}, keys)

	res := decodeResult(t, rr)
	assert.Equal(t, 3, res.Summary.TotalAccountsAnalyzed)
	assert.Equal(t, 3, res.Summary.SuspiciousAccountsFlagged)
	assert.Equal(t, 3, res.Summary.FraudRingsDetected)
	require.Len(t, res.SuspiciousAccounts, 3)
	assert.Equal(t, "A", res.SuspiciousAccounts[0].AccountID)
	assert.Equal(t, 100, res.SuspiciousAccounts[0].SuspicionScore)
	assert.Equal(t, "RING_003", res.SuspiciousAccounts[0].RingID)
}

func TestHandleAnalyzeRawBody(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("sender_id,receiver_id\nA,B\n"))
	req.Header.Set("Content-Type", "text/csv")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decodeResult(t, rr)
	assert.Equal(t, 1, res.Summary.TotalAccountsAnalyzed)
	assert.Empty(t, res.SuspiciousAccounts)
	assert.NotNil(t, res.SuspiciousAccounts)
	assert.Empty(t, res.FraudRings)
}

func TestHandleAnalyzeEmptyBody(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", http.NoBody)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	res := decodeResult(t, rr)
	assert.Equal(t, domain.Summary{}, res.Summary)
}

func TestHandleAnalyzeRejectsMissingColumns(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("from,to\nA,B\n"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "sender_id")
}

func TestHandleAnalyzeRequiresFileField(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	body, contentType := multipartBody(t, "upload", triangleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), `"file"`)
}

func TestHandleAnalyzeRejectsOversizedUpload(t *testing.T) {
	router := newTestRouter(t, routerOptions{maxBytes: 64})

	payload := "sender_id,receiver_id\n" + strings.Repeat("ACC-1,ACC-2\n", 50)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestHandleAnalyzeMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestHandleAnalyzeStored(t *testing.T) {
	src := stubSource{txs: []domain.TransactionRecord{
		{SenderID: "A", ReceiverID: "B"},
		{SenderID: "B", ReceiverID: "C"},
		{SenderID: "C", ReceiverID: "A"},
	}}
	router := newTestRouter(t, routerOptions{source: src})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/graph", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 3, decodeResult(t, rr).Summary.FraudRingsDetected)
}

func TestHandleAnalyzeStoredWithoutSource(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/graph", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHandleAnalyzeStoredSourceFailure(t *testing.T) {
	router := newTestRouter(t, routerOptions{source: stubSource{err: errors.New("neo4j down")}})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/graph", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "neo4j down")
}

func TestAnalyzeRateLimited(t *testing.T) {
	router := newTestRouter(t, routerOptions{rate: 0.001, burst: 1})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(triangleCSV))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusOK, send().Code)
	limited := send()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "1", limited.Header().Get("Retry-After"))

	// Health checks are never throttled.
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "req-42", rr.Header().Get(RequestIDHeader))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rr.Header().Get(RequestIDHeader), 36)
}

func TestHealthzDegraded(t *testing.T) {
	client := graph.NewMemoryClient().WithConnectivityError(errors.New("unreachable"))
	router := newTestRouter(t, routerOptions{health: GraphHealthService{Client: client}})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	assert.Equal(t, "degraded", payload["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := metrics.New()
	router := newTestRouter(t, routerOptions{rec: rec})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(triangleCSV)))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `muletrace_analyses_total{outcome="ok",source="upload"} 1`)
	assert.Contains(t, body, `muletrace_fraud_rings_detected_total 3`)
	assert.Contains(t, body, `http_requests_total{endpoint="/api/analyze",method="POST",status="200"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(logger, RouterDependencies{AllowedOrigins: []string{"https://app.example.com"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandleAnalyzeReportsSkippedRowsInSummary(t *testing.T) {
	router := newTestRouter(t, routerOptions{})

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader("sender_id,receiver_id\nA,B\n,C\n"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Summary map[string]json.RawMessage `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.JSONEq(t, `1`, string(body.Summary["skipped_records"]))
	assert.JSONEq(t, `["skipped malformed record: line 3: missing sender_id"]`, string(body.Summary["warnings"]))
}
