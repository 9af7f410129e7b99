package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spektr-org/tablero/assistant"
	"github.com/spektr-org/tablero/config"
	"github.com/spektr-org/tablero/dashboard"
	"github.com/spektr-org/tablero/dataset"
	"github.com/spektr-org/tablero/engine"
	"github.com/spektr-org/tablero/metrics"
	"github.com/spektr-org/tablero/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

const agenda = "Lunes:\n- 9:00am: Revisar correos\nDomingo:\n- Descanso"

func newTestServer(t *testing.T, svc *assistant.Service) *Server {
	t.Helper()
	m := metrics.New()
	reg := dataset.NewRegistry(zap.NewNop(), m)

	_, err := reg.Register(dashboard.StudentsDataset, dataset.Cleaner{},
		engine.NewFrame("students", []string{"nombre", "ciudad", "edad"}, [][]string{
			{"Ana", "Bogotá", "17"},
			{"Luis", "Medellín", "21"},
			{"Sofía", "Cali", "5"},
		}))
	require.NoError(t, err)

	_, err = reg.Register(dashboard.CasesDataset, dataset.CasesCleaner,
		engine.NewFrame("cases",
			[]string{"ESTADO_NOTICIA", "ETAPA", "DELITO", "CONDENA", "MUNICIPIO", "TOTAL_PROCESOS", "CAPTURA", "IMPUTACION", "ACUSACION"},
			[][]string{
				{"ACTIVO", "JUICIO", "HURTO", "NO", "NEIVA", "3", "SI", "SI", "NO"},
				{"INACTIVO", "INDAGACION", "HURTO", "SI", "NEIVA", "10", "SI", "NO", "SI"},
			}))
	require.NoError(t, err)

	opts := []dashboard.Option{dashboard.WithMetrics(m)}
	if svc != nil {
		opts = append(opts, dashboard.WithAssistant(svc))
	}
	return New(config.ServerConfig{Addr: ":0"}, reg, dashboard.New(reg, opts...), svc, zap.NewNop())
}

func mockService(responses ...assistant.MockResponse) *assistant.Service {
	return assistant.NewService(assistant.NewMockProvider(responses...), "mock-model",
		assistant.WithStore(store.NewMemoryStore(), time.Hour, 10))
}

func do(t *testing.T, s *Server, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	return do(t, s, http.MethodGet, target, nil, "")
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

// ============================================================================
// DATASETS
// ============================================================================

func TestPing(t *testing.T) {
	w := get(t, newTestServer(t, nil), "/api/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestListDatasets(t *testing.T) {
	w := get(t, newTestServer(t, nil), "/api/datasets")
	require.Equal(t, http.StatusOK, w.Code)

	var out []datasetSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "cases", out[0].Name)
	assert.Equal(t, "students", out[1].Name)
	assert.Equal(t, 3, out[1].Rows)
}

func TestGetDataset(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "/api/datasets/students")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		Name string            `json:"name"`
		Info *engine.FrameInfo `json:"info"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, 3, detail.Info.Rows)
	assert.Len(t, detail.Info.Columns, 3)

	w = get(t, s, "/api/datasets/teachers")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, errorOf(t, w), "teachers")
}

func TestExportDataset(t *testing.T) {
	w := get(t, newTestServer(t, nil), "/api/datasets/cases/export.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="cases.xlsx"`)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")), "xlsx is a zip")
}

func upload(t *testing.T, s *Server, target, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return do(t, s, http.MethodPost, target, body.Bytes(), mw.FormDataContentType())
}

func TestImportDataset(t *testing.T) {
	s := newTestServer(t, nil)

	w := upload(t, s, "/api/datasets/students/import", "nuevos.csv", "nombre,ciudad,edad\nEva,Pasto,30\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = get(t, s, "/api/pages/students?menu=Filtrar+por+edad&edad_min=0")
	require.Equal(t, http.StatusOK, w.Code)
	var page dashboard.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	menu, ok := page.Section("menu")
	require.True(t, ok)
	assert.Equal(t, [][]string{{"Eva", "Pasto", "30"}}, menu.Table.Rows)

	w = upload(t, s, "/api/datasets/students/import", "notas.txt", "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, s, "/api/datasets/teachers/import", "a.csv", "a\n1\n")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/datasets/students/import", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================================
// PAGES + CHARTS
// ============================================================================

func TestStudentsPage(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "/api/pages/students")
	require.Equal(t, http.StatusOK, w.Code)
	var page dashboard.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, "students", page.Name)
	assert.Len(t, page.Sections, 7)

	w = get(t, s, "/api/pages/students?edad_min=mucho")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, errorOf(t, w), "edad_min")
}

func TestCasesPage(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "/api/pages/cases?"+url.Values{"estado": {"ACTIVO"}, "full": {"on"}}.Encode())
	require.Equal(t, http.StatusOK, w.Code)
	var page dashboard.Page
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Sections, 5)
	_, ok := page.Section(dashboard.CasesSummaryID)
	assert.True(t, ok)

	pie, ok := page.Section("etapas-pie")
	require.True(t, ok)
	require.NotNil(t, pie.Chart)
	assert.Equal(t, "JUICIO", pie.Chart.Series[0].Data[0].Label)

	w = get(t, s, "/api/pages/cases?municipio=CALI")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCasesChartImages(t *testing.T) {
	s := newTestServer(t, nil)

	w := get(t, s, "/api/pages/cases/charts/estado-condena")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = get(t, s, "/api/pages/cases/charts/etapas-pie?format=svg")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<svg")

	w = get(t, s, "/api/pages/cases/charts/estado-condena?condena=SI")
	require.Equal(t, http.StatusOK, w.Code, "single bar: %s", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = get(t, s, "/api/pages/cases/charts/heatmap")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(t, s, "/api/pages/cases/charts/etapas-pie?format=gif")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, s, "/api/pages/cases/charts/etapas-pie?estado=")
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing to draw")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusOK, get(t, s, "/api/pages/students").Code)

	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `tablero_page_renders_total{page="students"}`)
	assert.Contains(t, w.Body.String(), `tablero_dataset_rows{dataset="cases"}`)
}

// ============================================================================
// ASSISTANT
// ============================================================================

func postJSON(t *testing.T, s *Server, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return do(t, s, http.MethodPost, target, raw, "application/json")
}

func TestGenerateAndHistory(t *testing.T) {
	s := newTestServer(t, mockService(assistant.MockResponse{Content: agenda}))

	w := postJSON(t, s, "/api/assistant", generateRequest{Mode: "agenda", Input: "gimnasio", Session: "abc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp generateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, assistant.ModeAgenda, resp.Reply.Mode)
	assert.Len(t, resp.Reply.Events, 2)
	require.Len(t, resp.Sections, 2)
	assert.Equal(t, dashboard.SectionTable, resp.Sections[1].Kind)

	w = get(t, s, "/api/assistant/history/abc")
	require.Equal(t, http.StatusOK, w.Code)
	var history []store.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "gimnasio", history[0].Input)

	w = get(t, s, "/api/assistant/history/nadie")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = get(t, s, "/api/assistant/history/abc?limit=-1")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateErrors(t *testing.T) {
	s := newTestServer(t, mockService(assistant.MockResponse{Content: "ok"}))

	w := postJSON(t, s, "/api/assistant", generateRequest{Input: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, s, "/api/assistant", generateRequest{Mode: "poema", Input: "hola"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/assistant", []byte("{"), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := newTestServer(t, mockService(assistant.MockResponse{Err: errors.New("quota")}))
	w = postJSON(t, failing, "/api/assistant", generateRequest{Input: "hola"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, errorOf(t, w), "quota")
}

func TestGenerateRateLimited(t *testing.T) {
	svc := assistant.NewService(assistant.NewMockProvider(assistant.MockResponse{Content: "ok"}), "mock-model",
		assistant.WithRateLimit(0.001, 1))
	s := newTestServer(t, svc)

	require.Equal(t, http.StatusOK, postJSON(t, s, "/api/assistant", generateRequest{Input: "uno"}).Code)
	w := postJSON(t, s, "/api/assistant", generateRequest{Input: "dos"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAssistantRoutesDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	w := postJSON(t, s, "/api/assistant", generateRequest{Input: "hola"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(dashboard.ErrInvalidWidget))
	assert.Equal(t, http.StatusNotFound, statusFor(dataset.ErrUnknownDataset))
	assert.Equal(t, http.StatusTooManyRequests, statusFor(assistant.ErrRateLimited))
	assert.Equal(t, http.StatusBadGateway, statusFor(assistant.ErrProvider))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("disk full")))
	assert.True(t, strings.HasPrefix(xlsxContentType, "application/"))
}
