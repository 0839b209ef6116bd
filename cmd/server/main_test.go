package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/boursa/brokerage-api/internal/auth"
	"github.com/boursa/brokerage-api/internal/clients"
	"github.com/boursa/brokerage-api/internal/database"
	"github.com/boursa/brokerage-api/internal/documents"
	"github.com/boursa/brokerage-api/internal/orders"
	"github.com/boursa/brokerage-api/internal/pricing"
	"github.com/boursa/brokerage-api/internal/securities"
	"github.com/boursa/brokerage-api/internal/stats"

	"github.com/gin-gonic/gin"
)

const testVisaCOSOB = "COSOB-2026-01"

// envelope mirrors the wire format of pkg/response
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

type testServer struct {
	router     *gin.Engine
	uploadDir  string
	authToken  string
	agentToken string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}

	authService := auth.NewService("test-secret")
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)
	authService.RegisterAgentCredentials(auth.TestAgentKey, auth.TestAgentSecret)

	rates := pricing.Rates{Action: 0.03, Obligation: 0.015, Sukuk: 0.015, Participatif: 0.02}
	uploadDir := t.TempDir()

	securityService := securities.NewService(db)
	clientService := clients.NewService(db)
	documentService := documents.NewService(db, uploadDir, 2<<20)
	orderService := orders.NewService(db, rates, testVisaCOSOB)
	statsService := stats.NewService(db)

	router := gin.New()
	setupRoutes(router, "test-secret",
		auth.NewGinHandlers(authService),
		securities.NewGinHandlers(securityService),
		clients.NewGinHandlers(clientService),
		orders.NewGinHandlers(orderService, documentService),
		documents.NewGinHandlers(documentService),
		stats.NewGinHandlers(statsService))

	ts := &testServer{router: router, uploadDir: uploadDir}
	ts.authToken = ts.token(t, auth.TestAPIKey, auth.TestAPISecret)
	ts.agentToken = ts.token(t, auth.TestAgentKey, auth.TestAgentSecret)
	return ts
}

// do issues a JSON request against the router and decodes the envelope
func (ts *testServer) do(t *testing.T, method, path, token string, payload interface{}) (int, *envelope) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response from %s: %v, body: %s", path, err, w.Body.String())
	}
	return w.Code, &resp
}

func (ts *testServer) token(t *testing.T, apiKey, apiSecret string) string {
	t.Helper()

	code, resp := ts.do(t, http.MethodPost, "/api/v1/auth/token", "",
		map[string]string{"api_key": apiKey, "api_secret": apiSecret})
	if code != http.StatusCreated {
		t.Fatalf("authentication failed with status %d", code)
	}

	var data struct {
		Token string `json:"jwt_token"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.Token == "" {
		t.Fatalf("no token in auth response: %v", err)
	}
	return data.Token
}

// seedReferenceData registers a security and a client through the agent routes
// and returns their ids
func (ts *testServer) seedReferenceData(t *testing.T) (string, string) {
	t.Helper()

	code, resp := ts.do(t, http.MethodPost, "/api/v1/agent/securities", ts.agentToken, map[string]interface{}{
		"issuer":        "Biopharm",
		"code":          "BIO",
		"isin_code":     "DZ0000000001",
		"face_value":    1000,
		"quantity":      50,
		"security_type": "action",
		"market_type":   "S",
	})
	if code != http.StatusCreated {
		t.Fatalf("security creation failed with status %d: %+v", code, resp.Error)
	}
	var security struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &security); err != nil || security.ID == "" {
		t.Fatalf("no security id in response: %v", err)
	}

	code, resp = ts.do(t, http.MethodPost, "/api/v1/agent/clients", ts.agentToken, map[string]string{
		"name":        "Amine Benali",
		"client_code": "CL001",
		"address":     "12 Rue Didouche Mourad",
		"wilaya":      "Alger",
		"birth_date":  "1985-04-12",
		"id_number":   "198504120001",
		"nationalite": "DZ",
	})
	if code != http.StatusCreated {
		t.Fatalf("client creation failed with status %d: %+v", code, resp.Error)
	}
	var client struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Data, &client); err != nil || client.ID == "" {
		t.Fatalf("no client id in response: %v", err)
	}

	return security.ID, client.ID
}

// startWorkflowWithSecurity opens a secondary-market workflow and applies the
// security-selection step
func (ts *testServer) startWorkflowWithSecurity(t *testing.T, securityID string) string {
	t.Helper()

	code, resp := ts.do(t, http.MethodPost, "/api/v1/workflows", ts.authToken,
		map[string]string{"market_type": "S"})
	if code != http.StatusCreated {
		t.Fatalf("workflow creation failed with status %d: %+v", code, resp.Error)
	}
	var workflow struct {
		WorkflowID string `json:"workflow_id"`
	}
	if err := json.Unmarshal(resp.Data, &workflow); err != nil || workflow.WorkflowID == "" {
		t.Fatalf("no workflow id in response: %v", err)
	}

	code, resp = ts.do(t, http.MethodPost,
		"/api/v1/workflows/"+workflow.WorkflowID+"/security", ts.authToken,
		map[string]string{"stock_id": securityID})
	if code != http.StatusCreated {
		t.Fatalf("security selection failed with status %d: %+v", code, resp.Error)
	}

	return workflow.WorkflowID
}

func (ts *testServer) workflowState(t *testing.T, workflowID string) string {
	t.Helper()

	code, resp := ts.do(t, http.MethodGet, "/api/v1/workflows/"+workflowID, ts.authToken, nil)
	if code != http.StatusOK {
		t.Fatalf("workflow fetch failed with status %d: %+v", code, resp.Error)
	}
	var workflow struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(resp.Data, &workflow); err != nil {
		t.Fatalf("failed to decode workflow: %v", err)
	}
	return workflow.State
}

// uploadBulletin posts a multipart file to the workflow's bulletin route
func (ts *testServer) uploadBulletin(t *testing.T, workflowID, fileName string, content []byte) (int, *envelope) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/"+workflowID+"/bulletin", &buf)
	req.Header.Set("Authorization", "Bearer "+ts.authToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode bulletin response: %v, body: %s", err, w.Body.String())
	}
	return w.Code, &resp
}

func uploadedFileCount(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0
		}
		t.Fatalf("failed to read upload dir: %v", err)
	}
	return len(entries)
}

func TestAuthToken_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.do(t, http.MethodPost, "/api/v1/auth/token", "",
		map[string]string{"api_key": auth.TestAPIKey, "api_secret": "wrong"})
	if code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", code)
	}
	if resp.Error == nil || resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED error code, got %+v", resp.Error)
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t)

	code, resp := ts.do(t, http.MethodGet, "/api/v1/securities", "", nil)
	if code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without token, got %d", code)
	}
	if resp.Error == nil || resp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED error code, got %+v", resp.Error)
	}
}

func TestAgentRoutes_RequireAgentPermission(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]interface{}{
		"issuer":        "Saidal",
		"security_type": "action",
		"market_type":   "S",
	}

	// A retail token carries the order permission only
	code, resp := ts.do(t, http.MethodPost, "/api/v1/agent/securities", ts.authToken, payload)
	if code != http.StatusForbidden {
		t.Errorf("expected status 403 for a non-agent token, got %d", code)
	}
	if resp.Error == nil || resp.Error.Code != "FORBIDDEN" {
		t.Errorf("expected FORBIDDEN error code, got %+v", resp.Error)
	}

	code, _ = ts.do(t, http.MethodPost, "/api/v1/agent/securities", ts.agentToken, payload)
	if code != http.StatusCreated {
		t.Errorf("expected status 201 for the agent token, got %d", code)
	}
}

func TestSubmitWorkflow_InvalidDraftReturnsInlineFieldErrors(t *testing.T) {
	ts := newTestServer(t)
	securityID, clientID := ts.seedReferenceData(t)
	workflowID := ts.startWorkflowWithSecurity(t, securityID)

	code, resp := ts.do(t, http.MethodPost, "/api/v1/workflows/"+workflowID+"/submit", ts.authToken,
		map[string]interface{}{
			"client_id":         clientID,
			"quantity":          10,
			"operation_type":    "A",
			"conditionDuree":    "day-only",
			"conditionPrix":     "market",
			"conditionQuantite": "minimum-quantity",
			"minQuantity":       25,
		})
	if code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", code)
	}
	if resp.Error == nil || resp.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED error code, got %+v", resp.Error)
	}
	if resp.Error.Fields["quantiteMinimale"] == "" {
		t.Errorf("expected an inline quantiteMinimale field error, got %v", resp.Error.Fields)
	}

	// The session survives the rejection and stays at order composition
	if state := ts.workflowState(t, workflowID); state != "COMPOSING_ORDER_DETAIL" {
		t.Errorf("expected workflow in COMPOSING_ORDER_DETAIL, got %s", state)
	}
}

func TestWorkflow_SubmitAndBulletinUpload(t *testing.T) {
	ts := newTestServer(t)
	securityID, clientID := ts.seedReferenceData(t)
	workflowID := ts.startWorkflowWithSecurity(t, securityID)

	code, resp := ts.do(t, http.MethodPost, "/api/v1/workflows/"+workflowID+"/submit", ts.authToken,
		map[string]interface{}{
			"client_id":         clientID,
			"quantity":          10,
			"operation_type":    "A",
			"conditionDuree":    "day-only",
			"conditionPrix":     "market",
			"conditionQuantite": "all-or-none",
		})
	if code != http.StatusCreated {
		t.Fatalf("submission failed with status %d: %+v", code, resp.Error)
	}
	var submitted struct {
		OrderID   string `json:"order_id"`
		VisaCOSOB string `json:"visa_cosob"`
	}
	if err := json.Unmarshal(resp.Data, &submitted); err != nil || submitted.OrderID == "" {
		t.Fatalf("no order id in submit response: %v", err)
	}
	if submitted.VisaCOSOB != testVisaCOSOB {
		t.Errorf("expected visa %s, got %s", testVisaCOSOB, submitted.VisaCOSOB)
	}

	// A text file dressed up as a bulletin is refused before any disk write
	code, resp = ts.uploadBulletin(t, workflowID, "bulletin.pdf", []byte("just some notes"))
	if code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for a text upload, got %d", code)
	}
	if resp.Error == nil || resp.Error.Code != "BAD_REQUEST" {
		t.Errorf("expected BAD_REQUEST error code, got %+v", resp.Error)
	}
	if uploadedFileCount(t, ts.uploadDir) != 0 {
		t.Error("rejected upload must not reach the disk")
	}
	if state := ts.workflowState(t, workflowID); state != "AWAITING_DOCUMENT_UPLOAD" {
		t.Errorf("expected workflow still in AWAITING_DOCUMENT_UPLOAD, got %s", state)
	}

	// A real PNG confirms the order and redirects to the confirmation page
	pngStub := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	code, resp = ts.uploadBulletin(t, workflowID, "bulletin.png", pngStub)
	if code != http.StatusCreated {
		t.Fatalf("bulletin upload failed with status %d: %+v", code, resp.Error)
	}
	var confirmed struct {
		Redirect string `json:"redirect"`
	}
	if err := json.Unmarshal(resp.Data, &confirmed); err != nil {
		t.Fatalf("failed to decode bulletin response: %v", err)
	}
	if confirmed.Redirect != "/orders/congratulations" {
		t.Errorf("expected confirmation redirect, got %s", confirmed.Redirect)
	}
	if uploadedFileCount(t, ts.uploadDir) != 1 {
		t.Errorf("expected one stored bulletin, got %d", uploadedFileCount(t, ts.uploadDir))
	}

	// The submitter can read the confirmed order back
	code, resp = ts.do(t, http.MethodGet, "/api/v1/orders/"+submitted.OrderID, ts.authToken, nil)
	if code != http.StatusOK {
		t.Fatalf("order fetch failed with status %d: %+v", code, resp.Error)
	}
	var order struct {
		Status   string  `json:"status"`
		NetTotal float64 `json:"net_total"`
	}
	if err := json.Unmarshal(resp.Data, &order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if order.Status != "CONFIRMED" {
		t.Errorf("expected order CONFIRMED, got %s", order.Status)
	}
	// 1000 x 10 at 3% commission
	if order.NetTotal != 10300 {
		t.Errorf("expected net total 10300, got %v", order.NetTotal)
	}

	backoffCode, statsResp := ts.do(t, http.MethodGet, "/api/v1/agent/stats", ts.agentToken, nil)
	if backoffCode != http.StatusOK {
		t.Fatalf("stats fetch failed with status %d", backoffCode)
	}
	var summary struct {
		TotalOrders     int64 `json:"total_orders"`
		ConfirmedOrders int64 `json:"confirmed_orders"`
	}
	if err := json.Unmarshal(statsResp.Data, &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.TotalOrders != 1 || summary.ConfirmedOrders != 1 {
		t.Errorf("expected one confirmed order in the summary, got %+v", summary)
	}
}
