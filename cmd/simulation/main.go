package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/boursa/brokerage-api/internal/auth"
	"github.com/boursa/brokerage-api/internal/orders"
	"github.com/boursa/brokerage-api/internal/types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minWorkflows  = 10
	maxWorkflows  = 60
	numWorkers    = 5
	serverAddress = "http://localhost:8080"
)

var issuers = []string{"Biopharm", "Saidal", "AOM Invest", "Alliance Assurances", "EGH El Aurassi"}

// Minimal valid PNG signature; enough for server-side content sniffing
var pngStub = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	mu         sync.Mutex
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

func (rs *routeStats) addFailure() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.failures++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))
	median = rs.durations[len(rs.durations)/2]

	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the brokerage API
type simulationClient struct {
	baseURL    string
	authToken  string
	agentToken string
	client     *http.Client
	stats      map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates both a retail client and a back-office agent
func newSimulationClient() (*simulationClient, error) {
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":     {name: "Authentication"},
			"seed":     {name: "Seed Reference Data"},
			"workflow": {name: "Workflow Steps"},
			"submit":   {name: "Submit Order"},
			"bulletin": {name: "Upload Bulletin"},
			"status":   {name: "Get Order"},
		},
	}

	token, err := sc.authenticate(auth.TestAPIKey, auth.TestAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate client: %w", err)
	}
	sc.authToken = token

	agentToken, err := sc.authenticate(auth.TestAgentKey, auth.TestAgentSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate agent: %w", err)
	}
	sc.agentToken = agentToken

	return sc, nil
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()
	defer func() {
		sc.stats["auth"].addDuration(time.Since(start))
	}()

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Success bool `json:"success"`
		Data    struct {
			Token string `json:"jwt_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Data.Token, nil
}

// postJSON issues an authenticated POST and decodes the response envelope into out
func (sc *simulationClient) postJSON(token, path string, payload interface{}, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest("POST", sc.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("path", path).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s failed with status %d: %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
		}
	}
	return nil
}

// seedReferenceData registers securities and a client through the agent API
// Returns the created security and client IDs
func (sc *simulationClient) seedReferenceData() ([]string, string, error) {
	start := time.Now()
	defer func() {
		sc.stats["seed"].addDuration(time.Since(start))
	}()

	securityTypes := []types.SecurityType{
		types.SecurityTypeAction,
		types.SecurityTypeObligation,
		types.SecurityTypeSukuk,
		types.SecurityTypeParticipatif,
	}

	var securityIDs []string
	for i, issuer := range issuers {
		security := types.Security{
			Issuer:     issuer,
			Code:       fmt.Sprintf("SEC%02d", i+1),
			ISINCode:   fmt.Sprintf("DZ00000000%02d", i+1),
			FaceValue:  float64(rand.Intn(1900)+100) * 10,
			Quantity:   int64(rand.Intn(9000) + 1000),
			Type:       securityTypes[i%len(securityTypes)],
			MarketType: types.MarketSecondary,
		}

		var result struct {
			Data types.Security `json:"data"`
		}
		if err := sc.postJSON(sc.agentToken, "/api/v1/agent/securities", security, &result); err != nil {
			return nil, "", err
		}
		securityIDs = append(securityIDs, result.Data.SecurityID)
	}

	client := types.Client{
		Name:        "Simulation Client",
		ClientCode:  "SIM001",
		Email:       "sim@example.dz",
		Address:     "12 Rue Didouche Mourad",
		Wilaya:      "Alger",
		BirthDate:   "1985-04-12",
		IDNumber:    "198504120001",
		Nationality: "DZ",
	}
	var clientResult struct {
		Data types.Client `json:"data"`
	}
	if err := sc.postJSON(sc.agentToken, "/api/v1/agent/clients", client, &clientResult); err != nil {
		return nil, "", err
	}

	return securityIDs, clientResult.Data.ClientID, nil
}

// runWorkflow drives one order-composition session end to end:
// open, select security, submit the order detail, upload the signed bulletin
func (sc *simulationClient) runWorkflow(securityID, clientID string) (string, error) {
	var created struct {
		Data orders.Workflow `json:"data"`
	}

	wfStart := time.Now()
	err := sc.postJSON(sc.authToken, "/api/v1/workflows",
		map[string]string{"market_type": "S"}, &created)
	if err != nil {
		sc.stats["workflow"].addFailure()
		return "", err
	}
	workflowID := created.Data.WorkflowID

	err = sc.postJSON(sc.authToken,
		fmt.Sprintf("/api/v1/workflows/%s/security", workflowID),
		map[string]string{"stock_id": securityID}, nil)
	sc.stats["workflow"].addDuration(time.Since(wfStart))
	if err != nil {
		sc.stats["workflow"].addFailure()
		return "", err
	}

	operation := types.OperationBuy
	if rand.Intn(2) == 0 {
		operation = types.OperationSell
	}

	order := types.OrderRequest{
		ClientID:          clientID,
		Quantity:          int64(rand.Intn(50) + 1),
		OperationType:     operation,
		DurationCondition: types.DurationDayOnly,
		PriceCondition:    types.PriceMarket,
		QuantityCondition: types.QuantityAllOrNone,
	}

	submitStart := time.Now()
	var submitted struct {
		Data struct {
			OrderID string `json:"order_id"`
		} `json:"data"`
	}
	err = sc.postJSON(sc.authToken,
		fmt.Sprintf("/api/v1/workflows/%s/submit", workflowID), order, &submitted)
	sc.stats["submit"].addDuration(time.Since(submitStart))
	if err != nil {
		sc.stats["submit"].addFailure()
		return "", err
	}

	if err := sc.uploadBulletin(workflowID); err != nil {
		sc.stats["bulletin"].addFailure()
		return "", err
	}

	return submitted.Data.OrderID, nil
}

// uploadBulletin attaches a signed bulletin stub to the workflow
func (sc *simulationClient) uploadBulletin(workflowID string) error {
	start := time.Now()
	defer func() {
		sc.stats["bulletin"].addDuration(time.Since(start))
	}()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "bulletin.png")
	if err != nil {
		return err
	}
	if _, err := part.Write(pngStub); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(
		"POST",
		fmt.Sprintf("%s/api/v1/workflows/%s/bulletin", sc.baseURL, workflowID),
		&buf,
	)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bulletin upload failed with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// getOrder retrieves the current status of an order
func (sc *simulationClient) getOrder(orderID string) (*types.Order, error) {
	start := time.Now()
	defer func() {
		sc.stats["status"].addDuration(time.Since(start))
	}()

	req, err := http.NewRequest(
		"GET",
		fmt.Sprintf("%s/api/v1/orders/%s", sc.baseURL, orderID),
		nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+sc.authToken)

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get order failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Success bool        `json:"success"`
		Data    types.Order `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	return &result.Data, nil
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\nAPI Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// main runs the order-intake simulation against a locally running server.
// It seeds reference data, then drives concurrent order-composition
// workflows through submission and bulletin upload.
func main() {
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	securityIDs, clientID, err := simClient.seedReferenceData()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to seed reference data")
	}
	log.Info().Int("securities", len(securityIDs)).Str("client_id", clientID).Msg("Reference data seeded")

	targetWorkflows := rand.Intn(maxWorkflows-minWorkflows) + minWorkflows
	log.Info().Int("target_workflows", targetWorkflows).Msg("Starting simulation")

	ordersChan := make(chan string, targetWorkflows)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := 0; j < targetWorkflows/numWorkers; j++ {
				securityID := securityIDs[rand.Intn(len(securityIDs))]
				orderID, err := simClient.runWorkflow(securityID, clientID)
				if err != nil {
					log.Error().Err(err).Int("worker", workerID).Msg("Workflow failed")
					continue
				}
				ordersChan <- orderID
			}
		}(i)
	}

	wg.Wait()
	close(ordersChan)

	confirmed := 0
	totalValue := 0.0
	for orderID := range ordersChan {
		order, err := simClient.getOrder(orderID)
		if err != nil {
			log.Error().Err(err).Str("order_id", orderID).Msg("Failed to fetch order")
			continue
		}
		if order.Status == types.OrderStatusConfirmed {
			confirmed++
			totalValue += order.NetTotal
		}
	}

	log.Info().
		Int("confirmed_orders", confirmed).
		Float64("total_value", totalValue).
		Msg("Simulation complete")

	simClient.printPerformanceStats()
}
