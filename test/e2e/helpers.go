//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/api/handlers"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/openai"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/repository"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/server"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/service"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/testutil"
)

const e2eAdminToken = "e2e-admin-token"

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// scriptedCompleter stands in for the hosted LLM so chat flows run without a
// Groq credential. It answers with the latest user turn so tests can assert
// the prompt reached the completer.
type scriptedCompleter struct{}

func (scriptedCompleter) Complete(ctx context.Context, messages []openai.ChatMessage) (string, error) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "Resposta sobre: " + messages[i].Content, nil
		}
	}
	return "Resposta padrao.", nil
}

// SetupE2EEnv creates a full E2E test environment with a database container
// and a running HTTP server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// CreateAgency inserts an agency directly; there is no public write endpoint
// for agencies.
func (e *E2ETestEnv) CreateAgency(name, acronym string) string {
	id := uuid.NewString()
	_, err := e.Pool.Exec(e.Ctx,
		`INSERT INTO agencies (id, name, acronym) VALUES ($1, $2, $3)`, id, name, acronym)
	if err != nil {
		e.T.Fatalf("failed to create agency: %v", err)
	}
	return id
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPut, path, body, authToken)
}

// Patch performs a PATCH request
func (e *E2ETestEnv) Patch(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPatch, path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, authToken)
}

// UploadFile posts a multipart file to an admin upload endpoint
func (e *E2ETestEnv) UploadFile(path, fileName string, content []byte, displayName string) (*APIResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if displayName != "" {
		if err := writer.WriteField("display_name", displayName); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, e.ServerURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e2eAdminToken)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseResponse(resp)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return parseResponse(resp)
}

func parseResponse(resp *http.Response) (*APIResponse, error) {
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires the full stack against the test database, with the object
// store and embedding provider left disabled
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	noticeRepo := repository.NewNoticeRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	ingestSvc := service.NewIngestService(documentRepo, documentRepo, nil)
	retriever := service.NewChunkRetriever(documentRepo, nil)
	assembler := service.NewContextAssembler(noticeRepo, retriever)
	chatSvc := service.NewChatService(assembler, scriptedCompleter{}, settingsRepo)

	cfg := server.RouterConfig{
		AdminToken:      e2eAdminToken,
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		NoticeHandler:   handlers.NewNoticeHandler(noticeRepo, documentRepo),
		FileHandler:     handlers.NewFileHandler(ingestSvc, documentRepo, nil),
		SettingsHandler: handlers.NewSettingsHandler(settingsRepo),
	}

	router := server.NewRouter(cfg)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not become ready within %s", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
