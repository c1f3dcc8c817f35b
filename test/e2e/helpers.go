//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/docuchat/internal/api/handlers"
	"github.com/cloo-solutions/docuchat/internal/domain"
	"github.com/cloo-solutions/docuchat/internal/ingest"
	"github.com/cloo-solutions/docuchat/internal/jobs"
	"github.com/cloo-solutions/docuchat/internal/repository"
	"github.com/cloo-solutions/docuchat/internal/server"
	"github.com/cloo-solutions/docuchat/internal/service"
	"github.com/cloo-solutions/docuchat/internal/testutil"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	UserID       string
	AuthToken    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database
// container and an in-process server. The model side is faked: pages
// embed to deterministic vectors and the generator answers by quoting
// the first context chunk.
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

// StartSecondServer starts another server instance against the same
// database, simulating a process restart. Chat history is reloaded
// from the message log; vector indexes are not.
func (e *E2ETestEnv) StartSecondServer() string {
	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}
	url, closer := startServer(e.T, e.Pool, port)
	e.T.Cleanup(closer)
	return url
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

// Bootstrap creates a user and bearer token for testing
func (e *E2ETestEnv) Bootstrap() {
	userRepo := repository.NewUserRepository(e.Pool)
	userSessionRepo := repository.NewUserSessionRepository(e.Pool)

	now := time.Now().UTC()
	user := &domain.User{
		ID:        uuid.NewString(),
		Username:  "e2e-user",
		CreatedAt: now,
	}
	if err := userRepo.Create(e.Ctx, user); err != nil {
		e.T.Fatalf("failed to create user: %v", err)
	}
	e.UserID = user.ID

	token := "dcu_" + strings.Repeat("ab", 32)
	sum := sha256.Sum256([]byte(token))
	session := &domain.UserSession{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: hex.EncodeToString(sum[:]),
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	if err := userSessionRepo.Create(e.Ctx, session); err != nil {
		e.T.Fatalf("failed to create user session: %v", err)
	}
	e.AuthToken = token
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", e.ServerURL, path, nil, authToken)
}

// GetFrom performs a GET request against a specific server URL
func (e *E2ETestEnv) GetFrom(serverURL, path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", serverURL, path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", e.ServerURL, path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, serverURL, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := serverURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
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

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
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

// UploadDoc is one document in an upload batch.
type UploadDoc struct {
	Name string
	Data []byte
}

// UploadDocuments posts the documents as a multipart form, preserving
// their order.
func (e *E2ETestEnv) UploadDocuments(authToken string, docs []UploadDoc) (*APIResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, doc := range docs {
		part, err := writer.CreateFormFile("files", doc.Name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(doc.Data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", e.ServerURL+"/sessions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// Ask posts a question and returns the raw streamed body.
func (e *E2ETestEnv) Ask(authToken, sessionID, question string) (string, int, error) {
	return e.AskFrom(e.ServerURL, authToken, sessionID, question)
}

// AskFrom posts a question to a specific server instance.
func (e *E2ETestEnv) AskFrom(serverURL, authToken, sessionID, question string) (string, int, error) {
	body, _ := json.Marshal(map[string]string{"question": question})
	req, err := http.NewRequest("POST", serverURL+"/sessions/"+sessionID+"/ask", bytes.NewReader(body))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(raw), resp.StatusCode, nil
}

// ExportRaw fetches a session export and returns the raw body.
func (e *E2ETestEnv) ExportRaw(authToken, sessionID, format string) ([]byte, int, error) {
	return e.ExportRawFrom(e.ServerURL, authToken, sessionID, format)
}

// ExportRawFrom fetches a session export from a specific server instance.
func (e *E2ETestEnv) ExportRawFrom(serverURL, authToken, sessionID, format string) ([]byte, int, error) {
	req, err := http.NewRequest("GET", serverURL+"/sessions/"+sessionID+"/export?format="+format, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+authToken)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	return raw, resp.StatusCode, err
}

// textExtractor treats uploaded documents as plain text, one page per
// blank-line separated block. E2E runs stay deterministic without
// depending on PDF fixtures.
type textExtractor struct{}

func (textExtractor) ExtractPages(ctx context.Context, doc ingest.Document) ([]ingest.Page, error) {
	blocks := strings.Split(string(doc.Data), "\n\n")
	pages := make([]ingest.Page, 0, len(blocks))
	for i, block := range blocks {
		pages = append(pages, ingest.Page{Number: i + 1, Text: strings.TrimSpace(block)})
	}
	return pages, nil
}

// fakeEmbedder hashes text into a fixed-length vector. Identical text
// maps to identical vectors, so retrieval is deterministic.
type fakeEmbedder struct{}

func (fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, b := range []byte(text) {
		vec[i%8] += float32(b) / 255.0
	}
	return vec, nil
}

// fakeGenerator answers by quoting the first line of the prompt's
// context section, mimicking the verbatim-extraction contract.
type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, promptText string) (string, error) {
	for _, line := range strings.Split(promptText, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Total:") {
			return line, nil
		}
	}
	return "Not found", nil
}

// startServer starts the HTTP server with all handlers
func startServer(t *testing.T, pool *pgxpool.Pool, port int) (string, func()) {
	ctx := context.Background()

	userRepo := repository.NewUserRepository(pool)
	userSessionRepo := repository.NewUserSessionRepository(pool)
	chatSessionRepo := repository.NewChatSessionRepository(pool)
	chatMessageRepo := repository.NewChatMessageRepository(pool)
	chunkRepo := repository.NewDocumentChunkRepository(pool)

	registry := service.NewSessionRegistry()
	historySvc := service.NewHistoryService(registry, chatSessionRepo, chatMessageRepo)
	if _, err := historySvc.LoadAll(ctx); err != nil {
		t.Fatalf("failed to load history: %v", err)
	}

	archiveProcessor := jobs.NewArchiveWorker(chunkRepo)
	archiveWorker := jobs.NewWorker(archiveProcessor, 100*time.Millisecond)
	workerCtx, cancelWorker := context.WithCancel(ctx)
	go archiveWorker.Start(workerCtx)

	ingestionSvc := service.NewIngestionService(textExtractor{}, fakeEmbedder{}, registry, chatSessionRepo, nil, archiveProcessor)
	answerSvc := service.NewAnswerService(registry, fakeGenerator{}, historySvc, 6, 30*time.Second)
	sessionSvc := service.NewSessionService(chatSessionRepo, registry)
	summarySvc := service.NewSummaryService(registry)
	authSvc := service.NewAuthService(userSessionRepo, userRepo)
	audioSvc := service.NewAudioService("", time.Second)
	assembler := service.NewStreamAssembler(0)

	chatHandler := handlers.NewChatHandler(ingestionSvc, answerSvc, assembler, historySvc, sessionSvc, summarySvc)
	audioHandler := handlers.NewAudioHandler(audioSvc)

	cfg := server.RouterConfig{
		IdentityResolver: authSvc,
		ChatHandler:      chatHandler,
		AudioHandler:     audioHandler,
		DB:               pool,
	}

	router := server.NewRouter(cfg)
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:    addr,
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
		cancelWorker()
		archiveWorker.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
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
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
