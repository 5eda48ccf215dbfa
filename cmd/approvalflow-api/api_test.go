package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/approvalflow/pkg/persistence/file"
)

func setupTestApp(tempDir string) *fiber.App {
	persistence := file.NewPersistence(tempDir)

	api := NewAPI(
		slog.Default(),
		persistence,
		nil,
	)

	return api.App()
}

func TestAPI_RootEndpoint(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Approvalflow API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_GetWorkflows_Empty(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any

	err = json.NewDecoder(resp.Body).Decode(&body)
	require.NoError(t, err)
	assert.EqualValues(t, 0, body["total_count"])
}

func TestAPI_HealthCheck(t *testing.T) {
	tempDir := t.TempDir()
	app := setupTestApp(tempDir)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
