//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	baseURL = getEnv("SHELFGATE_API_URL", "http://127.0.0.1:9090")
	apiBase = baseURL + "/api"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

type TestClient struct {
	httpClient *http.Client
	apiKey     string
	bearer     string
}

func NewTestClient() *TestClient {
	return &TestClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *TestClient) Do(method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	contentType := "application/json"
	switch b := body.(type) {
	case nil:
	case url.Values:
		bodyReader = bytes.NewBufferString(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, bodyReader)
	if bodyReader != nil {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Company-Api-Key", c.apiKey)
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}

	return c.httpClient.Do(req)
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestE2E_Workflows(t *testing.T) {
	// State shared between subtests
	var (
		e2eClientID     = fmt.Sprintf("e2e-agent-%d", time.Now().Unix())
		e2eClientSecret = "e2e_secret_123"
		e2eBearer       string
		e2eAPIKey       string
	)

	// 1. Admin Client Flow
	t.Run("Admin Client Flow", func(t *testing.T) {
		client := NewTestClient()

		// Register the machine client
		resp, err := client.Do("POST", apiBase+"/admin/auth/client/new", map[string]string{
			"client_id":     e2eClientID,
			"client_secret": e2eClientSecret,
		})
		require.NoError(t, err)
		t.Logf("Client registration status: %d", resp.StatusCode)
		// 201 Created or 406 (if already exists)
		assert.True(t, resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusNotAcceptable)
		resp.Body.Close()

		// Mint a service token
		resp, err = client.Do("POST", apiBase+"/admin/auth/token", url.Values{
			"client_id":     {e2eClientID},
			"client_secret": {e2eClientSecret},
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		tokenBody := decode(t, resp)
		require.NotEmpty(t, tokenBody["access_token"])
		e2eBearer = tokenBody["access_token"].(string)

		// Validate the token
		client.bearer = e2eBearer
		resp, err = client.Do("GET", apiBase+"/admin/auth/token/validate", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, e2eClientID, decode(t, resp)["client_id"])
	})

	// 2. Company Onboarding Flow
	t.Run("Company Onboarding Flow", func(t *testing.T) {
		require.NotEmpty(t, e2eBearer)

		client := NewTestClient()
		client.bearer = e2eBearer

		// Mint a single-use registration token
		resp, err := client.Do("POST", apiBase+"/admin/registration-tokens", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		regURL := decode(t, resp)["registration_url"].(string)
		require.Contains(t, regURL, "token=")

		u, err := url.Parse(regURL)
		require.NoError(t, err)
		regToken := u.Query().Get("token")

		// Register the company
		companyName := fmt.Sprintf("E2E Test Company %d", time.Now().Unix())
		resp, err = client.Do("POST",
			apiBase+"/companies/register?token="+url.QueryEscape(regToken),
			map[string]string{
				"company_name":       companyName,
				"company_key_prefix": "shgw",
			})
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		body := decode(t, resp)
		require.NotEmpty(t, body["company_api_key"])
		e2eAPIKey = body["company_api_key"].(string)
		t.Logf("Registered company: %s", companyName)

		// The token is consumed; a replay must fail
		resp, err = client.Do("POST",
			apiBase+"/companies/register?token="+url.QueryEscape(regToken),
			map[string]string{
				"company_name":       companyName + " again",
				"company_key_prefix": "shgw",
			})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	// 3. Storage Access Flow
	t.Run("Storage Access Flow", func(t *testing.T) {
		require.NotEmpty(t, e2eAPIKey)

		client := NewTestClient()
		client.apiKey = e2eAPIKey

		// Resolve the company from its key
		resp, err := client.Do("GET", apiBase+"/companies/by-api-key", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		company := decode(t, resp)
		require.NotEmpty(t, company["slug"])
		slugName := company["slug"].(string)

		// Quota starts available
		resp, err = client.Do("GET", apiBase+"/companies/quota/is-available", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, true, decode(t, resp)["is_available"])

		// Get an upload grant
		resp, err = client.Do("POST", apiBase+"/companies/presign/upload", map[string]any{
			"file_name":    "e2e.bin",
			"loc_tag":      "e2e-run",
			"content_size": 1 << 20,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		grant := decode(t, resp)
		require.NotEmpty(t, grant["url"])
		fields := grant["fields"].(map[string]any)
		assert.True(t, strings.HasPrefix(fields["key"].(string), slugName+"/"))

		// Record the transaction and bump the quota
		resp, err = client.Do("POST", apiBase+"/filemeta/", map[string]any{
			"file_name":     "e2e.bin",
			"file_size":     1 << 20,
			"file_key":      fields["key"],
			"file_txn_type": 1,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		resp.Body.Close()

		resp, err = client.Do("PATCH", apiBase+"/companies/quota", map[string]any{
			"used_quota":    1 << 20,
			"file_txn_type": 1,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1<<20), decode(t, resp)["used_quota"])

		// License file download
		resp, err = client.Do("GET", apiBase+"/companies/apikey.lic", nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		lic, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Contains(t, string(lic), "API_KEY="+e2eAPIKey)

		t.Logf("Storage access flow completed")
	})
}
