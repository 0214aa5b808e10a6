package client

// http_client.go talks to the homelibrary JSON API on behalf of the CLI.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"homelibrary/internal/microservices/http-api/dto"
)

// HTTPClient wraps the token and admin endpoints.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// APIError carries a non-2xx answer from the server.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Status, strings.TrimSpace(e.Body))
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// do sends body as JSON (when non-nil) and decodes a 2xx answer into out.
func (c *HTTPClient) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: string(msg)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *HTTPClient) Login(request *dto.LoginRequest) (*dto.AuthResponse, error) {
	var result dto.AuthResponse
	if err := c.do(http.MethodPost, "/api/token/", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) RefreshToken(request *dto.RefreshTokenRequest) (*dto.RefreshResponse, error) {
	var result dto.RefreshResponse
	if err := c.do(http.MethodPost, "/api/token/refresh/", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) RevokeToken(request *dto.RevokeTokenRequest) (*dto.RevokeTokenResponse, error) {
	var result dto.RevokeTokenResponse
	if err := c.do(http.MethodPost, "/api/token/revoke/", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ListUsers() (*dto.ListResponse[dto.UserResponse], error) {
	var result dto.ListResponse[dto.UserResponse]
	if err := c.do(http.MethodGet, "/api/users/", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) ListGroups() (*dto.ListResponse[dto.GroupResponse], error) {
	var result dto.ListResponse[dto.GroupResponse]
	if err := c.do(http.MethodGet, "/api/groups/", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) DeactivateUser(id string) (*dto.UserResponse, error) {
	active := false
	var result dto.UserResponse
	if err := c.do(http.MethodPut, "/api/users/"+id+"/", dto.UpdateUserRequest{IsActive: &active}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
