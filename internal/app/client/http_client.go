package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"prefectlog/internal/app/client/config"
	"prefectlog/internal/domain/attendance"
)

// RemoteTransport forwards every record operation to the shared server.
type RemoteTransport struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
}

func NewRemoteTransport(cfg *config.Config, log *slog.Logger) *RemoteTransport {
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &RemoteTransport{
		client:    client,
		log:       log.With("component", "remote_transport"),
		baseURL:   scheme + cfg.ServerAddress,
		userAgent: "Prefectlog-Client/1.0",
	}
}

// BaseURL returns the server address with the scheme applied.
func (t *RemoteTransport) BaseURL() string {
	return t.baseURL
}

// HealthCheck verifies the server is reachable before remote operations.
func (t *RemoteTransport) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status: %d", resp.StatusCode)
	}
	return nil
}

func (t *RemoteTransport) MarkAttendance(ctx context.Context, prefectNumber string, role attendance.Role) (attendance.Record, error) {
	body := struct {
		PrefectNumber string `json:"prefectNumber"`
		Role          string `json:"role"`
	}{
		PrefectNumber: prefectNumber,
		Role:          string(role),
	}

	resp, err := t.doRequest(ctx, http.MethodPost, "/api/attendance", body)
	if err != nil {
		return attendance.Record{}, err
	}

	var markResp struct {
		Status string            `json:"status"`
		Record attendance.Record `json:"record"`
	}
	if err := t.parseResponse(resp, &markResp); err != nil {
		return attendance.Record{}, err
	}
	return markResp.Record, nil
}

func (t *RemoteTransport) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	resp, err := t.doRequest(ctx, http.MethodGet, "/api/attendance/date/"+date, nil)
	if err != nil {
		return nil, err
	}
	return t.parseList(resp)
}

func (t *RemoteTransport) ListAll(ctx context.Context) ([]attendance.Record, error) {
	resp, err := t.doRequest(ctx, http.MethodGet, "/api/attendance", nil)
	if err != nil {
		return nil, err
	}
	return t.parseList(resp)
}

func (t *RemoteTransport) ImportBackup(ctx context.Context, serialized string) error {
	body := struct {
		Snapshot string `json:"snapshot"`
	}{Snapshot: serialized}

	resp, err := t.doRequest(ctx, http.MethodPost, "/api/backup/import", body)
	if err != nil {
		return err
	}
	return t.parseResponse(resp, nil)
}

func (t *RemoteTransport) ExportBackup(ctx context.Context) (string, error) {
	resp, err := t.doRequest(ctx, http.MethodGet, "/api/backup/export", nil)
	if err != nil {
		return "", err
	}

	var exportResp struct {
		Status   string `json:"status"`
		Snapshot string `json:"snapshot"`
	}
	if err := t.parseResponse(resp, &exportResp); err != nil {
		return "", err
	}
	return exportResp.Snapshot, nil
}

// WipeAll removes every record on the server.
func (t *RemoteTransport) WipeAll(ctx context.Context) error {
	resp, err := t.doRequest(ctx, http.MethodDelete, "/api/attendance", nil)
	if err != nil {
		return err
	}
	return t.parseResponse(resp, nil)
}

// ListMembers fetches the prefect roster from the server.
func (t *RemoteTransport) ListMembers(ctx context.Context) ([]attendance.Member, error) {
	resp, err := t.doRequest(ctx, http.MethodGet, "/api/members", nil)
	if err != nil {
		return nil, err
	}

	var listResp struct {
		Status  string              `json:"status"`
		Members []attendance.Member `json:"members"`
		Count   int                 `json:"count"`
	}
	if err := t.parseResponse(resp, &listResp); err != nil {
		return nil, err
	}
	return listResp.Members, nil
}

// CreateMember registers a prefect on the server roster.
func (t *RemoteTransport) CreateMember(ctx context.Context, prefectNumber string, role attendance.Role, name string) (attendance.Member, error) {
	body := struct {
		PrefectNumber string `json:"prefectNumber"`
		Role          string `json:"role"`
		Name          string `json:"name,omitempty"`
	}{
		PrefectNumber: prefectNumber,
		Role:          string(role),
		Name:          name,
	}

	resp, err := t.doRequest(ctx, http.MethodPost, "/api/members", body)
	if err != nil {
		return attendance.Member{}, err
	}
	m, err := t.parseMember(resp)
	if errors.Is(err, attendance.ErrDuplicate) {
		// A conflict on this endpoint means the prefect number is taken.
		return attendance.Member{}, fmt.Errorf("%w: prefect %s", attendance.ErrMemberExists, prefectNumber)
	}
	return m, err
}

// UpdateMember merges upd over the server roster entry with the given id.
func (t *RemoteTransport) UpdateMember(ctx context.Context, id string, upd attendance.MemberUpdate) (attendance.Member, error) {
	body := struct {
		PrefectNumber *string `json:"prefectNumber,omitempty"`
		Role          *string `json:"role,omitempty"`
		Name          *string `json:"name,omitempty"`
	}{
		PrefectNumber: upd.PrefectNumber,
		Name:          upd.Name,
	}
	if upd.Role != nil {
		role := string(*upd.Role)
		body.Role = &role
	}

	resp, err := t.doRequest(ctx, http.MethodPut, "/api/members/"+id, body)
	if err != nil {
		return attendance.Member{}, err
	}
	return t.parseMember(resp)
}

// DeleteMember removes a roster entry on the server.
func (t *RemoteTransport) DeleteMember(ctx context.Context, id string) error {
	resp, err := t.doRequest(ctx, http.MethodDelete, "/api/members/"+id, nil)
	if err != nil {
		return err
	}
	return t.parseResponse(resp, nil)
}

func (t *RemoteTransport) parseMember(resp *http.Response) (attendance.Member, error) {
	var memberResp struct {
		Status string            `json:"status"`
		Member attendance.Member `json:"member"`
	}
	if err := t.parseResponse(resp, &memberResp); err != nil {
		return attendance.Member{}, err
	}
	return memberResp.Member, nil
}

func (t *RemoteTransport) parseList(resp *http.Response) ([]attendance.Record, error) {
	var listResp struct {
		Status  string              `json:"status"`
		Records []attendance.Record `json:"records"`
		Count   int                 `json:"count"`
	}
	if err := t.parseResponse(resp, &listResp); err != nil {
		return nil, err
	}
	return listResp.Records, nil
}

func (t *RemoteTransport) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", t.userAgent)

	t.log.Debug("sending request",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	return resp, nil
}

func (t *RemoteTransport) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	t.log.Debug("received response",
		"status", resp.StatusCode,
	)

	if resp.StatusCode == http.StatusConflict {
		return attendance.ErrDuplicate
	}
	if resp.StatusCode >= 400 {
		// huma error responses carry the message in "detail".
		var errResp struct {
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			if errResp.Detail != "" {
				return fmt.Errorf("server error: %s", errResp.Detail)
			}
			if errResp.Error != "" {
				return fmt.Errorf("server error: %s", errResp.Error)
			}
		}
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
