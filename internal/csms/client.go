// Package csms is a thin read-only client for the charging station management
// system. Tickets reference CSMS events and firmware jobs by id; this client
// fetches their live state for display alongside a ticket.
package csms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/voltdesk/maintenance-service/internal/config"
	"github.com/voltdesk/maintenance-service/internal/domain"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// ChargerStatus is the live operational state reported by the CSMS.
type ChargerStatus struct {
	ChargerID       string     `json:"charger_id"`
	ConnectorStatus string     `json:"connector_status"`
	Online          bool       `json:"online"`
	FirmwareVersion string     `json:"firmware_version"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at"`
}

// FirmwareJob is the live state of an update job tracked in the CSMS.
type FirmwareJob struct {
	JobID         string                   `json:"job_id"`
	ChargerID     string                   `json:"charger_id"`
	TargetVersion string                   `json:"target_version"`
	Status        domain.FirmwareJobStatus `json:"status"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// Client reads charger and firmware job state from the CSMS.
type Client interface {
	GetChargerStatus(ctx context.Context, chargerExternalID string) (*ChargerStatus, error)
	GetFirmwareJob(ctx context.Context, jobID string) (*FirmwareJob, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds an HTTP client against the configured CSMS endpoint.
// Returns nil when no base URL is configured; callers treat a nil client as
// "CSMS integration disabled".
func NewClient(cfg config.CsmsConfig, logger *zap.Logger) Client {
	if cfg.BaseURL == "" {
		return nil
	}
	return &httpClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
}

func (c *httpClient) GetChargerStatus(ctx context.Context, chargerExternalID string) (*ChargerStatus, error) {
	var status ChargerStatus
	path := fmt.Sprintf("/api/v1/chargers/%s/status", url.PathEscape(chargerExternalID))
	if err := c.get(ctx, path, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *httpClient) GetFirmwareJob(ctx context.Context, jobID string) (*FirmwareJob, error) {
	var job FirmwareJob
	path := fmt.Sprintf("/api/v1/firmware-jobs/%s", url.PathEscape(jobID))
	if err := c.get(ctx, path, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.NewTimeout(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFound("csms resource", nil)
	case resp.StatusCode >= 300:
		c.logger.Warn("csms request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return apperrors.NewInternalError(fmt.Errorf("csms responded with status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
