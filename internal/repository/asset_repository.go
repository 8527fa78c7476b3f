package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/voltdesk/maintenance-service/internal/domain"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// AssetRepository reads sites and chargers, always tenant-scoped.
type AssetRepository interface {
	GetSite(ctx context.Context, tenantID, id string) (*domain.Site, error)
	GetCharger(ctx context.Context, tenantID, id string) (*domain.Charger, error)
}

type assetRepository struct {
	db Querier
}

// NewAssetRepository builds the repository.
func NewAssetRepository(db Querier) AssetRepository {
	return &assetRepository{db: db}
}

func (r *assetRepository) GetSite(ctx context.Context, tenantID, id string) (*domain.Site, error) {
	const query = `
        SELECT id, tenant_id, name, code, address, city, postal_code, is_active, created_at, updated_at
        FROM sites WHERE id=$1 AND tenant_id=$2`
	var site domain.Site
	err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&site.ID,
		&site.TenantID,
		&site.Name,
		&site.Code,
		&site.Address,
		&site.City,
		&site.PostalCode,
		&site.IsActive,
		&site.CreatedAt,
		&site.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("site", map[string]any{"site_id": id})
		}
		return nil, wrapStorageErr(err)
	}
	return &site, nil
}

func (r *assetRepository) GetCharger(ctx context.Context, tenantID, id string) (*domain.Charger, error) {
	const query = `
        SELECT id, tenant_id, site_id, name, serial_number, vendor, model, firmware_version,
               csms_charger_id, ocpp_protocol, power_kw, connector_count,
               last_known_status, last_status_update, is_active, created_at, updated_at
        FROM chargers WHERE id=$1 AND tenant_id=$2`
	var charger domain.Charger
	err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&charger.ID,
		&charger.TenantID,
		&charger.SiteID,
		&charger.Name,
		&charger.SerialNumber,
		&charger.Vendor,
		&charger.Model,
		&charger.FirmwareVersion,
		&charger.CsmsChargerID,
		&charger.OcppProtocol,
		&charger.PowerKW,
		&charger.ConnectorCount,
		&charger.LastKnownStatus,
		&charger.LastStatusUpdate,
		&charger.IsActive,
		&charger.CreatedAt,
		&charger.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("charger", map[string]any{"charger_id": id})
		}
		return nil, wrapStorageErr(err)
	}
	return &charger, nil
}
