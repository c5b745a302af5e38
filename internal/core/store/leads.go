package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ixra/ixra-api/internal/core"
)

// SaveLead inserts a contact submission.
func (s *Store) SaveLead(ctx context.Context, lead *core.Lead) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if lead == nil || strings.TrimSpace(lead.ID) == "" {
		return errors.New("lead id is required")
	}

	simTypes, err := json.Marshal(lead.SimulationTypes)
	if err != nil {
		return fmt.Errorf("encode simulation types: %w", err)
	}

	createdAt := lead.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.DB.ExecContext(ctx, s.rebind(`
		INSERT INTO leads (id, name, email, company, service_type, simulation_types, message, client_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), lead.ID, lead.Name, lead.Email, lead.Company, lead.ServiceType, string(simTypes), lead.Message, lead.ClientID, createdAt.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("store lead: %w", err)
	}
	return nil
}

// ListLeads returns the most recent leads first, optionally limited to those created after since.
func (s *Store) ListLeads(ctx context.Context, since time.Time, limit int) ([]core.Lead, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.DB.QueryContext(ctx, s.rebind(`
		SELECT id, name, email, company, service_type, simulation_types, message, client_id, created_at
		FROM leads
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`), since.UTC().UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	leads := []core.Lead{}
	for rows.Next() {
		var (
			lead                                        core.Lead
			company, serviceType, simTypes, msg, client sql.NullString
			createdAt                                   int64
		)
		if err := rows.Scan(&lead.ID, &lead.Name, &lead.Email, &company, &serviceType, &simTypes, &msg, &client, &createdAt); err != nil {
			return nil, fmt.Errorf("scan leads: %w", err)
		}
		lead.Company = company.String
		lead.ServiceType = serviceType.String
		lead.Message = msg.String
		lead.ClientID = client.String
		lead.CreatedAt = time.UnixMilli(createdAt).UTC()
		if simTypes.Valid && simTypes.String != "" {
			if err := json.Unmarshal([]byte(simTypes.String), &lead.SimulationTypes); err != nil {
				return nil, fmt.Errorf("decode simulation types for %s: %w", lead.ID, err)
			}
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}
