package postgres

import (
	"context"

	"sponte/internal/store"

	"github.com/google/uuid"
)

const agentConfigColumns = "id, location_id, agent_type, autonomy_mode, is_active, config_data, created_at, updated_at"

// CreateAgentConfig inserts the config, leaving an existing (location, agent) row untouched.
func (s *Store) CreateAgentConfig(ctx context.Context, tx store.DBTransaction, cfg *store.AgentConfig) (bool, error) {
	data, err := encodeJSON(cfg.ConfigData)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO agent_configs (` + agentConfigColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT ON CONSTRAINT uq_location_agent_type DO NOTHING
	`

	res, err := s.getExecutor(tx).ExecContext(ctx, query,
		cfg.ID, cfg.LocationID, cfg.AgentType, cfg.AutonomyMode, cfg.IsActive, data, cfg.CreatedAt, cfg.UpdatedAt,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) UpdateAgentConfig(ctx context.Context, cfg *store.AgentConfig) error {
	data, err := encodeJSON(cfg.ConfigData)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE agent_configs
		SET autonomy_mode = $2, is_active = $3, config_data = $4, updated_at = NOW()
		WHERE id = $1
	`, cfg.ID, cfg.AutonomyMode, cfg.IsActive, data)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetAgentConfig(ctx context.Context, locationID uuid.UUID, agentType store.AgentType) (*store.AgentConfig, error) {
	query := "SELECT " + agentConfigColumns + " FROM agent_configs WHERE location_id = $1 AND agent_type = $2"
	return scanAgentConfig(s.db.QueryRowContext(ctx, query, locationID, agentType))
}

func (s *Store) ListAgentConfigs(ctx context.Context, locationID uuid.UUID) ([]store.AgentConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+agentConfigColumns+" FROM agent_configs WHERE location_id = $1 ORDER BY created_at ASC", locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.AgentConfig
	for rows.Next() {
		cfg, err := scanAgentConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cfg)
	}
	return out, rows.Err()
}

func scanAgentConfig(row scanner) (*store.AgentConfig, error) {
	var c store.AgentConfig
	var data []byte
	if err := row.Scan(&c.ID, &c.LocationID, &c.AgentType, &c.AutonomyMode, &c.IsActive, &data, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	m, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	c.ConfigData = m
	return &c, nil
}
