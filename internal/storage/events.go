package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hicommonwealth/chain-events/pkg/events"
)

// EventRepository persists labeled canonical events under the dedup-key
// uniqueness invariant.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// InsertEvent stores a labeled event. A dedup-key conflict means the event
// was already processed: the insert reports inserted=false and no error, and
// callers must not retry or alert on it. Any other failure propagates so the
// transport layer can apply its retry policy.
func (r *EventRepository) InsertEvent(ctx context.Context, ev *events.LabeledEvent) (bool, error) {
	typedData, err := json.Marshal(ev.Event.TypedData)
	if err != nil {
		return false, fmt.Errorf("marshal typed data: %w", err)
	}

	sql := `
		INSERT INTO chain_events (
			network, chain_id, contract_address, block_number,
			tx_hash, log_index, standard, kind, heading, label, typed_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (network, contract_address, tx_hash, log_index) DO NOTHING
	`

	tag, err := r.db.pool.Exec(ctx, sql,
		ev.Event.Network,
		int64(ev.Event.ChainID),
		ev.Event.ContractAddress,
		int64(ev.Event.BlockNumber),
		ev.Event.TxHash,
		int32(ev.Event.LogIndex),
		string(ev.Event.Standard),
		string(ev.Event.Kind),
		ev.Heading,
		ev.Label,
		typedData,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// GetByDedupKey retrieves a stored event, or nil if none exists.
func (r *EventRepository) GetByDedupKey(ctx context.Context, key events.DedupKey) (*ChainEventRecord, error) {
	sql := `
		SELECT id, network, chain_id, contract_address, block_number,
		       tx_hash, log_index, standard, kind, heading, label, typed_data, created_at
		FROM chain_events
		WHERE network = $1 AND contract_address = $2 AND tx_hash = $3 AND log_index = $4
	`

	var rec ChainEventRecord
	err := r.db.pool.QueryRow(ctx, sql, key.Network, key.ContractAddress, key.TxHash, int32(key.LogIndex)).Scan(
		&rec.ID, &rec.Network, &rec.ChainID, &rec.ContractAddress, &rec.BlockNumber,
		&rec.TxHash, &rec.LogIndex, &rec.Standard, &rec.Kind, &rec.Heading, &rec.Label,
		&rec.TypedData, &rec.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query event: %w", err)
	}

	return &rec, nil
}

// ListByContract returns the most recent stored events for a contract,
// newest first.
func (r *EventRepository) ListByContract(ctx context.Context, network, contractAddress string, limit int) ([]ChainEventRecord, error) {
	sql := `
		SELECT id, network, chain_id, contract_address, block_number,
		       tx_hash, log_index, standard, kind, heading, label, typed_data, created_at
		FROM chain_events
		WHERE network = $1 AND contract_address = $2
		ORDER BY block_number DESC, log_index DESC
		LIMIT $3
	`

	rows, err := r.db.pool.Query(ctx, sql, network, contractAddress, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var records []ChainEventRecord
	for rows.Next() {
		var rec ChainEventRecord
		err := rows.Scan(
			&rec.ID, &rec.Network, &rec.ChainID, &rec.ContractAddress, &rec.BlockNumber,
			&rec.TxHash, &rec.LogIndex, &rec.Standard, &rec.Kind, &rec.Heading, &rec.Label,
			&rec.TypedData, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
