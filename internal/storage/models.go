package storage

import (
	"time"
)

// ChainEventRecord is a stored canonical event, one row per dedup key.
type ChainEventRecord struct {
	ID              int64     `db:"id"`
	Network         string    `db:"network"`
	ChainID         int64     `db:"chain_id"`
	ContractAddress string    `db:"contract_address"`
	BlockNumber     int64     `db:"block_number"`
	TxHash          string    `db:"tx_hash"`
	LogIndex        int32     `db:"log_index"`
	Standard        string    `db:"standard"`
	Kind            string    `db:"kind"`
	Heading         string    `db:"heading"`
	Label           string    `db:"label"`
	TypedData       []byte    `db:"typed_data"` // JSONB
	CreatedAt       time.Time `db:"created_at"`
}
