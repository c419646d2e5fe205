package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	appctx "pharmstock/internal/core/context"
	"pharmstock/internal/core/id"
	"pharmstock/internal/domain/ledger"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// CorrectionEntry is one archived movement correction: the voided movement
// and its compensating adjustment, snapshotted as JSON for later audit.
type CorrectionEntry struct {
	ID                 id.ID           `db:"id"`
	OriginalMovementID id.ID           `db:"original_movement_id"`
	CompensationID     id.ID           `db:"compensation_id"`
	ItemID             id.ID           `db:"item_id"`
	Snapshot           json.RawMessage `db:"snapshot"`
	SnapshotCompressed []byte          `db:"snapshot_compressed"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
	Actor              string          `db:"actor"`
	CreatedAt          time.Time       `db:"created_at"`
}

// CorrectionArchive implements ledger.Archiver. Snapshots above the
// threshold are stored zstd-compressed.
type CorrectionArchive struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// Compile-time check.
var _ ledger.Archiver = (*CorrectionArchive)(nil)

// NewCorrectionArchive creates the archive service.
func NewCorrectionArchive(txManager *TxManager) (*CorrectionArchive, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &CorrectionArchive{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 4 * 1024,
	}, nil
}

// SnapshotCorrection stores the original/compensation pair.
func (a *CorrectionArchive) SnapshotCorrection(ctx context.Context, original, compensation *ledger.Movement) error {
	snapshot, err := json.Marshal(map[string]any{
		"original":     original,
		"compensation": compensation,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	entry := CorrectionEntry{
		ID:                 id.New(),
		OriginalMovementID: original.ID,
		CompensationID:     compensation.ID,
		ItemID:             original.ItemID,
		Snapshot:           snapshot,
		CompressionAlgo:    CompressionNone,
		Actor:              appctx.ActorName(ctx),
		CreatedAt:          time.Now().UTC(),
	}

	if len(snapshot) > a.compressThreshold {
		entry.SnapshotCompressed = a.encoder.EncodeAll(snapshot, nil)
		entry.Snapshot = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO movement_corrections (
			id, original_movement_id, compensation_id, item_id,
			snapshot, snapshot_compressed, compression_algo,
			actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := a.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.OriginalMovementID, entry.CompensationID, entry.ItemID,
		entry.Snapshot, entry.SnapshotCompressed, entry.CompressionAlgo,
		entry.Actor, entry.CreatedAt,
	)
	return err
}

// History retrieves corrections for an item, newest first, with
// compressed snapshots inflated.
func (a *CorrectionArchive) History(ctx context.Context, itemID id.ID, limit int) ([]CorrectionEntry, error) {
	sql := `
		SELECT id, original_movement_id, compensation_id, item_id,
			   snapshot, snapshot_compressed, compression_algo,
			   actor, created_at
		FROM movement_corrections
		WHERE item_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var entries []CorrectionEntry
	querier := a.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &entries, sql, itemID, limit); err != nil {
		return nil, fmt.Errorf("select corrections: %w", err)
	}

	for i := range entries {
		if entries[i].CompressionAlgo != CompressionZstd {
			continue
		}
		inflated, err := a.decoder.DecodeAll(entries[i].SnapshotCompressed, nil)
		if err != nil {
			return nil, fmt.Errorf("decompress snapshot: %w", err)
		}
		entries[i].Snapshot = inflated
		entries[i].SnapshotCompressed = nil
		entries[i].CompressionAlgo = CompressionNone
	}
	return entries, nil
}
