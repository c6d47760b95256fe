package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pierrec/lz4/v4"
)

// ArchivedPayload is a stored raw delivery, kept for replay diagnostics.
type ArchivedPayload struct {
	ID         int64
	DeliveryID string
	ProjectID  int64
	Provider   string
	Body       []byte
	ReceivedAt time.Time
}

// ArchivePayload stores the raw payload body lz4-compressed.
func (s *Store) ArchivePayload(ctx context.Context, payload *ArchivedPayload) error {
	compressed := make([]byte, lz4.CompressBlockBound(len(payload.Body)))

	written, err := lz4.CompressBlock(payload.Body, compressed, nil)
	if err != nil {
		return fmt.Errorf("compress payload: %w", err)
	}

	// Incompressible bodies are stored raw; body_size disambiguates.
	stored := compressed[:written]
	if written == 0 || written >= len(payload.Body) {
		stored = payload.Body
	}

	now := time.Now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO payload_archive (delivery_id, project_id, provider, body, body_size, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		payload.DeliveryID, payload.ProjectID, payload.Provider, stored,
		len(payload.Body), encodeTime(now))
	if err != nil {
		return fmt.Errorf("archive payload: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("archive payload id: %w", err)
	}

	payload.ID = id
	payload.ReceivedAt = now.UTC()

	return nil
}

// PayloadByID loads and decompresses one archived payload.
func (s *Store) PayloadByID(ctx context.Context, id int64) (*ArchivedPayload, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, delivery_id, project_id, provider, body, body_size, received_at
		 FROM payload_archive WHERE id = ?`, id)

	var (
		payload    ArchivedPayload
		stored     []byte
		bodySize   int
		receivedAt string
	)

	err := row.Scan(&payload.ID, &payload.DeliveryID, &payload.ProjectID,
		&payload.Provider, &stored, &bodySize, &receivedAt)
	if err != nil {
		return nil, fmt.Errorf("load payload: %w", err)
	}

	if len(stored) == bodySize {
		payload.Body = stored
	} else {
		payload.Body = make([]byte, bodySize)

		if _, err := lz4.UncompressBlock(stored, payload.Body); err != nil {
			return nil, fmt.Errorf("decompress payload: %w", err)
		}
	}

	if payload.ReceivedAt, err = decodeTime(receivedAt); err != nil {
		return nil, err
	}

	return &payload, nil
}
