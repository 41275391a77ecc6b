package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	apperrors "github.com/stevoh213/cragbook/internal/errors"
	"github.com/stevoh213/cragbook/internal/models"
)

const restPrefix = "/rest/v1/"

// Adapter is the stateless translation boundary for one entity kind:
// domain records in, wire rows out, nothing owned. All adapters share
// one Client.
type Adapter[T models.Syncable, D any] struct {
	client *Client
	kind   models.EntityKind
	table  string
	encode func(T) D
	decode func(D) (T, error)
}

// NewAdapter builds the adapter for one remote table.
func NewAdapter[T models.Syncable, D any](
	client *Client,
	kind models.EntityKind,
	table string,
	encode func(T) D,
	decode func(D) (T, error),
) *Adapter[T, D] {
	return &Adapter[T, D]{
		client: client,
		kind:   kind,
		table:  table,
		encode: encode,
		decode: decode,
	}
}

// Kind returns the entity kind this adapter serves.
func (a *Adapter[T, D]) Kind() models.EntityKind {
	return a.kind
}

// FetchChangedSince returns the owner's rows changed strictly after
// since, ordered ascending by updated_at. The zero since fetches
// everything (first sync or reinstall).
func (a *Adapter[T, D]) FetchChangedSince(ctx context.Context, since time.Time, ownerID uuid.UUID) ([]T, error) {
	query := url.Values{}
	query.Set("owner_id", "eq."+ownerID.String())
	query.Set("order", "updated_at.asc")
	if !since.IsZero() {
		query.Set("updated_at", "gt."+formatWireTime(since))
	}

	body, err := a.client.do(ctx, http.MethodGet, restPrefix+a.table, query, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.table, err)
	}

	var dtos []D
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrValidation,
			fmt.Sprintf("malformed %s response", a.table), err)
	}

	recs := make([]T, 0, len(dtos))
	for _, dto := range dtos {
		rec, err := a.decode(dto)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrValidation,
				fmt.Sprintf("malformed %s row", a.table), err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Upsert writes the record keyed by its id, conflict target the
// primary key, and returns the server-canonical row. Idempotent: the
// same record twice yields one remote row.
func (a *Adapter[T, D]) Upsert(ctx context.Context, rec T) (T, error) {
	var zero T

	payload, err := json.Marshal([]D{a.encode(rec)})
	if err != nil {
		return zero, apperrors.Wrap(apperrors.ErrInternal,
			fmt.Sprintf("failed to encode %s", a.table), err)
	}

	query := url.Values{}
	query.Set("on_conflict", "id")
	headers := map[string]string{
		"Prefer": "resolution=merge-duplicates,return=representation",
	}

	body, err := a.client.do(ctx, http.MethodPost, restPrefix+a.table, query, payload, headers)
	if err != nil {
		return zero, fmt.Errorf("upsert %s: %w", a.table, err)
	}

	var dtos []D
	if err := json.Unmarshal(body, &dtos); err != nil {
		return zero, apperrors.Wrap(apperrors.ErrValidation,
			fmt.Sprintf("malformed %s upsert response", a.table), err)
	}
	if len(dtos) == 0 {
		return zero, apperrors.Newf(apperrors.ErrValidation,
			"%s upsert returned no row", a.table)
	}
	return a.decode(dtos[0])
}

// SoftDelete sets the remote deletion marker; rows are never hard
// deleted, preserving sync history for other devices. deleted_at keeps
// the original deletion time; updated_at carries the push time so the
// tombstone lands inside every other device's pull window.
func (a *Adapter[T, D]) SoftDelete(ctx context.Context, id uuid.UUID, deletedAt, pushedAt time.Time) error {
	payload, err := json.Marshal(map[string]string{
		"deleted_at": formatWireTime(deletedAt),
		"updated_at": formatWireTime(pushedAt),
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternal, "failed to encode soft delete", err)
	}

	query := url.Values{}
	query.Set("id", "eq."+id.String())

	if _, err := a.client.do(ctx, http.MethodPatch, restPrefix+a.table, query, payload, nil); err != nil {
		return fmt.Errorf("soft delete %s: %w", a.table, err)
	}
	return nil
}
