package store

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

// mapNotFound turns pgx.ErrNoRows into the given domain sentinel.
func mapNotFound(err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		if notFound == nil {
			return ErrNotFound
		}
		return notFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func textParam(v string) pgtype.Text {
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}

func textVal(v pgtype.Text) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func timePtrVal(v pgtype.Timestamptz) *time.Time {
	if !v.Valid {
		return nil
	}
	out := v.Time
	return &out
}

func int4Val(v pgtype.Int4, fallback int) int {
	if !v.Valid {
		return fallback
	}
	return int(v.Int32)
}
