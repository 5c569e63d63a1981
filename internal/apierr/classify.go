package apierr

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"askbox/internal/captcha"
)

// sqlStateKinds maps Postgres SQLSTATE codes to client kinds. Codes not listed
// fall back to InvalidRequest.
var sqlStateKinds = map[string]Kind{
	pgerrcode.UniqueViolation:                        Duplicate,
	pgerrcode.ForeignKeyViolation:                    InvalidRequest,
	pgerrcode.NotNullViolation:                       InvalidRequest,
	pgerrcode.CheckViolation:                         InvalidRequest,
	pgerrcode.InvalidTextRepresentation:              InvalidRequest,
	pgerrcode.StringDataRightTruncationDataException: InvalidRequest,
	pgerrcode.NumericValueOutOfRange:                 InvalidRequest,
	pgerrcode.InvalidDatetimeFormat:                  InvalidRequest,
	pgerrcode.DatetimeFieldOverflow:                  InvalidRequest,
}

// KindForSQLState looks code up in the SQLSTATE table.
func KindForSQLState(code string) Kind {
	if kind, ok := sqlStateKinds[code]; ok {
		return kind
	}
	return InvalidRequest
}

// Classify turns any error into exactly one client-facing *Error. The raw
// cause is logged here and never leaves the process.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var challengeErr *captcha.Error
	if errors.As(err, &challengeErr) {
		return &Error{Kind: ChallengeFailure, Challenge: challengeErr.Cause, cause: err}
	}

	slog.Error("persistence failure", "error", err)

	if errors.Is(err, pgx.ErrNoRows) {
		return &Error{Kind: NotFound, cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		slog.Error("database error", "code", pgErr.Code, "message", pgErr.Message, "constraint", pgErr.ConstraintName)
		if pgErr.Code == "" {
			return &Error{Kind: InvalidRequest, cause: err}
		}
		return &Error{Kind: KindForSQLState(pgErr.Code), cause: err}
	}

	return &Error{Kind: InvalidRequest, cause: err}
}
