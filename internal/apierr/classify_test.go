package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"askbox/internal/captcha"
)

func TestKindForSQLState_TableEntries(t *testing.T) {
	tests := []struct {
		code string
		want Kind
	}{
		{"23505", Duplicate},
		{"23503", InvalidRequest},
		{"23502", InvalidRequest},
		{"23514", InvalidRequest},
		{"22P02", InvalidRequest},
		{"22001", InvalidRequest},
		{"22003", InvalidRequest},
		{"22007", InvalidRequest},
		{"22008", InvalidRequest},
	}
	require.Len(t, sqlStateKinds, len(tests), "every table entry needs a case")
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			_, listed := sqlStateKinds[tt.code]
			require.True(t, listed)
			assert.Equal(t, tt.want, KindForSQLState(tt.code))
		})
	}
}

func TestKindForSQLState_UnlistedFallsBack(t *testing.T) {
	assert.Equal(t, InvalidRequest, KindForSQLState("40001"))
	assert.Equal(t, InvalidRequest, KindForSQLState(""))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantStatus int
		wantMsg    string
	}{
		{
			name:     "no rows",
			err:      fmt.Errorf("load ask 9: %w", pgx.ErrNoRows),
			wantKind: NotFound, wantStatus: http.StatusNotFound,
			wantMsg: "request resource not found",
		},
		{
			name:     "unique violation",
			err:      fmt.Errorf("insert ask: %w", &pgconn.PgError{Code: "23505", Message: `duplicate key value violates unique constraint "ask_dedup_key"`}),
			wantKind: Duplicate, wantStatus: http.StatusConflict,
			wantMsg: "try to create already exists resource",
		},
		{
			name:     "foreign key violation",
			err:      &pgconn.PgError{Code: "23503"},
			wantKind: InvalidRequest, wantStatus: http.StatusBadRequest,
			wantMsg: "invalid request",
		},
		{
			name:     "pg error without code",
			err:      &pgconn.PgError{Message: "odd"},
			wantKind: InvalidRequest, wantStatus: http.StatusBadRequest,
			wantMsg: "invalid request",
		},
		{
			name:     "unknown failure",
			err:      errors.New("connection reset"),
			wantKind: InvalidRequest, wantStatus: http.StatusBadRequest,
			wantMsg: "invalid request",
		},
		{
			name:     "challenge missing",
			err:      &captcha.Error{Cause: captcha.Missing},
			wantKind: ChallengeFailure, wantStatus: http.StatusForbidden,
			wantMsg: "captcha challenge failed, missing hCaptcha challenge response header",
		},
		{
			name:     "challenge invalid",
			err:      &captcha.Error{Cause: captcha.Invalid, Err: captcha.ErrRejected},
			wantKind: ChallengeFailure, wantStatus: http.StatusForbidden,
			wantMsg: "captcha challenge failed, invalid hCaptcha challenge response header",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantStatus, got.Status())
			assert.Equal(t, tt.wantMsg, got.Error())
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_DoesNotLeakDatabaseText(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", Message: "secret table layout", Detail: "Key (dedup)=(abc) already exists."}
	body := Classify(err).Body()
	assert.Equal(t, Body{Err: "try to create already exists resource"}, body)
}

func TestClassify_IsIdempotent(t *testing.T) {
	first := Classify(&pgconn.PgError{Code: "23505"})
	assert.Same(t, first, Classify(first))
	assert.Same(t, first, Classify(fmt.Errorf("wrapped: %w", first)))
	assert.Nil(t, Classify(nil))
}

func TestError_IsMatchesKind(t *testing.T) {
	err := Classify(pgx.ErrNoRows)
	assert.True(t, errors.Is(err, New(NotFound)))
	assert.False(t, errors.Is(err, New(Duplicate)))

	challenge := Classify(&captcha.Error{Cause: captcha.InsufficientInformation})
	assert.True(t, errors.Is(challenge, New(ChallengeFailure)))
	assert.True(t, errors.Is(challenge, &Error{Kind: ChallengeFailure, Challenge: captcha.InsufficientInformation}))
	assert.False(t, errors.Is(challenge, &Error{Kind: ChallengeFailure, Challenge: captcha.Missing}))
}

func TestKind_StatusForReservedKinds(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, New(PermissionDenied).Status())
	assert.Equal(t, "permission is not sufficient to execute request", New(PermissionDenied).Error())
}
