package captcha

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSiteVerifier struct {
	err   error
	calls int
	last  VerificationRequest
}

func (f *fakeSiteVerifier) SiteVerify(ctx context.Context, req VerificationRequest) error {
	f.calls++
	f.last = req
	return f.err
}

func newTestVerifier(client SiteVerifier) *Verifier {
	return &Verifier{SiteKey: "site", Secret: "shh", Client: client}
}

func headerWithToken(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set(TokenHeader, token)
	}
	return h
}

func requireCause(t *testing.T, err error, want Cause) {
	t.Helper()
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, want, cerr.Cause)
}

func TestVerify_MissingHeader(t *testing.T) {
	client := &fakeSiteVerifier{}
	_, err := newTestVerifier(client).Verify(context.Background(), http.Header{}, ConnInfo{RemoteAddr: "192.0.2.1:5000"})

	requireCause(t, err, Missing)
	assert.Equal(t, 0, client.calls)
}

func TestVerify_NoClientAddress(t *testing.T) {
	client := &fakeSiteVerifier{}
	_, err := newTestVerifier(client).Verify(context.Background(), headerWithToken("tok"), ConnInfo{})

	requireCause(t, err, InsufficientInformation)
	assert.ErrorIs(t, err, ErrNoClientAddr)
	assert.Equal(t, 0, client.calls)
}

func TestVerify_UnparsableAddressWithoutColon(t *testing.T) {
	client := &fakeSiteVerifier{}
	_, err := newTestVerifier(client).Verify(context.Background(), headerWithToken("tok"), ConnInfo{RemoteAddr: "not-an-ip"})

	requireCause(t, err, InsufficientInformation)
	assert.Equal(t, 0, client.calls)
}

func TestVerify_RemoteRejects(t *testing.T) {
	client := &fakeSiteVerifier{err: ErrRejected}
	_, err := newTestVerifier(client).Verify(context.Background(), headerWithToken("tok"), ConnInfo{RemoteAddr: "192.0.2.1:5000"})

	requireCause(t, err, Invalid)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Equal(t, 1, client.calls)
}

func TestVerify_SuccessBuildsPayload(t *testing.T) {
	client := &fakeSiteVerifier{}
	proof, err := newTestVerifier(client).Verify(context.Background(), headerWithToken("tok"), ConnInfo{RemoteAddr: "[2001:db8::5]:443"})

	require.NoError(t, err)
	assert.True(t, proof.Valid())
	assert.Equal(t, netip.MustParseAddr("2001:db8::5"), proof.ClientIP())
	require.Equal(t, 1, client.calls)
	assert.Equal(t, VerificationRequest{
		Token:    "tok",
		Secret:   "shh",
		SiteKey:  "site",
		ClientIP: netip.MustParseAddr("2001:db8::5"),
	}, client.last)
}

func TestVerify_BypassSkipsRemoteCallOnly(t *testing.T) {
	client := &fakeSiteVerifier{err: errors.New("must not be called")}
	v := newTestVerifier(client)
	v.bypass = true

	proof, err := v.Verify(context.Background(), headerWithToken("tok"), ConnInfo{RemoteAddr: "192.0.2.1:5000"})
	require.NoError(t, err)
	assert.True(t, proof.Valid())
	assert.Equal(t, 0, client.calls)

	_, err = v.Verify(context.Background(), http.Header{}, ConnInfo{RemoteAddr: "192.0.2.1:5000"})
	requireCause(t, err, Missing)
}

func TestVerified_ZeroValueIsNotValid(t *testing.T) {
	assert.False(t, Verified{}.Valid())

	client := &fakeSiteVerifier{err: ErrRejected}
	proof, err := newTestVerifier(client).Verify(context.Background(), headerWithToken("tok"), ConnInfo{RemoteAddr: "192.0.2.1:5000"})
	require.Error(t, err)
	assert.False(t, proof.Valid())
}

func TestError_MessagesAreStable(t *testing.T) {
	assert.Equal(t, "missing hCaptcha challenge response header", (&Error{Cause: Missing}).Error())
	assert.Equal(t, "insufficient information to verify hCaptcha challenge", (&Error{Cause: InsufficientInformation}).Error())
	assert.Equal(t, "invalid hCaptcha challenge response header", (&Error{Cause: Invalid, Err: ErrRejected}).Error())
}
