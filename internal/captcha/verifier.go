package captcha

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"
)

// Verified is proof that a request passed the challenge. Its fields are
// unexported, so a value built outside this package has no client address and
// reports !Valid().
type Verified struct {
	clientIP netip.Addr
}

func (v Verified) Valid() bool { return v.clientIP.IsValid() }

// ClientIP is the address the challenge was verified for.
func (v Verified) ClientIP() netip.Addr { return v.clientIP }

type Verifier struct {
	SiteKey        string
	Secret         string
	TrustedProxies []netip.Prefix
	Timeout        time.Duration
	Client         SiteVerifier

	bypass bool
}

// NewVerifier builds a verifier; the remote call is skipped when the binary
// was built with the bypass_captcha tag.
func NewVerifier(siteKey, secret string, trusted []netip.Prefix, timeout time.Duration, client SiteVerifier) *Verifier {
	return &Verifier{
		SiteKey:        siteKey,
		Secret:         secret,
		TrustedProxies: trusted,
		Timeout:        timeout,
		Client:         client,
		bypass:         BypassBuild,
	}
}

func (v *Verifier) Bypassed() bool { return v.bypass }

// NewRequest runs the local stages: token, client address, payload.
func (v *Verifier) NewRequest(header http.Header, conn ConnInfo) (VerificationRequest, error) {
	token, err := ExtractToken(header)
	if err != nil {
		return VerificationRequest{}, err
	}
	raw, ok := ResolveClientAddr(header, conn, v.TrustedProxies)
	if !ok {
		return VerificationRequest{}, &Error{Cause: InsufficientInformation, Err: ErrNoClientAddr}
	}
	ip, err := ParseClientIP(raw)
	if err != nil {
		slog.Warn("captcha: unparsable client address", "addr", raw, "error", err)
		return VerificationRequest{}, err
	}
	slog.Debug("captcha: client address resolved", "real_ip", raw, "parsed", ip.String())
	return VerificationRequest{
		Token:    token,
		Secret:   v.Secret,
		SiteKey:  v.SiteKey,
		ClientIP: ip,
	}, nil
}

func (v *Verifier) Verify(ctx context.Context, header http.Header, conn ConnInfo) (Verified, error) {
	req, err := v.NewRequest(header, conn)
	if err != nil {
		return Verified{}, err
	}
	if v.bypass {
		return Verified{clientIP: req.ClientIP}, nil
	}

	if v.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.Timeout)
		defer cancel()
	}
	if err := v.Client.SiteVerify(ctx, req); err != nil {
		slog.Error("hcaptcha failed", "error", err, "remote_ip", req.ClientIP.String())
		return Verified{}, &Error{Cause: Invalid, Err: err}
	}
	return Verified{clientIP: req.ClientIP}, nil
}
