package captcha

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_SiteVerify(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"secret":   r.PostForm.Get("secret"),
			"response": r.PostForm.Get("response"),
			"sitekey":  r.PostForm.Get("sitekey"),
			"remoteip": r.PostForm.Get("remoteip"),
		}
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true,"hostname":"ask.example.com"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, time.Second)
	req := VerificationRequest{Token: "good", Secret: "shh", SiteKey: "site", ClientIP: netip.MustParseAddr("192.0.2.1")}

	require.NoError(t, client.SiteVerify(context.Background(), req))
	assert.Equal(t, map[string]string{"secret": "shh", "response": "good", "sitekey": "site", "remoteip": "192.0.2.1"}, gotForm)

	req.Token = "bad"
	err := client.SiteVerify(context.Background(), req)
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "invalid-input-response")
}

func TestHTTPClient_SiteVerifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("<html>"))
			},
		},
		{
			name: "slower than the timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				_, _ = w.Write([]byte(`{"success":true}`))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := NewHTTPClient(srv.URL, 50*time.Millisecond)
			err := client.SiteVerify(context.Background(), VerificationRequest{Token: "t"})
			assert.Error(t, err)
		})
	}
}

func TestNewHTTPClient_DefaultEndpoint(t *testing.T) {
	c := NewHTTPClient("", time.Second)
	assert.Equal(t, DefaultEndpoint, c.Endpoint)
	assert.Equal(t, time.Second, c.HTTP.Timeout)
}
