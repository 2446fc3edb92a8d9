package token

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/dropDatabas3/tokengate/internal/domain/repository"
)

func TestErrorResponseStatusMapping(t *testing.T) {
	p := &Protocol{}

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid_client is 401", NewOAuthError(ErrCodeInvalidClient, "nope"), http.StatusUnauthorized, ErrCodeInvalidClient},
		{"invalid_grant is 400", NewOAuthError(ErrCodeInvalidGrant, "used"), http.StatusBadRequest, ErrCodeInvalidGrant},
		{"invalid_scope is 400", NewOAuthError(ErrCodeInvalidScope, "admin"), http.StatusBadRequest, ErrCodeInvalidScope},
		{"configuration defect is opaque 500", NewConfigurationError("no signing key", nil), http.StatusInternalServerError, ErrCodeServerError},
		{"unknown error is opaque 500", errors.New("pool exhausted"), http.StatusInternalServerError, ErrCodeServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := p.errorResponse(context.Background(), tc.err)
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d", status, tc.wantStatus)
			}
			resp := body.(*ErrorResponse)
			if resp.Error != tc.wantCode {
				t.Fatalf("error = %q, want %q", resp.Error, tc.wantCode)
			}
			if tc.wantCode == ErrCodeServerError && resp.ErrorDescription != "" {
				t.Fatalf("server_error leaked description %q", resp.ErrorDescription)
			}
		})
	}
}

func TestResponseFromAggregate(t *testing.T) {
	now := time.Now().UTC()
	issued := &OAuthToken{
		ID: NewOAuthTokenID(),
		AccessToken: AccessToken{
			TenantID: "acme",
			Type:     TokenTypeBearer,
			Entity:   NewOpaqueEntity("raw-access"),
			Grant: repository.AuthorizationGrant{
				TenantID: "acme",
				ClientID: "svc",
				Scopes:   []string{"read", "write"},
				AuthorizationDetails: []map[string]any{
					{"type": "payment_initiation"},
				},
			},
			CreatedAt: now,
			ExpiresIn: 90 * time.Second,
			ExpiresAt: now.Add(90 * time.Second),
		},
		RefreshToken:    RefreshToken{Entity: "raw-refresh", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		IDToken:         "signed.id.token",
		CNonce:          "nonce-1",
		CNonceExpiresIn: 300,
	}

	resp := responseFrom(issued)
	if resp.AccessToken != "raw-access" || resp.RefreshToken != "raw-refresh" {
		t.Fatalf("token values = %q / %q", resp.AccessToken, resp.RefreshToken)
	}
	if resp.TokenType != "Bearer" {
		t.Fatalf("token_type = %q", resp.TokenType)
	}
	if resp.ExpiresIn != 90 {
		t.Fatalf("expires_in = %d, want 90", resp.ExpiresIn)
	}
	if resp.Scope != "read write" {
		t.Fatalf("scope = %q", resp.Scope)
	}
	if resp.IDToken != "signed.id.token" {
		t.Fatalf("id_token = %q", resp.IDToken)
	}
	if len(resp.AuthorizationDetails) != 1 {
		t.Fatalf("authorization_details = %v", resp.AuthorizationDetails)
	}
	if resp.CNonce != "nonce-1" || resp.CNonceExpiresIn != 300 {
		t.Fatalf("c_nonce = %q / %d", resp.CNonce, resp.CNonceExpiresIn)
	}
}

func TestResponseFromOmitsAbsentParts(t *testing.T) {
	now := time.Now().UTC()
	issued := &OAuthToken{
		ID: NewOAuthTokenID(),
		AccessToken: AccessToken{
			TenantID:  "acme",
			Type:      TokenTypeBearer,
			Entity:    NewOpaqueEntity("raw-access"),
			Grant:     repository.AuthorizationGrant{TenantID: "acme", ClientID: "svc"},
			CreatedAt: now,
			ExpiresIn: time.Hour,
			ExpiresAt: now.Add(time.Hour),
		},
	}

	resp := responseFrom(issued)
	if resp.RefreshToken != "" || resp.IDToken != "" || resp.CNonce != "" {
		t.Fatalf("absent parts leaked into response: %+v", resp)
	}
}
