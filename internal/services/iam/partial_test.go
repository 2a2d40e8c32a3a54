package iam

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialPolicy_Default(t *testing.T) {
	p := NewPartialPolicy(nil)

	partial, overridden := p.Decide(http.MethodGet, "/api/v1/charts/12?tenantId=ACME")
	assert.True(t, partial)
	assert.False(t, overridden)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		partial, overridden = p.Decide(method, "/api/v1/charts/12")
		assert.False(t, partial, method)
		assert.False(t, overridden, method)
	}
}

func TestPartialPolicy_Overrides(t *testing.T) {
	p := NewPartialPolicy([]PartialOverride{
		{Pattern: "/api/v1/session", Method: http.MethodGet, Partial: false},
		{Pattern: "/api/v1/charts/{id}/export", Method: "*", Partial: false},
		{Pattern: "/api/v1/search", Method: "post", Partial: true},
		{Pattern: "/api/v1/reports/*", Partial: true},
		{Pattern: "/api/v1/reports/billing", Method: http.MethodGet, Partial: false},
	})

	tests := []struct {
		method         string
		uri            string
		wantPartial    bool
		wantOverridden bool
	}{
		{http.MethodGet, "/api/v1/session", false, true},
		{http.MethodGet, "/api/v1/session?tenantId=ACME", false, true},
		{http.MethodGet, "/api/v1/charts/7/export", false, true},
		{http.MethodPost, "/api/v1/search", true, true},
		{http.MethodGet, "/api/v1/search", true, false},
		{http.MethodDelete, "/api/v1/reports/monthly", true, true},
		{http.MethodGet, "/api/v1/reports/billing", false, true},
		{http.MethodGet, "/api/v1/charts/7", true, false},
		{http.MethodPost, "/api/v1/charts/7", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.uri, func(t *testing.T) {
			partial, overridden := p.Decide(tt.method, tt.uri)
			assert.Equal(t, tt.wantPartial, partial)
			assert.Equal(t, tt.wantOverridden, overridden)
		})
	}
}
