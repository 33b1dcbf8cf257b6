package models

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestPrincipalContext(t *testing.T) {
	tests := []struct {
		name      string
		principal *Principal
	}{
		{name: "valid principal", principal: &Principal{Subject: "sub-1", Email: "a@wrdesk.com"}},
		{name: "nil principal", principal: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := SetPrincipalContext(context.Background(), tt.principal)
			assert.Equal(t, tt.principal, GetPrincipalFromContext(ctx))
		})
	}
}

func TestGetPrincipalFromGinContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)

	assert.Nil(t, GetPrincipalFromContext(c))

	p := &Principal{Subject: "sub-2"}
	c.Set(PrincipalContextKey, p)
	assert.Same(t, p, GetPrincipalFromContext(c))
}

func TestPrincipalDisplayName(t *testing.T) {
	var nilPrincipal *Principal
	assert.Equal(t, "", nilPrincipal.DisplayName())
	assert.Equal(t, "Ada", (&Principal{Subject: "s", Email: "e", Name: "Ada"}).DisplayName())
	assert.Equal(t, "e@x", (&Principal{Subject: "s", Email: "e@x"}).DisplayName())
	assert.Equal(t, "s", (&Principal{Subject: "s"}).DisplayName())
}
