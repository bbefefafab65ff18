package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/campushq/admissions-api/internal/middleware"
	"github.com/campushq/admissions-api/internal/models"
)

func TestMeritHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMeritHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/merit/generate", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeritHandlerExportDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMeritHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/merit/export?format=csv", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Export(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestApplicationHandlerSubmitRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewApplicationHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/applications", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
