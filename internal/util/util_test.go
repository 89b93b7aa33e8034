package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_blueprint_backend/internal/model"
)

func TestPercent(t *testing.T) {
	assert.Zero(t, Percent(5, 0))
	assert.Zero(t, Percent(0, -1))
	assert.Equal(t, 50.0, Percent(1, 2))
	assert.Equal(t, 33.3, Percent(1, 3))
	assert.Equal(t, 66.7, Percent(2, 3))
	assert.Equal(t, 100.0, Percent(7, 7))
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 1.3, Round1(1.25))
	assert.Equal(t, -1.3, Round1(-1.25))
	assert.Equal(t, 0.0, Round1(0.04))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseDate("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = ParseDate("15/03/2026")
	assert.Error(t, err)
}

func TestMustParseUint(t *testing.T) {
	assert.Equal(t, uint(42), MustParseUint("42"))
	assert.Zero(t, MustParseUint("abc"))
	assert.Zero(t, MustParseUint("-1"))
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(5, 9, model.Reviewer, "r@example.edu", "secret", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint(5), claims.UserID)
	assert.Equal(t, uint(9), claims.InstitutionID)
	assert.Equal(t, model.Reviewer, claims.Role)

	_, err = ParseJWT(token, "other")
	assert.Error(t, err)

	expired, err := GenerateJWT(5, 9, model.Member, "", "secret", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(expired, "secret")
	assert.Error(t, err)
}

func TestUnprocessableEntityEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	UnprocessableEntity(c, map[string]string{"basicInfo.vendorName": "Vendor Name is required"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body struct {
		Code int `json:"code"`
		Data struct {
			Errors map[string]string `json:"errors"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusUnprocessableEntity, body.Code)
	assert.Equal(t, "Vendor Name is required", body.Data.Errors["basicInfo.vendorName"])
}

func TestGetUserFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetUserFromContext(c))

	c.Set(ContextUserKey, "not claims")
	assert.Nil(t, GetUserFromContext(c))

	c.Set(ContextUserKey, &Claims{UserID: 3})
	assert.Equal(t, uint(3), GetUserFromContext(c).UserID)
}
