package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/models"
	"github.com/aruzhans/oppora/pkg/response"
)

func TestOpportunityHandlerListWithFilters(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	handler, err := NewOpportunityHandler(db)
	require.NoError(t, err)

	first := seedHandlerOpportunity(t, db, "fellowship")
	second := seedHandlerOpportunity(t, db, "hackathon")
	require.NoError(t, db.Model(&models.Opportunity{}).Where("id = ?", second.ID).
		Update("is_popular", true).Error)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/?popular=true", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	var payload response.Response
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.True(t, payload.Success)
	require.NotNil(t, payload.Meta)
	require.Equal(t, 1, payload.Meta.Total)

	data, err := json.Marshal(payload.Data)
	require.NoError(t, err)
	var items []models.Opportunity
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	require.Equal(t, second.ID, items[0].ID)

	// Category filter narrows to the other record.
	recorder = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest(http.MethodGet, "/?category_id="+first.CategoryID, nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &payload))
	require.Equal(t, 1, payload.Meta.Total)
}

func TestOpportunityHandlerCreateValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	handler, err := NewOpportunityHandler(db)
	require.NoError(t, err)

	recorder, c := jsonRequest(t, http.MethodPost, gin.H{"title": "x"})
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	// References must exist.
	recorder, c = jsonRequest(t, http.MethodPost, gin.H{
		"title":           "Summer school",
		"category_id":     "missing-category",
		"organization_id": "missing-org",
	})
	handler.Create(c)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestOpportunityHandlerGetMissing(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	handler, err := NewOpportunityHandler(db)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Params = gin.Params{gin.Param{Key: "id", Value: "ghost"}}
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}
