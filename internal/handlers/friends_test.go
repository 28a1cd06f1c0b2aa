package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aruzhans/oppora/internal/database/testutil"
	"github.com/aruzhans/oppora/internal/middleware"
	"github.com/aruzhans/oppora/internal/models"
)

func TestFriendHandlerRequestLifecycle(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	handler, err := NewFriendHandler(db, nil, nil)
	require.NoError(t, err)

	sender := seedHandlerUser(t, db, "sender")
	receiver := seedHandlerUser(t, db, "receiver")

	recorder, c := jsonRequest(t, http.MethodPost, gin.H{"user_id": receiver.ID})
	c.Set(middleware.CtxUserIDKey, sender.ID)
	handler.SendRequest(c)
	require.Equal(t, http.StatusCreated, recorder.Code)

	var request models.FriendRequest
	require.NoError(t, db.Take(&request, "sender_id = ?", sender.ID).Error)

	// Only the receiver may answer.
	recorder, c = jsonRequest(t, http.MethodPost, gin.H{"accept": true})
	c.Params = gin.Params{gin.Param{Key: "id", Value: request.ID}}
	c.Set(middleware.CtxUserIDKey, sender.ID)
	handler.Respond(c)
	require.Equal(t, http.StatusForbidden, recorder.Code)

	recorder, c = jsonRequest(t, http.MethodPost, gin.H{"accept": true})
	c.Params = gin.Params{gin.Param{Key: "id", Value: request.ID}}
	c.Set(middleware.CtxUserIDKey, receiver.ID)
	handler.Respond(c)
	require.Equal(t, http.StatusOK, recorder.Code)

	var pairs int64
	require.NoError(t, db.Model(&models.Friendship{}).Count(&pairs).Error)
	require.EqualValues(t, 2, pairs)

	// Duplicate requests between friends are refused.
	recorder, c = jsonRequest(t, http.MethodPost, gin.H{"user_id": receiver.ID})
	c.Set(middleware.CtxUserIDKey, sender.ID)
	handler.SendRequest(c)
	require.Equal(t, http.StatusConflict, recorder.Code)
}
