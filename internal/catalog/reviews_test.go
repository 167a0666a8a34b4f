package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cheetah-storefront/pkg/apiclient"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

func newReviewClient(t *testing.T, handler http.HandlerFunc, opts Options) ReviewService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	svc, err := NewReviewService(apiclient.New(srv.URL, apiclient.WithTimeout(time.Second)), opts)
	require.NoError(t, err)
	return svc
}

func unreachableReviewClient(t *testing.T, opts Options) ReviewService {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	svc, err := NewReviewService(apiclient.New(url, apiclient.WithTimeout(time.Second)), opts)
	require.NoError(t, err)
	return svc
}

func TestNewReviewServiceRequiresClientUnlessMock(t *testing.T) {
	_, err := NewReviewService(nil, Options{})
	require.Error(t, err)

	svc, err := NewReviewService(nil, Options{Mock: true})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestUserReviewsFetchesList(t *testing.T) {
	svc := newReviewClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reviews/user/7", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"id":"r1","productId":3,"productName":"Desk Lamp","rating":4,"comment":"Bright","date":"2026-03-01T09:00:00Z"}]}`))
	}, Options{})

	list, outcome, err := svc.UserReviews(context.Background(), " 7 ")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	require.Len(t, list, 1)
	assert.Equal(t, types.ID("3"), list[0].ProductID)
	assert.Equal(t, "Desk Lamp", list[0].ProductName)
}

func TestUserReviewsDegradesOnTransportError(t *testing.T) {
	svc := unreachableReviewClient(t, Options{FallbackOnTransportError: true})
	list, outcome, err := svc.UserReviews(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	assert.Empty(t, list)

	strict := unreachableReviewClient(t, Options{})
	_, outcome, err = strict.UserReviews(context.Background(), "7")
	assert.Equal(t, enums.OutcomeFailed, outcome)
	assert.True(t, pkgerrors.IsTransport(err))
}

func TestUserReviewsSurfacesRejection(t *testing.T) {
	svc := newReviewClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"access denied"}}`))
	}, Options{FallbackOnTransportError: true})

	_, outcome, err := svc.UserReviews(context.Background(), "7")
	assert.Equal(t, enums.OutcomeFailed, outcome)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestAddReviewPostsInput(t *testing.T) {
	svc := newReviewClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reviews", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "3", body["productId"])
		assert.EqualValues(t, 5, body["rating"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"r9","productId":"3","productName":"Desk Lamp","rating":5,"comment":"Great"}}`))
	}, Options{})

	saved, outcome, err := svc.AddReview(context.Background(), types.ReviewInput{ProductID: "3", Rating: 5, Comment: "Great"})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, types.ID("r9"), saved.ID)
}

func TestReviewWritesNeverFallBack(t *testing.T) {
	svc := unreachableReviewClient(t, Options{FallbackOnTransportError: true})
	ctx := context.Background()

	_, outcome, err := svc.AddReview(ctx, types.ReviewInput{ProductID: "3", Rating: 5})
	assert.Equal(t, enums.OutcomeFailed, outcome)
	assert.True(t, pkgerrors.IsTransport(err))

	_, outcome, err = svc.UpdateReview(ctx, "r1", types.ReviewInput{Rating: 3})
	assert.Equal(t, enums.OutcomeFailed, outcome)
	assert.True(t, pkgerrors.IsTransport(err))

	outcome, err = svc.DeleteReview(ctx, "r1")
	assert.Equal(t, enums.OutcomeFailed, outcome)
	assert.True(t, pkgerrors.IsTransport(err))
}

func TestUpdateAndDeleteReviewUseVerbs(t *testing.T) {
	var seen []string
	svc := newReviewClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.NotContains(t, body, "productId")
			_, _ = w.Write([]byte(`{"data":{"id":"r1","rating":2,"comment":"Meh"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":{"status":"deleted"}}`))
	}, Options{})
	ctx := context.Background()

	saved, outcome, err := svc.UpdateReview(ctx, "r1", types.ReviewInput{ProductID: "3", Rating: 2, Comment: "Meh"})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, 2, saved.Rating)

	outcome, err = svc.DeleteReview(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, []string{"PUT /reviews/r1", "DELETE /reviews/r1"}, seen)
}

func TestReviewInputValidation(t *testing.T) {
	svc, err := NewReviewService(nil, Options{Mock: true})
	require.NoError(t, err)
	ctx := context.Background()

	_, _, err = svc.AddReview(ctx, types.ReviewInput{ProductID: "1", Rating: 0})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, _, err = svc.AddReview(ctx, types.ReviewInput{Rating: 4})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, _, err = svc.UpdateReview(ctx, " ", types.ReviewInput{Rating: 4})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, err = svc.DeleteReview(ctx, "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	_, _, err = svc.UserReviews(ctx, "")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestReviewMockMode(t *testing.T) {
	svc, err := NewReviewService(nil, Options{Mock: true})
	require.NoError(t, err)
	ctx := context.Background()

	list, outcome, err := svc.UserReviews(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	assert.Empty(t, list)

	added, outcome, err := svc.AddReview(ctx, types.ReviewInput{ProductID: "1", Rating: 4, Comment: " ok "})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	assert.Equal(t, "Sample Product 1", added.ProductName)
	assert.Equal(t, "ok", added.Comment)
	assert.False(t, added.ID.IsZero())

	outcome, err = svc.DeleteReview(ctx, string(added.ID))
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
}
