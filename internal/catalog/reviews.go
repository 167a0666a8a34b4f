package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/cheetah-storefront/pkg/apiclient"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const reviewServiceName = "reviews"

type reviewTransport interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Do(ctx context.Context, req apiclient.Request, out any) error
}

// ReviewService reads and edits the signed-in user's product reviews.
type ReviewService interface {
	UserReviews(ctx context.Context, userID string) ([]types.Review, enums.Outcome, error)
	AddReview(ctx context.Context, input types.ReviewInput) (types.Review, enums.Outcome, error)
	UpdateReview(ctx context.Context, reviewID string, input types.ReviewInput) (types.Review, enums.Outcome, error)
	DeleteReview(ctx context.Context, reviewID string) (enums.Outcome, error)
}

type reviewService struct {
	api  reviewTransport
	opts Options
	logg *logger.Logger
	now  func() time.Time
}

// NewReviewService builds the review client. Reads follow the catalogue
// fallback policy and degrade to an empty list; writes are never faked
// unless the client runs in mock mode.
func NewReviewService(api reviewTransport, opts Options) (ReviewService, error) {
	if api == nil && !opts.Mock {
		return nil, fmt.Errorf("api client required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &reviewService{api: api, opts: opts, logg: logg, now: time.Now}, nil
}

func (s *reviewService) UserReviews(ctx context.Context, userID string) ([]types.Review, enums.Outcome, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, enums.OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if s.opts.Mock {
		s.opts.Metrics.IncFallback(reviewServiceName, "user_reviews", metrics.ReasonMock)
		return []types.Review{}, enums.OutcomeDegraded, nil
	}

	var list []types.Review
	err := s.api.Get(ctx, "/reviews/user/"+apiclient.PathEscape(userID), nil, &list)
	if err == nil {
		if list == nil {
			list = []types.Review{}
		}
		return list, enums.OutcomeSuccess, nil
	}
	if s.opts.FallbackOnTransportError && pkgerrors.IsTransport(err) {
		s.logg.Warn(s.logg.WithField(ctx, "operation", "user_reviews"), "review api unreachable, showing no reviews")
		s.opts.Metrics.IncFallback(reviewServiceName, "user_reviews", metrics.ReasonTransport)
		return []types.Review{}, enums.OutcomeDegraded, nil
	}
	return nil, enums.OutcomeFailed, err
}

func (s *reviewService) AddReview(ctx context.Context, input types.ReviewInput) (types.Review, enums.Outcome, error) {
	if err := checkReview(input); err != nil {
		return types.Review{}, enums.OutcomeFailed, err
	}
	if input.ProductID.IsZero() {
		return types.Review{}, enums.OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if s.opts.Mock {
		return s.mockReview("add", "", input), enums.OutcomeDegraded, nil
	}
	var saved types.Review
	if err := s.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/reviews", Body: input}, &saved); err != nil {
		return types.Review{}, enums.OutcomeFailed, err
	}
	return saved, enums.OutcomeSuccess, nil
}

func (s *reviewService) UpdateReview(ctx context.Context, reviewID string, input types.ReviewInput) (types.Review, enums.Outcome, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return types.Review{}, enums.OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	if err := checkReview(input); err != nil {
		return types.Review{}, enums.OutcomeFailed, err
	}
	if s.opts.Mock {
		return s.mockReview("update", reviewID, input), enums.OutcomeDegraded, nil
	}
	body := types.ReviewInput{Rating: input.Rating, Comment: input.Comment}
	var saved types.Review
	err := s.api.Do(ctx, apiclient.Request{
		Method: http.MethodPut,
		Path:   "/reviews/" + apiclient.PathEscape(reviewID),
		Body:   body,
	}, &saved)
	if err != nil {
		return types.Review{}, enums.OutcomeFailed, err
	}
	return saved, enums.OutcomeSuccess, nil
}

func (s *reviewService) DeleteReview(ctx context.Context, reviewID string) (enums.Outcome, error) {
	reviewID = strings.TrimSpace(reviewID)
	if reviewID == "" {
		return enums.OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "review id is required")
	}
	if s.opts.Mock {
		s.opts.Metrics.IncFallback(reviewServiceName, "delete", metrics.ReasonMock)
		return enums.OutcomeDegraded, nil
	}
	err := s.api.Do(ctx, apiclient.Request{Method: http.MethodDelete, Path: "/reviews/" + apiclient.PathEscape(reviewID)}, nil)
	if err != nil {
		return enums.OutcomeFailed, err
	}
	return enums.OutcomeSuccess, nil
}

func (s *reviewService) mockReview(operation, id string, input types.ReviewInput) types.Review {
	s.opts.Metrics.IncFallback(reviewServiceName, operation, metrics.ReasonMock)
	now := s.now().UTC()
	if id == "" {
		id = fmt.Sprintf("mock_review_%d", now.UnixMilli())
	}
	review := types.Review{
		ID:        types.ID(id),
		ProductID: input.ProductID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		Date:      now,
	}
	if !input.ProductID.IsZero() {
		review.ProductName = mockProduct(input.ProductID.String()).Name
	}
	return review
}

func checkReview(input types.ReviewInput) error {
	if input.Rating < 1 || input.Rating > 5 {
		return pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]string{"rating": "range"})
	}
	return nil
}
