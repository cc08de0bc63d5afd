package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repositories"
)

type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type ReviewUpdate struct {
	Rating  *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

// ReviewService handles product reviews and their moderation.
type ReviewService struct {
	store repositories.Transactor
	repos repositories.Repositories
	log   logrus.FieldLogger
}

func NewReviewService(store repositories.Transactor, repos repositories.Repositories, log logrus.FieldLogger) *ReviewService {
	return &ReviewService{store: store, repos: repos, log: log}
}

func validRating(r int) error {
	if r < 1 || r > 5 {
		return apperr.Validation("rating must be between 1 and 5", nil)
	}
	return nil
}

// SubmitReview records a review from a user who has received the product. The review waits
// for admin approval and the user gets a thank-you notification.
func (s *ReviewService) SubmitReview(ctx context.Context, userID, productID uint, in ReviewInput) (*models.Review, error) {
	if err := validRating(in.Rating); err != nil {
		return nil, err
	}

	var review *models.Review
	err := s.store.WithinTransaction(ctx, func(repos repositories.Repositories) error {
		product, err := repos.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}

		purchased, err := repos.Orders.HasDeliveredItem(ctx, userID, productID)
		if err != nil {
			return err
		}
		if !purchased {
			return apperr.PurchaseRequired("you can review only after the product is delivered")
		}

		review = &models.Review{
			UserID:    userID,
			ProductID: productID,
			Rating:    in.Rating,
			Comment:   in.Comment,
		}
		if err := repos.Reviews.Create(ctx, review); err != nil {
			return err
		}

		return repos.Notifications.Create(ctx, &models.Notification{
			UserID:  userID,
			Title:   "Thank you for your review!",
			Message: fmt.Sprintf("Thanks for reviewing the product '%s'.", product.Name),
		})
	})
	if err != nil {
		return nil, asAppError(err, "failed to submit review")
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "product_id": productID}).Info("review submitted")
	return review, nil
}

// ListProductReviews returns approved reviews for a product, newest first.
func (s *ReviewService) ListProductReviews(ctx context.Context, productID uint, page repositories.Pagination) ([]models.Review, int64, error) {
	return s.repos.Reviews.ListApprovedByProduct(ctx, productID, page)
}

func (s *ReviewService) ownedReview(ctx context.Context, actor Actor, id uint) (*models.Review, error) {
	review, err := s.repos.Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(review.UserID) {
		return nil, apperr.Forbidden("access denied")
	}
	return review, nil
}

// UpdateReview changes rating and/or comment. Owner or admin only.
func (s *ReviewService) UpdateReview(ctx context.Context, actor Actor, id uint, in ReviewUpdate) (*models.Review, error) {
	review, err := s.ownedReview(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if in.Rating != nil {
		if err := validRating(*in.Rating); err != nil {
			return nil, err
		}
		review.Rating = *in.Rating
	}
	if in.Comment != nil {
		review.Comment = *in.Comment
	}
	if err := s.repos.Reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, id uint) error {
	if _, err := s.ownedReview(ctx, actor, id); err != nil {
		return err
	}
	return s.repos.Reviews.Delete(ctx, id)
}

// SetApproval approves or hides a review.
func (s *ReviewService) SetApproval(ctx context.Context, id uint, approved bool) (*models.Review, error) {
	review, err := s.repos.Reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	review.IsApproved = approved
	if err := s.repos.Reviews.Update(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ListPending(ctx context.Context) ([]models.Review, error) {
	return s.repos.Reviews.ListPending(ctx)
}
