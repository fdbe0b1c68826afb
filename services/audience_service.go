package services

import (
	"context"
	"log"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/models"

	"gorm.io/gorm"
)

// Target groups resolvable to recipient sets.
const (
	GroupAll         = "all"
	GroupStaff       = "staff"
	GroupPurchased   = "purchased"
	GroupUnpurchased = "unpurchased"
)

// AudienceService resolves a named target group into concrete user ids.
// Unknown groups resolve to an empty set, never an error: callers treat
// empty resolution as nothing to do.
type AudienceService struct {
	db *gorm.DB
}

func NewAudienceService(db *gorm.DB) *AudienceService {
	if db == nil {
		db = config.DB
	}
	return &AudienceService{db: db}
}

func (s *AudienceService) Resolve(ctx context.Context, group string, sourceCodes []string) ([]int, error) {
	q := s.db.WithContext(ctx).Model(&models.User{}).
		Where("delete_at IS NULL AND is_active = ?", true)

	const enrolled = "EXISTS (SELECT 1 FROM enrollments e WHERE e.user_id = users.user_id AND e.delete_at IS NULL)"

	switch group {
	case GroupAll:
		q = q.Where("role_id <> ?", models.RoleIDStaff)
	case GroupStaff:
		q = q.Where("role_id = ?", models.RoleIDStaff)
	case GroupPurchased:
		q = q.Where("role_id <> ?", models.RoleIDStaff).Where(enrolled)
	case GroupUnpurchased:
		q = q.Where("role_id <> ?", models.RoleIDStaff).Where("NOT " + enrolled)
	default:
		log.Printf("audience: unknown target group %q, resolving to empty set", group)
		return nil, nil
	}

	if len(sourceCodes) > 0 {
		q = q.Where("source_id IN (SELECT source_id FROM acquisition_sources WHERE code IN ? AND delete_at IS NULL)", sourceCodes)
	}

	var ids []int
	if err := q.Order("user_id ASC").Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
