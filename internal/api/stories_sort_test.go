package api

import (
	"testing"
	"time"

	"convo-backend/internal/models"

	"github.com/google/uuid"
)

func group(owner uuid.UUID, latest time.Time) models.StoryGroup {
	return models.StoryGroup{
		Owner:   models.ProfileSummary{ID: owner},
		Stories: []models.Story{{CreatedAt: latest}},
	}
}

func TestSortStoryGroupsOwnFirstThenRecency(t *testing.T) {
	me := uuid.New()
	older := uuid.New()
	newer := uuid.New()

	base := time.Now()
	groups := []models.StoryGroup{
		group(older, base.Add(-2*time.Hour)),
		group(newer, base.Add(-1*time.Minute)),
		group(me, base.Add(-5*time.Hour)),
	}

	sortStoryGroups(groups, me)

	if groups[0].Owner.ID != me {
		t.Fatalf("Own group should sort first, got %v", groups[0].Owner.ID)
	}
	if groups[1].Owner.ID != newer || groups[2].Owner.ID != older {
		t.Errorf("Other groups should order by latest story descending, got %v then %v",
			groups[1].Owner.ID, groups[2].Owner.ID)
	}
}

func TestSortStoryGroupsWithoutOwnGroup(t *testing.T) {
	me := uuid.New()
	a := uuid.New()
	b := uuid.New()

	base := time.Now()
	groups := []models.StoryGroup{
		group(a, base.Add(-3*time.Hour)),
		group(b, base.Add(-1*time.Hour)),
	}

	sortStoryGroups(groups, me)

	if groups[0].Owner.ID != b {
		t.Errorf("Most recent group should sort first, got %v", groups[0].Owner.ID)
	}
}
