package webapi

import (
	"context"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// Order is a buy or sell order on a talent's time.
type Order struct {
	TalentID     int
	Price        float64
	Volume       int
	OrderingType int
}

// TalentListFeatured fetches the featured carousel.
func (a *API) TalentListFeatured(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/talent/list/featured"), nil), onComplete)
}

// TalentListCategory fetches talents in a category. Zero pageNumber and
// limit request the server default.
func (a *API) TalentListCategory(ctx context.Context, categoryID, pageNumber, limit int, onComplete domain.Completion) {
	params := page(domain.Params{}, "page", pageNumber, limit)
	a.execute(ctx, domain.Get(a.url("/talent/list/category/%d", categoryID), params), onComplete)
}

// TalentListSubscription fetches talents open for subscription.
func (a *API) TalentListSubscription(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/talent/list/subscription"), nil), onComplete)
}

// Talent fetches a talent's detail.
func (a *API) Talent(ctx context.Context, talentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/talent/%d", talentID), nil).Authenticated(), onComplete)
}

// TalentTrade fetches a talent's trade board.
func (a *API) TalentTrade(ctx context.Context, talentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/talent/%d/trade", talentID), nil), onComplete)
}

// TalentOrderInfo fetches what the user may order for a talent.
func (a *API) TalentOrderInfo(ctx context.Context, talentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/talent/%d/order", talentID), nil).Authenticated(), onComplete)
}

// TalentOrder places an order. A fresh uuid makes the request idempotent
// across transport retries.
func (a *API) TalentOrder(ctx context.Context, o Order, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("talent_id", o.TalentID).
		Set("price", o.Price).
		Set("volume", o.Volume).
		Set("ordering_type", o.OrderingType).
		Set("uuid", a.newUUID())
	a.execute(ctx, domain.Post(a.url("/talent/order"), params).Authenticated(), onComplete)
}

// TalentYellRanking fetches the yell ranking. A non-empty nextURL from a
// previous page is followed as is.
func (a *API) TalentYellRanking(ctx context.Context, talentID int, nextURL string, onComplete domain.Completion) {
	u := nextURL
	if u == "" {
		u = a.url("/talent/%d/yell_ranking", talentID)
	}
	a.execute(ctx, domain.Get(u, nil).Authenticated(), onComplete)
}

// TalentMyYellRanking fetches the user's own rank.
func (a *API) TalentMyYellRanking(ctx context.Context, talentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/talent/%d/my_yell_ranking", talentID), nil).Authenticated(), onComplete)
}
