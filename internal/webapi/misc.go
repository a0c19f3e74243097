package webapi

import (
	"context"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// Notifications fetches every notification.
func (a *API) Notifications(ctx context.Context, onComplete domain.Completion) {
	params := domain.Params{}.Set("read", "all")
	a.execute(ctx, domain.Get(a.url("/notifications"), params).Authenticated(), onComplete)
}

// MarkNotificationRead marks one notification as read.
func (a *API) MarkNotificationRead(ctx context.Context, notificationID int, onComplete domain.Completion) {
	params := domain.Params{}.Set("notification_id", notificationID)
	a.execute(ctx, domain.Put(a.url("/notifications/%d", notificationID), params).Authenticated(), onComplete)
}

// Badges fetches unread badge counts.
func (a *API) Badges(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/badges"), nil).Authenticated(), onComplete)
}

// PreTalents fetches candidates in the polling station. A nil preTalentID
// sends an empty pre_talent_id.
func (a *API) PreTalents(ctx context.Context, offset, limit, categoryID int, preTalentID *int, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("offset", offset).
		Set("limit", limit).
		Set("category", categoryID)
	if preTalentID != nil {
		params = params.Set("pre_talent_id", *preTalentID)
	} else {
		params = params.Set("pre_talent_id", "")
	}
	a.execute(ctx, domain.Get(a.url("/pre_talents"), params).Authenticated(), onComplete)
}

// PreTalent fetches a candidate's detail.
func (a *API) PreTalent(ctx context.Context, preTalentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/pre_talents/%d", preTalentID), nil).Authenticated(), onComplete)
}

// PreTalentCheer votes for a candidate.
func (a *API) PreTalentCheer(ctx context.Context, preTalentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Put(a.url("/pre_talents/%d", preTalentID), nil).Authenticated(), onComplete)
}

// PreTalentAdditionalVotes buys extra votes for a candidate.
func (a *API) PreTalentAdditionalVotes(ctx context.Context, preTalentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Put(a.url("/pre_talents/%d/additional_votes", preTalentID), nil).Authenticated(), onComplete)
}

// PreSale fetches a pre-sale offering.
func (a *API) PreSale(ctx context.Context, preSaleID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/pre_sales/%d", preSaleID), nil).Authenticated(), onComplete)
}

// PollingStation buys seconds in a pre-sale.
func (a *API) PollingStation(ctx context.Context, preSaleID, buySecond int, onComplete domain.Completion) {
	params := domain.Params{}.Set("buy_second", buySecond)
	a.execute(ctx, domain.Post(a.url("/polling_stations/%d", preSaleID), params).Authenticated(), onComplete)
}

// OtherPages fetches the "other" menu.
func (a *API) OtherPages(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/other_pages"), nil).Authenticated(), onComplete)
}

// InvitationCode fetches the user's own invitation token.
func (a *API) InvitationCode(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/invitation_token"), nil).Authenticated(), onComplete)
}

// RegisterInvitationCode redeems someone else's invitation token.
func (a *API) RegisterInvitationCode(ctx context.Context, token string, onComplete domain.Completion) {
	params := domain.Params{}.Set("invitation_token", token)
	a.execute(ctx, domain.Post(a.url("/invitation_histories"), params).Authenticated(), onComplete)
}

// Subscription fetches a subscription offering.
func (a *API) Subscription(ctx context.Context, subscriptionID, talentID int, onComplete domain.Completion) {
	params := domain.Params{}.Set("talent_id", talentID)
	a.execute(ctx, domain.Get(a.url("/subscription/%d", subscriptionID), params).Authenticated(), onComplete)
}

// ApplySubscription applies for seconds in a subscription offering.
func (a *API) ApplySubscription(ctx context.Context, subscriptionID, second, talentID int, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("subscription_id", subscriptionID).
		Set("second", second).
		Set("talent_id", talentID)
	a.execute(ctx, domain.Post(a.url("/subscription/"), params).Authenticated(), onComplete)
}

// Exercise fetches the service menu of a talent.
func (a *API) Exercise(ctx context.Context, talentID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/exercise/%d", talentID), nil).Authenticated(), onComplete)
}

// ApplyExercise redeems seconds for a service.
func (a *API) ApplyExercise(ctx context.Context, talentID, menuID, second int, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("talent_id", talentID).
		Set("exercise_menu_id", menuID).
		Set("second", second)
	a.execute(ctx, domain.Post(a.url("/exercise"), params).Authenticated(), onComplete)
}

// DrawItems runs an item lottery.
func (a *API) DrawItems(ctx context.Context, kind int, onComplete domain.Completion) {
	params := domain.Params{}.Set("kind", kind)
	a.execute(ctx, domain.Post(a.url("/items"), params).Authenticated(), onComplete)
}

// ItemResult fetches a lottery result.
func (a *API) ItemResult(ctx context.Context, id int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/items/%d", id), nil).Authenticated(), onComplete)
}
