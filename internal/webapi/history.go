package webapi

import (
	"context"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// HistoryPosition fetches current holdings.
func (a *API) HistoryPosition(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/history/position"), nil).Authenticated(), onComplete)
}

// HistoryOrder fetches orders filtered by status.
func (a *API) HistoryOrder(ctx context.Context, offset, limit, status int, onComplete domain.Completion) {
	params := domain.Params{}.Set("offset", offset).Set("limit", limit).Set("status", status)
	a.execute(ctx, domain.Get(a.url("/history/order"), params).Authenticated(), onComplete)
}

// OrderCancel cancels an open order.
func (a *API) OrderCancel(ctx context.Context, orderingID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Post(a.url("/order/%d/cancel", orderingID), nil).Authenticated(), onComplete)
}

// HistoryTransaction fetches settled trades.
func (a *API) HistoryTransaction(ctx context.Context, offset, limit int, onComplete domain.Completion) {
	params := domain.Params{}.Set("offset", offset).Set("limit", limit)
	a.execute(ctx, domain.Get(a.url("/history/transaction"), params).Authenticated(), onComplete)
}

// HistorySubscription fetches subscription entries.
func (a *API) HistorySubscription(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/history/subscription"), nil).Authenticated(), onComplete)
}

// SubscriptionCancel withdraws a subscription entry. kind selects an
// additional-offering entry.
func (a *API) SubscriptionCancel(ctx context.Context, entryID, kind int, onComplete domain.Completion) {
	params := domain.Params{}.Set("kind", kind)
	a.execute(ctx, domain.Post(a.url("/subscription/%d/cancel", entryID), params).Authenticated(), onComplete)
}

// HistoryImpart fetches received time grants.
func (a *API) HistoryImpart(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/history/impart"), nil).Authenticated(), onComplete)
}

// HistoryExercise fetches redeemed services.
func (a *API) HistoryExercise(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/history/exercise"), nil).Authenticated(), onComplete)
}

// HistoryPayments fetches payments.
func (a *API) HistoryPayments(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/history/payments"), nil).Authenticated(), onComplete)
}

// Balance fetches the account balance.
func (a *API) Balance(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/balance"), nil).Authenticated(), onComplete)
}

// BalanceDeposit fetches deposit instructions.
func (a *API) BalanceDeposit(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/balance/deposit"), nil).Authenticated(), onComplete)
}

// WithdrawalInfo fetches the withdrawable amount and fees.
func (a *API) WithdrawalInfo(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/balance/withdrawal"), nil).Authenticated(), onComplete)
}

// Withdraw requests a payout. A fresh uuid makes the request idempotent
// across transport retries.
func (a *API) Withdraw(ctx context.Context, amount string, onComplete domain.Completion) {
	params := domain.Params{}.Set("withdrawal_amount", amount).Set("uuid", a.newUUID())
	a.execute(ctx, domain.Post(a.url("/balance/withdrawal"), params).Authenticated(), onComplete)
}
