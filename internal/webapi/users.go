package webapi

import (
	"context"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// DefaultOAuthProvider is used when a credential names no provider.
const DefaultOAuthProvider = "facebook"

// OAuthCredential is a third-party login token.
type OAuthCredential struct {
	Provider          string
	AccessToken       string
	AccessTokenSecret string
}

func (c OAuthCredential) provider() string {
	if c.Provider == "" {
		return DefaultOAuthProvider
	}
	return c.Provider
}

// BankAccount is the payout destination registered for withdrawals.
type BankAccount struct {
	FinancialInstitutionNumber string
	BranchTransitNumber        string
	AccountType                int
	AccountNumber              string
	AccountName                string
}

// UserSMSSend requests an SMS verification code.
func (a *API) UserSMSSend(ctx context.Context, phone string, onComplete domain.Completion) {
	params := domain.Params{}.Set("phone", phone)
	a.execute(ctx, domain.Post(a.url("/user/sms/send"), params), onComplete)
}

// UserSMSAuth verifies an SMS code.
func (a *API) UserSMSAuth(ctx context.Context, phone, pincode string, onComplete domain.Completion) {
	params := domain.Params{}.Set("phone", phone).Set("pincode", pincode)
	a.execute(ctx, domain.Post(a.url("/user/sms/auth"), params), onComplete)
}

// UserFind looks up an account by mail address and OAuth credential.
func (a *API) UserFind(ctx context.Context, mailAddress string, cred OAuthCredential, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("mail_address", mailAddress).
		Set("provider", cred.provider())
	if cred.AccessToken != "" {
		params = params.Set("access_token", cred.AccessToken)
	}
	params = params.Set("access_token_secret", cred.AccessTokenSecret)
	a.execute(ctx, domain.Post(a.url("/user/find"), params), onComplete)
}

// UserSignup creates an account and stores the returned token.
func (a *API) UserSignup(ctx context.Context, mailAddress, phone, password string, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("mail_address", mailAddress).
		Set("phone", phone).
		Set("password", password)
	a.doer.ExecuteWith(ctx, domain.Post(a.url("/user/signup"), params), a.storeToken, onComplete)
}

// UserOAuth signs in with a third-party credential and stores the returned
// token. phone is sent only when non-empty.
func (a *API) UserOAuth(ctx context.Context, cred OAuthCredential, phone string, onComplete domain.Completion) {
	params := domain.Params{}.Set("provider", cred.provider())
	if cred.AccessToken != "" {
		params = params.Set("access_token", cred.AccessToken)
		if phone != "" {
			params = params.Set("phone", phone)
		}
	}
	params = params.Set("access_token_secret", cred.AccessTokenSecret)
	a.doer.ExecuteWith(ctx, domain.Post(a.url("/user/oauth"), params), a.storeToken, onComplete)
}

// UserSignin signs in with mail address and password and stores the
// returned token.
func (a *API) UserSignin(ctx context.Context, mailAddress, password string, onComplete domain.Completion) {
	auth := domain.Params{}.Set("mail_address", mailAddress).Set("password", password)
	params := domain.Params{}.Set("auth", auth)
	a.doer.ExecuteWith(ctx, domain.Post(a.url("/user/signin"), params), a.storeToken, onComplete)
}

// UserSignout revokes the current token. The local session is cleared
// whatever the outcome.
func (a *API) UserSignout(ctx context.Context, onComplete domain.Completion) {
	token, _ := a.session.Get()
	params := domain.Params{}.Set("jwt", token)
	a.doer.ExecuteWith(ctx, domain.Post(a.url("/user/signout"), params).Authenticated(), a.clearToken, onComplete)
}

// Loggedin checks whether the stored token is still accepted.
func (a *API) Loggedin(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/loggedin"), nil).Authenticated(), onComplete)
}

// UserInfo fetches the signed-in user.
func (a *API) UserInfo(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/user/info"), nil).Authenticated(), onComplete)
}

// UserPasswordReminder sends a password reset mail.
func (a *API) UserPasswordReminder(ctx context.Context, reminder string, onComplete domain.Completion) {
	params := domain.Params{}.Set("reminder", reminder)
	a.execute(ctx, domain.Post(a.url("/user/password_reminder"), params), onComplete)
}

// UserBankAccount fetches the registered bank account.
func (a *API) UserBankAccount(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/user/bank_account"), nil).Authenticated(), onComplete)
}

// SetUserBankAccount registers the bank account.
func (a *API) SetUserBankAccount(ctx context.Context, acct BankAccount, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("financial_institution_number", acct.FinancialInstitutionNumber).
		Set("branch_transit_number", acct.BranchTransitNumber).
		Set("account_type", acct.AccountType).
		Set("account_number", acct.AccountNumber).
		Set("account_name", acct.AccountName)
	a.execute(ctx, domain.Post(a.url("/user/bank_account"), params).Authenticated(), onComplete)
}

// UserMailAddress changes the mail address.
func (a *API) UserMailAddress(ctx context.Context, mailAddress string, onComplete domain.Completion) {
	params := domain.Params{}.Set("mail_address", mailAddress)
	a.execute(ctx, domain.Post(a.url("/user/mail_address"), params).Authenticated(), onComplete)
}

// UserPassword changes the password.
func (a *API) UserPassword(ctx context.Context, current, password, confirmation string, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("current_password", current).
		Set("password", password).
		Set("password_confirmation", confirmation)
	a.execute(ctx, domain.Post(a.url("/user/password"), params).Authenticated(), onComplete)
}

// UserProfile fetches another user's public profile.
func (a *API) UserProfile(ctx context.Context, userID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/user/%d/profile", userID), nil).Authenticated(), onComplete)
}

// CurrentCapacity fetches the user's remaining capacity.
func (a *API) CurrentCapacity(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/user/current_capacity"), nil).Authenticated(), onComplete)
}

// UserBox fetches the present box.
func (a *API) UserBox(ctx context.Context, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/user/box"), nil).Authenticated(), onComplete)
}

// UserBoxHistories fetches ticket usage history.
func (a *API) UserBoxHistories(ctx context.Context, offset, limit int, onComplete domain.Completion) {
	params := domain.Params{}.Set("offset", offset).Set("limit", limit)
	a.execute(ctx, domain.Get(a.url("/user/box/histories"), params).Authenticated(), onComplete)
}
