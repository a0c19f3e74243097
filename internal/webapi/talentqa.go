package webapi

import (
	"context"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// Answer is a talent's reply to a question.
type Answer struct {
	Kind       int
	TalentQAID int
	Answer     string
	AnswerType string
	Spend      int
}

// Transmission is a post published by a talent. Kind is 0 text, 5 voice,
// 10 image, 15 video; DisclosureType is every, owner or pay.
type Transmission struct {
	Kind             int
	Description      string
	Sentence         string
	DisclosureType   string
	RequiredQuantity int
}

// TalentQAsTimeline fetches the Q&A timeline.
func (a *API) TalentQAsTimeline(ctx context.Context, sortBy, filter string, pageNumber, limit int, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("sort_by", sortBy).
		Set("filter", filter).
		Set("page", pageNumber).
		Set("limit", limit)
	a.execute(ctx, domain.Get(a.url("/talent_qas/timeline"), params).Authenticated(), onComplete)
}

// TalentQAs fetches a talent's Q&A list. A non-empty nextURL is followed
// as is.
func (a *API) TalentQAs(ctx context.Context, talentID int, condition string, pageNumber, limit int, nextURL string, onComplete domain.Completion) {
	if nextURL != "" {
		a.execute(ctx, domain.Get(nextURL, nil).Authenticated(), onComplete)
		return
	}
	params := domain.Params{}.
		Set("talent_id", talentID).
		Set("condition", condition).
		Set("page", pageNumber).
		Set("limit", limit)
	a.execute(ctx, domain.Get(a.url("/talent_qas"), params).Authenticated(), onComplete)
}

// TalentQARead fetches who has read a Q&A.
func (a *API) TalentQARead(ctx context.Context, talentQAID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Get(a.url("/talent_qa/%d/read", talentQAID), nil).Authenticated(), onComplete)
}

// TalentQAReadExecute unlocks a Q&A for reading.
func (a *API) TalentQAReadExecute(ctx context.Context, talentID, talentQAID int, onComplete domain.Completion) {
	params := domain.Params{}.Set("talent_id", talentID).Set("talent_qa_id", talentQAID)
	a.execute(ctx, domain.Post(a.url("/talent_qa/read"), params).Authenticated(), onComplete)
}

// TalentQAWants marks a question as wanted.
func (a *API) TalentQAWants(ctx context.Context, talentQAID int, onComplete domain.Completion) {
	a.execute(ctx, domain.Post(a.url("/talent_qas/%d/wants", talentQAID), nil).Authenticated(), onComplete)
}

// TalentQALikes rates a Q&A. A nil evaluation sends an empty body.
func (a *API) TalentQALikes(ctx context.Context, talentQAID int, evaluation *int, onComplete domain.Completion) {
	var params domain.Params
	if evaluation != nil {
		params = params.Set("evaluation", *evaluation)
	}
	a.execute(ctx, domain.Post(a.url("/talent_qas/%d/likes", talentQAID), params).Authenticated(), onComplete)
}

// PostQuestion asks a talent a question.
func (a *API) PostQuestion(ctx context.Context, talentID int, question string, onComplete domain.Completion) {
	params := domain.Params{}.Set("talent_id", talentID).Set("question", question)
	a.execute(ctx, domain.Post(a.url("/talent_qas"), params).Authenticated(), onComplete)
}

// AnswerQA answers a question.
func (a *API) AnswerQA(ctx context.Context, ans Answer, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("kind", ans.Kind).
		Set("answer", ans.Answer).
		Set("answer_type", ans.AnswerType).
		Set("spend", ans.Spend)
	a.execute(ctx, domain.Patch(a.url("/talent_qas/%d", ans.TalentQAID), params).Authenticated(), onComplete)
}

// CreateTransmission publishes a post. Attach media afterwards with the
// returned talent_qa_id.
func (a *API) CreateTransmission(ctx context.Context, tr Transmission, onComplete domain.Completion) {
	params := domain.Params{}.
		Set("kind", tr.Kind).
		Set("sentence", tr.Sentence).
		Set("description", tr.Description).
		Set("disclosure_type", tr.DisclosureType).
		Set("required_quantity", tr.RequiredQuantity)
	a.execute(ctx, domain.Post(a.url("/talent_qas/transmission"), params).Authenticated(), onComplete)
}

// EditTransmission edits a published post.
func (a *API) EditTransmission(ctx context.Context, talentQAID int, description, sentence string, onComplete domain.Completion) {
	params := domain.Params{}.Set("sentence", sentence).Set("description", description)
	a.execute(ctx, domain.Patch(a.url("/talent_qas/transmission/%d", talentQAID), params).Authenticated(), onComplete)
}

// UploadVoice attaches a base64 voice clip to a post. It goes to the media
// upload host, which fails as InvalidURL when none is configured.
func (a *API) UploadVoice(ctx context.Context, talentQAID int, media string, mediaSecond int, containerType string, onComplete domain.Completion) {
	u := ""
	if a.mediaURL != "" {
		u = a.mediaURL + a.path("/ta/talent_qas/uploads/%d/voice", talentQAID)
	}
	params := domain.Params{}.
		Set("media", media).
		Set("media_second", mediaSecond).
		Set("media_container_type", containerType)
	a.execute(ctx, domain.Post(u, params).Authenticated(), onComplete)
}

// Yell sends yells to a post. A fresh uuid makes the request idempotent
// across transport retries.
func (a *API) Yell(ctx context.Context, talentQAID, yellCount int, onComplete domain.Completion) {
	params := domain.Params{}.Set("yell_count", yellCount).Set("uuid", a.newUUID())
	a.execute(ctx, domain.Post(a.url("/talent_qa/yell/%d", talentQAID), params).Authenticated(), onComplete)
}
