package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Masterminds/semver/v3"

	"github.com/kendovivi/timebank-client/internal/domain"
)

// Settings is the server-driven app configuration. Intervals are seconds.
type Settings struct {
	FeaturedInterval           float64
	FeaturedAutoReloadInterval float64
	PriceAutoReloadInterval    float64
	Categories                 json.RawMessage
	PreTalentCategories        json.RawMessage
	DefectReportURL            string
	FAQURL                     string
	UserTermsURL               string
	GlossaryURL                string
	PrivacyURL                 string
	ReviewURL                  string
	OwnerTermsURL              string
	GuideURL                   string
	SupportURL                 string
	NoticeURL                  string
	AndroidLatestVersion       string
}

// DefaultSettings are used until /setting has been fetched.
func DefaultSettings() Settings {
	return Settings{
		FeaturedInterval:           10,
		FeaturedAutoReloadInterval: 3600,
		PriceAutoReloadInterval:    60,
		Categories:                 json.RawMessage("[]"),
		PreTalentCategories:        json.RawMessage("[]"),
	}
}

// merge applies the fields present in raw. Each field is decoded on its
// own: a mistyped or null value keeps the previous setting.
func (s Settings) merge(raw json.RawMessage) Settings {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return s
	}

	floats := map[string]*float64{
		"featured_interval":             &s.FeaturedInterval,
		"featured_auto_reload_interval": &s.FeaturedAutoReloadInterval,
		"price_auto_reload_interval":    &s.PriceAutoReloadInterval,
	}
	strs := map[string]*string{
		"defect_report_url":      &s.DefectReportURL,
		"faq_url":                &s.FAQURL,
		"user_terms_url":         &s.UserTermsURL,
		"glossary_url":           &s.GlossaryURL,
		"privacy_url":            &s.PrivacyURL,
		"review_url":             &s.ReviewURL,
		"owner_terms_url":        &s.OwnerTermsURL,
		"guide_url":              &s.GuideURL,
		"support_url":            &s.SupportURL,
		"notice_url":             &s.NoticeURL,
		"android_latest_version": &s.AndroidLatestVersion,
	}
	arrays := map[string]*json.RawMessage{
		"categories":            &s.Categories,
		"pre_talent_categories": &s.PreTalentCategories,
	}

	for key, value := range fields {
		value = bytes.TrimSpace(value)
		if len(value) == 0 || bytes.Equal(value, []byte("null")) {
			continue
		}
		if dst, ok := floats[key]; ok {
			var v float64
			if err := json.Unmarshal(value, &v); err == nil {
				*dst = v
			}
			continue
		}
		if dst, ok := strs[key]; ok {
			var v string
			if err := json.Unmarshal(value, &v); err == nil {
				*dst = v
			}
			continue
		}
		if dst, ok := arrays[key]; ok && value[0] == '[' {
			*dst = append(json.RawMessage(nil), value...)
		}
	}
	return s
}

// NeedsAppUpdate reports whether the latest published version is newer
// than appVersion by major or minor number. Patch releases never force an
// update, and unparsable versions never do either.
func (s Settings) NeedsAppUpdate(appVersion string) bool {
	if s.AndroidLatestVersion == "" {
		return false
	}
	latest, err := semver.NewVersion(s.AndroidLatestVersion)
	if err != nil {
		return false
	}
	current, err := semver.NewVersion(appVersion)
	if err != nil {
		return false
	}
	if latest.Major() != current.Major() {
		return latest.Major() > current.Major()
	}
	return latest.Minor() > current.Minor()
}

// Settings returns the latest settings snapshot.
func (a *API) Settings() Settings {
	return *a.settings.Load()
}

// Setting fetches /setting and merges it into the stored snapshot. Missing
// fields keep their previous values. onComplete receives only the error.
func (a *API) Setting(ctx context.Context, onComplete func(*domain.APIError)) {
	after := func(res domain.Result) domain.Result {
		if res.Err == nil && res.HasPayload() {
			merged := a.Settings().merge(res.Payload)
			a.settings.Store(&merged)
			a.logger.Debug("settings updated", slog.String("android_latest_version", merged.AndroidLatestVersion))
		}
		return res
	}
	a.doer.ExecuteWith(ctx, domain.Get(a.url("/setting"), nil), after, func(res domain.Result) {
		onComplete(res.Err)
	})
}
