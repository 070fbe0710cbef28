package entitlements

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
)

type usageKey struct {
	userID     string
	languageID uuid.UUID
	day        string
}

// fakeRepo is an in-memory Repository used by the evaluator and recorder tests.
type fakeRepo struct {
	mu            sync.Mutex
	plans         []models.Plan
	languages     []models.Language
	subscriptions map[string]*SubscriptionWithPlan
	usage         map[usageKey]int64

	sumCalls    int
	upsertCalls int
	err         error
	upsertErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		subscriptions: map[string]*SubscriptionWithPlan{},
		usage:         map[usageKey]int64{},
	}
}

func (f *fakeRepo) withDefaultCatalog() *fakeRepo {
	f.plans = append(f.plans,
		models.Plan{ID: uuid.New(), Name: "Free", DailyLimit: 3, IsActive: true},
		models.Plan{ID: uuid.New(), Name: "Premium", DailyLimit: 999999, IsActive: true, Price: mustDecimal("29.90")},
	)
	f.languages = append(f.languages,
		models.Language{ID: uuid.New(), Code: "pt", Name: "Português"},
		models.Language{ID: uuid.New(), Code: "en", Name: "English"},
		models.Language{ID: uuid.New(), Code: "es", Name: "Español", IsPremium: true},
	)
	return f
}

func (f *fakeRepo) language(code string) models.Language {
	for _, lang := range f.languages {
		if lang.Code == code {
			return lang
		}
	}
	panic("unknown language " + code)
}

func (f *fakeRepo) plan(name string) models.Plan {
	for _, plan := range f.plans {
		if plan.Name == name {
			return plan
		}
	}
	panic("unknown plan " + name)
}

func (f *fakeRepo) setUsage(userID, code string, day time.Time, count int64) {
	f.usage[usageKey{userID: userID, languageID: f.language(code).ID, day: models.UsageDay(day).Format("2006-01-02")}] = count
}

func (f *fakeRepo) subscribe(userID string, plan models.Plan, end time.Time) {
	f.subscriptions[userID] = &SubscriptionWithPlan{
		Subscription: models.Subscription{
			ID:               uuid.New(),
			UserID:           userID,
			PlanID:           plan.ID,
			Status:           enums.SubscriptionStatusActive,
			CurrentPeriodEnd: end,
		},
		Plan: plan,
	}
}

func (f *fakeRepo) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Plan
	for _, plan := range f.plans {
		if plan.IsActive {
			out = append(out, plan)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

func (f *fakeRepo) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, plan := range f.plans {
		if plan.ID == id {
			p := plan
			return &p, nil
		}
	}
	return nil, f.err
}

func (f *fakeRepo) ListLanguages(ctx context.Context, filter enums.LanguageFilter) ([]models.Language, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Language
	for _, lang := range f.languages {
		switch {
		case filter == enums.LanguageFilterPremium && !lang.IsPremium:
			continue
		case filter == enums.LanguageFilterFree && lang.IsPremium:
			continue
		}
		out = append(out, lang)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeRepo) GetLanguageByCode(ctx context.Context, code string) (*models.Language, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, lang := range f.languages {
		if lang.Code == code {
			l := lang
			return &l, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetActiveSubscription(ctx context.Context, userID string, now time.Time) (*SubscriptionWithPlan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	sub, ok := f.subscriptions[userID]
	if !ok || !sub.Subscription.ActiveAt(now) {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (f *fakeRepo) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, plan := range f.plans {
		if plan.ID == subscription.PlanID {
			f.subscriptions[subscription.UserID] = &SubscriptionWithPlan{Subscription: *subscription, Plan: plan}
			return nil
		}
	}
	return f.err
}

func (f *fakeRepo) SumDailyUsage(ctx context.Context, userID string, day time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sumCalls++
	if f.err != nil {
		return 0, f.err
	}
	key := models.UsageDay(day).Format("2006-01-02")
	var total int64
	for k, v := range f.usage {
		if k.userID == userID && k.day == key {
			total += v
		}
	}
	return total, nil
}

func (f *fakeRepo) UpsertUsageIncrement(ctx context.Context, userID string, languageID uuid.UUID, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.usage[usageKey{userID: userID, languageID: languageID, day: models.UsageDay(day).Format("2006-01-02")}]++
	return nil
}

func (f *fakeRepo) ListUsageLogs(ctx context.Context, userID string, limit int) ([]UsageLogWithLanguage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []UsageLogWithLanguage
	for k, v := range f.usage {
		if k.userID != userID {
			continue
		}
		day, _ := time.Parse("2006-01-02", k.day)
		var lang models.Language
		for _, l := range f.languages {
			if l.ID == k.languageID {
				lang = l
			}
		}
		out = append(out, UsageLogWithLanguage{
			Log:      models.UsageLog{UserID: userID, LanguageID: k.languageID, Date: day, RequestCount: int(v)},
			Language: lang,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Log.Date.After(out[j].Log.Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
