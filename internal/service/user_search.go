package service

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/shopple/internal/docstore"
	"github.com/cloo-solutions/shopple/internal/domain"
	"github.com/cloo-solutions/shopple/internal/metrics"
	"github.com/cloo-solutions/shopple/internal/scoring"
)

const (
	DefaultUserSearchLimit = 15
	maxPhoneVariations     = 5
	warmupMessage          = "Connection warmed"
)

// Email domains completed for queries without "@".
var emailCompletions = []string{"@gmail.com", "@yahoo.com"}

var (
	likelyEmail      = regexp.MustCompile(`^[a-zA-Z0-9].*[a-zA-Z]`)
	emailStart       = regexp.MustCompile(`^[a-zA-Z@]`)
	hasDigit         = regexp.MustCompile(`\d`)
	phoneNoise       = regexp.MustCompile(`[^\d+]`)
	tenDigitGrouping = regexp.MustCompile(`(\d{3})(\d{3})(\d{4})`)
)

// UserSearchRequest is a people search.
type UserSearchRequest struct {
	Query              string
	QueryType          domain.QueryType
	Limit              int
	IsShortQuery       bool
	ApplyPrivacyFilter bool
	IsWarmup           bool
	RequesterID        string
}

// UserSearchResult is returned to the client.
type UserSearchResult struct {
	Results           []domain.UserProfile `json:"results"`
	FromCache         bool                 `json:"fromCache"`
	IsInstant         bool                 `json:"isInstant"`
	IsWarmup          bool                 `json:"isWarmup,omitempty"`
	Message           string               `json:"message,omitempty"`
	Performance       string               `json:"performance,omitempty"`
	TotalBeforeFilter int                  `json:"totalBeforeFilter"`
}

// UserSearchService finds people by name, email or phone.
type UserSearchService struct {
	store   docstore.Store
	privacy *PrivacyFilter
	metrics *metrics.Metrics
}

func NewUserSearchService(store docstore.Store, privacy *PrivacyFilter, m *metrics.Metrics) *UserSearchService {
	return &UserSearchService{store: store, privacy: privacy, metrics: m}
}

// Search candidates are fetched at twice the limit, filtered for privacy,
// ranked and truncated.
func (s *UserSearchService) Search(ctx context.Context, req UserSearchRequest) (*UserSearchResult, error) {
	if req.IsWarmup || req.QueryType == domain.QueryTypePing {
		return &UserSearchResult{Results: []domain.UserProfile{}, IsWarmup: true, Message: warmupMessage}, nil
	}
	if req.RequesterID == "" {
		return nil, domain.ErrUnauthenticated
	}
	if !req.QueryType.IsValid() {
		return nil, domain.ErrInvalidQueryType
	}

	q := strings.TrimSpace(req.Query)
	if q == "" {
		return &UserSearchResult{Results: []domain.UserProfile{}}, nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultUserSearchLimit
	}

	start := time.Now()
	defer func() { s.metrics.ObserveSearch("users", time.Since(start)) }()

	short := req.IsShortQuery || scoring.IsShortQuery(q)
	var (
		candidates []domain.UserProfile
		err        error
	)
	if short {
		candidates, err = s.ultraFast(ctx, q, limit*2)
	} else {
		switch req.QueryType {
		case domain.QueryTypeEmail:
			candidates, err = s.byEmail(ctx, q, limit*2)
		case domain.QueryTypePhone:
			candidates, err = s.byPhone(ctx, q, limit*2)
		case domain.QueryTypeMixed:
			candidates, err = s.mixed(ctx, q, limit*2)
		case domain.QueryTypePartial:
			candidates, err = s.partial(ctx, q, limit*2)
		default:
			candidates, err = s.byName(ctx, q, limit*2)
		}
	}
	if err != nil {
		return nil, domain.Internal("user search failed", err)
	}

	if req.ApplyPrivacyFilter && len(candidates) > 0 {
		candidates = s.privacy.Filter(ctx, candidates, req.QueryType, req.RequesterID)
	}

	score := scoring.PersonScore
	if short {
		score = scoring.ShortQueryScore
	}
	ranked := scoring.Rank(candidates, func(u domain.UserProfile) float64 { return score(u, q) }, 0)

	results := make([]domain.UserProfile, 0, min(limit, len(ranked)))
	for _, r := range scoring.Truncate(ranked, limit) {
		u := r.Item
		u.MatchScore = r.Score
		results = append(results, u)
	}

	performance := "standard"
	if short {
		performance = "ultra-fast"
	}
	return &UserSearchResult{
		Results:           results,
		IsInstant:         short,
		Performance:       performance,
		TotalBeforeFilter: len(ranked),
	}, nil
}

func uid(u domain.UserProfile) string { return u.UID }

func (s *UserSearchService) run(ctx context.Context, q docstore.Query) ([]domain.UserProfile, error) {
	q.Collection = CollectionUsers
	docs, err := query(ctx, s.store, q)
	if err != nil {
		return nil, err
	}
	users := make([]domain.UserProfile, 0, len(docs))
	for _, doc := range docs {
		var u domain.UserProfile
		if err := doc.Decode(&u); err != nil {
			return nil, err
		}
		u.UID = doc.ID
		u.MatchScore = 0
		users = append(users, u)
	}
	return users, nil
}

func prefixQuery(field, prefix string, limit int) docstore.Query {
	return docstore.Query{Limit: limit}.Where(docstore.PrefixRange(field, prefix)...)
}

// fanOut runs every query concurrently and returns the result sets in
// query order.
func (s *UserSearchService) fanOut(ctx context.Context, queries []docstore.Query) ([][]domain.UserProfile, error) {
	sets := make([][]domain.UserProfile, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		g.Go(func() error {
			users, err := s.run(gctx, q)
			sets[i] = users
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

func (s *UserSearchService) byName(ctx context.Context, q string, limit int) ([]domain.UserProfile, error) {
	fields := []string{"firstName", "lastName", "displayName"}
	per := ceilDiv(limit, len(fields))
	queries := make([]docstore.Query, 0, len(fields))
	for _, field := range fields {
		queries = append(queries, prefixQuery(field, q, per))
	}
	sets, err := s.fanOut(ctx, queries)
	if err != nil {
		return nil, err
	}
	return scoring.Truncate(scoring.Merge(uid, 0, sets...), limit), nil
}

func (s *UserSearchService) byEmail(ctx context.Context, q string, limit int) ([]domain.UserProfile, error) {
	queries := []docstore.Query{prefixQuery("email", q, limit)}
	if !strings.Contains(q, "@") {
		for _, d := range emailCompletions {
			queries = append(queries, prefixQuery("email", q+d, ceilDiv(limit, 4)))
		}
	}
	sets, err := s.fanOut(ctx, queries)
	if err != nil {
		return nil, err
	}
	return scoring.Truncate(scoring.Merge(uid, 0, sets...), limit), nil
}

func (s *UserSearchService) byPhone(ctx context.Context, q string, limit int) ([]domain.UserProfile, error) {
	var queries []docstore.Query
	for _, v := range scoring.Truncate(PhoneSearchVariations(q), maxPhoneVariations) {
		queries = append(queries, docstore.Query{Limit: limit}.Where(docstore.Eq("phoneNumber", v)))
		if len(v) >= 3 {
			queries = append(queries, prefixQuery("phoneNumber", v, ceilDiv(limit, 2)))
		}
	}
	sets, err := s.fanOut(ctx, queries)
	if err != nil {
		return nil, err
	}
	return scoring.Truncate(scoring.Merge(uid, 0, sets...), limit), nil
}

// mixed guesses the query intent, runs the matching searches concurrently
// and orders the union by MixedScore.
func (s *UserSearchService) mixed(ctx context.Context, q string, limit int) ([]domain.UserProfile, error) {
	numeric := hasDigit.MatchString(q)
	isEmail := strings.Contains(q, "@") || likelyEmail.MatchString(q)
	isPhone := numeric && (strings.Contains(q, "+") || len(q) >= 3)
	sub := ceilFrac(limit, 0.4)

	searches := []func(context.Context, string, int) ([]domain.UserProfile, error){s.byName}
	if isEmail {
		searches = append(searches, s.byEmail)
	}
	if isPhone {
		searches = append(searches, s.byPhone)
	}
	if !isEmail && !isPhone {
		searches = append(searches, s.partial)
	}

	sets := make([][]domain.UserProfile, len(searches))
	g, gctx := errgroup.WithContext(ctx)
	for i, search := range searches {
		g.Go(func() error {
			users, err := search(gctx, q, sub)
			sets[i] = users
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := scoring.Merge(uid, 0, sets...)
	sort.SliceStable(merged, func(i, j int) bool {
		return scoring.MixedScore(merged[i], q) > scoring.MixedScore(merged[j], q)
	})
	return scoring.Truncate(merged, limit), nil
}

func (s *UserSearchService) partial(ctx context.Context, q string, limit int) ([]domain.UserProfile, error) {
	fields := []string{"firstName", "lastName", "displayName", "email"}
	per := ceilDiv(limit, len(fields)) + 5
	queries := make([]docstore.Query, 0, len(fields))
	for _, field := range fields {
		queries = append(queries, prefixQuery(field, q, per))
	}
	sets, err := s.fanOut(ctx, queries)
	if err != nil {
		return nil, err
	}
	ranked := scoring.Rank(scoring.Merge(uid, 0, sets...), func(u domain.UserProfile) float64 {
		return scoring.PersonScore(u, q)
	}, limit)
	out := make([]domain.UserProfile, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out, nil
}

// ultraFast serves 1-2 character queries with small per-field limits.
// Records without any name are skipped and at most 2*limit are scored.
func (s *UserSearchService) ultraFast(ctx context.Context, q string, limit int) ([]domain.UserProfile, error) {
	queries := []docstore.Query{
		prefixQuery("firstName", q, min(ceilFrac(limit, 0.5), 20)),
		prefixQuery("lastName", q, min(ceilFrac(limit, 0.4), 15)),
		prefixQuery("displayName", q, min(ceilFrac(limit, 0.3), 10)),
	}
	if emailStart.MatchString(q) {
		queries = append(queries, prefixQuery("email", q, min(ceilFrac(limit, 0.2), 8)))
	}
	sets, err := s.fanOut(ctx, queries)
	if err != nil {
		return nil, err
	}
	for i, set := range sets {
		named := set[:0]
		for _, u := range set {
			if u.HasName() {
				named = append(named, u)
			}
		}
		sets[i] = named
	}

	ranked := scoring.Rank(scoring.Merge(uid, limit*2, sets...), func(u domain.UserProfile) float64 {
		return scoring.ShortQueryScore(u, q)
	}, limit)
	out := make([]domain.UserProfile, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out, nil
}

// PhoneSearchVariations expands a partial phone number into the formats it
// may be stored in, most literal first.
func PhoneSearchVariations(phone string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(v string) {
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(phone)
	cleaned := phoneNoise.ReplaceAllString(phone, "")
	add(cleaned)

	if !strings.HasPrefix(cleaned, "+") && !strings.HasPrefix(cleaned, "1") && len(cleaned) >= 3 {
		add("+1" + cleaned)
		add("1" + cleaned)
	}
	if strings.HasPrefix(cleaned, "+1") && len(cleaned) > 3 {
		add(cleaned[2:])
	}
	if strings.HasPrefix(cleaned, "1") && len(cleaned) > 3 && !strings.HasPrefix(cleaned, "11") {
		add(cleaned[1:])
	}
	if len(cleaned) >= 6 {
		area, rest := cleaned[:3], cleaned[3:]
		add("(" + area + ")" + rest)
		add("(" + area + ") " + rest)
		add(groupTenDigits(cleaned))
	}
	return out
}

// groupTenDigits formats the first run of ten digits as 3-3-4.
func groupTenDigits(s string) string {
	loc := tenDigitGrouping.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + s[loc[2]:loc[3]] + "-" + s[loc[4]:loc[5]] + "-" + s[loc[6]:loc[7]] + s[loc[1]:]
}
