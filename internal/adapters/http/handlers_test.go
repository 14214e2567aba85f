package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/detour/internal/adapters/http"
	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/usecases"
	"github.com/samirrijal/detour/internal/pkg/polyline"
)

// ---- Test helpers ----

type testEnv struct {
	users      *memUsers
	sessions   *memSessions
	queries    *memQueries
	stopovers  *memStopovers
	sponsors   *memSponsors
	tags       *memTags
	directions *fakeDirections
	places     *fakePlaces
	deps       *handler.Dependencies
	app        *fiber.App
}

func newEnv(opts ...func(*testEnv)) *testEnv {
	env := &testEnv{
		users:      &memUsers{},
		sessions:   &memSessions{},
		queries:    &memQueries{},
		stopovers:  &memStopovers{},
		sponsors:   &memSponsors{},
		tags:       &memTags{},
		directions: &fakeDirections{},
		places:     &fakePlaces{},
	}
	sampler := usecases.NewSampler(env.places, usecases.NewRanker(nil), fixedRand(0.99), usecases.DefaultSamplerConfig())
	env.deps = &handler.Dependencies{
		Users: usecases.NewUserService(env.users, env.sessions, time.Hour),
		Queries: usecases.NewQueryService(usecases.QueryServiceDeps{
			Queries:    env.queries,
			Stopovers:  env.stopovers,
			Sponsors:   env.sponsors,
			Tags:       env.tags,
			Directions: env.directions,
			Sampler:    sampler,
		}, usecases.QueryDefaults{ThresholdMiles: 5, Categories: []string{"restaurant"}}),
		Tags:     usecases.NewTagService(env.tags),
		Sponsors: usecases.NewSponsorService(env.sponsors),
		DB:       fakePinger{},
	}
	for _, o := range opts {
		o(env)
	}
	env.app = setupApp(env.deps)
	return env
}

func makeDeps() *handler.Dependencies {
	return newEnv().deps
}

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

// signUp registers and logs in a user, returning the bearer token.
func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	resp := e.do(t, "POST", "/v1/auth/register", "", map[string]string{
		"name": "Test", "email": email, "password": "secret1",
	})
	if resp.StatusCode != 201 {
		t.Fatalf("register %s: status %d: %s", email, resp.StatusCode, readBody(resp))
	}
	resp = e.do(t, "POST", "/v1/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	if resp.StatusCode != 200 {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	decode(t, resp, &out)
	return out.Token
}

// grant sets the access level of a stored user directly.
func (e *testEnv) grant(email string, level int) {
	e.users.mu.Lock()
	defer e.users.mu.Unlock()
	for i := range e.users.users {
		if e.users.users[i].Email == email {
			e.users.users[i].AccessLevel = level
		}
	}
}

func readBody(resp *http.Response) string {
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected %d, got %d: %s", want, resp.StatusCode, readBody(resp))
	}
}

// tenMileRoute is a single step heading north for about ten miles.
func tenMileRoute() *domain.Route {
	return &domain.Route{
		DistanceM: 16093,
		StepPolylines: []string{polyline.Encode([]domain.Coordinate{
			{Lat: 40.0, Lng: -75.0},
			{Lat: 40.1447, Lng: -75.0},
		})},
	}
}

// ---- Health ----

func TestHealthHandler(t *testing.T) {
	env := newEnv()
	resp := env.do(t, "GET", "/v1/health", "", nil)
	expectStatus(t, resp, 200)

	var body map[string]any
	decode(t, resp, &body)
	if body["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", body["status"])
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=10" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestReadyHandler(t *testing.T) {
	env := newEnv(func(e *testEnv) { e.deps.Cache = fakePinger{} })
	expectStatus(t, env.do(t, "GET", "/v1/ready", "", nil), 200)

	env = newEnv(func(e *testEnv) { e.deps.Cache = fakePinger{err: errors.New("connection refused")} })
	resp := env.do(t, "GET", "/v1/ready", "", nil)
	expectStatus(t, resp, 503)
	var body struct {
		Checks map[string]string `json:"checks"`
	}
	decode(t, resp, &body)
	if !strings.HasPrefix(body.Checks["cache"], "error:") {
		t.Errorf("expected cache error, got %q", body.Checks["cache"])
	}

	env = newEnv(func(e *testEnv) { e.deps.DB = nil })
	expectStatus(t, env.do(t, "GET", "/v1/ready", "", nil), 503)
}

// ---- Accounts ----

func TestAuth_RegisterLoginMe(t *testing.T) {
	env := newEnv()
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "GET", "/v1/me", token, nil)
	expectStatus(t, resp, 200)
	var me domain.User
	decode(t, resp, &me)
	if me.Email != "ada@example.com" {
		t.Errorf("unexpected user %+v", me)
	}

	resp = env.do(t, "POST", "/v1/auth/register", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	expectStatus(t, resp, 409)

	resp = env.do(t, "POST", "/v1/auth/login", "", map[string]string{"email": "ada@example.com", "password": "wrong!"})
	expectStatus(t, resp, 401)
}

func TestAuth_RejectsMissingAndBadTokens(t *testing.T) {
	env := newEnv()
	expectStatus(t, env.do(t, "GET", "/v1/me", "", nil), 401)

	resp := env.do(t, "GET", "/v1/queries", "not-a-token", nil)
	expectStatus(t, resp, 401)
}

func TestAuth_RegisterValidation(t *testing.T) {
	env := newEnv()
	resp := env.do(t, "POST", "/v1/auth/register", "", map[string]string{"password": "secret1"})
	expectStatus(t, resp, 400)

	var apiErr handler.APIError
	decode(t, resp, &apiErr)
	if apiErr.Code != "bad_request" || !strings.Contains(apiErr.Message, "email is required") {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if apiErr.RequestID == "" {
		t.Error("expected request id in error body")
	}
}

func TestAdminSetAccess(t *testing.T) {
	env := newEnv()
	admin := env.signUp(t, "root@example.com")
	plain := env.signUp(t, "plain@example.com")
	env.grant("root@example.com", domain.AccessAdmin)

	body := map[string]int{"access_level": domain.AccessSponsor}
	expectStatus(t, env.do(t, "PUT", "/v1/admin/users/u-1/access", plain, body), 403)

	resp := env.do(t, "PUT", "/v1/admin/users/u-2/access", admin, body)
	expectStatus(t, resp, 200)
	var u domain.User
	decode(t, resp, &u)
	if u.AccessLevel != domain.AccessSponsor {
		t.Errorf("expected sponsor access, got %d", u.AccessLevel)
	}

	expectStatus(t, env.do(t, "PUT", "/v1/admin/users/u-2/access", admin, map[string]int{"access_level": 3}), 400)
	expectStatus(t, env.do(t, "PUT", "/v1/admin/users/u-9/access", admin, body), 404)
}

// ---- Queries ----

func TestQueries_CreateListGet(t *testing.T) {
	env := newEnv()
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "POST", "/v1/queries", token, map[string]any{
		"origin": "Philadelphia, PA", "destination": "New York, NY",
	})
	expectStatus(t, resp, 201)
	var q domain.Query
	decode(t, resp, &q)
	if q.ThresholdMiles != 5 || len(q.Categories) != 1 || q.Categories[0] != "restaurant" {
		t.Errorf("expected defaults, got %+v", q)
	}
	if loc := resp.Header.Get("Location"); loc != "/v1/queries/"+q.ID {
		t.Errorf("unexpected Location %q", loc)
	}

	resp = env.do(t, "POST", "/v1/queries", token, map[string]any{
		"origin": "Philadelphia, PA", "destination": "New York, NY",
	})
	expectStatus(t, resp, 409)

	resp = env.do(t, "POST", "/v1/queries", token, map[string]any{
		"origin": "A", "destination": "B", "threshold_miles": -2,
	})
	expectStatus(t, resp, 400)

	resp = env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "A"})
	expectStatus(t, resp, 400)

	resp = env.do(t, "GET", "/v1/queries?limit=10", token, nil)
	expectStatus(t, resp, 200)
	if !strings.Contains(resp.Header.Get("Link"), `rel="first"`) {
		t.Errorf("expected Link header, got %q", resp.Header.Get("Link"))
	}
	var page struct {
		Data       []domain.Query     `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	decode(t, resp, &page)
	if page.Pagination.Total != 1 || len(page.Data) != 1 || page.Pagination.Limit != 10 {
		t.Errorf("unexpected page %+v", page)
	}

	expectStatus(t, env.do(t, "GET", "/v1/queries/"+q.ID, token, nil), 200)
	expectStatus(t, env.do(t, "GET", "/v1/queries/q-99", token, nil), 404)

	other := env.signUp(t, "bo@example.com")
	expectStatus(t, env.do(t, "GET", "/v1/queries/"+q.ID, other, nil), 403)
	expectStatus(t, env.do(t, "GET", "/v1/queries/"+q.ID+"/results", other, nil), 403)
}

func TestQueries_KeywordsDefaultToTags(t *testing.T) {
	env := newEnv()
	token := env.signUp(t, "ada@example.com")
	expectStatus(t, env.do(t, "POST", "/v1/tags", token, map[string]string{"keyword": "vegan"}), 201)
	expectStatus(t, env.do(t, "POST", "/v1/tags", token, map[string]string{"keyword": "cheap"}), 201)

	resp := env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "A", "destination": "B"})
	expectStatus(t, resp, 201)
	var q domain.Query
	decode(t, resp, &q)
	if strings.Join(q.Keywords, " ") != "vegan cheap" {
		t.Errorf("expected tag keywords, got %v", q.Keywords)
	}
}

func TestPlan_InRequest(t *testing.T) {
	env := newEnv(func(e *testEnv) {
		e.directions.route = tenMileRoute()
		rating := 4.5
		e.places.candidates = []domain.Candidate{{
			PlaceID: "p1", Name: "Dinah's Diner", Category: "restaurant",
			Location: domain.Coordinate{Lat: 40.145, Lng: -75.001}, Rating: &rating,
		}}
	})
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "A", "destination": "B", "threshold_miles": 5})
	expectStatus(t, resp, 201)
	var q domain.Query
	decode(t, resp, &q)

	resp = env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil)
	expectStatus(t, resp, 200)
	var planned handler.StopoversResponse
	decode(t, resp, &planned)
	if len(planned.Stopovers) != 1 || planned.Stopovers[0].Name != "Dinah's Diner" {
		t.Fatalf("unexpected stopovers %+v", planned.Stopovers)
	}
	if planned.Status != domain.QueryComplete {
		t.Errorf("expected complete, got %s", planned.Status)
	}

	resp = env.do(t, "GET", "/v1/queries/"+q.ID+"/results", token, nil)
	expectStatus(t, resp, 200)
	var results handler.StopoversResponse
	decode(t, resp, &results)
	if len(results.Stopovers) != 1 || results.Stopovers[0].Lat != 40.145 {
		t.Errorf("unexpected results %+v", results)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-cache" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}

	resp = env.do(t, "GET", "/v1/queries/"+q.ID+"/sponsored", token, nil)
	expectStatus(t, resp, 200)
	var sponsored handler.StopoversResponse
	decode(t, resp, &sponsored)
	if sponsored.Stopovers == nil || len(sponsored.Stopovers) != 0 {
		t.Errorf("expected empty sponsored list, got %+v", sponsored.Stopovers)
	}

	expectStatus(t, env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil), 409)
}

func TestPlan_NoRouteMarksFailed(t *testing.T) {
	env := newEnv(func(e *testEnv) { e.directions.err = domain.ErrNoRoute })
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "Atlantis", "destination": "B"})
	expectStatus(t, resp, 201)
	var q domain.Query
	decode(t, resp, &q)

	expectStatus(t, env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil), 422)

	stored, _ := env.queries.GetByID(t.Context(), q.ID)
	if stored.Status != domain.QueryFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
}

func TestPlan_LosesClaimToAnotherRun(t *testing.T) {
	env := newEnv(func(e *testEnv) {
		e.directions.route = tenMileRoute()
		e.places.candidates = []domain.Candidate{{
			PlaceID: "p1", Name: "Dinah's Diner", Category: "restaurant",
			Location: domain.Coordinate{Lat: 40.145, Lng: -75.001},
		}}
	})
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "A", "destination": "B"})
	var q domain.Query
	decode(t, resp, &q)

	// the worker claims the query after the handler has read it as pending
	env.queries.onBegin = func(id string) {
		env.queries.onBegin = nil
		_ = env.queries.SetStatus(t.Context(), id, domain.QueryPlanning)
	}
	expectStatus(t, env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil), 409)

	if len(env.stopovers.stored) != 0 {
		t.Errorf("expected no stopovers from the losing run, got %d", len(env.stopovers.stored))
	}
	got, _ := env.queries.GetByID(t.Context(), q.ID)
	if got.Status != domain.QueryPlanning {
		t.Errorf("expected status left to the winning run, got %s", got.Status)
	}
}

func TestPlan_CompletedQueryConflicts(t *testing.T) {
	env := newEnv(func(e *testEnv) { e.directions.route = tenMileRoute() })
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "A", "destination": "B"})
	var q domain.Query
	decode(t, resp, &q)

	expectStatus(t, env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil), 200)
	stored := len(env.stopovers.stored)
	expectStatus(t, env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil), 409)
	if len(env.stopovers.stored) != stored {
		t.Errorf("expected %d stopovers after the second plan, got %d", stored, len(env.stopovers.stored))
	}
}

func TestPlan_Background(t *testing.T) {
	starter := &fakeStarter{}
	env := newEnv(func(e *testEnv) { e.deps.Planner = starter })
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "A", "destination": "B"})
	var q domain.Query
	decode(t, resp, &q)

	resp = env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil)
	expectStatus(t, resp, 202)
	if len(starter.started) != 1 || starter.started[0] != q.ID {
		t.Errorf("expected plan started for %s, got %v", q.ID, starter.started)
	}

	_ = env.queries.SetStatus(t.Context(), q.ID, domain.QueryPlanning)
	expectStatus(t, env.do(t, "POST", "/v1/queries/"+q.ID+"/plan", token, nil), 409)
}

// ---- Tags ----

func TestTags_CRUD(t *testing.T) {
	env := newEnv()
	token := env.signUp(t, "ada@example.com")
	other := env.signUp(t, "bo@example.com")

	resp := env.do(t, "POST", "/v1/tags", token, map[string]string{"keyword": "  coffee "})
	expectStatus(t, resp, 201)
	var tag domain.Tag
	decode(t, resp, &tag)
	if tag.Keyword != "coffee" {
		t.Errorf("expected trimmed keyword, got %q", tag.Keyword)
	}

	expectStatus(t, env.do(t, "POST", "/v1/tags", token, map[string]string{"keyword": ""}), 400)

	resp = env.do(t, "GET", "/v1/tags", token, nil)
	expectStatus(t, resp, 200)
	var tags []domain.Tag
	decode(t, resp, &tags)
	if len(tags) != 1 {
		t.Errorf("expected 1 tag, got %d", len(tags))
	}

	expectStatus(t, env.do(t, "DELETE", "/v1/tags/"+tag.ID, other, nil), 403)
	expectStatus(t, env.do(t, "DELETE", "/v1/tags/"+tag.ID, token, nil), 204)
	expectStatus(t, env.do(t, "DELETE", "/v1/tags/"+tag.ID, token, nil), 404)
}

// ---- Sponsors ----

func TestSponsors_Lifecycle(t *testing.T) {
	env := newEnv()
	owner := env.signUp(t, "shop@example.com")
	other := env.signUp(t, "bo@example.com")

	body := map[string]any{"keyword": "Joe's Coffee", "lat": 40.0, "lng": -75.0}
	expectStatus(t, env.do(t, "POST", "/v1/sponsors", owner, body), 403)

	env.grant("shop@example.com", domain.AccessSponsor)
	resp := env.do(t, "POST", "/v1/sponsors", owner, body)
	expectStatus(t, resp, 201)
	var sp domain.SponsorLocation
	decode(t, resp, &sp)

	expectStatus(t, env.do(t, "POST", "/v1/sponsors", owner, map[string]any{"keyword": "x", "lat": 95.0, "lng": 0.0}), 400)

	resp = env.do(t, "GET", "/v1/sponsors", owner, nil)
	expectStatus(t, resp, 200)
	var page struct {
		Pagination handler.Pagination `json:"pagination"`
	}
	decode(t, resp, &page)
	if page.Pagination.Total != 1 {
		t.Errorf("expected 1 sponsor, got %d", page.Pagination.Total)
	}

	resp = env.do(t, "GET", "/v1/sponsors/near?lat=40.01&lng=-75.01&radius=5", "", nil)
	expectStatus(t, resp, 200)
	var near []domain.SponsorLocation
	decode(t, resp, &near)
	if len(near) != 1 || near[0].ID != sp.ID {
		t.Errorf("unexpected nearby sponsors %+v", near)
	}

	expectStatus(t, env.do(t, "GET", "/v1/sponsors/near?lat=40.01", "", nil), 400)
	expectStatus(t, env.do(t, "GET", "/v1/sponsors/near?lat=40&lng=-75&radius=0", "", nil), 400)

	expectStatus(t, env.do(t, "DELETE", "/v1/sponsors/"+sp.ID, other, nil), 403)
	expectStatus(t, env.do(t, "DELETE", "/v1/sponsors/"+sp.ID, owner, nil), 204)
}

// ---- GraphQL ----

func TestGraphQL_Queries(t *testing.T) {
	env := newEnv()
	token := env.signUp(t, "ada@example.com")
	expectStatus(t, env.do(t, "POST", "/v1/queries", token, map[string]any{"origin": "A", "destination": "B"}), 201)
	_ = env.stopovers.Append(t.Context(), &domain.Stopover{QueryID: "q-1", Label: "Diner", Origin: domain.OriginOrganic})
	_ = env.stopovers.Append(t.Context(), &domain.Stopover{QueryID: "q-1", Label: "Joe's", Origin: domain.OriginSponsor})

	resp := env.do(t, "POST", "/graphql", token, map[string]string{
		"query": `{ me { email } queries { id origin status stopovers(origin: "sponsor") { label } } }`,
	})
	expectStatus(t, resp, 200)

	var out struct {
		Data struct {
			Me      struct{ Email string }
			Queries []struct {
				ID        string
				Origin    string
				Status    string
				Stopovers []struct{ Label string }
			}
		}
		Errors []any
	}
	decode(t, resp, &out)
	if len(out.Errors) > 0 {
		t.Fatalf("graphql errors: %v", out.Errors)
	}
	if out.Data.Me.Email != "ada@example.com" {
		t.Errorf("unexpected me %+v", out.Data.Me)
	}
	if len(out.Data.Queries) != 1 || out.Data.Queries[0].Status != "pending" {
		t.Fatalf("unexpected queries %+v", out.Data.Queries)
	}
	if st := out.Data.Queries[0].Stopovers; len(st) != 1 || st[0].Label != "Joe's" {
		t.Errorf("expected only the sponsor stopover, got %+v", st)
	}

	expectStatus(t, env.do(t, "POST", "/graphql", "", map[string]string{"query": "{ me { email } }"}), 401)
}

// ---- Legacy ----

func TestLegacy_TagEndpoints(t *testing.T) {
	env := newEnv()
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "POST", "/tag/new", "", map[string]string{"auth_token": token, "keyword": "pizza"})
	expectStatus(t, resp, 200)
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header")
	}
	if !strings.Contains(resp.Header.Get("Link"), "/v1/tags") {
		t.Errorf("expected successor link, got %q", resp.Header.Get("Link"))
	}
	var env0 struct {
		Status int `json:"status"`
	}
	decode(t, resp, &env0)
	if env0.Status != 0 {
		t.Errorf("expected status 0, got %d", env0.Status)
	}

	resp = env.do(t, "POST", "/tag/new", "", map[string]string{"auth_token": "stale", "keyword": "pizza"})
	var env1 struct {
		Status int `json:"status"`
	}
	decode(t, resp, &env1)
	if env1.Status != 1 {
		t.Errorf("expected status 1 for a stale token, got %d", env1.Status)
	}

	resp = env.do(t, "POST", "/tag/del", "", map[string]string{"auth_token": token, "keyword_id": "t-42"})
	var env3 struct {
		Status int `json:"status"`
	}
	decode(t, resp, &env3)
	if env3.Status != 3 {
		t.Errorf("expected status 3 for a missing tag, got %d", env3.Status)
	}
}

func TestLegacy_LoginAndNewQuery(t *testing.T) {
	env := newEnv()
	resp := env.do(t, "POST", "/register", "", map[string]string{"name": "Ada", "email": "ada@example.com", "password": "secret1"})
	expectStatus(t, resp, 200)

	resp = env.do(t, "POST", "/login", "", map[string]string{"email": "ada@example.com", "password": "secret1"})
	var login struct {
		Status int `json:"status"`
		User   struct {
			AuthToken string `json:"auth_token"`
		} `json:"user"`
	}
	decode(t, resp, &login)
	if login.Status != 0 || login.User.AuthToken == "" {
		t.Fatalf("unexpected login reply %+v", login)
	}

	resp = env.do(t, "POST", "/map/query/new", "", map[string]string{
		"auth_token": login.User.AuthToken, "entry_o": "Boston", "entry_d": "Maine",
	})
	expectStatus(t, resp, 200)
	if qs, _ := env.queries.ListByUser(t.Context(), "u-1"); len(qs) != 1 || qs[0].Origin != "Boston" {
		t.Errorf("expected stored query, got %+v", qs)
	}
}

// ---- Middleware ----

func TestETag_NotModified(t *testing.T) {
	env := newEnv()
	token := env.signUp(t, "ada@example.com")

	resp := env.do(t, "GET", "/v1/me", token, nil)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected ETag")
	}

	req := httptest.NewRequest("GET", "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-None-Match", etag)
	resp, err := env.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	expectStatus(t, resp, 304)
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	env := newEnv()
	expectStatus(t, env.do(t, "GET", "/ws/queries/q-1", "", nil), 426)
}

func TestDocs_ServesOpenAPI(t *testing.T) {
	env := newEnv()
	resp := env.do(t, "GET", "/docs/openapi.yaml", "", nil)
	expectStatus(t, resp, 200)
	if !strings.Contains(readBody(resp), "title: Detour API") {
		t.Error("expected embedded OpenAPI document")
	}
}
