package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/usecases"
)

// ---- Accounts ----

type registerRequest struct {
	Name     string `json:"name" validate:"max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type accessRequest struct {
	AccessLevel *int `json:"access_level" validate:"required"`
}

// RegisterHandler creates a normal-access account.
func RegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req registerRequest
		if err := bindBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		u, err := deps.Users.Register(c.UserContext(), req.Name, req.Email, req.Password)
		if err != nil {
			return mapError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	}
}

// LoginHandler exchanges credentials for a bearer token.
func LoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := bindBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		session, err := deps.Users.Login(c.UserContext(), req.Email, req.Password)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(fiber.Map{
			"token":      session.Token,
			"expires_at": session.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// MeHandler returns the authenticated user.
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(currentUser(c))
	}
}

// SetAccessHandler lets an admin change another user's access level.
func SetAccessHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req accessRequest
		if err := bindBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		u, err := deps.Users.SetAccessLevel(c.UserContext(), currentUser(c), c.Params("id"), *req.AccessLevel)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(u)
	}
}

// ---- Queries ----

type createQueryRequest struct {
	Origin         string   `json:"origin" validate:"required,max=500"`
	Destination    string   `json:"destination" validate:"required,max=500"`
	ThresholdMiles *float64 `json:"threshold_miles,omitempty"`
	Categories     []string `json:"categories,omitempty" validate:"max=10,dive,required,max=64"`
	Keywords       []string `json:"keywords,omitempty" validate:"max=20,dive,max=64"`
}

// StopoversResponse is the body of the results endpoints.
type StopoversResponse struct {
	QueryID   string                `json:"query_id"`
	Status    domain.QueryStatus    `json:"status"`
	Stopovers []domain.StopoverView `json:"stopovers"`
}

// ListQueriesHandler returns the caller's queries, newest first.
func ListQueriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		queries, err := deps.Queries.ListByUser(c.UserContext(), currentUser(c).ID)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(paginate(c, queries))
	}
}

// CreateQueryHandler stores a trip request and, when planning runs in the
// background, leaves it to the planner worker.
func CreateQueryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createQueryRequest
		if err := bindBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		q, err := deps.Queries.Create(c.UserContext(), currentUser(c).ID, usecases.CreateQueryInput{
			Origin:         req.Origin,
			Destination:    req.Destination,
			ThresholdMiles: req.ThresholdMiles,
			Categories:     req.Categories,
			Keywords:       req.Keywords,
		})
		if err != nil {
			return mapError(c, err)
		}
		c.Location("/v1/queries/" + q.ID)
		return c.Status(fiber.StatusCreated).JSON(q)
	}
}

// GetQueryHandler returns one of the caller's queries.
func GetQueryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := deps.Queries.GetOwned(c.UserContext(), currentUser(c).ID, c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(q)
	}
}

// PlanQueryHandler samples stopovers for a pending or failed query. With a
// background planner configured it only starts the run and answers 202.
func PlanQueryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		q, err := deps.Queries.GetOwned(ctx, currentUser(c).ID, c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}

		switch q.Status {
		case domain.QueryPlanning:
			return errConflict(c, "query is already being planned")
		case domain.QueryComplete:
			return errConflict(c, "query has already been planned")
		}

		if deps.Planner != nil {
			if err := deps.Planner.StartPlan(ctx, q.ID); err != nil {
				return mapError(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"query_id": q.ID,
				"status":   domain.QueryPlanning,
			})
		}

		views, err := deps.Queries.Plan(ctx, q.ID)
		if err != nil {
			if errors.Is(err, ctx.Err()) {
				return newError(c, fiber.StatusGatewayTimeout, "timeout", "planning did not finish in time")
			}
			return mapError(c, err)
		}
		return c.JSON(StopoversResponse{QueryID: q.ID, Status: domain.QueryComplete, Stopovers: views})
	}
}

// QueryResultsHandler returns the organic stopovers found so far.
func QueryResultsHandler(deps *Dependencies) fiber.Handler {
	return stopoversHandler(deps, deps.Queries.Results)
}

// QuerySponsoredHandler returns the sponsor stopovers found so far.
func QuerySponsoredHandler(deps *Dependencies) fiber.Handler {
	return stopoversHandler(deps, deps.Queries.Sponsored)
}

type stopoverLister func(ctx context.Context, queryID string) ([]domain.StopoverView, error)

func stopoversHandler(deps *Dependencies, list stopoverLister) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		q, err := deps.Queries.GetOwned(ctx, currentUser(c).ID, c.Params("id"))
		if err != nil {
			return mapError(c, err)
		}
		views, err := list(ctx, q.ID)
		if err != nil {
			return mapError(c, err)
		}
		if views == nil {
			views = []domain.StopoverView{}
		}
		return c.JSON(StopoversResponse{QueryID: q.ID, Status: q.Status, Stopovers: views})
	}
}

// ---- Tags ----

type createTagRequest struct {
	Keyword string `json:"keyword" validate:"required,max=64"`
}

// ListTagsHandler returns the caller's keyword tags.
func ListTagsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tags, err := deps.Tags.List(c.UserContext(), currentUser(c).ID)
		if err != nil {
			return mapError(c, err)
		}
		if tags == nil {
			tags = []domain.Tag{}
		}
		return c.JSON(tags)
	}
}

// CreateTagHandler adds a keyword tag.
func CreateTagHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createTagRequest
		if err := bindBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		tag, err := deps.Tags.Create(c.UserContext(), currentUser(c).ID, req.Keyword)
		if err != nil {
			return mapError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(tag)
	}
}

// DeleteTagHandler removes one of the caller's tags.
func DeleteTagHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Tags.Delete(c.UserContext(), currentUser(c).ID, c.Params("id")); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ---- Sponsors ----

type createSponsorRequest struct {
	Keyword string   `json:"keyword" validate:"required,max=120"`
	Lat     *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// CreateSponsorHandler registers a sponsor location. Sponsor access required.
func CreateSponsorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createSponsorRequest
		if err := bindBody(c, &req); err != nil {
			return errBadRequest(c, err.Error())
		}
		s, err := deps.Sponsors.Create(c.UserContext(), currentUser(c), req.Keyword,
			domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng})
		if err != nil {
			return mapError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(s)
	}
}

// ListMySponsorsHandler returns the caller's sponsor locations.
func ListMySponsorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sponsors, err := deps.Sponsors.ListByOwner(c.UserContext(), currentUser(c).ID)
		if err != nil {
			return mapError(c, err)
		}
		return c.JSON(paginate(c, sponsors))
	}
}

// NearbySponsorsHandler returns sponsor locations within radius miles of a point.
func NearbySponsorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lng") == "" {
			return errBadRequest(c, "lat and lng are required")
		}
		lat := c.QueryFloat("lat", 0)
		lng := c.QueryFloat("lng", 0)
		radius := c.QueryFloat("radius", 25)
		if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			return errBadRequest(c, "lat or lng out of range")
		}
		if radius <= 0 || radius > 500 {
			return errBadRequest(c, "radius must be between 0 and 500 miles")
		}

		sponsors, err := deps.Sponsors.Near(c.UserContext(), domain.Coordinate{Lat: lat, Lng: lng}, radius)
		if err != nil {
			return mapError(c, err)
		}
		if sponsors == nil {
			sponsors = []domain.SponsorLocation{}
		}
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(sponsors)
	}
}

// DeleteSponsorHandler removes one of the caller's sponsor locations.
func DeleteSponsorHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sponsors.Delete(c.UserContext(), currentUser(c).ID, c.Params("id")); err != nil {
			return mapError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
