package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/core/usecases"
)

// Legacy clients post JSON with the token in the body and read a numeric
// status from a 200 envelope.
const (
	legacyOK       = 0
	legacyNoAuth   = 1
	legacyConflict = 2
	legacyMissing  = 3
	legacyInvalid  = 4
)

// LegacySunset is when the body-token endpoints go away.
var LegacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// LegacyRoutes lists the body-token endpoints and their /v1 successors.
func LegacyRoutes() []DeprecatedRoute {
	return []DeprecatedRoute{
		{Path: "/login", SunsetDate: LegacySunset, Alternative: "/v1/auth/login"},
		{Path: "/register", SunsetDate: LegacySunset, Alternative: "/v1/auth/register"},
		{Path: "/map/query/new", SunsetDate: LegacySunset, Alternative: "/v1/queries"},
		{Path: "/tag/new", SunsetDate: LegacySunset, Alternative: "/v1/tags"},
		{Path: "/tag/del", SunsetDate: LegacySunset, Alternative: "/v1/tags/:id"},
	}
}

type legacyEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	User    any    `json:"user,omitempty"`
}

func legacyReply(c *fiber.Ctx, status int, msg string) error {
	return c.JSON(legacyEnvelope{Status: status, Message: msg})
}

// legacyFailure maps a service error onto the legacy status codes.
func legacyFailure(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return legacyReply(c, legacyNoAuth, "User not logged in / Session expired")
	case errors.Is(err, domain.ErrForbidden):
		return legacyReply(c, legacyConflict, "Insufficient Rights")
	case errors.Is(err, domain.ErrDuplicateUser):
		return legacyReply(c, legacyConflict, "User Already Exists")
	case errors.Is(err, domain.ErrDuplicateQuery):
		return legacyReply(c, legacyConflict, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrNotOwner):
		return legacyReply(c, legacyMissing, err.Error())
	case errors.Is(err, domain.ErrInvalidTag),
		errors.Is(err, domain.ErrMissingEndpoint),
		errors.Is(err, domain.ErrInvalidThreshold),
		errors.Is(err, domain.ErrMissingCredential):
		return legacyReply(c, legacyInvalid, err.Error())
	}
	return mapError(c, err)
}

// legacyUser authenticates the auth_token carried in a legacy body.
func legacyUser(c *fiber.Ctx, deps *Dependencies, token string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	return deps.Users.Authenticate(c.UserContext(), token)
}

// LegacyLoginHandler answers the old /login shape with the token inside "user".
func LegacyLoginHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		ctx := c.UserContext()
		session, err := deps.Users.Login(ctx, req.Email, req.Password)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return legacyReply(c, legacyNoAuth, "The provided combination of email and password is incorrect.")
			}
			return legacyFailure(c, err)
		}
		u, err := deps.Users.Authenticate(ctx, session.Token)
		if err != nil {
			return legacyFailure(c, err)
		}
		return c.JSON(legacyEnvelope{
			Status:  legacyOK,
			Message: "Log in successful",
			User: fiber.Map{
				"id":           u.ID,
				"auth_token":   session.Token,
				"name":         u.Name,
				"email":        u.Email,
				"access_level": u.AccessLevel,
			},
		})
	}
}

// LegacyRegisterHandler creates an account from the old /register body.
func LegacyRegisterHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if _, err := deps.Users.Register(c.UserContext(), req.Name, req.Email, req.Password); err != nil {
			return legacyFailure(c, err)
		}
		return legacyReply(c, legacyOK, "User account created successfully")
	}
}

// LegacyNewQueryHandler creates a query from entry_o and entry_d.
func LegacyNewQueryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			AuthToken string `json:"auth_token"`
			Origin    string `json:"entry_o"`
			Dest      string `json:"entry_d"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		u, err := legacyUser(c, deps, req.AuthToken)
		if err != nil {
			return legacyFailure(c, err)
		}
		_, err = deps.Queries.Create(c.UserContext(), u.ID, usecases.CreateQueryInput{
			Origin:      req.Origin,
			Destination: req.Dest,
		})
		if err != nil {
			return legacyFailure(c, err)
		}
		return legacyReply(c, legacyOK, "User query created successfully")
	}
}

// LegacyNewTagHandler adds a keyword tag.
func LegacyNewTagHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			AuthToken string `json:"auth_token"`
			Keyword   string `json:"keyword"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		u, err := legacyUser(c, deps, req.AuthToken)
		if err != nil {
			return legacyFailure(c, err)
		}
		if _, err := deps.Tags.Create(c.UserContext(), u.ID, req.Keyword); err != nil {
			return legacyFailure(c, err)
		}
		return legacyReply(c, legacyOK, "User preference tag created successfully")
	}
}

// LegacyDeleteTagHandler removes a keyword tag by keyword_id.
func LegacyDeleteTagHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			AuthToken string `json:"auth_token"`
			KeywordID string `json:"keyword_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		u, err := legacyUser(c, deps, req.AuthToken)
		if err != nil {
			return legacyFailure(c, err)
		}
		if err := deps.Tags.Delete(c.UserContext(), u.ID, req.KeywordID); err != nil {
			return legacyFailure(c, err)
		}
		return legacyReply(c, legacyOK, "User preference tag deleted successfully")
	}
}
