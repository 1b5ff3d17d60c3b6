package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/access"
	"github.com/darasahq/darasa/core/course"
	"github.com/darasahq/darasa/core/user"
)

type (
	videoDeps struct {
		userSvc   user.Service
		courseSvc course.Service
		issuer    *access.TokenIssuer
		guard     *access.Guard
		limiter   access.RateLimiter
	}

	videoApi struct {
		videoDeps
	}

	// VideoURLResponse carries a freshly minted capability URL for one lesson.
	VideoURLResponse struct {
		URL       string `json:"url"`
		ExpiresIn int64  `json:"expires_in"` // seconds
	}
)

func registerVideoAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps videoDeps) {
	api := videoApi{videoDeps: deps}

	lg := g.Group("/lessons")
	lg.GET("/:id/video-url", api.videoURL, jwt)
	lg.GET("/:id/video", api.serveVideo, videoSecurityHeadersMiddleware())
}

// videoURL mints a capability token for the requested lesson and returns the
// signed resource URL. Requires an authenticated session; the caller must be
// enrolled in the lesson's course or be an admin.
func (api *videoApi) videoURL(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	les, err := api.courseSvc.GetLesson(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrLessonNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding lesson by ID")
	}

	if !usr.IsAdmin() {
		enrolled, err := api.courseSvc.IsEnrolled(usr.ID, les.CourseID)
		if err != nil {
			return errors.Wrap(err, "checking enrollment")
		}
		if !enrolled {
			return errHttpForbidden
		}
	}

	token, err := api.issuer.Issue(usr, les.ID)
	if err != nil {
		return errors.Wrap(err, "issuing video token")
	}

	return ctx.JSON(http.StatusOK, VideoURLResponse{
		URL:       "/v1/lessons/" + les.ID + "/video?token=" + token,
		ExpiresIn: int64(core.Conf.Server.VideoTokenExpirationDelta.Seconds()),
	})
}

// serveVideo is the guarded video resource path. The token in the query
// string is the sole credential; all failures come back as the generic
// access-denied taxonomy. Security headers are attached unconditionally
// by the route middleware.
func (api *videoApi) serveVideo(ctx echo.Context) error {
	usr, les, err := api.guard.ValidateAccess(ctx.QueryParam("token"), ctx.Param("id"))
	if err != nil {
		return err // mapped by the HTTP error handler
	}

	if !api.limiter.Allow(usr.ID, les.ID) {
		return errTooManyRequests
	}

	return ctx.Redirect(http.StatusFound, "/media/"+les.VideoKey)
}
