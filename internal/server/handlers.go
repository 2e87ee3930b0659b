package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/metal-toolbox/bootline/internal/dispatcher"
	"github.com/metal-toolbox/bootline/internal/model"
	"github.com/metal-toolbox/bootline/internal/provision"
	"github.com/metal-toolbox/bootline/internal/release"
	"github.com/metal-toolbox/bootline/internal/store"
	"github.com/pkg/errors"
)

const (
	contentTypeText = "text/plain; charset=utf-8"

	// HeaderProvisionOutcome names the policy outcome of a provisioning request
	// that did not render a script.
	HeaderProvisionOutcome = "X-Provision-Outcome"

	OutcomeAlreadyProvisioned = "already-provisioned"
	OutcomeNotEligible        = "not-eligible"
)

func (s *Server) registerRoutes(rg *gin.RouterGroup) {
	rg.GET("/pxe", s.bootScript)
	rg.GET("/pxe/configs/:config_file", s.bootScript)
	rg.GET("/hardware", s.hardwareScript)

	rg.GET("/versions", s.versions)
	rg.GET("/versions/json", s.versions)
	rg.GET("/versions/ipxe", s.versionBootVars)
	rg.GET("/versions/ipxe/:project", s.versionBootVars)

	rg.GET("/update", s.setBootStatus)
	rg.GET("/update/status", s.setBootStatus)
	rg.GET("/update/os", s.setBootOS)
	rg.GET("/update/opstatus", s.setOperationalStatus)

	rg.GET("/provision/os/start", s.provisionScript)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusCode maps dispatcher errors to HTTP status codes.
func statusCode(err error) int {
	switch {
	case errors.Is(err, dispatcher.ErrMissingParameter):
		return http.StatusPreconditionFailed
	case errors.Is(err, dispatcher.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, dispatcher.ErrNotFound), errors.Is(err, release.ErrUnknownProject):
		return http.StatusNotFound
	case provision.IsNoop(err):
		return http.StatusNoContent
	case errors.Is(err, store.ErrDuplicateServer), errors.Is(err, store.ErrDuplicateZone):
		return http.StatusConflict
	case errors.Is(err, release.ErrNoManifest):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// abort writes the error response, internal error details are not returned to the client.
func (s *Server) abort(c *gin.Context, err error) {
	_ = c.Error(err)

	code := statusCode(err)

	switch {
	case code == http.StatusNoContent:
		outcome := OutcomeNotEligible
		if errors.Is(err, provision.ErrAlreadyProvisioned) {
			outcome = OutcomeAlreadyProvisioned
		}

		c.Header(HeaderProvisionOutcome, outcome)
		c.AbortWithStatus(code)
	case code == http.StatusInternalServerError:
		c.AbortWithStatusJSON(code, gin.H{"message": http.StatusText(code)})
	default:
		c.AbortWithStatusJSON(code, gin.H{"message": err.Error()})
	}
}

func (s *Server) text(c *gin.Context, body string) {
	c.Data(http.StatusOK, contentTypeText, []byte(body))
}

func (s *Server) bootScript(c *gin.Context) {
	script, err := s.dispatcher.BootScript(c.Request.Context(), c.Request.URL.Query(), c.Param("config_file"))
	if err != nil {
		s.abort(c, err)
		return
	}

	s.text(c, script)
}

func (s *Server) hardwareScript(c *gin.Context) {
	script, err := s.dispatcher.HardwareScript(c.Request.Context(), c.Request.URL.Query())
	if err != nil {
		s.abort(c, err)
		return
	}

	s.text(c, script)
}

func (s *Server) versions(c *gin.Context) {
	manifest, err := s.dispatcher.Versions(c.Request.Context())
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, manifest)
}

func (s *Server) versionBootVars(c *gin.Context) {
	vars, err := s.dispatcher.VersionBootVars(c.Request.Context(), c.Param("project"))
	if err != nil {
		s.abort(c, err)
		return
	}

	s.text(c, vars)
}

func (s *Server) mutation(c *gin.Context, result model.MutationResult, err error) {
	if err != nil {
		s.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) setBootStatus(c *gin.Context) {
	result, err := s.dispatcher.SetBootStatus(c.Request.Context(), c.Query("server_number"), c.Query("boot_status"))
	s.mutation(c, result, err)
}

func (s *Server) setBootOS(c *gin.Context) {
	result, err := s.dispatcher.SetBootOS(c.Request.Context(), c.Query("server_number"), c.Query("boot_os"))
	s.mutation(c, result, err)
}

func (s *Server) setOperationalStatus(c *gin.Context) {
	result, err := s.dispatcher.SetOperationalStatus(c.Request.Context(), c.Query("server_number"), c.Query("opstatus"))
	s.mutation(c, result, err)
}

func (s *Server) provisionScript(c *gin.Context) {
	script, err := s.dispatcher.ProvisionScript(c.Request.Context(), c.Query("mac"))
	if err != nil {
		s.abort(c, err)
		return
	}

	s.text(c, script)
}
