package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"socialgraph/backend/internal/graph"
	apperrors "socialgraph/backend/pkg/errors"
	"go.uber.org/zap"
)

// createNodeRequest is the body of POST /nodes. Pointers tell an omitted
// field apart from a zero value so upserts only touch what was sent.
type createNodeRequest struct {
	ID         *int64  `json:"id" binding:"required"`
	Label      string  `json:"label" binding:"required,graphlabel"`
	Name       *string `json:"name"`
	ScreenName *string `json:"screen_name"`
	Sex        *int64  `json:"sex"`
	City       *string `json:"city"`
	Follows    []int64 `json:"follows"`
	Subscribed []int64 `json:"subscribed"`
}

func (r createNodeRequest) toInput() graph.NodeInput {
	label := graph.Label(r.Label)
	props := map[string]any{}

	if r.Name != nil {
		props["name"] = *r.Name
	}
	if r.ScreenName != nil {
		props["screen_name"] = *r.ScreenName
	}
	if label == graph.LabelUser {
		if r.Sex != nil {
			props["sex"] = *r.Sex
		}
		if r.City != nil {
			props["city"] = *r.City
		}
	}

	return graph.NodeInput{
		Label:      label,
		ID:         *r.ID,
		Props:      props,
		Follows:    r.Follows,
		Subscribed: r.Subscribed,
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ready(c *gin.Context) {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("Readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (s *Server) getUser(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	user, err := s.store.GetUser(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) topUsers(c *gin.Context) {
	users, err := s.store.TopUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) topGroups(c *gin.Context) {
	groups, err := s.store.TopGroups(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (s *Server) usersCount(c *gin.Context) {
	n, err := s.store.CountUsers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users_count": n})
}

func (s *Server) groupsCount(c *gin.Context) {
	n, err := s.store.CountGroups(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups_count": n})
}

func (s *Server) mutualFollowers(c *gin.Context) {
	pairs, err := s.store.MutualFollowers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pairs)
}

func (s *Server) listQueries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"queries": graph.QueryNames()})
}

func (s *Server) namedQuery(c *gin.Context) {
	rows, err := s.store.RunNamedFlat(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (s *Server) listNodes(c *gin.Context) {
	nodes, err := s.store.ListNodes(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nodes)
}

func (s *Server) getNode(c *gin.Context) {
	label, ok := s.pathLabel(c)
	if !ok {
		return
	}
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	detail, err := s.store.GetNode(c.Request.Context(), label, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) createNode(c *gin.Context) {
	var req createNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": validationMessage(err)})
		return
	}

	if _, err := s.store.UpsertNode(c.Request.Context(), req.toInput()); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) deleteNode(c *gin.Context) {
	label, ok := s.pathLabel(c)
	if !ok {
		return
	}
	id, ok := s.pathID(c)
	if !ok {
		return
	}

	if err := s.store.DeleteNode(c.Request.Context(), label, id); err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// pathID parses the :id segment, answering 400 when it is not an integer
func (s *Server) pathID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.respondError(c, apperrors.NewInvalidInput("id", strconv.Quote(raw)+" is not an integer"))
		return 0, false
	}
	return id, true
}

// pathLabel validates the :label segment against the allow-list
func (s *Server) pathLabel(c *gin.Context) (graph.Label, bool) {
	label, err := graph.ParseLabel(c.Param("label"))
	if err != nil {
		s.respondError(c, err)
		return "", false
	}
	return label, true
}

// respondError maps error categories to status codes. Backend failures are
// logged and reported without detail.
func (s *Server) respondError(c *gin.Context, err error) {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeNotFound:
		var nf *apperrors.ErrNodeNotFound
		if errors.As(err, &nf) {
			c.JSON(http.StatusNotFound, gin.H{"error": nf.Label + " not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case apperrors.ErrorTypeValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": apperrors.MessageOf(err)})
	default:
		s.logger.Error("Query execution failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query execution failed"})
	}
}
