package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/itemsync/internal/convert"
	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/wire"
)

// --- Auth ---

func (s *Server) signUp(c *gin.Context) {
	var req wire.SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, bindError(err))
		return
	}
	res, err := s.auth.SignUp(c.Request.Context(), model.SignUp{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToWireAuth(res.Tokens, res.User))
}

func (s *Server) login(c *gin.Context) {
	var req wire.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, bindError(err))
		return
	}
	res, err := s.auth.Login(c.Request.Context(), model.Credentials{Email: req.Email, Password: req.Password}, c.ClientIP())
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireAuth(res.Tokens, res.User))
}

func (s *Server) refresh(c *gin.Context) {
	var req wire.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, bindError(err))
		return
	}
	tok, err := s.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireAuth(tok, nil))
}

func (s *Server) logout(c *gin.Context) {
	if err := s.auth.Logout(c.Request.Context(), principal(c)); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Profile ---

func (s *Server) me(c *gin.Context) {
	u, err := s.auth.Me(c.Request.Context(), principal(c).UserID)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireUser(u))
}

func (s *Server) updateMe(c *gin.Context) {
	var req wire.UserUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, bindError(err))
		return
	}
	u, err := s.auth.UpdateUser(c.Request.Context(), principal(c).UserID, convert.FromWireUserUpdate(req))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireUser(u))
}

func (s *Server) deleteMe(c *gin.Context) {
	if err := s.auth.DeleteAccount(c.Request.Context(), principal(c).UserID); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Items ---

func (s *Server) listItems(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	p, err := s.items.List(c.Request.Context(), principal(c).UserID, page, limit)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireItemPage(p))
}

func (s *Server) getItem(c *gin.Context) {
	id, ok := s.itemID(c)
	if !ok {
		return
	}
	it, err := s.items.Get(c.Request.Context(), principal(c).UserID, id)
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireItem(it))
}

func (s *Server) createItem(c *gin.Context) {
	var req wire.ItemDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, bindError(err))
		return
	}
	it, err := s.items.Create(c.Request.Context(), principal(c).UserID, convert.FromWireItemDraft(req))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusCreated, convert.ToWireItem(it))
}

func (s *Server) updateItem(c *gin.Context) {
	id, ok := s.itemID(c)
	if !ok {
		return
	}
	var req wire.ItemDraft
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, s.log, bindError(err))
		return
	}
	it, err := s.items.Update(c.Request.Context(), principal(c).UserID, id, convert.FromWireItemDraft(req))
	if err != nil {
		writeError(c, s.log, err)
		return
	}
	c.JSON(http.StatusOK, convert.ToWireItem(it))
}

func (s *Server) deleteItem(c *gin.Context) {
	id, ok := s.itemID(c)
	if !ok {
		return
	}
	if err := s.items.Delete(c.Request.Context(), principal(c).UserID, id); err != nil {
		writeError(c, s.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// itemID parses the :id path parameter. Malformed ids cannot exist, so they are 404.
func (s *Server) itemID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		writeError(c, s.log, errs.ErrNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errs.Validation(key + " must be a number")
	}
	return n, nil
}
