package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/labstack/echo/v4"
)

type createPostRequest struct {
	Title       string `json:"title" validate:"required,min=5,max=200"`
	Content     string `json:"content" validate:"required,min=10"`
	IsPublished *bool  `json:"isPublished"`
}

type updatePostRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=5,max=200"`
	Content     *string `json:"content" validate:"omitempty,min=10"`
	IsPublished *bool   `json:"isPublished"`
}

func (s *Server) createPost(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}

	var req createPostRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	p, err := s.posts.Create(c.Request().Context(), caller, models.NewPost{
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) listPosts(c echo.Context) error {
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	res, err := s.posts.FindAll(c.Request().Context(), page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) myPosts(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	page, err := pageParams(c)
	if err != nil {
		return err
	}
	res, err := s.posts.FindByAuthor(c.Request().Context(), caller.ID, page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) getPost(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	p, err := s.posts.FindOne(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) updatePost(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req updatePostRequest
	if err := bindStrict(c, &req); err != nil {
		return err
	}

	p, err := s.posts.Update(c.Request().Context(), caller, id, models.UpdatePost{
		Title:       req.Title,
		Content:     req.Content,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) deletePost(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.posts.Remove(c.Request().Context(), caller, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) uploadCover(c echo.Context) error {
	caller, err := callerFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := s.posts.PresignCoverUpload(c.Request().Context(), caller, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

func (s *Server) downloadCover(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := s.posts.PresignCoverDownload(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}
