package httpapi

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/roach88/toplist/internal/rank"
	"github.com/roach88/toplist/internal/store"
)

type userRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type answerRequest struct {
	UserID      string `json:"user_id" validate:"required"`
	Fingerprint string `json:"fingerprint" validate:"required,len=32,hexadecimal"`
	Choice      string `json:"choice" validate:"required"`
}

type searchRequest struct {
	Q     string `query:"q" validate:"required"`
	Exact bool   `query:"exact"`
	Limit int    `query:"limit" validate:"gte=0,lte=100"`
}

type gamesResponse struct {
	Games []store.Game `json:"games"`
}

type envelope struct {
	Success bool        `json:"success"`
	Code    int         `json:"code"`
	Data    any         `json:"data,omitempty"`
	Error   *errorField `json:"error,omitempty"`
}

type errorField struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func ok(data any) envelope {
	return envelope{Success: true, Code: fiber.StatusOK, Data: data}
}

func errorBody(status int, code, message string) envelope {
	return envelope{Code: status, Error: &errorField{Code: code, Message: message}}
}

// bind parses and validates a JSON body. Failures are InvalidInput.
func (s *Server) bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return rank.WrapError(rank.KindInvalidInput, "", "malformed request body", err)
	}
	if err := s.validate.Struct(req); err != nil {
		return rank.WrapError(rank.KindInvalidInput, "", fmt.Sprintf("invalid request: %v", err), nil)
	}
	return nil
}

func (s *Server) bindQuery(c *fiber.Ctx, req *searchRequest) error {
	if err := c.QueryParser(req); err != nil {
		return rank.WrapError(rank.KindInvalidInput, "", "malformed query", err)
	}
	req.Q = strings.TrimSpace(req.Q)
	if err := s.validate.Struct(req); err != nil {
		return rank.WrapError(rank.KindInvalidInput, "", fmt.Sprintf("invalid query: %v", err), nil)
	}
	return nil
}

func (s *Server) start(c *fiber.Ctx) error {
	var req userRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	res, err := s.deps.Ranker.StartRanking(c.UserContext(), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(ok(res))
}

func (s *Server) answer(c *fiber.Ctx) error {
	var req answerRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	choice, err := rank.ParseChoice(req.Choice)
	if err != nil {
		return err
	}
	res, err := s.deps.Mailbox.Answer(c.UserContext(), req.UserID, req.Fingerprint, choice)
	if err != nil {
		return err
	}
	return c.JSON(ok(res))
}

func (s *Server) resume(c *fiber.Ctx) error {
	var req userRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	res, err := s.deps.Ranker.Resume(c.UserContext(), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(ok(res))
}

func (s *Server) cancel(c *fiber.Ctx) error {
	var req userRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	res, err := s.deps.Ranker.Cancel(c.UserContext(), req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(ok(res))
}

// prompt serves the mailbox prompt, falling back to the stored comparison
// when the mailbox is empty (e.g. after a restart).
func (s *Server) prompt(c *fiber.Ctx) error {
	user := c.Params("user")
	if cmp, found := s.deps.Mailbox.Outstanding(user); found {
		return c.JSON(ok(cmp))
	}
	cmp, err := s.deps.Ranker.Current(c.UserContext(), user)
	if err != nil {
		return err
	}
	return c.JSON(ok(cmp))
}

func (s *Server) progress(c *fiber.Ctx) error {
	p, err := s.deps.Ranker.Progress(c.UserContext(), c.Params("user"))
	if err != nil {
		return err
	}
	return c.JSON(ok(p))
}

func (s *Server) top(c *fiber.Ctx) error {
	user := c.Params("user")
	tl, found, err := s.deps.TopLists.TopList(c.UserContext(), user)
	if err != nil {
		return rank.WrapError(rank.KindStorage, user, "read top list", err)
	}
	if !found {
		return rank.WrapError(rank.KindNoActiveSession, user, "no completed ranking", nil)
	}
	return c.JSON(ok(tl))
}

func (s *Server) searchGames(c *fiber.Ctx) error {
	var req searchRequest
	if err := s.bindQuery(c, &req); err != nil {
		return err
	}
	games, err := s.deps.Catalog.SearchGames(c.UserContext(), store.GameQuery{
		Name:  req.Q,
		Exact: req.Exact,
		Limit: req.Limit,
	})
	if err != nil {
		return rank.WrapError(rank.KindStorage, "", "search games", err)
	}
	return c.JSON(ok(gamesResponse{Games: games}))
}

func (s *Server) userGames(c *fiber.Ctx) error {
	user := c.Params("user")
	games, err := s.deps.Catalog.UserGames(c.UserContext(), user)
	if err != nil {
		return rank.WrapError(rank.KindStorage, user, "list user games", err)
	}
	return c.JSON(ok(gamesResponse{Games: games}))
}
