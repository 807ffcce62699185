package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/robotu/molkit/internal/infrastructure/logging"
	"github.com/robotu/molkit/internal/search"
	"github.com/robotu/molkit/pkg/errors"
)

type searchHandler struct {
	engine *search.LocalSearch
	logger logging.Logger
}

type searchRequest struct {
	Query        string          `json:"query" binding:"required"`
	TopK         int             `json:"top_k"`
	Filter       json.RawMessage `json:"filter"`
	SimThreshold float64         `json:"sim_threshold"`
}

type searchResult struct {
	CID        int64   `json:"cid"`
	Name       string  `json:"name,omitempty"`
	SMILES     string  `json:"smiles,omitempty"`
	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity,omitempty"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
	Count   int            `json:"count"`
}

func (h *searchHandler) semantic(c *gin.Context) {
	req, filter, ok := h.bindRequest(c)
	if !ok {
		return
	}

	hits, err := h.engine.SearchBySemantics(c.Request.Context(), req.Query, search.Options{
		TopK:   req.TopK,
		Filter: filter,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchResult{
			CID:      hit.Record.CID,
			Name:     hit.Record.Name,
			SMILES:   hit.Record.SMILES,
			Score:    hit.Score,
			Metadata: hit.Record.Meta,
		})
	}
	c.JSON(http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (h *searchHandler) structure(c *gin.Context) {
	req, filter, ok := h.bindRequest(c)
	if !ok {
		return
	}

	hits, err := h.engine.SearchByStructure(c.Request.Context(), req.Query, search.StructureOptions{
		Options: search.Options{
			TopK:   req.TopK,
			Filter: filter,
		},
		SimThreshold: req.SimThreshold,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, searchResult{
			CID:        hit.Record.CID,
			Name:       hit.Record.Name,
			SMILES:     hit.Record.SMILES,
			Score:      hit.Score,
			Similarity: hit.Similarity,
			Metadata:   hit.Record.Meta,
		})
	}
	c.JSON(http.StatusOK, searchResponse{Results: results, Count: len(results)})
}

func (h *searchHandler) bindRequest(c *gin.Context) (*searchRequest, search.Filter, bool) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, errors.Wrap(err, errors.ErrCodeBadRequest, "invalid request body"))
		return nil, nil, false
	}

	filter, err := search.ParseFilterJSON(string(req.Filter))
	if err != nil {
		h.writeError(c, err)
		return nil, nil, false
	}
	return &req, filter, true
}

func (h *searchHandler) writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	message := "internal error"
	var appErr *errors.AppError
	if errors.As(err, &appErr) && status < http.StatusInternalServerError {
		message = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request handler failed", logging.Err(err))
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    string(code),
			"message": message,
		},
	})
}
