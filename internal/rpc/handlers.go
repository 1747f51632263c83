package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/watchmonkey/stocktags/internal/search"
	"github.com/watchmonkey/stocktags/internal/search/index"
	"github.com/watchmonkey/stocktags/internal/tags"
)

type setStockDataRequest struct {
	StockData json.RawMessage `json:"stock_data"`
}

type getCategoriesRequest struct {
	SearchQuery *string `json:"search_query"`
}

type paramsRequest struct {
	Params search.SearchParams `json:"params"`
}

type getStocksByTagRequest struct {
	SelectedTag search.SelectedTag  `json:"selected_tag"`
	Params      search.SearchParams `json:"params"`
}

type calculateStatisticsRequest struct {
	Tags                      []search.TagDetails `json:"tags"`
	FilteredCategoriesCount   int                 `json:"filtered_categories_count"`
	TotalTagsCount            int                 `json:"total_tags_count"`
	SelectedCategoryTagsCount int                 `json:"selected_category_tags_count"`
}

type parseTagsRequest struct {
	Tags string `json:"tags"`
}

type validateTagRequest struct {
	TagName   string  `json:"tag_name"`
	TagDetail *string `json:"tag_detail"`
}

type getTagDetailsRequest struct {
	CategoryName string  `json:"category_name"`
	TagName      string  `json:"tag_name"`
	TagDetail    *string `json:"tag_detail"`
}

type updateTagsRequest struct {
	StockCode string `json:"stock_code"`
	Tags      string `json:"tags"`
}

type updateTagsResponse struct {
	Updated bool `json:"updated"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSetStockData(w http.ResponseWriter, r *http.Request) {
	var req setStockDataRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.StockData) == 0 {
		writeError(w, http.StatusBadRequest, "missing stock_data")
		return
	}
	records, err := index.DecodeRecords(req.StockData)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.SetStockData(r.Context(), records); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	var req getCategoriesRequest
	if !decode(w, r, &req) {
		return
	}
	q := ""
	if req.SearchQuery != nil {
		q = *req.SearchQuery
	}
	writeJSON(w, http.StatusOK, s.engine.Categories(q))
}

func (s *Server) handleGetTagsByCategory(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.TagsByCategory(req.Params))
}

func (s *Server) handleGetStocksByTag(w http.ResponseWriter, r *http.Request) {
	var req getStocksByTagRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.StocksByTag(req.SelectedTag, req.Params))
}

func (s *Server) handleCalculateStatistics(w http.ResponseWriter, r *http.Request) {
	var req calculateStatisticsRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, search.CalculateStatistics(
		req.Tags, req.FilteredCategoriesCount, req.TotalTagsCount, req.SelectedCategoryTagsCount))
}

func (s *Server) handleParseTags(w http.ResponseWriter, r *http.Request) {
	var req parseTagsRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, tags.Parse(req.Tags))
}

func (s *Server) handleValidateTag(w http.ResponseWriter, r *http.Request) {
	var req validateTagRequest
	if !decode(w, r, &req) {
		return
	}
	detail := ""
	if req.TagDetail != nil {
		detail = *req.TagDetail
	}
	writeJSON(w, http.StatusOK, tags.Validate(req.TagName, detail))
}

func (s *Server) handleGetTagDetails(w http.ResponseWriter, r *http.Request) {
	var req getTagDetailsRequest
	if !decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.TagDetails(req.CategoryName, req.TagName, req.TagDetail))
}

func (s *Server) handleSearchAndFilter(w http.ResponseWriter, r *http.Request) {
	var req paramsRequest
	if !decode(w, r, &req) {
		return
	}
	cats, tl := s.engine.SearchAndFilter(req.Params)
	writeJSON(w, http.StatusOK, []any{cats, tl})
}

func (s *Server) handleGetDataStatistics(w http.ResponseWriter, r *http.Request) {
	var req struct{}
	if !decode(w, r, &req) {
		return
	}
	st := s.engine.DataStatistics()
	writeJSON(w, http.StatusOK, []int{st.TotalStocks, st.StocksWithTags, st.TotalCategories})
}

// handleUpdateTags treats an unknown stock as a no-op, not a failure.
func (s *Server) handleUpdateTags(w http.ResponseWriter, r *http.Request) {
	var req updateTagsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.StockCode == "" {
		writeError(w, http.StatusBadRequest, "missing stock_code")
		return
	}

	s.updateMu.Lock()
	defer s.updateMu.Unlock()

	err := s.engine.UpdateTags(req.StockCode, req.Tags)
	if errors.Is(err, index.ErrNotFound) {
		writeJSON(w, http.StatusOK, updateTagsResponse{Updated: false})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.cfg.SnapshotPath != "" {
		err := index.UpdateSnapshotTags(s.cfg.SnapshotPath, req.StockCode, req.Tags, s.now())
		switch {
		case errors.Is(err, index.ErrNotFound):
			s.logger.Warn("stock not present in snapshot file; update kept in memory only",
				"stock_code", req.StockCode, "path", s.cfg.SnapshotPath)
		case err != nil:
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("tags updated in memory but not persisted: %v", err))
			return
		}
	}
	writeJSON(w, http.StatusOK, updateTagsResponse{Updated: true})
}

// decode reads a JSON object body into v. An empty body leaves v untouched.
// On failure it writes a 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
