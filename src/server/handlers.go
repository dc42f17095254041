// handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"BikeSharing/src/processor"
	"BikeSharing/src/report"
)

// errorResponse 错误响应
type errorResponse struct {
	Error string `json:"error"`
}

// summaryResponse 单表汇总响应
type summaryResponse struct {
	Empty bool                    `json:"empty"`
	Table *processor.SummaryTable `json:"table,omitempty"`
}

// previewResponse 预览响应，第一行为表头
type previewResponse struct {
	Empty bool       `json:"empty"`
	Rows  [][]string `json:"rows"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reducer, err := processor.ParseReducer(q.Get("reducer"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.criteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rep, err := s.builder.Build(s.dataPath, c, reducer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reducer, err := processor.ParseReducer(q.Get("reducer"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.criteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}

	group := processor.GroupKey(q.Get("group"))
	if group == "" {
		s.writeError(w, errors.New("缺少参数 group"))
		return
	}
	measure := processor.Field(q.Get("measure"))
	if measure == "" {
		measure = processor.FieldCount
	}
	req := processor.Request{Group: group, Measure: measure, Reducer: reducer}
	switch q.Get("order") {
	case "", "natural":
	case "canonical":
		req.Order = s.builder.CanonicalOrder(group)
	default:
		s.writeError(w, errors.New("order 只能是 natural 或 canonical"))
		return
	}

	table, err := s.builder.Summary(s.dataPath, c, req)
	if errors.Is(err, processor.ErrEmptyResult) {
		writeJSON(w, http.StatusOK, summaryResponse{Empty: true})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{Table: table})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := s.criteria(q)
	if err != nil {
		s.writeError(w, err)
		return
	}
	n := 0
	if raw := q.Get("n"); raw != "" {
		if n, err = strconv.Atoi(raw); err != nil || n < 0 {
			s.writeError(w, errors.New("n 必须是非负整数"))
			return
		}
	}

	rows, err := s.builder.Preview(s.dataPath, c, n)
	if errors.Is(err, processor.ErrEmptyResult) {
		writeJSON(w, http.StatusOK, previewResponse{Empty: true, Rows: rows})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{Rows: rows})
}

// criteria 从查询参数构造筛选条件
func (s *Server) criteria(q url.Values) (processor.Criteria, error) {
	var c processor.Criteria
	var err error
	opts := s.builder.Options()

	if c.Dates, err = report.ParseDateRange(q.Get("start"), q.Get("end")); err != nil {
		return c, err
	}
	_, present := q["season"]
	if c.Seasons, err = report.ParseCodes(opts.SeasonLabels, q.Get("season"), present); err != nil {
		return c, err
	}
	_, present = q["weather"]
	if c.Weathers, err = report.ParseCodes(opts.WeatherLabels, q.Get("weather"), present); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// statusOf 错误到状态码的映射，未知错误视为参数错误
func statusOf(err error) int {
	switch {
	case errors.Is(err, processor.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, processor.ErrParse):
		return http.StatusInternalServerError
	case errors.Is(err, processor.ErrMissingColumn):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(err.Error())
	} else {
		s.logger.Warning(err.Error())
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
