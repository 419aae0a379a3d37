// Package sheetstest runs an in-process fake of the Sheets v4 values API,
// enough for append, get and update on a single sheet.
package sheetstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

// Header is the first row of a fresh sheet.
var Header = []string{"UID", "Nome", "Cognome", "Email", "Scuola", "Data Nascita", "Check-in Timestamp"}

const width = 7

var bareName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var cellRef = regexp.MustCompile(`^G(\d+)$`)

type Server struct {
	srv *httptest.Server

	SpreadsheetID string
	Sheet         string

	mu         sync.Mutex
	rows       [][]string
	requests   int
	failAppend bool
	failAll    bool
}

// NewServer starts a fake holding one sheet with the header row already in place.
func NewServer(t testing.TB, spreadsheetID, sheet string) *Server {
	t.Helper()

	s := &Server{
		SpreadsheetID: spreadsheetID,
		Sheet:         sheet,
		rows:          [][]string{append([]string(nil), Header...)},
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

// Options point a google API client at the fake.
func (s *Server) Options() []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(s.srv.URL + "/"),
		option.WithHTTPClient(s.srv.Client()),
		option.WithoutAuthentication(),
	}
}

func (s *Server) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Requests counts every HTTP request the fake has received.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) FailAppend(fail bool) {
	s.mu.Lock()
	s.failAppend = fail
	s.mu.Unlock()
}

func (s *Server) FailAll(fail bool) {
	s.mu.Lock()
	s.failAll = fail
	s.mu.Unlock()
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++

	if s.failAll {
		writeError(w, http.StatusServiceUnavailable, "backend unavailable")
		return
	}

	prefix := "/v4/spreadsheets/" + s.SpreadsheetID + "/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		writeError(w, http.StatusNotFound, "unknown spreadsheet")
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(rng, ":append"):
		s.append(w, r, strings.TrimSuffix(rng, ":append"))
	case r.Method == http.MethodGet:
		s.get(w, rng)
	case r.Method == http.MethodPut:
		s.update(w, r, rng)
	default:
		writeError(w, http.StatusBadRequest, "unsupported call "+r.Method+" "+rng)
	}
}

// cells strips the sheet prefix from an A1 range. Names other than plain
// identifiers must arrive quoted, as the real API requires.
func (s *Server) cells(rng string) (string, bool) {
	i := strings.LastIndex(rng, "!")
	if i < 0 {
		return "", false
	}
	sheet, cells := rng[:i], rng[i+1:]

	if len(sheet) >= 2 && strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	} else if !bareName.MatchString(sheet) {
		return "", false
	}

	if sheet != s.Sheet {
		return "", false
	}
	return cells, true
}

func (s *Server) append(w http.ResponseWriter, r *http.Request, rng string) {
	if s.failAppend {
		writeError(w, http.StatusInternalServerError, "append failed")
		return
	}
	if cells, ok := s.cells(rng); !ok || cells != "A:G" {
		writeError(w, http.StatusBadRequest, "unexpected append range "+rng)
		return
	}
	if r.URL.Query().Get("valueInputOption") != "USER_ENTERED" {
		writeError(w, http.StatusBadRequest, "valueInputOption must be USER_ENTERED")
		return
	}

	var body struct {
		Values [][]any `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, v := range body.Values {
		row := make([]string, width)
		for i := 0; i < len(v) && i < width; i++ {
			row[i] = fmt.Sprint(v[i])
		}
		s.rows = append(s.rows, row)
	}

	writeJSON(w, map[string]any{"spreadsheetId": s.SpreadsheetID})
}

func (s *Server) get(w http.ResponseWriter, rng string) {
	if cells, ok := s.cells(rng); !ok || cells != "A:A" {
		writeError(w, http.StatusBadRequest, "unexpected get range "+rng)
		return
	}

	values := make([][]string, 0, len(s.rows))
	for _, r := range s.rows {
		values = append(values, []string{r[0]})
	}

	writeJSON(w, map[string]any{
		"range":          rng,
		"majorDimension": "ROWS",
		"values":         values,
	})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request, rng string) {
	cells, ok := s.cells(rng)
	m := cellRef.FindStringSubmatch(cells)
	if !ok || m == nil {
		writeError(w, http.StatusBadRequest, "unexpected update range "+rng)
		return
	}
	row, _ := strconv.Atoi(m[1])

	var body struct {
		Values [][]any `json:"values"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Values) != 1 || len(body.Values[0]) != 1 {
		writeError(w, http.StatusBadRequest, "expected a single cell")
		return
	}

	// Writing past the end grows the sheet, like the real API does.
	for len(s.rows) < row {
		s.rows = append(s.rows, make([]string, width))
	}
	s.rows[row-1][6] = fmt.Sprint(body.Values[0][0])

	writeJSON(w, map[string]any{"updatedRange": rng, "updatedCells": 1})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": msg},
	})
}
