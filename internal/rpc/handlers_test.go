package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/watchmonkey/stocktags/internal/search"
	"github.com/watchmonkey/stocktags/internal/search/index"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg Config) (*Server, *search.Engine) {
	t.Helper()
	logger := quietLogger()
	engine := search.NewEngine(index.NewStore(index.WithLogger(logger)))
	return NewServer(cfg, engine, logger), engine
}

func call(t *testing.T, s *Server, op, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc/"+op, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const fixture = `{"stock_data": [
  {"stock_code": "A", "stock_name": "Alpha", "custom_tags": "行业:医疗;概念:AI"},
  {"stock_code": "B", "stock_name": "Beta", "custom_tags": "行业:医疗{器械}"},
  {"stock_code": "C", "stock_name": "Gamma", "custom_tags": null}
]}`

func loadFixture(t *testing.T, s *Server) {
	t.Helper()
	rec := call(t, s, "set_stock_data", fixture)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDispatch_Errors(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := call(t, s, "drop_everything", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rpc/get_categories", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = call(t, s, "get_categories", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestSetStockData_RejectsWrongShape(t *testing.T) {
	s, engine := newTestServer(t, Config{})
	loadFixture(t, s)

	for _, body := range []string{
		`{}`,
		`{"stock_data": {"stock_code": "A"}}`,
		`{"stock_data": [{"stock_name": "no code"}]}`,
		`{"stock_data": [{"stock_code": 1}]}`,
	} {
		rec := call(t, s, "set_stock_data", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}

	// the previous snapshot is untouched
	assert.Equal(t, 3, engine.DataStatistics().TotalStocks)
}

func TestGetCategories(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	loadFixture(t, s)

	rec := call(t, s, "get_categories", `{"search_query": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var got search.CategoryListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"行业", "概念"}, got.Categories)
	assert.Equal(t, 3, got.Statistics.TotalTags)

	rec = call(t, s, "get_categories", `{"search_query": "器械"}`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"行业"}, got.Categories)
}

func TestGetTagsByCategoryAndStocks(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	loadFixture(t, s)

	rec := call(t, s, "get_tags_by_category", `{"params": {"category_name": "行业", "tags_page": 1, "tags_per_page": 10}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var tl search.TagListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tl))
	require.Len(t, tl.Tags, 2)
	assert.Equal(t, 2, tl.TotalTags)
	assert.Equal(t, 2, tl.ValidTagsCount)

	rec = call(t, s, "get_stocks_by_tag", `{
		"selected_tag": {"category_name": "行业", "tag_name": "医疗", "tag_detail": "器械", "stocks": []},
		"params": {"stocks_page": 1, "stocks_per_page": 5}
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var sl search.StockListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sl))
	require.Len(t, sl.Stocks, 1)
	assert.Equal(t, "B", sl.Stocks[0].StockCode)
	assert.Equal(t, 1, sl.TotalPages)
}

func TestSearchAndFilter_ReturnsPair(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	loadFixture(t, s)

	rec := call(t, s, "search_and_filter", `{"params": {"search_query": "ai", "category_name": "概念", "tags_page": 1, "tags_per_page": 5}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var pair []json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))
	require.Len(t, pair, 2)

	var cats search.CategoryListResult
	require.NoError(t, json.Unmarshal(pair[0], &cats))
	assert.Equal(t, []string{"概念"}, cats.Categories)

	var tl search.TagListResult
	require.NoError(t, json.Unmarshal(pair[1], &tl))
	require.Len(t, tl.Tags, 1)
	assert.Equal(t, "AI", tl.Tags[0].Name)
}

func TestStatelessOperations(t *testing.T) {
	s, _ := newTestServer(t, Config{})

	rec := call(t, s, "parse_tags", `{"tags": "b:1;noColon;a:x{y}"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"b":[{"name":"1"}],"a":[{"name":"x","detail":"y"}]}`, strings.TrimSpace(rec.Body.String()))

	rec = call(t, s, "validate_tag", `{"tag_name": "铜", "tag_detail": null}`)
	assert.JSONEq(t, `"special"`, rec.Body.String())

	rec = call(t, s, "validate_tag", `{"tag_name": "-ok", "tag_detail": "d"}`)
	assert.JSONEq(t, `"error"`, rec.Body.String())

	rec = call(t, s, "calculate_statistics", `{
		"tags": [{"name": "ok", "count": 1, "stocks": []}, {"name": "x", "count": 1, "stocks": []}],
		"filtered_categories_count": 2, "total_tags_count": 9, "selected_category_tags_count": 4
	}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"total_tags": 9, "total_categories": 2, "selected_category_tags_count": 4,
		"current_page_tags_count": 2, "error_tags_count": 1, "warning_tags_count": 0, "valid_tags_count": 1
	}`, rec.Body.String())
}

func TestGetTagDetailsAndDataStatistics(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	loadFixture(t, s)

	rec := call(t, s, "get_tag_details", `{"category_name": "行业", "tag_name": "医疗", "tag_detail": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var sel search.SelectedTag
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sel))
	require.Len(t, sel.Stocks, 1)
	assert.Equal(t, "A", sel.Stocks[0].StockCode)

	rec = call(t, s, "get_data_statistics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[3, 2, 2]`, rec.Body.String())
}

func TestUpdateTags(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	loadFixture(t, s)

	rec := call(t, s, "update_tags", `{"stock_code": "C", "tags": "地区:上海"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated": true}`, rec.Body.String())

	rec = call(t, s, "get_categories", `{}`)
	assert.Contains(t, rec.Body.String(), "地区")

	rec = call(t, s, "update_tags", `{"stock_code": "ZZZ", "tags": "x:y"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated": false}`, rec.Body.String())

	rec = call(t, s, "update_tags", `{"tags": "x:y"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTags_PersistsToSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocks.json")
	require.NoError(t, index.WriteSnapshot(path, index.Snapshot{
		Stocks: []index.StockRecord{{StockCode: "A", CustomTags: "x:1"}},
	}))
	snap, err := index.LoadSnapshot(path)
	require.NoError(t, err)

	s, engine := newTestServer(t, Config{SnapshotPath: path})
	s.now = func() time.Time { return time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC) }
	require.NoError(t, engine.SetStockData(context.Background(), snap.Stocks))

	rec := call(t, s, "update_tags", `{"stock_code": "A", "tags": "y:2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap, err = index.LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, "y:2", snap.Stocks[0].CustomTags)
	assert.Equal(t, "2026-05-06T07:08:09Z", snap.Stocks[0].UpdatedAt)
}

func TestUpdateTags_ConcurrentUpdatesAgreeWithSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocks.json")
	require.NoError(t, index.WriteSnapshot(path, index.Snapshot{
		Stocks: []index.StockRecord{{StockCode: "A", CustomTags: "x:0"}},
	}))
	snap, err := index.LoadSnapshot(path)
	require.NoError(t, err)

	s, engine := newTestServer(t, Config{SnapshotPath: path})
	require.NoError(t, engine.SetStockData(context.Background(), snap.Stocks))

	var wg sync.WaitGroup
	for i := 1; i <= 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			body := fmt.Sprintf(`{"stock_code": "A", "tags": "x:%d"}`, i)
			req := httptest.NewRequest(http.MethodPost, "/rpc/update_tags", strings.NewReader(body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		}()
	}
	wg.Wait()

	inMemory, ok := engine.Store().Record("A")
	require.True(t, ok)
	snap, err = index.LoadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, inMemory.CustomTags, snap.Stocks[0].CustomTags)
	assert.NotEqual(t, "x:0", inMemory.CustomTags)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t, Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String()
	client := &http.Client{Timeout: 2 * time.Second, Transport: &http.Transport{DisableKeepAlives: true}}
	defer client.CloseIdleConnections()
	resp, err := client.Post(url+"/rpc/parse_tags", "application/json", bytes.NewBufferString(`{"tags":"a:b"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
