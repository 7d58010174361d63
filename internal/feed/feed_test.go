package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/pankou/internal/changes"
	"github.com/camuig/pankou/internal/logger"
)

const sampleCSV = "\ufeff板块名称,时间,名称,四舍五入取整,类型,上下午,涨跌幅\n" +
	"半导体,09:31,中芯国际,5,大笔买入,上午,1.2\n" +
	"半导体,09:31,北方华创,12.0,封涨停板,上午,10.0\n" +
	"白酒,13:05,贵州茅台,-2.6,快速跳水,下午,-0.5\n" +
	"白酒,13:06,五粮液,,,下午,\n"

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "changes.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	events, err := LoadCSV(writeCSV(t, sampleCSV))
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "半导体", events[0].Sector)
	assert.Equal(t, "09:31", events[0].Time)
	assert.Equal(t, int64(5), events[0].Value())
	assert.Equal(t, changes.SessionMorning, events[0].Session)

	assert.True(t, events[1].IsLimitUp())
	assert.Equal(t, int64(12), events[1].Value())

	assert.Equal(t, int64(-3), events[2].Value())

	assert.False(t, events[3].Change.Valid)
	assert.Empty(t, events[3].Type)
}

func TestReadCSVColumnOrder(t *testing.T) {
	events, err := ReadCSV(strings.NewReader("上下午,名称,类型,四舍五入取整,时间,板块名称\n下午,x,t,3,14:00,A\n"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, int64(3), events[0].Value())
	assert.Equal(t, "x", events[0].Name)
	assert.Equal(t, "t", events[0].Type)
	assert.Equal(t, "14:00", events[0].Time)
	assert.Equal(t, "A", events[0].Sector)
	assert.Equal(t, "下午", events[0].Session)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("板块名称,时间\nA,09:31\n"))
	assert.ErrorContains(t, err, "missing column")

	_, err = ReadCSV(strings.NewReader("板块名称,时间,名称,四舍五入取整,类型,上下午\nA,09:31,x,abc,t,上午\n"))
	assert.ErrorContains(t, err, "row 2")

	events, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadCSVMissing(t *testing.T) {
	_, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHandler(t *testing.T) {
	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		NewServer(path, 0, logger.Nop()).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/changes/json", nil))
		return rec
	}

	t.Run("ok", func(t *testing.T) {
		rec := get(writeCSV(t, sampleCSV))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

		var raw []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
		require.Len(t, raw, 4)
		assert.Equal(t, "北方华创", raw[1]["名称"])
		assert.Equal(t, float64(12), raw[1]["四舍五入取整"])
		assert.Nil(t, raw[3]["四舍五入取整"])
	})

	t.Run("missing file", func(t *testing.T) {
		rec := get(filepath.Join(t.TempDir(), "nope.csv"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail":"CSV file not found"}`, rec.Body.String())
	})

	t.Run("bad file", func(t *testing.T) {
		rec := get(writeCSV(t, "板块名称\nA\n"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "Error reading CSV: ")
	})
}

func TestFeedRoundTripsThroughClient(t *testing.T) {
	srv := httptest.NewServer(NewServer(writeCSV(t, sampleCSV), 0, logger.Nop()).Handler())
	t.Cleanup(srv.Close)

	c := changes.NewClient(srv.URL+"/api/changes/json", 0, logger.Nop())
	events, err := c.FetchChanges(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 4)
}
