package changes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camuig/pankou/internal/logger"
)

const samplePayload = `[
  {"板块名称":"半导体","时间":"09:31","名称":"中芯国际","四舍五入取整":5,"类型":"大笔买入","上下午":"上午"},
  {"板块名称":"半导体","时间":"09:31","名称":"北方华创","四舍五入取整":12.0,"类型":"封涨停板","上下午":"上午"},
  {"板块名称":"白酒","时间":"13:05","名称":"贵州茅台","四舍五入取整":-3,"类型":"快速跳水","上下午":"下午"},
  {"板块名称":"白酒","时间":"13:06","名称":"五粮液","四舍五入取整":null,"类型":null,"上下午":"下午"}
]`

func serve(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/changes/json", time.Second, logger.Nop())
}

func TestFetchChanges(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/changes/json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePayload))
	})

	events, err := c.FetchChanges(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, "半导体", events[0].Sector)
	assert.Equal(t, "09:31", events[0].Time)
	assert.Equal(t, "中芯国际", events[0].Name)
	assert.Equal(t, int64(5), events[0].Value())
	assert.Equal(t, SessionMorning, events[0].Session)
	assert.False(t, events[0].IsLimitUp())

	assert.Equal(t, int64(12), events[1].Value())
	assert.True(t, events[1].IsLimitUp())

	assert.Equal(t, int64(-3), events[2].Value())
	assert.Equal(t, SessionAfternoon, events[2].Session)

	assert.False(t, events[3].Change.Valid)
	assert.Equal(t, int64(0), events[3].Value())
	assert.Empty(t, events[3].Type)
}

func TestFetchChangesEmptyArray(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	events, err := c.FetchChanges(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestFetchChangesStatusError(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"CSV file not found"}`, http.StatusNotFound)
	})

	_, err := c.FetchChanges(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestFetchChangesMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   `<html>oops</html>`,
		"object":     `{"板块名称":"x"}`,
		"null":       `null`,
		"wrong type": `[{"四舍五入取整":"abc"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			c := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			})
			_, err := c.FetchChanges(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
		})
	}
}

func TestFetchChangesTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, logger.Nop())
	_, err := c.FetchChanges(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", 0, logger.Nop())
	assert.Equal(t, DefaultURL, c.URL())
	assert.Equal(t, 10*time.Second, c.httpClient.Timeout)
}

func TestEventValueRounding(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{`2.5`, 3},
		{`-2.5`, -3},
		{`9.49`, 9},
		{`0`, 0},
		{`"7"`, 7},
	}
	for _, tt := range tests {
		var e Event
		require.NoError(t, json.Unmarshal([]byte(`{"四舍五入取整":`+tt.raw+`}`), &e))
		assert.Equal(t, tt.want, e.Value(), tt.raw)
	}
}

func TestEventEncodesBareNumbers(t *testing.T) {
	out, err := json.Marshal(Event{Sector: "A", Change: NewMagnitude(-4)})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"四舍五入取整":-4`)

	out, err = json.Marshal(Event{Sector: "A"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"四舍五入取整":null`)
}
