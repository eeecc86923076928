package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Kartlag-App/internal/domain/model"
)

// fakeFetcher 発行されたクエリを記録し、定型レスポンスを返すフェイク
type fakeFetcher struct {
	queries   []string
	responses [][]byte
	err       error
}

func (f *fakeFetcher) Fetch(ctx context.Context, upstream string, buildReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	req, err := buildReq(ctx)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.queries = append(f.queries, string(body))
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return resp, nil
}

var testViewport = model.ViewportWindow{North: 59.92, South: 59.90, East: 10.76, West: 10.74, Zoom: 14}

func emptyResponse() []byte { return []byte(`{"elements":[]}`) }

func TestBuildQueryConstrainedToNorway(t *testing.T) {
	q := buildQuery(`nwr["tourism"="viewpoint"]`, testViewport)
	assert.Contains(t, q, `area["ISO3166-1"="NO"]`, "国境ポリゴンのareaフィルタを含むこと")
	assert.Contains(t, q, "(area.norge)")
	assert.Contains(t, q, fmt.Sprintf("out center %d;", resultLimit))
	assert.Contains(t, q, "59.90", "bboxの南端を含むこと")
}

func TestViewpointsIssuesHuntingStandSubQuery(t *testing.T) {
	f := &fakeFetcher{responses: [][]byte{emptyResponse()}}
	a := &OverpassAdapter{client: f, baseURL: "http://overpass.test"}

	_, err := a.FetchCategory(context.Background(), testViewport, "viewpoints")
	require.NoError(t, err)

	require.Len(t, f.queries, 2, "展望台カテゴリは2つのサブクエリを発行すること")
	assert.Contains(t, f.queries[0], "viewpoint")
	assert.Contains(t, f.queries[1], "hunting_stand")
}

func TestFetchCategoryParsesElements(t *testing.T) {
	resp := []byte(`{"elements":[
		{"type":"node","id":123,"lat":59.91,"lon":10.75,"tags":{"historic":"memorial","name":"Minnesmerke"}},
		{"type":"way","id":456,"center":{"lat":59.915,"lon":10.755},"tags":{"historic":"memorial"}}
	]}`)
	f := &fakeFetcher{responses: [][]byte{resp}}
	a := &OverpassAdapter{client: f, baseURL: "http://overpass.test"}

	result, err := a.FetchCategory(context.Background(), testViewport, "war_memorials")
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, model.SourceOverpass, first.Source)
	require.NotNil(t, first.OSM)
	assert.Equal(t, int64(123), first.OSM.ID)
	assert.Equal(t, "Minnesmerke", first.OSM.Tag("name"))

	// way要素は重心を持つ
	second := result.Records[1]
	ll, ok := second.OSM.Coordinate()
	require.True(t, ok)
	assert.InDelta(t, 59.915, ll.Lat, 1e-9)
}

func TestFetchCategoryUnknownCategory(t *testing.T) {
	a := &OverpassAdapter{client: &fakeFetcher{}, baseURL: "http://overpass.test"}
	_, err := a.FetchCategory(context.Background(), testViewport, "bus_stops")
	assert.Error(t, err, "交通系カテゴリはOverpassアダプターの担当外であること")
}

func TestFetchCategoryMalformedJSON(t *testing.T) {
	f := &fakeFetcher{responses: [][]byte{[]byte(`<html>not json</html>`)}}
	a := &OverpassAdapter{client: f, baseURL: "http://overpass.test"}

	_, err := a.FetchCategory(context.Background(), testViewport, "drinking_water")
	assert.ErrorIs(t, err, model.ErrParseError)
}

func TestFetchCategoryPropagatesSourceUnavailable(t *testing.T) {
	f := &fakeFetcher{err: fmt.Errorf("%w: timeout", model.ErrSourceUnavailable)}
	a := &OverpassAdapter{client: f, baseURL: "http://overpass.test"}

	_, err := a.FetchCategory(context.Background(), testViewport, "war_memorials")
	assert.ErrorIs(t, err, model.ErrSourceUnavailable)
}

func TestQueryLimitIsPerCall(t *testing.T) {
	// 各サブクエリが独立して100件上限を持つこと（クエリ文字列に明記）
	f := &fakeFetcher{responses: [][]byte{emptyResponse()}}
	a := &OverpassAdapter{client: f, baseURL: "http://overpass.test"}

	_, err := a.FetchCategory(context.Background(), testViewport, "viewpoints")
	require.NoError(t, err)
	for _, q := range f.queries {
		assert.True(t, strings.Contains(q, "out+center+100") || strings.Contains(q, "out center 100"),
			"各呼び出しに100件上限が付くこと: %s", q)
	}
}
