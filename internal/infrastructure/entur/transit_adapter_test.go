package entur

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Kartlag-App/internal/domain/model"
)

type fakeTransitFetcher struct {
	response []byte
	calls    int
	lastURL  string
}

func (f *fakeTransitFetcher) Fetch(ctx context.Context, upstream string, buildReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	f.calls++
	req, err := buildReq(ctx)
	if err != nil {
		return nil, err
	}
	f.lastURL = req.URL.String()
	return f.response, nil
}

func viewportAtZoom(zoom float64) model.ViewportWindow {
	return model.ViewportWindow{North: 59.92, South: 59.90, East: 10.76, West: 10.74, Zoom: zoom}
}

const sampleStops = `{"stopPlaces":[
	{"id":"NSR:StopPlace:4000","name":"Jernbanetorget","latitude":59.9115,"longitude":10.7500,"stopType":"onstreetBus"},
	{"id":"NSR:StopPlace:4001","name":"Stortinget","latitude":59.9133,"longitude":10.7419,"stopType":"onstreetBus"}
]}`

func TestBusStopsBelowMinZoomReturnsEmptyWithoutCall(t *testing.T) {
	f := &fakeTransitFetcher{response: []byte(sampleStops)}
	a := &TransitAdapter{client: f, baseURL: "http://transit.test"}

	result, err := a.FetchCategory(context.Background(), viewportAtZoom(8), "bus_stops")
	require.NoError(t, err)
	assert.Empty(t, result.Records, "ズーム8ではバス停は空であること")
	assert.True(t, result.Skipped, "ゲートによる省略はキャッシュ対象外と印付けされること")
	assert.Zero(t, f.calls, "閾値未満では上流を呼び出さないこと")
}

func TestBusStopsAtMinZoomFetches(t *testing.T) {
	f := &fakeTransitFetcher{response: []byte(sampleStops)}
	a := &TransitAdapter{client: f, baseURL: "http://transit.test"}

	result, err := a.FetchCategory(context.Background(), viewportAtZoom(10), "bus_stops")
	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, 1, f.calls)

	stop := result.Records[0].Stop
	require.NotNil(t, stop)
	assert.Equal(t, "NSR:StopPlace:4000", stop.ID)
	assert.Equal(t, "Jernbanetorget", stop.Name)
	assert.InDelta(t, 59.9115, stop.Lat, 1e-9)
}

func TestRailStationsGateIsLower(t *testing.T) {
	f := &fakeTransitFetcher{response: []byte(`{"stopPlaces":[]}`)}
	a := &TransitAdapter{client: f, baseURL: "http://transit.test"}

	// 鉄道はズーム8で取得される（バスの閾値10より低い）
	_, err := a.FetchCategory(context.Background(), viewportAtZoom(8), "rail_stations")
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
	assert.Contains(t, f.lastURL, "railStation")

	// ズーム7では呼ばれない
	f.calls = 0
	result, err := a.FetchCategory(context.Background(), viewportAtZoom(7), "rail_stations")
	require.NoError(t, err)
	assert.Zero(t, f.calls)
	assert.Empty(t, result.Records)
}

func TestTransitURLContainsBBox(t *testing.T) {
	f := &fakeTransitFetcher{response: []byte(`{"stopPlaces":[]}`)}
	a := &TransitAdapter{client: f, baseURL: "http://transit.test"}

	_, err := a.FetchCategory(context.Background(), viewportAtZoom(12), "bus_stops")
	require.NoError(t, err)
	assert.Contains(t, f.lastURL, "boundingBox.minLat")
	assert.Contains(t, f.lastURL, "stopPlaceType=onstreetBus")
}

func TestTransitMalformedJSON(t *testing.T) {
	f := &fakeTransitFetcher{response: []byte(`<xml/>`)}
	a := &TransitAdapter{client: f, baseURL: "http://transit.test"}

	_, err := a.FetchCategory(context.Background(), viewportAtZoom(12), "bus_stops")
	assert.ErrorIs(t, err, model.ErrParseError)
}

func TestTransitUnknownCategory(t *testing.T) {
	a := &TransitAdapter{client: &fakeTransitFetcher{}, baseURL: "http://transit.test"}
	_, err := a.FetchCategory(context.Background(), viewportAtZoom(12), "viewpoints")
	assert.Error(t, err)
}
