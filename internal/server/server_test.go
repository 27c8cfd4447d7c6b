package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapleads/internal/model"
	"mapleads/internal/scrape"
	"mapleads/internal/session"
)

type fakeScraper struct {
	results []model.BusinessRecord
	err     error
}

func (f *fakeScraper) Run(ctx context.Context, req model.SearchRequest) ([]model.BusinessRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return f.results, f.err
}

func testServer(t *testing.T, scraper *fakeScraper, run session.RunFunc) *httptest.Server {
	t.Helper()
	logger := log.New(io.Discard)
	if run == nil {
		run = func(ctx context.Context, req model.SearchRequest, onProgress scrape.Progress) ([]model.BusinessRecord, error) {
			return scraper.Run(ctx, req)
		}
	}
	sessions := session.NewManager(run, time.Minute, logger)
	ts := httptest.NewServer(New(scraper, sessions, logger).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp
}

const validBody = `{"category":"Dentist","region":"Mumbai","targets":["Bandra"]}`

func TestScrapeEndpoint(t *testing.T) {
	scraper := &fakeScraper{results: []model.BusinessRecord{{Title: "Smile Dental"}}}
	ts := testServer(t, scraper, nil)

	resp := postJSON(t, ts.URL+"/api/scrape", validBody)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Results []model.BusinessRecord `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Smile Dental", body.Results[0].Title)
}

func TestScrapeEndpointEmptyResultsIsSuccess(t *testing.T) {
	ts := testServer(t, &fakeScraper{}, nil)

	resp := postJSON(t, ts.URL+"/api/scrape", validBody)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Results []model.BusinessRecord `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}

func TestScrapeEndpointValidation(t *testing.T) {
	ts := testServer(t, &fakeScraper{}, nil)

	resp := postJSON(t, ts.URL+"/api/scrape", `{"category":"Dentist","region":"","targets":["Bandra"]}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScrapeEndpointInternalError(t *testing.T) {
	ts := testServer(t, &fakeScraper{err: errors.New("browser crashed")}, nil)

	resp := postJSON(t, ts.URL+"/api/scrape", validBody)
	defer resp.Body.Close()

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "browser crashed", body.Message)
}

func TestProgressStream(t *testing.T) {
	run := func(ctx context.Context, req model.SearchRequest, onProgress scrape.Progress) ([]model.BusinessRecord, error) {
		total := len(req.Targets)
		for i, target := range req.Targets {
			onProgress(i+1, total, target, i+1)
		}
		return []model.BusinessRecord{{Title: "Smile Dental"}}, nil
	}
	ts := testServer(t, &fakeScraper{}, run)

	resp := postJSON(t, ts.URL+"/api/scrape/init",
		`{"category":"Dentist","region":"Mumbai","targets":["Bandra","Juhu","Andheri"]}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var initBody struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&initBody))
	require.NotEmpty(t, initBody.SessionID)

	stream, err := http.Get(ts.URL + "/api/scrape/progress/" + initBody.SessionID)
	require.NoError(t, err)
	defer stream.Body.Close()
	require.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	var events []session.Event
	scanner := bufio.NewScanner(stream.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev session.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
		if ev.Complete {
			break
		}
	}

	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.True(t, final.Complete)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Results)
	assert.True(t, final.Results.Success)

	lastProgress := -1
	for _, ev := range events[:len(events)-1] {
		assert.GreaterOrEqual(t, ev.Progress, lastProgress)
		lastProgress = ev.Progress
	}
}

func TestProgressUnknownSession(t *testing.T) {
	ts := testServer(t, &fakeScraper{}, nil)

	resp, err := http.Get(ts.URL + "/api/scrape/progress/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCancelEndpoint(t *testing.T) {
	block := make(chan struct{})
	run := func(ctx context.Context, req model.SearchRequest, onProgress scrape.Progress) ([]model.BusinessRecord, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-block:
			return nil, nil
		}
	}
	ts := testServer(t, &fakeScraper{}, run)
	defer close(block)

	resp := postJSON(t, ts.URL+"/api/scrape/init", validBody)
	var initBody struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&initBody))
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/scrape/progress/"+initBody.SessionID, nil)
	require.NoError(t, err)
	cancelResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer cancelResp.Body.Close()

	assert.Equal(t, http.StatusAccepted, cancelResp.StatusCode)
}
