package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/commands"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/ledger"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/relations"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/storage"
	"github.com/xiaomizhoubaobei/astrbot-plugin-XMZ/internal/testutil"
)

// testEnv wires a bot over a temp data dir. An empty token means auth is disabled.
func testEnv(t *testing.T, authToken string) http.Handler {
	t.Helper()
	_, store := testutil.TestStore(t)
	clock := testutil.NewClock(time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := ledger.New(storage.NewDocument(store, "ledger.json"), ledger.WithClock(clock.Now), ledger.WithLogger(logger))
	reg := relations.New(storage.NewDocument(store, "relations.json"), relations.WithLogger(logger))
	bot := commands.NewBot(logger, engine, reg, 10)

	return NewRouter(NewHandler(bot, engine, reg), authToken != "", authToken, nil)
}

func postCommand(t *testing.T, router http.Handler, req CommandRequest) (int, CommandResponse) {
	t.Helper()
	body, _ := json.Marshal(req)
	r := httptest.NewRequest(http.MethodPost, "/commands", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	var resp CommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body %s", w.Body.String())
	return w.Code, resp
}

func get(router http.Handler, target, bearer string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func postSlack(router http.Handler, form url.Values) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/slack/commands", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestCommand_AddAndList(t *testing.T) {
	router := testEnv(t, "")

	code, resp := postCommand(t, router, CommandRequest{Text: "/add_relation Jade 123 Alice Bob", GroupID: "g1"})
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, resp.Error)

	_, resp = postCommand(t, router, CommandRequest{Text: "/list_relations", GroupID: "g1"})
	assert.Contains(t, resp.Text, "1. Jade(123)")
}

func TestCommand_RejectionCarriesCode(t *testing.T) {
	router := testEnv(t, "")

	code, resp := postCommand(t, router, CommandRequest{Text: "/add_relation Jade 123 Alice Bob"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "invalid_context", resp.Error)

	_, resp = postCommand(t, router, CommandRequest{Text: "/frobnicate"})
	assert.Equal(t, "not_found", resp.Error)
}

func TestCommand_ImageAttachmentBecomesScreenshot(t *testing.T) {
	router := testEnv(t, "")

	_, resp := postCommand(t, router, CommandRequest{
		Text:    "/add_relation Jade 123 Alice Bob",
		GroupID: "g1",
		Images:  []commands.ImageRef{{FileID: "pic-1"}},
	})
	assert.Equal(t, "pic-1", resp.Image)
}

func TestCommand_InvalidJSON(t *testing.T) {
	router := testEnv(t, "")
	r := httptest.NewRequest(http.MethodPost, "/commands", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSlackCommand(t *testing.T) {
	router := testEnv(t, "")

	send := func(channel, command, text string) SlackResponse {
		w := postSlack(router, url.Values{
			"channel_id": {channel},
			"user_id":    {"U1"},
			"command":    {command},
			"text":       {text},
		})
		require.Equal(t, http.StatusOK, w.Code, "body %s", w.Body.String())
		var resp SlackResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	resp := send("C42", "/add_relation", "Jade 123 Alice Bob")
	assert.Equal(t, "in_channel", resp.ResponseType)
	assert.Contains(t, resp.Text, "Jade(123)")

	resp = send("D42", "/add_relation", "Jade 123 Alice Bob")
	assert.Equal(t, "ephemeral", resp.ResponseType)
	assert.Contains(t, resp.Text, "group chats")
}

func TestTransactionsCSV(t *testing.T) {
	router := testEnv(t, "")
	postCommand(t, router, CommandRequest{Text: "/add_borrow 100 alice 0.01"})
	postCommand(t, router, CommandRequest{Text: "/repay 40 alice"})

	w := get(router, "/ledger/transactions.csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))

	var rows []TransactionRow
	require.NoError(t, gocsv.UnmarshalBytes(w.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "borrow", rows[0].Type)
	assert.Equal(t, "0.01", rows[0].DailyRate)
	assert.Equal(t, "2024-01-02 03:04:05", rows[0].Time)
	assert.Equal(t, "repay", rows[1].Type)
	assert.Equal(t, "40", rows[1].Amount)
	assert.Empty(t, rows[1].DailyRate)
}

func TestRelationsListing(t *testing.T) {
	router := testEnv(t, "")
	postCommand(t, router, CommandRequest{Text: "/add_relation a 1 x y", GroupID: "g1"})
	postCommand(t, router, CommandRequest{Text: "/add_relation b 2 x y https://s.example/b.png", GroupID: "g1"})

	var resp RelationListResponse
	require.NoError(t, json.Unmarshal(get(router, "/relations/g1", "").Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Relations, 2)
	assert.Equal(t, 2, resp.Relations[1].Index)
	assert.Equal(t, "https://s.example/b.png", resp.Relations[1].Screenshot)
	assert.NotEmpty(t, resp.Relations[0].ID)
	assert.NotEqual(t, resp.Relations[0].ID, resp.Relations[1].ID)

	resp = RelationListResponse{}
	require.NoError(t, json.Unmarshal(get(router, "/relations/none", "").Body.Bytes(), &resp))
	assert.Zero(t, resp.Total)
	assert.NotNil(t, resp.Relations)
}

func TestAuth_TokenMode(t *testing.T) {
	router := testEnv(t, "secret")

	assert.Equal(t, http.StatusUnauthorized, get(router, "/relations/g1", "").Code, "no token")
	assert.Equal(t, http.StatusUnauthorized, get(router, "/relations/g1", "wrong").Code, "wrong token")
	assert.Equal(t, http.StatusOK, get(router, "/relations/g1", "secret").Code, "valid token")
}

func TestAuth_SlackUsesFormToken(t *testing.T) {
	router := testEnv(t, "secret")

	send := func(token string) int {
		return postSlack(router, url.Values{"token": {token}, "channel_id": {"C1"}, "command": {"/help"}}).Code
	}
	assert.Equal(t, http.StatusUnauthorized, send("wrong"))
	assert.Equal(t, http.StatusOK, send("secret"))
}
