package board_test

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/board"
	"github.com/JonMunkholm/clueboard/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportJSON(t *testing.T, svc *board.Service) []byte {
	t.Helper()
	doc, err := svc.Export(context.Background())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, board.WriteDocument(&buf, doc))
	return buf.Bytes()
}

// edges returns the connection topology keyed by clue titles.
func edges(t *testing.T, svc *board.Service) []string {
	t.Helper()
	ctx := context.Background()
	clues, err := svc.ListClues(ctx)
	require.NoError(t, err)
	conns, err := svc.ListConnections(ctx)
	require.NoError(t, err)

	titles := make(map[int64]string, len(clues))
	for _, c := range clues {
		titles[c.ID] = c.Title
	}
	out := make([]string, 0, len(conns))
	for _, c := range conns {
		out = append(out, titles[c.SourceID]+"->"+titles[c.TargetID])
	}
	sort.Strings(out)
	return out
}

func TestExport_Document(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, err := svc.CreateClue(ctx, board.ClueInput{
		Title:     "Café <b>noir</b>",
		Content:   ptr("Ünïcode & <i>html</i>"),
		PosX:      ptr(1.5),
		Timestamp: ptr("2024-01-02T03:04:05Z"),
	})
	require.NoError(t, err)
	b := createClue(t, svc, "B")
	_, err = svc.CreateConnection(ctx, a.ID, b.ID, ptr("why"))
	require.NoError(t, err)

	out := exportJSON(t, svc)
	assert.Contains(t, string(out), `"title": "Café <b>noir</b>"`, "HTML and non-ASCII stay unescaped")
	assert.Contains(t, string(out), "\n  \"clues\": [", "two-space indent")

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	require.Len(t, doc["clues"], 2)
	first := doc["clues"][0]
	assert.Equal(t, float64(a.ID), first["id"])
	assert.Equal(t, a.ClueID, first["clue_id"])
	assert.Equal(t, "2024-01-02T03:04:05Z", first["timestamp"])
	assert.Equal(t, 1.5, first["pos_x"])
	assert.Nil(t, first["image"])
	assert.Contains(t, first, "image")
	assert.Nil(t, doc["clues"][1]["timestamp"])

	require.Len(t, doc["connections"], 1)
	assert.Equal(t, map[string]any{
		"source_id": float64(a.ID),
		"target_id": float64(b.ID),
		"comment":   "why",
	}, doc["connections"][0])
}

func TestExport_EmptyBoard(t *testing.T) {
	svc := newService(t)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(exportJSON(t, svc), &doc))
	assert.Equal(t, []any{}, doc["clues"])
	assert.Equal(t, []any{}, doc["connections"])
}

func TestExportImport_RoundTrip(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	a, err := svc.CreateClue(ctx, board.ClueInput{
		Title:     "A",
		Content:   ptr("alpha"),
		PosX:      ptr(10.0),
		PosY:      ptr(20.0),
		Timestamp: ptr("2023-12-31T23:59:59.123456Z"),
	})
	require.NoError(t, err)
	b, err := svc.CreateClue(ctx, board.ClueInput{Title: "B", Image: ptr("/static/uploads/b.png"), Timestamp: ptr("2024-02-03")})
	require.NoError(t, err)
	c := createClue(t, svc, "C")
	connect(t, svc, a.ID, b.ID)
	connect(t, svc, b.ID, a.ID)
	connect(t, svc, c.ID, c.ID)

	before, err := svc.ListClues(ctx)
	require.NoError(t, err)
	topology := edges(t, svc)
	doc := exportJSON(t, svc)

	// Import into a board that already has unrelated rows.
	createClue(t, svc, "stale")
	res, err := svc.Import(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, board.ImportResult{CluesImported: 3, ConnectionsImported: 3}, res)

	after, err := svc.ListClues(ctx)
	require.NoError(t, err)
	require.Len(t, after, 3)
	for i := range before {
		assert.Equal(t, before[i].Title, after[i].Title)
		assert.Equal(t, before[i].Content, after[i].Content)
		assert.Equal(t, before[i].Image, after[i].Image)
		assert.Equal(t, before[i].PosX, after[i].PosX)
		assert.Equal(t, before[i].PosY, after[i].PosY)
		assert.Equal(t, before[i].ClueID, after[i].ClueID)
		require.NotNil(t, after[i].Timestamp)
		if before[i].Timestamp != nil {
			assert.True(t, before[i].Timestamp.Equal(*after[i].Timestamp))
		}
		assert.Greater(t, after[i].ID, before[len(before)-1].ID, "ids are fresh")
	}
	assert.Equal(t, topology, edges(t, svc))
}

func TestImport_ScenarioRemapsIDs(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	a := createClue(t, svc, "A")
	b := createClue(t, svc, "B")
	connect(t, svc, a.ID, b.ID)

	doc := exportJSON(t, svc)

	_, err := svc.DeleteClue(ctx, a.ID)
	require.NoError(t, err)
	_, err = svc.DeleteClue(ctx, b.ID)
	require.NoError(t, err)

	_, err = svc.Import(ctx, doc)
	require.NoError(t, err)

	clues, err := svc.ListClues(ctx)
	require.NoError(t, err)
	require.Len(t, clues, 2)
	conns, err := svc.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)

	assert.Equal(t, clues[0].ID, conns[0].SourceID)
	assert.Equal(t, clues[1].ID, conns[0].TargetID)
	assert.NotEqual(t, a.ID, conns[0].SourceID)
	assert.NotEqual(t, b.ID, conns[0].TargetID)
}

func TestImport_RejectsDocument(t *testing.T) {
	m := metrics.New()
	svc := newService(t, board.WithMetrics(m))
	ctx := context.Background()
	keep := createClue(t, svc, "Keep")

	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{"clues": [`, apperr.CodeMalformedJSON},
		{"trailing garbage", `{"clues":[],"connections":[]} x`, apperr.CodeMalformedJSON},
		{"clues not a list", `{"clues":"not-a-list","connections":[]}`, apperr.CodeInvalidFormat},
		{"missing connections", `{"clues":[]}`, apperr.CodeInvalidFormat},
		{"top level array", `[{"clues":[]}]`, apperr.CodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, []byte(tt.body))
			require.Error(t, err)
			assert.True(t, apperr.Is(err, tt.code), "got %v", err)

			clues, err := svc.ListClues(ctx)
			require.NoError(t, err)
			require.Len(t, clues, 1, "board untouched")
			assert.Equal(t, keep.ID, clues[0].ID)
		})
	}
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(m.Imports.WithLabelValues(metrics.ImportRejected)))
}

func TestImport_BadTimestampRollsBack(t *testing.T) {
	m := metrics.New()
	svc := newService(t, board.WithMetrics(m))
	ctx := context.Background()
	keep := createClue(t, svc, "Keep")
	other := createClue(t, svc, "Other")
	connect(t, svc, keep.ID, other.ID)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{
			"unparseable",
			`{"clues":[{"id":1,"title":"ok"},{"id":2,"title":"x","timestamp":"not a date"}],"connections":[]}`,
			`clue "x": invalid timestamp "not a date"`,
		},
		{
			"not a string",
			`{"clues":[{"id":1,"title":"x","timestamp":5}],"connections":[]}`,
			`clue "x": timestamp must be a string`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Import(ctx, []byte(tt.body))
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.CodeInternal), "got %v", err)
			assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

			e, ok := apperr.As(err)
			require.True(t, ok)
			assert.Contains(t, e.Message, tt.msg)

			assert.Equal(t, []string{"Keep->Other"}, edges(t, svc), "board untouched")
		})
	}
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(m.Imports.WithLabelValues(metrics.ImportFailed)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Imports.WithLabelValues(metrics.ImportRejected)))
}

func TestImport_SkipsUnusableEntries(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	doc := `{
	  "clues": [
	    {"id": 1, "title": "Valid", "content": 42, "pos_x": "left", "clue_id": "keep-me"},
	    {"id": 2, "title": ""},
	    {"id": 3, "title": "<script>only</script>"},
	    {"id": 4},
	    "not an object",
	    {"id": "5", "title": "String id", "clue_id": "keep-me"},
	    {"title": "No id"}
	  ],
	  "connections": [
	    {"source_id": 1, "target_id": 2},
	    {"source_id": 3, "target_id": 1},
	    {"source_id": 1, "target_id": "5", "comment": "<em>ok</em>"},
	    {"source_id": 1, "target_id": "5", "comment": "dup"},
	    {"source_id": 1, "target_id": 5},
	    {"source_id": 1},
	    {"source_id": null, "target_id": 1},
	    7,
	    {"source_id": "5", "target_id": 1}
	  ]
	}`

	res, err := svc.Import(ctx, []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, board.ImportResult{
		CluesImported:       3,
		CluesSkipped:        4,
		ConnectionsImported: 2,
		ConnectionsSkipped:  7,
	}, res)

	clues, err := svc.ListClues(ctx)
	require.NoError(t, err)
	require.Len(t, clues, 3)

	valid := clues[0]
	assert.Equal(t, "Valid", valid.Title)
	assert.Nil(t, valid.Content, "non-string content becomes NULL")
	assert.Equal(t, 0.0, valid.PosX)
	assert.Equal(t, "keep-me", valid.ClueID)
	require.NotNil(t, valid.Timestamp)
	assert.True(t, fixedNow.Equal(*valid.Timestamp), "missing timestamp defaults to now")

	assert.NotEqual(t, "keep-me", clues[1].ClueID, "clue_id already used in this import")
	assert.Len(t, clues[1].ClueID, 36)

	assert.Equal(t, []string{"String id->Valid", "Valid->String id"}, edges(t, svc))
}

func TestImport_ReplacesEverything(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	a := createClue(t, svc, "Old A")
	b := createClue(t, svc, "Old B")
	connect(t, svc, a.ID, b.ID)

	res, err := svc.Import(ctx, []byte(`{"clues":[],"connections":[]}`))
	require.NoError(t, err)
	assert.Equal(t, board.ImportResult{}, res)

	clues, err := svc.ListClues(ctx)
	require.NoError(t, err)
	assert.Empty(t, clues)
	conns, err := svc.ListConnections(ctx)
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestImport_SanitizesFields(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	dirty := "<script>alert(1)</script><b>ok</b>"

	doc, err := json.Marshal(map[string]any{
		"clues": []any{
			map[string]any{"id": 1, "title": dirty, "content": dirty, "image": dirty, "timestamp": "2024-03-04 05:06:07"},
		},
		"connections": []any{
			map[string]any{"source_id": 1, "target_id": 1, "comment": dirty},
		},
	})
	require.NoError(t, err)

	_, err = svc.Import(ctx, doc)
	require.NoError(t, err)

	clues, err := svc.ListClues(ctx)
	require.NoError(t, err)
	require.Len(t, clues, 1)
	assert.Equal(t, "<b>ok</b>", clues[0].Title)
	assert.Equal(t, "<b>ok</b>", *clues[0].Content)
	assert.Equal(t, "<b>ok</b>", *clues[0].Image)
	assert.Equal(t, "2024-03-04T05:06:07Z", board.FormatTimestamp(*clues[0].Timestamp))

	conns, err := svc.ListConnections(ctx)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "<b>ok</b>", *conns[0].Comment)
	assert.False(t, strings.Contains(string(exportJSON(t, svc)), "script"))
}

func TestImport_AcceptsByteOrderMark(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	data := append([]byte{0xEF, 0xBB, 0xBF}, `{"clues":[{"id":1,"title":"BOM"}],"connections":[]}`...)
	res, err := svc.Import(ctx, data)
	require.NoError(t, err)
	assert.Equal(t, 1, res.CluesImported)
}
