package board

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/clueboard/internal/apperr"
	"github.com/JonMunkholm/clueboard/internal/logging"
	"github.com/JonMunkholm/clueboard/internal/metrics"
	"github.com/JonMunkholm/clueboard/internal/sanitize"
	"github.com/JonMunkholm/clueboard/internal/store"
)

// Document is the transportable form of a whole board. Connection endpoints
// refer to the clue ids inside the same document.
type Document struct {
	Clues       []Clue             `json:"clues"`
	Connections []ConnectionRecord `json:"connections"`
}

// ConnectionRecord is a connection as it appears in a Document.
type ConnectionRecord struct {
	SourceID int64   `json:"source_id"`
	TargetID int64   `json:"target_id"`
	Comment  *string `json:"comment"`
}

// ImportResult counts what an import did with each entry.
type ImportResult struct {
	CluesImported       int `json:"clues_imported"`
	CluesSkipped        int `json:"clues_skipped"`
	ConnectionsImported int `json:"connections_imported"`
	ConnectionsSkipped  int `json:"connections_skipped"`
}

// Export reads the board in one transaction so clues and connections agree.
func (s *Service) Export(ctx context.Context) (Document, error) {
	doc := Document{
		Clues:       []Clue{},
		Connections: []ConnectionRecord{},
	}
	err := s.store.InTx(ctx, func(q Queries) error {
		clues, err := q.ListClues(ctx)
		if err != nil {
			return fmt.Errorf("list clues: %w", err)
		}
		conns, err := q.ListConnections(ctx)
		if err != nil {
			return fmt.Errorf("list connections: %w", err)
		}

		doc.Clues = append(doc.Clues, clues...)
		for _, c := range conns {
			doc.Connections = append(doc.Connections, ConnectionRecord{
				SourceID: c.SourceID,
				TargetID: c.TargetID,
				Comment:  c.Comment,
			})
		}
		return nil
	})
	if err != nil {
		return Document{}, internal(err)
	}
	return doc, nil
}

// WriteDocument encodes doc with two-space indentation, leaving HTML and
// non-ASCII characters unescaped.
func WriteDocument(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import replaces the whole board with the contents of data.
//
// The document shape is checked before anything is touched. Inside the
// transaction every connection and clue is deleted, clues are inserted under
// new ids while the old ids are mapped to them, and connections are recreated
// through that map. Entries that cannot be used are skipped and counted. A
// clue with an unreadable timestamp aborts the whole import as an internal
// error. Any returned error means the previous board is intact.
func (s *Service) Import(ctx context.Context, data []byte) (ImportResult, error) {
	clues, conns, err := parseDocument(data)
	if err != nil {
		s.metrics.ImportFinished(metrics.ImportRejected)
		return ImportResult{}, err
	}

	var res ImportResult
	err = s.store.InTx(ctx, func(q Queries) error {
		res = ImportResult{}

		if _, err := q.DeleteAllConnections(ctx); err != nil {
			return fmt.Errorf("delete connections: %w", err)
		}
		if _, err := q.DeleteAllClues(ctx); err != nil {
			return fmt.Errorf("delete clues: %w", err)
		}

		ids := make(map[string]int64, len(clues))
		usedClueIDs := make(map[string]bool, len(clues))
		for _, entry := range clues {
			nc, oldID, ok, err := s.importClue(entry, usedClueIDs)
			if err != nil {
				return err
			}
			if !ok {
				res.CluesSkipped++
				continue
			}

			c, err := q.InsertClue(ctx, nc)
			if err != nil {
				return fmt.Errorf("insert clue %q: %w", nc.Title, err)
			}
			usedClueIDs[c.ClueID] = true
			if oldID != "" {
				ids[oldID] = c.ID
			}
			res.CluesImported++
		}

		seen := make(map[[2]int64]bool, len(conns))
		for _, entry := range conns {
			nc, ok := importConnection(entry, ids)
			if !ok || seen[[2]int64{nc.SourceID, nc.TargetID}] {
				res.ConnectionsSkipped++
				continue
			}

			if _, err := q.InsertConnection(ctx, nc); err != nil {
				if errors.Is(err, store.ErrDuplicate) {
					res.ConnectionsSkipped++
					continue
				}
				return fmt.Errorf("insert connection %d->%d: %w", nc.SourceID, nc.TargetID, err)
			}
			seen[[2]int64{nc.SourceID, nc.TargetID}] = true
			res.ConnectionsImported++
		}
		return nil
	})
	if err != nil {
		s.metrics.ImportFinished(metrics.ImportFailed)
		logging.FromContext(ctx).Error("import rolled back", "error", err)
		return ImportResult{}, internal(err)
	}

	s.metrics.ImportFinished(metrics.ImportOK)
	s.metrics.ClueCreated(res.CluesImported)
	s.metrics.ConnectionCreated(res.ConnectionsImported)
	logging.FromContext(ctx).Info("board imported",
		"clues_imported", res.CluesImported,
		"clues_skipped", res.CluesSkipped,
		"connections_imported", res.ConnectionsImported,
		"connections_skipped", res.ConnectionsSkipped,
	)
	return res, nil
}

// utf8BOM is prepended by some Windows editors.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseDocument checks that data is a JSON object holding a clues array and a
// connections array. Numbers are kept as json.Number so ids survive as
// written.
func parseDocument(data []byte) (clues, conns []any, err error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var top any
	if err := dec.Decode(&top); err != nil {
		return nil, nil, apperr.MalformedJSON(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, apperr.MalformedJSON(errors.New("unexpected data after top-level value"))
	}

	obj, ok := top.(map[string]any)
	if !ok {
		return nil, nil, apperr.InvalidFormat("invalid format")
	}
	clues, ok = obj["clues"].([]any)
	if !ok {
		return nil, nil, apperr.InvalidFormat("invalid format")
	}
	conns, ok = obj["connections"].([]any)
	if !ok {
		return nil, nil, apperr.InvalidFormat("invalid format")
	}
	return clues, conns, nil
}

// importClue builds the row for one clue entry. ok is false when the entry
// is skipped. oldID is the compact JSON text of the entry's id, or "" when it
// has none.
func (s *Service) importClue(entry any, used map[string]bool) (nc NewClue, oldID string, ok bool, err error) {
	m, isObj := entry.(map[string]any)
	if !isObj {
		return NewClue{}, "", false, nil
	}
	raw, _ := m["title"].(string)
	title := sanitize.String(raw)
	if title == "" {
		return NewClue{}, "", false, nil
	}

	nc = NewClue{
		Title:   title,
		Content: sanitize.Text(stringField(m, "content")),
		Image:   sanitize.Text(stringField(m, "image")),
		PosX:    numberField(m, "pos_x"),
		PosY:    numberField(m, "pos_y"),
	}

	switch v := m["timestamp"].(type) {
	case nil:
		ts := s.timestamp()
		nc.Timestamp = &ts
	case string:
		if v == "" {
			ts := s.timestamp()
			nc.Timestamp = &ts
			break
		}
		ts, perr := ParseTimestamp(v)
		if perr != nil {
			return NewClue{}, "", false, fmt.Errorf("clue %q: %w", title, perr)
		}
		nc.Timestamp = &ts
	default:
		return NewClue{}, "", false, fmt.Errorf("clue %q: timestamp must be a string, got %T", title, v)
	}

	if cid, _ := m["clue_id"].(string); cid != "" && !used[cid] {
		nc.ClueID = cid
	} else {
		nc.ClueID = s.newID()
	}

	if id, present := m["id"]; present && id != nil {
		oldID = idKey(id)
	}
	return nc, oldID, true, nil
}

func importConnection(entry any, ids map[string]int64) (NewConnection, bool) {
	m, ok := entry.(map[string]any)
	if !ok {
		return NewConnection{}, false
	}
	src, srcOK := m["source_id"]
	dst, dstOK := m["target_id"]
	if !srcOK || !dstOK || src == nil || dst == nil {
		return NewConnection{}, false
	}

	source, ok := ids[idKey(src)]
	if !ok {
		return NewConnection{}, false
	}
	target, ok := ids[idKey(dst)]
	if !ok {
		return NewConnection{}, false
	}
	return NewConnection{
		SourceID: source,
		TargetID: target,
		Comment:  sanitize.Text(stringField(m, "comment")),
	}, true
}

// idKey renders a decoded JSON value back to compact JSON text. json.Number
// re-encodes as its original literal, so 1 and "1" stay distinct.
func idKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func stringField(m map[string]any, key string) *string {
	s, ok := m[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func numberField(m map[string]any, key string) float64 {
	n, ok := m[key].(json.Number)
	if !ok {
		return 0
	}
	f, err := n.Float64()
	if err != nil {
		return 0
	}
	return f
}
