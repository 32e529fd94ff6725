package web

import (
	"net/http"

	"github.com/JonMunkholm/clueboard/internal/board"
)

// handleListClues returns every clue.
func (s *Server) handleListClues(w http.ResponseWriter, r *http.Request) {
	clues, err := s.board.ListClues(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clues)
}

// handleCreateClue creates a clue and returns {id, clue_id}.
func (s *Server) handleCreateClue(w http.ResponseWriter, r *http.Request) {
	var in board.ClueInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.board.CreateClue(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// handleUpdateClue applies a partial update.
func (s *Server) handleUpdateClue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var patch board.CluePatch
	if err := decodeJSON(r, &patch); err != nil {
		s.respondError(w, r, err)
		return
	}

	if _, err := s.board.UpdateClue(r.Context(), id, patch); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "clue updated"})
}

// handleDeleteClue deletes a clue and its connections.
func (s *Server) handleDeleteClue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	removed, err := s.board.DeleteClue(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message            string `json:"message"`
		ConnectionsRemoved int64  `json:"connections_removed"`
	}{"clue deleted", removed})
}

// handleListConnections returns every connection.
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.board.ListConnections(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

// handleCreateConnection links two clues and returns {id}.
func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var in board.ConnectionInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	source, target, err := in.IDs()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	conn, err := s.board.CreateConnection(r.Context(), source, target, in.Comment)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		ID int64 `json:"id"`
	}{conn.ID})
}

// handleUpdateConnection changes a connection's comment.
func (s *Server) handleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var patch board.ConnectionPatch
	if err := decodeJSON(r, &patch); err != nil {
		s.respondError(w, r, err)
		return
	}

	if _, err := s.board.UpdateConnection(r.Context(), id, patch); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "connection updated"})
}

// handleDeleteConnection removes one connection.
func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.board.DeleteConnection(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message{Message: "connection deleted"})
}
