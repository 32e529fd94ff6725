// Package board provides the business logic for the clue board: clues,
// the connections between them, and whole-board export and import.
//
// The package is independent of transport. Web handlers, the boardctl CLI and
// tests drive the same [Service].
//
// # Referential integrity
//
// A [Connection] never references a missing [Clue]. Deleting a clue removes
// every connection that starts or ends at it in the same transaction, and
// creating a connection checks both endpoints and the ordered pair inside one
// transaction. The schema backs this with foreign keys and a unique
// (source_id, target_id) constraint.
//
// # Import and export
//
// [Service.Export] writes the board as a [Document] using store identifiers.
// [Service.Import] replaces the whole board: it validates the document shape,
// deletes every connection and clue, inserts clues under fresh identifiers
// while recording old-to-new ids, then recreates connections through that
// map. Rows that cannot be imported are skipped and counted in
// [ImportResult]; document-level problems and unexpected failures abort the
// transaction and leave the previous board untouched.
//
// # Text fields
//
// Every user-supplied text field passes through the sanitize package before
// it reaches storage. Optional fields follow one policy throughout:
//
//   - create and import: absent or null stores NULL, a string (even "")
//     stores the sanitized string.
//   - update: absent leaves the field unchanged, null clears it, a string
//     replaces it.
package board
