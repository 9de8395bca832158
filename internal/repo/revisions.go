package repo

import (
	"context"
	"database/sql"

	"specline/internal/domain"
)

const revisionColumns = `document_id,version,title,body,stage,edited_by,created_at`

// InsertRevisionTx appends a snapshot. The (document_id, version) primary key
// makes double-snapshotting the same version a hard failure.
func (r Repo) InsertRevisionTx(ctx context.Context, tx *sql.Tx, rev domain.Revision) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO revisions(`+revisionColumns+`) VALUES (?,?,?,?,?,?,?)`,
		rev.DocumentID, rev.Version, rev.Title, rev.Body, rev.Stage, rev.EditedBy, rev.CreatedAt)
	return err
}

func scanRevision(row interface{ Scan(...any) error }) (domain.Revision, error) {
	var rev domain.Revision
	err := row.Scan(&rev.DocumentID, &rev.Version, &rev.Title, &rev.Body, &rev.Stage, &rev.EditedBy, &rev.CreatedAt)
	if err == sql.ErrNoRows {
		return rev, ErrNotFound
	}
	return rev, err
}

func (r Repo) GetRevision(ctx context.Context, documentID string, version int) (domain.Revision, error) {
	return scanRevision(r.DB.QueryRowContext(ctx, `SELECT `+revisionColumns+` FROM revisions WHERE document_id=? AND version=?`, documentID, version))
}

// ListRevisions returns all snapshots for a document, newest version first.
func (r Repo) ListRevisions(ctx context.Context, documentID string) ([]domain.Revision, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+revisionColumns+` FROM revisions WHERE document_id=? ORDER BY version DESC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Revision
	for rows.Next() {
		var rev domain.Revision
		if err := rows.Scan(&rev.DocumentID, &rev.Version, &rev.Title, &rev.Body, &rev.Stage, &rev.EditedBy, &rev.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, rev)
	}
	return res, rows.Err()
}

func (r Repo) LatestRevision(ctx context.Context, documentID string) (domain.Revision, error) {
	return scanRevision(r.DB.QueryRowContext(ctx, `SELECT `+revisionColumns+` FROM revisions WHERE document_id=? ORDER BY version DESC LIMIT 1`, documentID))
}

func (r Repo) CountRevisions(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM revisions WHERE document_id=?`, documentID).Scan(&n)
	return n, err
}
