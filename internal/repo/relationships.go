package repo

import (
	"context"
	"database/sql"

	"specline/internal/domain"
)

func (r Repo) InsertLinkTx(ctx context.Context, tx *sql.Tx, edge domain.RelationshipEdge) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO relationships(parent_id,child_id,created_by,created_at) VALUES (?,?,?,?)`,
		edge.ParentID, edge.ChildID, edge.CreatedBy, edge.CreatedAt)
	return err
}

// DeleteLinkTx removes an edge, reporting whether one existed.
func (r Repo) DeleteLinkTx(ctx context.Context, tx *sql.Tx, parentID, childID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE parent_id=? AND child_id=?`, parentID, childID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r Repo) HasLink(ctx context.Context, parentID, childID string) (bool, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT 1 FROM relationships WHERE parent_id=? AND child_id=? LIMIT 1`, parentID, childID)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Parents returns the one-hop parents of a document. Together with Children
// this implements relation.Edges.
func (r Repo) Parents(ctx context.Context, id string) ([]string, error) {
	return r.idColumn(ctx, `SELECT parent_id FROM relationships WHERE child_id=? ORDER BY created_at ASC, parent_id ASC`, id)
}

// Children returns the one-hop children of a document.
func (r Repo) Children(ctx context.Context, id string) ([]string, error) {
	return r.idColumn(ctx, `SELECT child_id FROM relationships WHERE parent_id=? ORDER BY created_at ASC, child_id ASC`, id)
}

func (r Repo) idColumn(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListLinks returns every edge touching a document, parents and children.
func (r Repo) ListLinks(ctx context.Context, id string) ([]domain.RelationshipEdge, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT parent_id,child_id,created_by,created_at FROM relationships WHERE parent_id=? OR child_id=? ORDER BY created_at ASC`, id, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RelationshipEdge
	for rows.Next() {
		var e domain.RelationshipEdge
		if err := rows.Scan(&e.ParentID, &e.ChildID, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
