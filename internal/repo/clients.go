package repo

import (
	"context"
	"strconv"

	"github.com/sadopc/worklog/internal/store"
)

// ClientInfo describes a client for navigation.
type ClientInfo struct {
	ID      int64
	Name    string
	Logo    string
	Website string
}

// Clients lists the clients of userID: the database's clients when it
// answers, otherwise the catalog file plus any client key that only
// appears in the data file.
func (r *Repository) Clients(ctx context.Context, userID int64) ([]ClientInfo, error) {
	if r.cfg.Relational() {
		rows, err := r.databaseClients(ctx, userID)
		if err != nil {
			r.log.Printf("list clients from database: %v", err)
		} else if len(rows) > 0 {
			return rows, nil
		}
	}

	meta, err := r.files.Clients(ctx, userID)
	if err != nil {
		return nil, err
	}
	keys, err := r.files.ClientKeys(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{}
	var out []ClientInfo
	for _, m := range meta {
		id, err := strconv.ParseInt(m.ID, 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, ClientInfo{ID: id, Name: m.Name, Logo: m.Logo, Website: m.Website})
	}
	for _, k := range keys {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, ClientInfo{ID: id, Name: store.PlaceholderName(id)})
	}
	return out, nil
}

func (r *Repository) databaseClients(ctx context.Context, userID int64) ([]ClientInfo, error) {
	db, err := r.Store(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.ListClients(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ClientInfo, 0, len(rows))
	for _, c := range rows {
		out = append(out, ClientInfo{ID: c.ID, Name: c.Name, Logo: c.Logo, Website: c.Website})
	}
	return out, nil
}
