package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
)

// MaxRowID is the largest id the INT id columns can hold.
const MaxRowID = math.MaxInt32

// FitsRowID reports whether id can be stored in an INT id column.
func FitsRowID(id int64) bool {
	return id >= 1 && id <= MaxRowID
}

// EnsureUser returns the user with id, creating a placeholder identity
// when it does not exist.
func (s *Store) EnsureUser(ctx context.Context, id int64) (*User, bool, error) {
	u := &User{}
	err := s.queryRow(ctx, `SELECT id, email FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Email)
	if err == nil {
		return u, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("get user %d: %w", id, err)
	}

	u = &User{ID: id, Email: fmt.Sprintf("user%d@worklog.local", id)}
	if _, err := s.exec(ctx, `INSERT INTO users (id, email, password_hash) VALUES (?, ?, '')`, u.ID, u.Email); err != nil {
		if s.dialect.duplicateKey(err) {
			return s.userByID(ctx, id)
		}
		return nil, false, fmt.Errorf("create user %d: %w", id, err)
	}
	s.syncSequence(ctx, "users")
	return u, true, nil
}

func (s *Store) userByID(ctx context.Context, id int64) (*User, bool, error) {
	u := &User{}
	if err := s.queryRow(ctx, `SELECT id, email FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Email); err != nil {
		return nil, false, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, false, nil
}

func (s *Store) clientColumns() string {
	cols := "id, user_id, name, logo"
	if s.caps.Has("clients", "website") {
		cols += ", website"
	}
	return cols
}

func (s *Store) scanClient(sc interface{ Scan(...any) error }) (*Client, error) {
	c := &Client{}
	var logo, website sql.NullString
	dest := []any{&c.ID, &c.UserID, &c.Name, &logo}
	if s.caps.Has("clients", "website") {
		dest = append(dest, &website)
	}
	if err := sc.Scan(dest...); err != nil {
		return nil, err
	}
	c.Logo = logo.String
	c.Website = website.String
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, userID, id int64) (*Client, error) {
	row := s.queryRow(ctx, `SELECT `+s.clientColumns()+` FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	c, err := s.scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get client %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get client %d: %w", id, err)
	}
	return c, nil
}

func (s *Store) ListClients(ctx context.Context, userID int64) ([]Client, error) {
	rows, err := s.query(ctx, `SELECT `+s.clientColumns()+` FROM clients WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		c, err := s.scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

// FindClientByName looks for a client of the user whose name equals name
// (case-insensitive), then for one whose name contains name or is
// contained in it.
func (s *Store) FindClientByName(ctx context.Context, userID int64, name string) (*Client, error) {
	return s.findClient(ctx, userID, name, true)
}

// ClientNamed is FindClientByName without the substring fallback.
func (s *Store) ClientNamed(ctx context.Context, userID int64, name string) (*Client, error) {
	return s.findClient(ctx, userID, name, false)
}

func (s *Store) findClient(ctx context.Context, userID int64, name string, substring bool) (*Client, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return nil, fmt.Errorf("find client %q: %w", name, ErrNotFound)
	}
	clients, err := s.ListClients(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if strings.ToLower(strings.TrimSpace(clients[i].Name)) == want {
			return &clients[i], nil
		}
	}
	if substring {
		for i := range clients {
			have := strings.ToLower(strings.TrimSpace(clients[i].Name))
			if have == "" {
				continue
			}
			if strings.Contains(have, want) || strings.Contains(want, have) {
				return &clients[i], nil
			}
		}
	}
	return nil, fmt.Errorf("find client %q: %w", name, ErrNotFound)
}

// CreateClient inserts c. A non-zero c.ID is used as the row id.
func (s *Store) CreateClient(ctx context.Context, c Client) (*Client, error) {
	cols := []string{"user_id", "name", "logo"}
	args := []any{c.UserID, c.Name, nullString(c.Logo)}
	if s.caps.Has("clients", "website") {
		cols = append(cols, "website")
		args = append(args, nullString(c.Website))
	}
	if c.ID != 0 {
		cols = append([]string{"id"}, cols...)
		args = append([]any{c.ID}, args...)
	}
	q := fmt.Sprintf(`INSERT INTO clients (%s) VALUES (%s)`, strings.Join(cols, ", "), placeholders(len(cols)))

	if c.ID != 0 {
		if _, err := s.exec(ctx, q, args...); err != nil {
			return nil, fmt.Errorf("insert client: %w", err)
		}
		s.syncSequence(ctx, "clients")
	} else {
		id, err := s.insert(ctx, q, args...)
		if err != nil {
			return nil, fmt.Errorf("insert client: %w", err)
		}
		c.ID = id
	}
	return s.GetClient(ctx, c.UserID, c.ID)
}

func (s *Store) UpdateClient(ctx context.Context, c Client) error {
	q := `UPDATE clients SET name = ?, logo = ?`
	args := []any{c.Name, nullString(c.Logo)}
	if s.caps.Has("clients", "website") {
		q += `, website = ?`
		args = append(args, nullString(c.Website))
	}
	q += ` WHERE id = ? AND user_id = ?`
	args = append(args, c.ID, c.UserID)
	_, err := s.exec(ctx, q, args...)
	return err
}

// DeleteClient removes a client; its work days and tasks go with it.
func (s *Store) DeleteClient(ctx context.Context, userID, id int64) error {
	_, err := s.exec(ctx, `DELETE FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// PlaceholderName is the name given to a client created only to satisfy a
// foreign key. Real metadata replaces it later.
func PlaceholderName(id int64) string {
	return fmt.Sprintf("Client %d", id)
}

// IsPlaceholderName reports whether name looks like PlaceholderName output.
func IsPlaceholderName(name string) bool {
	rest, ok := strings.CutPrefix(strings.TrimSpace(name), "Client ")
	if !ok || rest == "" {
		return false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
