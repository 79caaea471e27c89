package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ClientMeta is a client entry of the catalog file. IDs are kept as text:
// older entries used wall-clock timestamps that do not fit an INT column.
type ClientMeta struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Logo    string `json:"logo,omitempty"`
	Website string `json:"website,omitempty"`
}

func (c *ClientMeta) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID      json.RawMessage `json:"id"`
		Name    string          `json:"name"`
		Logo    string          `json:"logo"`
		Website string          `json:"website"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	id := string(bytes.TrimSpace(raw.ID))
	if strings.HasPrefix(id, `"`) {
		if err := json.Unmarshal(raw.ID, &id); err != nil {
			return err
		}
	}
	if id == "null" {
		id = ""
	}
	*c = ClientMeta{ID: strings.TrimSpace(id), Name: raw.Name, Logo: raw.Logo, Website: raw.Website}
	return nil
}

// Clients returns the catalog entries of userID in file order. A missing
// catalog or user yields no entries.
func (s *Store) Clients(ctx context.Context, userID int64) ([]ClientMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, err := readNode(s.catalog)
	if err != nil {
		return nil, err
	}
	return decodeClients(cat, userID), nil
}

func decodeClients(cat node, userID int64) []ClientMeta {
	raw, ok := cat[idKey(userID)]
	if !ok {
		return nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	out := make([]ClientMeta, 0, len(entries))
	for _, e := range entries {
		var c ClientMeta
		if err := json.Unmarshal(e, &c); err != nil || c.ID == "" {
			continue
		}
		out = append(out, c)
	}
	return out
}

// PutClient adds c to the catalog of userID or replaces the entry with
// the same id.
func (s *Store) PutClient(ctx context.Context, userID int64, c ClientMeta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.ID == "" {
		return fmt.Errorf("put client: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cat, err := readNode(s.catalog)
	if err != nil {
		return err
	}

	clients := decodeClients(cat, userID)
	replaced := false
	for i := range clients {
		if clients[i].ID == c.ID {
			clients[i] = c
			replaced = true
		}
	}
	if !replaced {
		clients = append(clients, c)
	}
	b, err := json.Marshal(clients)
	if err != nil {
		return err
	}
	cat[idKey(userID)] = b

	out, err := json.MarshalIndent(cat, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(s.catalog, out)
}

// Client looks up a catalog entry by id.
func (s *Store) Client(ctx context.Context, userID int64, id string) (ClientMeta, bool, error) {
	clients, err := s.Clients(ctx, userID)
	if err != nil {
		return ClientMeta{}, false, err
	}
	for _, c := range clients {
		if c.ID == id {
			return c, true, nil
		}
	}
	return ClientMeta{}, false, nil
}
