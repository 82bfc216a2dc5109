// Package sqlite provides a SQLite-backed GameStore.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/adventure-engine/internal/storage/sqlite/migrations"
	"github.com/jwebster45206/adventure-engine/internal/storage/sqlitemigrate"
	"github.com/jwebster45206/adventure-engine/pkg/storage"
	"github.com/jwebster45206/adventure-engine/pkg/world"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Store persists games in SQLite. Items live in one table with a sub-record
// per variant in item_unlocking_items or exit_unlocking_items.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.GameStore = (*Store)(nil)

// Open opens a SQLite game store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// isForeignKeyViolation reports whether err came from a dangling reference.
func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY
}

func mapWriteError(err error, format string, args ...any) error {
	if isForeignKeyViolation(err) {
		return fmt.Errorf(format+": %w", append(args, storage.ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func expectOneRow(res sql.Result, what string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) AddRoom(ctx context.Context, room world.Room) (world.Room, error) {
	room.ID = uuid.New()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO rooms (id, name, description, final_room) VALUES (?, ?, ?, ?)`,
		room.ID, room.Name, room.Description, room.Final,
	)
	if err != nil {
		return world.Room{}, fmt.Errorf("insert room %q: %w", room.Name, err)
	}
	return room, nil
}

func (s *Store) AddExit(ctx context.Context, exit world.Exit) (world.Exit, error) {
	exit.ID = uuid.New()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO exits (id, name, description, from_room, to_room, locked) VALUES (?, ?, ?, ?, ?, ?)`,
		exit.ID, exit.Name, exit.Description, exit.FromRoom, exit.ToRoom, exit.Locked,
	)
	if err != nil {
		return world.Exit{}, mapWriteError(err, "insert exit %q", exit.Name)
	}
	return exit, nil
}

func (s *Store) AddItemUnlockingItem(ctx context.Context, item world.Item) (world.Item, error) {
	if item.Kind != world.KindUnlocksItem {
		return world.Item{}, fmt.Errorf("item %q is not an item-unlocking item", item.Name)
	}
	return s.addItem(ctx, item, `INSERT INTO item_unlocking_items (item_id, unlocks_item) VALUES (?, ?)`)
}

func (s *Store) AddExitUnlockingItem(ctx context.Context, item world.Item) (world.Item, error) {
	if item.Kind != world.KindUnlocksExit {
		return world.Item{}, fmt.Errorf("item %q is not an exit-unlocking item", item.Name)
	}
	return s.addItem(ctx, item, `INSERT INTO exit_unlocking_items (item_id, unlocks_exit) VALUES (?, ?)`)
}

func (s *Store) addItem(ctx context.Context, item world.Item, variantSQL string) (world.Item, error) {
	if err := item.Validate(); err != nil {
		return world.Item{}, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return world.Item{}, fmt.Errorf("begin add item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if item.Kind == world.KindUnlocksItem {
		var found int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM items WHERE id = ?`, item.Unlocks).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return world.Item{}, fmt.Errorf("item %q unlocks item %s: %w", item.Name, item.Unlocks, storage.ErrNotFound)
		}
		if err != nil {
			return world.Item{}, fmt.Errorf("check unlock target: %w", err)
		}
	}

	item.ID = uuid.New()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, name, description, use_message, owned_by_player, in_room, locked)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.UseMessage,
		nullable(item.Location.Player), nullable(item.Location.Room), item.Locked,
	)
	if err != nil {
		return world.Item{}, mapWriteError(err, "insert item %q", item.Name)
	}
	if _, err := tx.ExecContext(ctx, variantSQL, item.ID, item.Unlocks); err != nil {
		return world.Item{}, mapWriteError(err, "insert item %q variant", item.Name)
	}
	if err := tx.Commit(); err != nil {
		return world.Item{}, fmt.Errorf("commit add item: %w", err)
	}
	return item, nil
}

func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func (s *Store) AddPlayer(ctx context.Context, player world.Player) (world.Player, error) {
	player.ID = uuid.New()
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (id, created_by_user, currently_in_room) VALUES (?, ?, ?)`,
		player.ID, player.CreatedByUser, player.CurrentRoom,
	)
	if err != nil {
		return world.Player{}, mapWriteError(err, "insert player")
	}
	return player, nil
}

func (s *Store) FindPlayer(ctx context.Context, playerID uuid.UUID) (world.Player, error) {
	var p world.Player
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, created_by_user, currently_in_room FROM players WHERE id = ?`, playerID,
	).Scan(&p.ID, &p.CreatedByUser, &p.CurrentRoom)
	if errors.Is(err, sql.ErrNoRows) {
		return world.Player{}, fmt.Errorf("player %s: %w", playerID, storage.ErrNotFound)
	}
	if err != nil {
		return world.Player{}, fmt.Errorf("query player: %w", err)
	}
	return p, nil
}

func (s *Store) FindRoomOccupiedByPlayer(ctx context.Context, playerID uuid.UUID) (world.Room, error) {
	var r world.Room
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT r.id, r.name, r.description, r.final_room
		 FROM players p JOIN rooms r ON r.id = p.currently_in_room
		 WHERE p.id = ?`, playerID,
	).Scan(&r.ID, &r.Name, &r.Description, &r.Final)
	if errors.Is(err, sql.ErrNoRows) {
		return world.Room{}, fmt.Errorf("player %s: %w", playerID, storage.ErrPlayerNotInRoom)
	}
	if err != nil {
		return world.Room{}, fmt.Errorf("query room for player: %w", err)
	}
	return r, nil
}

func (s *Store) FindExitsFromRoom(ctx context.Context, roomID uuid.UUID) ([]world.Exit, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, name, description, from_room, to_room, locked
		 FROM exits WHERE from_room = ? ORDER BY rowid`, roomID)
	if err != nil {
		return nil, fmt.Errorf("query exits: %w", err)
	}
	defer rows.Close()

	var exits []world.Exit
	for rows.Next() {
		var e world.Exit
		if err := rows.Scan(&e.ID, &e.Name, &e.Description, &e.FromRoom, &e.ToRoom, &e.Locked); err != nil {
			return nil, fmt.Errorf("scan exit: %w", err)
		}
		exits = append(exits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exits: %w", err)
	}
	return exits, nil
}

const itemSelect = `SELECT i.id, i.name, i.description, i.use_message, i.owned_by_player, i.in_room, i.locked,
       iu.unlocks_item, eu.unlocks_exit
FROM items i
LEFT JOIN item_unlocking_items iu ON iu.item_id = i.id
LEFT JOIN exit_unlocking_items eu ON eu.item_id = i.id
`

func (s *Store) FindUnlockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error) {
	return s.queryItems(ctx, itemSelect+`WHERE i.in_room = ? AND NOT i.locked ORDER BY i.rowid`, roomID)
}

func (s *Store) FindLockedItemsInRoom(ctx context.Context, roomID uuid.UUID) ([]world.Item, error) {
	return s.queryItems(ctx, itemSelect+`WHERE i.in_room = ? AND i.locked ORDER BY i.rowid`, roomID)
}

func (s *Store) FindItemsOwnedByPlayer(ctx context.Context, playerID uuid.UUID) ([]world.Item, error) {
	return s.queryItems(ctx, itemSelect+`WHERE i.owned_by_player = ? ORDER BY i.rowid`, playerID)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]world.Item, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []world.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (world.Item, error) {
	var (
		item                     world.Item
		owner, room              uuid.NullUUID
		unlocksItem, unlocksExit uuid.NullUUID
	)
	if err := rows.Scan(&item.ID, &item.Name, &item.Description, &item.UseMessage,
		&owner, &room, &item.Locked, &unlocksItem, &unlocksExit); err != nil {
		return world.Item{}, fmt.Errorf("scan item: %w", err)
	}
	item.Location = world.ItemLocation{Room: room.UUID, Player: owner.UUID}

	switch {
	case unlocksItem.Valid:
		item.Kind = world.KindUnlocksItem
		item.Unlocks = unlocksItem.UUID
	case unlocksExit.Valid:
		item.Kind = world.KindUnlocksExit
		item.Unlocks = unlocksExit.UUID
	default:
		return world.Item{}, fmt.Errorf("item %s: %w", item.ID, storage.ErrNoSuchItem)
	}
	return item, nil
}

func (s *Store) PlayerInFinalRoom(ctx context.Context, playerID uuid.UUID) (bool, error) {
	var final bool
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT r.final_room FROM players p JOIN rooms r ON r.id = p.currently_in_room WHERE p.id = ?`,
		playerID,
	).Scan(&final)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("player %s: %w", playerID, storage.ErrPlayerNotInRoom)
	}
	if err != nil {
		return false, fmt.Errorf("query final room: %w", err)
	}
	return final, nil
}

func (s *Store) MovePlayer(ctx context.Context, playerID, newRoomID uuid.UUID) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE players SET currently_in_room = ? WHERE id = ?`, newRoomID, playerID)
	if err != nil {
		return mapWriteError(err, "move player %s to room %s", playerID, newRoomID)
	}
	return expectOneRow(res, "player", playerID)
}

func (s *Store) MoveItemToPlayer(ctx context.Context, itemID, playerID uuid.UUID) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE items SET owned_by_player = ?, in_room = NULL WHERE id = ?`, playerID, itemID)
	if err != nil {
		return mapWriteError(err, "move item %s to player %s", itemID, playerID)
	}
	return expectOneRow(res, "item", itemID)
}

func (s *Store) UnlockExit(ctx context.Context, exitID uuid.UUID) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE exits SET locked = 0 WHERE id = ?`, exitID)
	if err != nil {
		return fmt.Errorf("unlock exit %s: %w", exitID, err)
	}
	return expectOneRow(res, "exit", exitID)
}

func (s *Store) UnlockItem(ctx context.Context, itemID uuid.UUID) error {
	res, err := s.sqlDB.ExecContext(ctx, `UPDATE items SET locked = 0 WHERE id = ?`, itemID)
	if err != nil {
		return fmt.Errorf("unlock item %s: %w", itemID, err)
	}
	return expectOneRow(res, "item", itemID)
}

func (s *Store) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete item: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM item_unlocking_items WHERE item_id = ?`,
		`DELETE FROM exit_unlocking_items WHERE item_id = ?`,
		`DELETE FROM items WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, itemID); err != nil {
			return fmt.Errorf("delete item %s: %w", itemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete item: %w", err)
	}
	return nil
}
