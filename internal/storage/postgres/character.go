package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waystone-mud/waystone/internal/game/entity"
)

// ErrCharacterNotFound is returned when a character lookup yields no rows.
var ErrCharacterNotFound = errors.New("character not found")

// ErrCharacterNameTaken is returned when creating a character with a name
// that already exists.
var ErrCharacterNameTaken = errors.New("character name already taken")

// CharacterStore persists player characters, including the combat state
// that must survive a session: health, experience, wimpy threshold, skill
// cooldowns, and location.
type CharacterStore struct {
	db *pgxpool.Pool
}

// NewCharacterStore creates a CharacterStore backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterStore(db *pgxpool.Pool) *CharacterStore {
	return &CharacterStore{db: db}
}

// Create inserts a new character and returns the stored record with its
// generated ID.
//
// Precondition: rec.Name must be non-empty; rec.MaxHP > 0.
// Postcondition: Returns the created record, or ErrCharacterNameTaken on a
// duplicate name.
func (s *CharacterStore) Create(ctx context.Context, rec entity.PlayerRecord) (entity.PlayerRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	attrs, cds, err := marshalJSONColumns(rec)
	if err != nil {
		return entity.PlayerRecord{}, err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO characters
			(id, name, level, experience, current_hp, max_hp,
			 attributes, wimpy, room_id, cooldowns)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.Name, rec.Level, rec.XP, rec.CurrentHP, rec.MaxHP,
		attrs, rec.Wimpy, rec.RoomID, cds,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return entity.PlayerRecord{}, ErrCharacterNameTaken
		}
		return entity.PlayerRecord{}, fmt.Errorf("inserting character: %w", err)
	}
	return rec, nil
}

// GetByName retrieves a character by display name.
//
// Postcondition: Returns the record or ErrCharacterNotFound.
func (s *CharacterStore) GetByName(ctx context.Context, name string) (entity.PlayerRecord, error) {
	return s.get(ctx, `WHERE name = $1`, name)
}

// GetByID retrieves a character by its primary key.
//
// Postcondition: Returns the record or ErrCharacterNotFound.
func (s *CharacterStore) GetByID(ctx context.Context, id string) (entity.PlayerRecord, error) {
	return s.get(ctx, `WHERE id = $1`, id)
}

func (s *CharacterStore) get(ctx context.Context, where string, arg any) (entity.PlayerRecord, error) {
	var (
		rec       entity.PlayerRecord
		attrsJSON []byte
		cdsJSON   []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, name, level, experience, current_hp, max_hp,
		       attributes, wimpy, room_id, cooldowns
		FROM characters `+where,
		arg,
	).Scan(
		&rec.ID, &rec.Name, &rec.Level, &rec.XP, &rec.CurrentHP, &rec.MaxHP,
		&attrsJSON, &rec.Wimpy, &rec.RoomID, &cdsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.PlayerRecord{}, ErrCharacterNotFound
		}
		return entity.PlayerRecord{}, fmt.Errorf("querying character: %w", err)
	}
	if err := json.Unmarshal(attrsJSON, &rec.Attributes); err != nil {
		return entity.PlayerRecord{}, fmt.Errorf("decoding attributes: %w", err)
	}
	if err := json.Unmarshal(cdsJSON, &rec.Cooldowns); err != nil {
		return entity.PlayerRecord{}, fmt.Errorf("decoding cooldowns: %w", err)
	}
	return rec, nil
}

// Save persists the full mutable state of a character after combat or
// logout.
//
// Postcondition: Returns nil on success, ErrCharacterNotFound if no row
// was updated.
func (s *CharacterStore) Save(ctx context.Context, rec entity.PlayerRecord) error {
	attrs, cds, err := marshalJSONColumns(rec)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE characters
		SET level = $2, experience = $3, current_hp = $4,
		    attributes = $5, wimpy = $6, room_id = $7, cooldowns = $8,
		    updated_at = NOW()
		WHERE id = $1`,
		rec.ID, rec.Level, rec.XP, rec.CurrentHP,
		attrs, rec.Wimpy, rec.RoomID, cds,
	)
	if err != nil {
		return fmt.Errorf("saving character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// SetWimpy persists only the auto-flee threshold. Wimpy changes happen
// outside combat settlement, so they get their own narrow write.
//
// Precondition: wimpy must be in [0, 99].
func (s *CharacterStore) SetWimpy(ctx context.Context, id string, wimpy int) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE characters SET wimpy = $2, updated_at = NOW() WHERE id = $1`,
		id, wimpy,
	)
	if err != nil {
		return fmt.Errorf("saving wimpy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

func marshalJSONColumns(rec entity.PlayerRecord) (attrs, cds []byte, err error) {
	a := rec.Attributes
	if a == nil {
		a = map[string]int{}
	}
	attrs, err = json.Marshal(a)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding attributes: %w", err)
	}
	c := rec.Cooldowns
	if c == nil {
		cds = []byte("{}")
		return attrs, cds, nil
	}
	cds, err = json.Marshal(c)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding cooldowns: %w", err)
	}
	return attrs, cds, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
