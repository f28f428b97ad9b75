package db

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/deemkeen/minipub/domain"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// DB is the sqlite-backed store for users, notes and followers.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and tunes it for
// concurrent request handling. Pass ":memory:" in tests.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if path == ":memory:" {
		// Every pooled connection would otherwise get its own empty
		// in-memory database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
		log.Printf("Warning: Failed to enable WAL mode: %v", err)
	}

	db.Exec("PRAGMA synchronous = NORMAL")
	db.Exec("PRAGMA busy_timeout = 5000")
	db.Exec("PRAGMA foreign_keys = ON")

	return &DB{db: db}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// wrapTransaction runs the given function within a transaction.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("error starting transaction: %s", err)
		return domain.WrapError(domain.ErrPersistence, err)
	}
	for {
		err = f(tx)
		if err != nil {
			var serr *sqlite.Error
			if errors.As(err, &serr) && serr.Code() == sqlitelib.SQLITE_BUSY {
				continue
			}
			tx.Rollback()
			return err
		}
		err = tx.Commit()
		if err != nil {
			log.Printf("error committing transaction: %s", err)
			return domain.WrapError(domain.ErrPersistence, err)
		}
		break
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint hit.
func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlitelib.SQLITE_CONSTRAINT
}

// Users

const (
	sqlInsertUser = `INSERT INTO users(id, username, display_name, web_public_key, web_private_key, created_at, updated_at)
                        VALUES (?, ?, ?, ?, ?, ?, ?)`
	sqlSelectUserById = `SELECT id, username, display_name, web_public_key, web_private_key, created_at, updated_at
                        FROM users WHERE id = ?`
	sqlSelectUserByUsername = `SELECT id, username, display_name, web_public_key, web_private_key, created_at, updated_at
                        FROM users WHERE username = ?`
	sqlSelectAllUsers = `SELECT id, username, display_name, web_public_key, web_private_key, created_at, updated_at
                        FROM users ORDER BY created_at`
	sqlUpdateUser = `UPDATE users SET username = ?, display_name = ?, updated_at = ? WHERE id = ?`
	sqlDeleteUser = `DELETE FROM users WHERE id = ?`
)

func (db *DB) CreateUser(user *domain.User) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertUser,
			user.Id,
			user.Username,
			user.DisplayName,
			user.KeyPair.PublicKeyPem,
			user.KeyPair.PrivateKeyPem,
			user.CreatedAt,
			user.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewError(domain.ErrUsernameTaken)
			}
			return domain.WrapError(domain.ErrPersistence, err)
		}
		return nil
	})
}

func (db *DB) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.Id, &user.Username, &user.DisplayName,
		&user.KeyPair.PublicKeyPem, &user.KeyPair.PrivateKeyPem,
		&user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewError(domain.ErrUserNotFound)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	return &user, nil
}

func (db *DB) ReadUserById(id uuid.UUID) (*domain.User, error) {
	return db.scanUser(db.db.QueryRow(sqlSelectUserById, id))
}

func (db *DB) ReadUserByUsername(username string) (*domain.User, error) {
	return db.scanUser(db.db.QueryRow(sqlSelectUserByUsername, username))
}

func (db *DB) ReadAllUsers() ([]domain.User, error) {
	rows, err := db.db.Query(sqlSelectAllUsers)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.Id, &user.Username, &user.DisplayName,
			&user.KeyPair.PublicKeyPem, &user.KeyPair.PrivateKeyPem,
			&user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	return users, nil
}

func (db *DB) UpdateUser(user *domain.User) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlUpdateUser, user.Username, user.DisplayName, time.Now().UTC(), user.Id)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.NewError(domain.ErrUsernameTaken)
			}
			return domain.WrapError(domain.ErrPersistence, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return domain.WrapError(domain.ErrPersistence, err)
		}
		if affected == 0 {
			return domain.NewError(domain.ErrUserNotFound)
		}
		return nil
	})
}

func (db *DB) DeleteUser(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteUser, id); err != nil {
			return domain.WrapError(domain.ErrPersistence, err)
		}
		return nil
	})
}

// Notes

const (
	sqlInsertNote = `INSERT INTO notes(id, user_id, content, status, created_at, updated_at)
                        VALUES (?, ?, ?, ?, ?, ?)`
	sqlSelectNoteById = `SELECT id, user_id, content, status, created_at, updated_at
                        FROM notes WHERE user_id = ? AND id = ? AND status != 'DELETED'`
	sqlSelectNotesByUserId = `SELECT id, user_id, content, status, created_at, updated_at
                        FROM notes WHERE user_id = ? AND status != 'DELETED'
                        ORDER BY created_at DESC LIMIT ? OFFSET ?`
	sqlCountNotesByUserId = `SELECT count(*) FROM notes WHERE user_id = ? AND status != 'DELETED'`
	sqlUpdateNoteStatus   = `UPDATE notes SET status = ?, updated_at = ? WHERE user_id = ? AND id = ?`
)

func (db *DB) CreateNote(note *domain.Note) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertNote, note.Id, note.UserId, note.Content,
			string(note.Status), note.CreatedAt, note.UpdatedAt)
		if err != nil {
			return domain.WrapError(domain.ErrPersistence, err)
		}
		return nil
	})
}

func (db *DB) ReadNoteById(userId uuid.UUID, noteId uuid.UUID) (*domain.Note, error) {
	var note domain.Note
	var status string
	row := db.db.QueryRow(sqlSelectNoteById, userId, noteId)
	err := row.Scan(&note.Id, &note.UserId, &note.Content, &status, &note.CreatedAt, &note.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewError(domain.ErrNoteNotFound)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	note.Status = domain.NoteStatus(status)
	return &note, nil
}

func (db *DB) ReadNotesByUserId(userId uuid.UUID, offset int, limit int) (*domain.NotesPage, error) {
	if limit <= 0 {
		limit = domain.DefaultNotesLimit
	}
	if offset < 0 {
		offset = domain.DefaultNotesOffset
	}

	var total int
	if err := db.db.QueryRow(sqlCountNotesByUserId, userId).Scan(&total); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}

	rows, err := db.db.Query(sqlSelectNotesByUserId, userId, limit, offset)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	defer rows.Close()

	page := &domain.NotesPage{Total: total}
	for rows.Next() {
		var note domain.Note
		var status string
		if err := rows.Scan(&note.Id, &note.UserId, &note.Content, &status,
			&note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, err)
		}
		note.Status = domain.NoteStatus(status)
		page.Notes = append(page.Notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	return page, nil
}

func (db *DB) UpdateNoteStatus(userId uuid.UUID, noteId uuid.UUID, status domain.NoteStatus) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		res, err := tx.Exec(sqlUpdateNoteStatus, string(status), time.Now().UTC(), userId, noteId)
		if err != nil {
			return domain.WrapError(domain.ErrPersistence, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return domain.WrapError(domain.ErrPersistence, err)
		}
		if affected == 0 {
			return domain.NewError(domain.ErrNoteNotFound)
		}
		return nil
	})
}

// Followers

const (
	// Repeated Follows from the same actor refresh the existing row
	// instead of duplicating it.
	sqlInsertFollower = `INSERT INTO followers(user_id, actor, object, inbox, created_at)
                        VALUES (?, ?, ?, ?, ?)
                        ON CONFLICT(user_id, actor) DO UPDATE SET object = excluded.object, inbox = excluded.inbox`
	sqlSelectFollowersByUserId = `SELECT id, user_id, actor, object, inbox, created_at
                        FROM followers WHERE user_id = ? ORDER BY id`
	sqlDeleteFollower = `DELETE FROM followers WHERE id = ?`
)

func (db *DB) AddFollower(follower *domain.Follower) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertFollower, follower.UserId, follower.Actor,
			follower.Object, follower.Inbox, follower.CreatedAt)
		if err != nil {
			return domain.WrapError(domain.ErrPersistence, err)
		}
		return nil
	})
}

func (db *DB) ReadFollowersByUserId(userId uuid.UUID) ([]domain.Follower, error) {
	rows, err := db.db.Query(sqlSelectFollowersByUserId, userId)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	defer rows.Close()

	var followers []domain.Follower
	for rows.Next() {
		var f domain.Follower
		if err := rows.Scan(&f.Id, &f.UserId, &f.Actor, &f.Object, &f.Inbox, &f.CreatedAt); err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, err)
		}
		followers = append(followers, f)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, err)
	}
	return followers, nil
}

func (db *DB) DeleteFollower(id int64) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(sqlDeleteFollower, id); err != nil {
			return domain.WrapError(domain.ErrPersistence, err)
		}
		return nil
	})
}
