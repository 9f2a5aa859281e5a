package database

import (
	"database/sql"
)

type PgSocialChatRepository struct {
	conn *sql.DB
}

func NewPgSocialChatRepository(dsn string) (*PgSocialChatRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgSocialChatRepository{conn: db}, nil
}

func (db *PgSocialChatRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgSocialChatRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
