package database

import (
	"time"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for a unique constraint failure.
const uniqueViolation = "23505"

func (db *PgSocialChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, display_name, password_hash, role, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, username, display_name, role, created_at",
		params.Username,
		params.DisplayName,
		params.PasswordHash,
		params.Role,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.DisplayName,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return User{}, ErrDuplicateUsername
		}
		return User{}, err
	}

	return u, nil
}

func (db *PgSocialChatRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, display_name, password_hash, role, created_at FROM accounts "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)

	return user, err
}

func (db *PgSocialChatRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (content, sender_id, room, is_read, created_at) "+
			"VALUES ($1, $2, $3, false, $4) RETURNING id, created_at",
		params.Content,
		params.SenderId,
		params.Room,
		time.Now().UTC(),
	)

	msg := Message{
		Content:  params.Content,
		SenderId: params.SenderId,
		Room:     params.Room,
	}
	if err := res.Scan(&msg.Id, &msg.CreatedAt); err != nil {
		return Message{}, err
	}

	return msg, nil
}

func (db *PgSocialChatRepository) GetMessages(room string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.content, m.sender_id, a.username, m.room, m.is_read, m.created_at "+
			"FROM messages m JOIN accounts a ON m.sender_id = a.id "+
			"WHERE m.room = $1 ORDER BY m.created_at DESC LIMIT $2",
		room,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.Id,
			&m.Content,
			&m.SenderId,
			&m.Username,
			&m.Room,
			&m.IsRead,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// query returns newest-first for the LIMIT, history is served oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
