package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found, expired, or blocked")
)

type User struct {
	ID                    int       `json:"id"`
	Username              string    `json:"username"`
	Email                 string    `json:"email"`
	Password              string    `json:"-"`
	AuthProvider          string    `json:"-"`
	IsEmailVerified       bool      `json:"is_email_verified"`
	VerificationToken     string    `json:"-"`
	VerificationExpiresAt time.Time `json:"-"`
	ResetToken            string    `json:"-"`
	ResetExpiresAt        time.Time `json:"-"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

type Session struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes the user's password using bcrypt.
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user and sets its assigned id.
func (u *User) CreateUser(db *sql.DB) error {
	query := `
	INSERT INTO users (username, password, email, auth_provider, is_email_verified, email_verification_token, email_verification_token_expires_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if u.AuthProvider == "" {
		u.AuthProvider = "local"
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now

	res, err := stmt.Exec(u.Username, u.Password, u.Email, u.AuthProvider, u.IsEmailVerified,
		nullableString(u.VerificationToken), nullableTime(u.VerificationExpiresAt), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	return nil
}

const userColumns = `id, username, password, email, auth_provider, is_email_verified,
	email_verification_token, email_verification_token_expires_at,
	password_reset_token, password_reset_token_expires_at, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var authProvider, verificationToken, resetToken sql.NullString
	var verificationExpires, resetExpires sql.NullTime

	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &authProvider,
		&user.IsEmailVerified, &verificationToken, &verificationExpires,
		&resetToken, &resetExpires, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.AuthProvider = authProvider.String
	if user.AuthProvider == "" {
		user.AuthProvider = "local"
	}
	user.VerificationToken = verificationToken.String
	user.VerificationExpiresAt = verificationExpires.Time
	user.ResetToken = resetToken.String
	user.ResetExpiresAt = resetExpires.Time
	return &user, nil
}

func GetUserByUsername(db *sql.DB, username string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func GetUserByEmail(db *sql.DB, email string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func GetUserByID(db *sql.DB, id int) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByVerificationToken finds a user whose email verification token is
// still valid.
func GetUserByVerificationToken(db *sql.DB, token string) (*User, error) {
	return scanUser(db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email_verification_token = ? AND email_verification_token_expires_at > ?`,
		token, time.Now()))
}

// GetUserByResetToken finds a user whose password reset token is still valid.
func GetUserByResetToken(db *sql.DB, token string) (*User, error) {
	return scanUser(db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE password_reset_token = ? AND password_reset_token_expires_at > ?`,
		token, time.Now()))
}

// MarkEmailVerified clears the verification token and flags the user.
func MarkEmailVerified(db *sql.DB, userID int) error {
	_, err := db.Exec(
		`UPDATE users SET is_email_verified = TRUE, email_verification_token = NULL, email_verification_token_expires_at = NULL, updated_at = ? WHERE id = ?`,
		time.Now(), userID)
	return err
}

// SetResetToken stores a password reset token and its expiry.
func SetResetToken(db *sql.DB, userID int, token string, expiresAt time.Time) error {
	_, err := db.Exec(
		`UPDATE users SET password_reset_token = ?, password_reset_token_expires_at = ?, updated_at = ? WHERE id = ?`,
		token, expiresAt, time.Now(), userID)
	return err
}

// UpdatePassword replaces the stored hash and clears any reset token.
func UpdatePassword(db *sql.DB, userID int, hashedPassword string) error {
	_, err := db.Exec(
		`UPDATE users SET password = ?, password_reset_token = NULL, password_reset_token_expires_at = NULL, updated_at = ? WHERE id = ?`,
		hashedPassword, time.Now(), userID)
	return err
}

// CreateSession inserts a new session into the database.
func CreateSession(db *sql.DB, session *Session) error {
	query := `
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := db.Prepare(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	session.CreatedAt = time.Now()
	_, err = stmt.Exec(
		session.UserID,
		session.Token,
		session.RefreshToken,
		session.UserAgent,
		session.ClientIP,
		session.IsBlocked,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

func scanSession(row *sql.Row) (*Session, error) {
	var session Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.RefreshToken,
		&session.UserAgent,
		&session.ClientIP,
		&session.IsBlocked,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

const sessionColumns = `id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at`

// GetSessionByToken retrieves an active, non-blocked session by its access token.
func GetSessionByToken(db *sql.DB, token string) (*Session, error) {
	return scanSession(db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE token = ? AND is_blocked = FALSE AND expires_at > ?`,
		token, time.Now()))
}

// GetSessionByRefreshToken retrieves an active session by its refresh token.
func GetSessionByRefreshToken(db *sql.DB, refreshToken string) (*Session, error) {
	return scanSession(db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token = ? AND is_blocked = FALSE AND expires_at > ?`,
		refreshToken, time.Now()))
}

// UpdateSessionTokens rotates the access and refresh tokens after a refresh.
func UpdateSessionTokens(db *sql.DB, sessionID int, token, refreshToken string, expiresAt time.Time) error {
	_, err := db.Exec(
		`UPDATE sessions SET token = ?, refresh_token = ?, expires_at = ? WHERE id = ?`,
		token, refreshToken, expiresAt, sessionID)
	return err
}

// DeleteSessionByToken removes a session based on the access token. A missing
// session is not an error: logout should succeed either way.
func DeleteSessionByToken(db *sql.DB, token string) error {
	stmt, err := db.Prepare(`DELETE FROM sessions WHERE token = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(token)
	return err
}

// DeleteSessionsByUserID removes every session the user holds.
func DeleteSessionsByUserID(db *sql.DB, userID int) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
