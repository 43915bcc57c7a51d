package users

// Schema contains the SQL statements to create the user directory schema.
const Schema = `
-- Users table: role of every known identity; unknown identities are plain users
CREATE TABLE IF NOT EXISTS users (
    id         TEXT PRIMARY KEY NOT NULL,
    role       TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`

// userIDMaxLength is the maximum length of a user ID.
const userIDMaxLength = 64
