package database

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    telegram_token TEXT NOT NULL DEFAULT '',
    telegram_chat_id TEXT NOT NULL DEFAULT '',
    gmail_email TEXT NOT NULL DEFAULT '',
    gmail_app_password TEXT NOT NULL DEFAULT '',
    filter_subject TEXT NOT NULL DEFAULT '',
    is_running BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS found_codes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL,
    source TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    found_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_found_codes_found_at ON found_codes(found_at);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS settings (
    id SERIAL PRIMARY KEY,
    telegram_token TEXT NOT NULL DEFAULT '',
    telegram_chat_id TEXT NOT NULL DEFAULT '',
    gmail_email TEXT NOT NULL DEFAULT '',
    gmail_app_password TEXT NOT NULL DEFAULT '',
    filter_subject TEXT NOT NULL DEFAULT '',
    is_running BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS found_codes (
    id SERIAL PRIMARY KEY,
    code TEXT NOT NULL,
    source TEXT NOT NULL,
    content TEXT NOT NULL DEFAULT '',
    found_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_found_codes_found_at ON found_codes(found_at);
`
