package storage

// Statements are executed one by one so both drivers accept them.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS weddings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		wedding_id INTEGER NOT NULL REFERENCES weddings(id) ON DELETE CASCADE,
		name TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS cities_wedding_name ON cities (wedding_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS categories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		wedding_id INTEGER NOT NULL REFERENCES weddings(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'checkbox'
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS categories_wedding_name ON categories (wedding_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS guests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		wedding_id INTEGER NOT NULL REFERENCES weddings(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		city_id INTEGER REFERENCES cities(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS guests_wedding ON guests (wedding_id)`,
	`CREATE TABLE IF NOT EXISTS checks (
		guest_id INTEGER NOT NULL REFERENCES guests(id) ON DELETE CASCADE,
		category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		checked BOOLEAN NOT NULL DEFAULT 0,
		PRIMARY KEY (guest_id, category_id)
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS weddings (
		id BIGSERIAL PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cities (
		id BIGSERIAL PRIMARY KEY,
		wedding_id BIGINT NOT NULL REFERENCES weddings(id) ON DELETE CASCADE,
		name TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS cities_wedding_name ON cities (wedding_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGSERIAL PRIMARY KEY,
		wedding_id BIGINT NOT NULL REFERENCES weddings(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'checkbox'
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS categories_wedding_name ON categories (wedding_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS guests (
		id BIGSERIAL PRIMARY KEY,
		wedding_id BIGINT NOT NULL REFERENCES weddings(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		city_id BIGINT REFERENCES cities(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS guests_wedding ON guests (wedding_id)`,
	`CREATE TABLE IF NOT EXISTS checks (
		guest_id BIGINT NOT NULL REFERENCES guests(id) ON DELETE CASCADE,
		category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		checked BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (guest_id, category_id)
	)`,
}
