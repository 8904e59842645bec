package database

// Schema is the full sqlite schema. searches/platform_ratings keep one row
// set per execution; history is appended, never overwritten, and cache
// lookups read only the newest row per query.
const Schema = `
CREATE TABLE IF NOT EXISTS searches (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	avg_rating REAL,
	total_reviews INTEGER NOT NULL DEFAULT 0,
	platform_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_searches_query
	ON searches(query, created_at DESC);

CREATE TABLE IF NOT EXISTS platform_ratings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	search_id TEXT NOT NULL REFERENCES searches(id) ON DELETE CASCADE,
	platform TEXT NOT NULL,
	book_title TEXT NOT NULL DEFAULT '',
	rating REAL,
	rating_scale REAL NOT NULL,
	normalized_rating REAL,
	review_count INTEGER NOT NULL DEFAULT 0,
	url TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_platform_ratings_search
	ON platform_ratings(search_id);

CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
